package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/protoaudit/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"result":  result,
	"percent": percent,
}).Parse(`# Protocol Compliance Report

**Status:** {{ .Status }}
{{ with .OverallHealthScore }}**Overall health score:** {{ percent . }}
{{ end }}**Findings:** {{ .FindingsCount }} | **Critical violations:** {{ .CriticalViolations }}
{{ if not .OverallHealthScore }}**Compliant:** {{ .CompliantCount }} | **Partial:** {{ .PartialCount }} | **Non-Compliant:** {{ .NonCompliantCount }}
{{ end }}
{{ .Summary }}
> Note: counts reflect all findings; --risk-threshold may hide some from this output.
{{ if .Findings }}
---

## Findings

| Regulation | Category | Risk | Result | Gap |
|---|---|---|---|---|
{{ range .Findings }}| {{ .RegulationID }} | {{ .Category }} | {{ .RiskLevel }} | {{ result . }} | {{ if .GapDetected }}yes{{ else }}no{{ end }} |
{{ end }}
## Evidence
{{ range .Findings }}
### {{ .RegulationID }} · {{ .Category }}
{{ .Evidence }}
{{ end }}{{ end }}
---
*Protocol: {{ .Input.ProtocolFile }} | Regulations: {{ .Input.RegulationSource }} | Policy: {{ .Policy }}{{ with .Meta.Model }} | Model: {{ . }}{{ end }} | Run: {{ .RunID }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
