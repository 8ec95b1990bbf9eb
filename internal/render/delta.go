package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/protoaudit/internal/compare"
)

// Delta formats a report comparison as "json" or "text".
func Delta(format string, d *compare.Delta) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "text":
		return deltaText(d), nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, text", format)
	}
}

func deltaText(d *compare.Delta) []byte {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("PROTOAUDIT · %s → %s", d.BaselineRunID, d.CurrentRunID)))
	b.WriteString("\n")

	if d.Empty() {
		b.WriteString(mutedStyle.Render("no changes"))
		b.WriteString("\n")
		return []byte(b.String())
	}
	if d.StatusChange != "" {
		fmt.Fprintf(&b, "status: %s\n", d.StatusChange)
	}
	if d.ScoreDelta != nil {
		fmt.Fprintf(&b, "score: %+.2f points\n", *d.ScoreDelta*100)
	}

	for _, c := range d.Resolved {
		fmt.Fprintf(&b, "%s %s %s -> %s\n", approvedStyle.Render("resolved "), c.RegulationID, result(c.Before), result(c.After))
	}
	for _, c := range d.Regressed {
		fmt.Fprintf(&b, "%s %s %s -> %s\n", reviewStyle.Render("regressed"), c.RegulationID, result(c.Before), result(c.After))
	}
	for _, c := range d.Changed {
		fmt.Fprintf(&b, "changed   %s %s -> %s\n", c.RegulationID, result(c.Before), result(c.After))
	}
	for _, f := range d.New {
		fmt.Fprintf(&b, "new       %s %s\n", f.RegulationID, result(f))
	}
	for _, f := range d.Dropped {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("dropped  "), f.RegulationID)
	}
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("%d unchanged", d.Unchanged)))

	if d.SummaryPatch != "" {
		b.WriteString("\nsummary patch:\n")
		b.WriteString(d.SummaryPatch)
	}
	return []byte(b.String())
}
