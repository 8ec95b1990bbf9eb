package render

import (
	"fmt"

	"github.com/dshills/protoaudit/internal/schema"
)

// Renderer formats a Report into bytes for output.
type Renderer interface {
	Render(report *schema.Report) ([]byte, error)
}

// Formats lists the supported --format values.
var Formats = []string{"json", "md", "text"}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md", "text".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	case "text":
		return &textRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md, text", format)
	}
}

// result is the per-finding judgment shown in md and text output: the score
// for score-based findings, the status otherwise.
func result(f schema.Finding) string {
	if f.ComplianceScore != nil {
		return fmt.Sprintf("%.2f", *f.ComplianceScore)
	}
	return string(f.Status)
}

func percent(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *score*100)
}
