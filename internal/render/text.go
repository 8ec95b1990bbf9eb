package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/protoaudit/internal/schema"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	approvedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	reviewStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	partialStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB347"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// textRenderer prints a terminal summary. Colors are dropped automatically
// when the output is not a terminal.
type textRenderer struct{}

func (r *textRenderer) Render(report *schema.Report) ([]byte, error) {
	var summary []string
	summary = append(summary, fmt.Sprintf("%s %s", titleStyle.Render("PROTOAUDIT ·"), verdictStyle(report.Status).Render(string(report.Status))))
	if report.OverallHealthScore != nil {
		summary = append(summary, fmt.Sprintf("Overall health score: %s", percent(report.OverallHealthScore)))
	} else {
		summary = append(summary, fmt.Sprintf("Compliant: %d  Partial: %d  Non-Compliant: %d",
			report.CompliantCount, report.PartialCount, report.NonCompliantCount))
	}
	summary = append(summary,
		fmt.Sprintf("Findings: %d  Critical violations: %d", report.FindingsCount, report.CriticalViolations),
		report.Summary,
	)

	var b strings.Builder
	b.WriteString(boxStyle.Render(strings.Join(summary, "\n")))
	b.WriteString("\n")

	for _, f := range report.Findings {
		marker := approvedStyle.Render("✓")
		switch f.Severity() {
		case 2:
			marker = reviewStyle.Render("✗")
		case 1:
			marker = partialStyle.Render("~")
		}
		fmt.Fprintf(&b, "%s %s [%s] %s\n", marker, f.RegulationID, f.RiskLevel, result(f))
		fmt.Fprintf(&b, "    %s\n", mutedStyle.Render(f.Evidence))
	}

	footer := fmt.Sprintf("policy %s · run %s", report.Policy, report.RunID)
	if report.Meta.Model != "" {
		footer += " · model " + report.Meta.Model
	}
	b.WriteString(mutedStyle.Render(footer))
	b.WriteString("\n")
	return []byte(b.String()), nil
}

func verdictStyle(v schema.Verdict) lipgloss.Style {
	if v == schema.VerdictApproved {
		return approvedStyle
	}
	return reviewStyle
}
