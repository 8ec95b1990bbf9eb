// Package compare diffs two compliance reports of the same protocol, keyed by
// regulation id.
package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/protoaudit/internal/schema"
)

// Change pairs the baseline and current finding for one regulation.
type Change struct {
	RegulationID string         `json:"regulation_id"`
	Before       schema.Finding `json:"before"`
	After        schema.Finding `json:"after"`
}

// Delta describes how the current report differs from the baseline.
type Delta struct {
	BaselineRunID string `json:"baseline_run_id,omitempty"`
	CurrentRunID  string `json:"current_run_id,omitempty"`

	// StatusChange is "BEFORE -> AFTER", empty when the status held.
	StatusChange string `json:"status_change,omitempty"`
	// ScoreDelta is current minus baseline; set only when both reports carry a score.
	ScoreDelta *float64 `json:"score_delta,omitempty"`

	New       []schema.Finding `json:"new"`       // only in current
	Dropped   []schema.Finding `json:"dropped"`   // only in baseline
	Resolved  []Change         `json:"resolved"`  // severity fell
	Regressed []Change         `json:"regressed"` // severity rose
	Changed   []Change         `json:"changed"`
	Unchanged int              `json:"unchanged"`

	SummaryPatch string `json:"summary_patch,omitempty"`
}

// Empty reports whether nothing differs between the two reports.
func (d *Delta) Empty() bool {
	return d.StatusChange == "" && (d.ScoreDelta == nil || *d.ScoreDelta == 0) &&
		len(d.New) == 0 && len(d.Dropped) == 0 && len(d.Resolved) == 0 &&
		len(d.Regressed) == 0 && len(d.Changed) == 0
}

// LoadReport reads a JSON report written by the audit command.
func LoadReport(path string) (*schema.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var rep schema.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &rep, nil
}

// Compare returns the delta from baseline to current. Findings keep the
// current report's order; dropped findings keep the baseline's.
func Compare(baseline, current *schema.Report) *Delta {
	d := &Delta{
		BaselineRunID: baseline.RunID,
		CurrentRunID:  current.RunID,
		New:           []schema.Finding{},
		Dropped:       []schema.Finding{},
		Resolved:      []Change{},
		Regressed:     []Change{},
		Changed:       []Change{},
	}

	if baseline.Status != current.Status {
		d.StatusChange = fmt.Sprintf("%s -> %s", baseline.Status, current.Status)
	}
	if baseline.OverallHealthScore != nil && current.OverallHealthScore != nil {
		delta := math.Round((*current.OverallHealthScore-*baseline.OverallHealthScore)*1e4) / 1e4
		d.ScoreDelta = &delta
	}

	before := make(map[string]schema.Finding, len(baseline.Findings))
	for _, f := range baseline.Findings {
		before[f.RegulationID] = f
	}
	seen := make(map[string]bool, len(current.Findings))

	for _, after := range current.Findings {
		seen[after.RegulationID] = true
		prev, ok := before[after.RegulationID]
		if !ok {
			d.New = append(d.New, after)
			continue
		}
		c := Change{RegulationID: after.RegulationID, Before: prev, After: after}
		switch {
		case after.Severity() < prev.Severity():
			d.Resolved = append(d.Resolved, c)
		case after.Severity() > prev.Severity():
			d.Regressed = append(d.Regressed, c)
		case !sameJudgment(prev, after):
			d.Changed = append(d.Changed, c)
		default:
			d.Unchanged++
		}
	}
	for _, f := range baseline.Findings {
		if !seen[f.RegulationID] {
			d.Dropped = append(d.Dropped, f)
		}
	}

	d.SummaryPatch = summaryPatch(baseline.Summary, current.Summary)
	return d
}

func sameJudgment(a, b schema.Finding) bool {
	if a.Status != b.Status || a.Evidence != b.Evidence || a.RiskLevel != b.RiskLevel {
		return false
	}
	if (a.ComplianceScore == nil) != (b.ComplianceScore == nil) {
		return false
	}
	return a.ComplianceScore == nil || *a.ComplianceScore == *b.ComplianceScore
}

// summaryPatch renders the change between two summaries as diff-match-patch
// patch text. Identical summaries produce an empty string.
func summaryPatch(before, after string) string {
	before, after = normalize(before), normalize(after)
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}

// normalize trims trailing whitespace from each line and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
