// Package review aggregates findings into the summary fields of a compliance
// report. Every aggregate is computed over the full finding list, before any
// risk filtering.
package review

import (
	"fmt"
	"math"

	"github.com/dshills/protoaudit/internal/schema"
)

const stage = "synthesize"

// approvalScore is the mean compliance a score-based audit must exceed.
const approvalScore = 0.85

// scorePrecision is the number of decimal places kept in the health score.
const scorePrecision = 1e4

// Synthesize builds the report summary for findings. Findings must all come
// from the same policy family: score-based or status-based.
func Synthesize(findings []schema.Finding) (*schema.Report, error) {
	if err := check(findings); err != nil {
		return nil, err
	}

	rep := &schema.Report{
		FindingsCount:      len(findings),
		CriticalViolations: CriticalCount(findings),
		Findings:           append([]schema.Finding(nil), findings...),
	}

	if findings[0].ScoreBased() {
		score := Score(findings)
		rep.OverallHealthScore = &score
		rep.Status = Verdict(findings)
		rep.Summary = fmt.Sprintf(
			"Audit processed successfully with an average compliance of %.2f%%. %d critical gaps identified.",
			score*100, rep.CriticalViolations)
		return rep, nil
	}

	rep.CompliantCount, rep.PartialCount, rep.NonCompliantCount = Counts(findings)
	rep.Status = Verdict(findings)
	rep.Summary = fmt.Sprintf(
		"Audit processed successfully: %d of %d regulations compliant. %d critical gaps identified.",
		rep.CompliantCount, len(findings), rep.CriticalViolations)
	return rep, nil
}

// check rejects empty input, mixed policy families, and status-based findings
// with an unknown status.
func check(findings []schema.Finding) error {
	if len(findings) == 0 {
		return &schema.EmptyInputError{Stage: stage, What: "findings"}
	}
	scoreBased := findings[0].ScoreBased()
	for i, f := range findings {
		if f.ScoreBased() != scoreBased {
			return &schema.ValidationError{
				Stage:  stage,
				RuleID: f.RegulationID,
				Index:  i,
				Field:  "compliance_score",
				Reason: "mixes score-based and status-based findings",
			}
		}
		if !scoreBased && !schema.IsValidStatus(f.Status) {
			return &schema.ValidationError{
				Stage:  stage,
				RuleID: f.RegulationID,
				Index:  i,
				Field:  "status",
				Reason: fmt.Sprintf("%q is not one of Compliant, Partial, Non-Compliant", f.Status),
			}
		}
	}
	return nil
}

// Score returns the arithmetic mean of the compliance scores, rounded to four
// decimal places. Status-based findings contribute nothing; an input with no
// scores returns 0.
func Score(findings []schema.Finding) float64 {
	var sum float64
	n := 0
	for _, f := range findings {
		if f.ComplianceScore != nil {
			sum += *f.ComplianceScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*scorePrecision) / scorePrecision
}

// Verdict computes the report status from all findings.
// Score-based: APPROVED iff the mean score is strictly above 0.85 and no gap
// was flagged. Status-based: APPROVED iff every finding is Compliant.
func Verdict(findings []schema.Finding) schema.Verdict {
	if len(findings) == 0 {
		return schema.VerdictNeedsReview
	}
	if findings[0].ScoreBased() {
		if Score(findings) > approvalScore && CriticalCount(findings) == 0 {
			return schema.VerdictApproved
		}
		return schema.VerdictNeedsReview
	}
	for _, f := range findings {
		if f.Status != schema.StatusCompliant {
			return schema.VerdictNeedsReview
		}
	}
	return schema.VerdictApproved
}

// CriticalCount returns the number of critical violations.
func CriticalCount(findings []schema.Finding) int {
	n := 0
	for _, f := range findings {
		if f.Critical() {
			n++
		}
	}
	return n
}

// Counts returns the compliant, partial, and non-compliant counts.
func Counts(findings []schema.Finding) (compliant, partial, nonCompliant int) {
	for _, f := range findings {
		switch f.Status {
		case schema.StatusCompliant:
			compliant++
		case schema.StatusPartial:
			partial++
		case schema.StatusNonCompliant:
			nonCompliant++
		}
	}
	return
}

// FilterByRisk returns only findings at or above the given risk level.
func FilterByRisk(findings []schema.Finding, threshold schema.RiskLevel) []schema.Finding {
	if threshold == schema.RiskLow || threshold == "" {
		return findings
	}
	out := make([]schema.Finding, 0, len(findings))
	for _, f := range findings {
		if schema.RiskOrdinal(f.RiskLevel) >= schema.RiskOrdinal(threshold) {
			out = append(out, f)
		}
	}
	return out
}
