package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/protoaudit/internal/schema"
)

func scored(scores ...float64) []schema.Finding {
	findings := make([]schema.Finding, len(scores))
	for i := range scores {
		findings[i] = schema.Finding{
			RegulationID:    "R" + string(rune('A'+i)),
			RiskLevel:       schema.RiskMedium,
			ComplianceScore: &scores[i],
		}
	}
	return findings
}

func statuses(ss ...schema.Status) []schema.Finding {
	findings := make([]schema.Finding, len(ss))
	for i, s := range ss {
		findings[i] = schema.Finding{
			RegulationID: "R" + string(rune('A'+i)),
			RiskLevel:    schema.RiskMedium,
			Status:       s,
			GapDetected:  s == schema.StatusNonCompliant,
		}
	}
	return findings
}

// --- score-based ---

func TestSynthesize_BoundaryScoreNeedsReview(t *testing.T) {
	rep, err := Synthesize(scored(0.90, 0.80, 0.70, 1.0))
	require.NoError(t, err)
	require.NotNil(t, rep.OverallHealthScore)
	assert.Equal(t, 0.85, *rep.OverallHealthScore)
	assert.Equal(t, schema.VerdictNeedsReview, rep.Status, "score must be strictly above 0.85")
	assert.Zero(t, rep.CriticalViolations)
	assert.Equal(t, "Audit processed successfully with an average compliance of 85.00%. 0 critical gaps identified.", rep.Summary)
}

func TestSynthesize_HighScoreWithGapNeedsReview(t *testing.T) {
	findings := scored(0.90, 0.95)
	findings[1].GapDetected = true
	rep, err := Synthesize(findings)
	require.NoError(t, err)
	assert.Equal(t, 0.925, *rep.OverallHealthScore)
	assert.Equal(t, 1, rep.CriticalViolations)
	assert.Equal(t, schema.VerdictNeedsReview, rep.Status)
}

func TestSynthesize_Approved(t *testing.T) {
	rep, err := Synthesize(scored(0.90, 0.95))
	require.NoError(t, err)
	assert.Equal(t, schema.VerdictApproved, rep.Status)
	assert.Equal(t, 2, rep.FindingsCount)
	assert.Zero(t, rep.CompliantCount+rep.PartialCount+rep.NonCompliantCount,
		"per-status counts stay zero for score-based findings")
}

func TestSynthesize_DoesNotAliasInput(t *testing.T) {
	findings := scored(0.9)
	rep, err := Synthesize(findings)
	require.NoError(t, err)
	findings[0].RegulationID = "mutated"
	assert.NotEqual(t, "mutated", rep.Findings[0].RegulationID, "report findings share the caller's backing array")
}

// --- status-based ---

func TestSynthesize_StatusBased(t *testing.T) {
	rep, err := Synthesize(statuses(schema.StatusNonCompliant, schema.StatusPartial, schema.StatusCompliant, schema.StatusCompliant))
	require.NoError(t, err)
	assert.Nil(t, rep.OverallHealthScore)
	assert.Equal(t, 1, rep.CriticalViolations, "Non-Compliant only")
	assert.Equal(t, 2, rep.CompliantCount)
	assert.Equal(t, 1, rep.PartialCount)
	assert.Equal(t, 1, rep.NonCompliantCount)
	assert.Equal(t, "Audit processed successfully: 2 of 4 regulations compliant. 1 critical gaps identified.", rep.Summary)
	assert.Equal(t, schema.VerdictNeedsReview, rep.Status)
}

func TestVerdict_PartialOnlyNeedsReview(t *testing.T) {
	assert.Equal(t, schema.VerdictNeedsReview, Verdict(statuses(schema.StatusCompliant, schema.StatusPartial)))
}

func TestVerdict_AllCompliantApproved(t *testing.T) {
	assert.Equal(t, schema.VerdictApproved, Verdict(statuses(schema.StatusCompliant, schema.StatusCompliant)))
}

// --- errors ---

func TestSynthesize_Empty(t *testing.T) {
	_, err := Synthesize(nil)
	var empty *schema.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestSynthesize_MixedFamilies(t *testing.T) {
	findings := append(scored(0.9), statuses(schema.StatusCompliant)...)
	_, err := Synthesize(findings)
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)
}

func TestSynthesize_UnknownStatus(t *testing.T) {
	_, err := Synthesize(statuses("Unknown"))
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
}

// --- FilterByRisk ---

func TestFilterByRisk_HighThreshold(t *testing.T) {
	findings := scored(0.9, 0.8, 0.7)
	findings[0].RiskLevel = schema.RiskHigh
	findings[2].RiskLevel = schema.RiskLow
	filtered := FilterByRisk(findings, schema.RiskHigh)
	require.Len(t, filtered, 1)
	assert.Equal(t, schema.RiskHigh, filtered[0].RiskLevel)
}

func TestFilterByRisk_LowThresholdReturnsAll(t *testing.T) {
	assert.Len(t, FilterByRisk(scored(0.9, 0.8, 0.7), schema.RiskLow), 3)
}
