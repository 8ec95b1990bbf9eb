package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/protoaudit/internal/schema"
)

func score(v float64) *float64 { return &v }

func baselineReport() *schema.Report {
	return &schema.Report{
		RunID:              "run-1",
		OverallHealthScore: score(0.82),
		Status:             schema.VerdictNeedsReview,
		Summary:            "Audit processed successfully with an average compliance of 82.00%. 1 critical gaps identified.",
		Findings: []schema.Finding{
			{RegulationID: "FDA-21-CFR-50", RiskLevel: schema.RiskHigh, ComplianceScore: score(0.75), GapDetected: true, Evidence: "Missing specific informed consent clause."},
			{RegulationID: "ICH-E6-R2", RiskLevel: schema.RiskMedium, ComplianceScore: score(0.90), Evidence: "Observed protocol section 4.2 matches requirements."},
			{RegulationID: "GDPR-Health", RiskLevel: schema.RiskMedium, ComplianceScore: score(0.81), Evidence: "Observed protocol section 4.2 matches requirements."},
			{RegulationID: "EMA-CTR-536", RiskLevel: schema.RiskHigh, ComplianceScore: score(0.80), Evidence: "Observed protocol section 4.2 matches requirements."},
		},
	}
}

func currentReport() *schema.Report {
	return &schema.Report{
		RunID:              "run-2",
		OverallHealthScore: score(0.9),
		Status:             schema.VerdictApproved,
		Summary:            "Audit processed successfully with an average compliance of 90.00%. 0 critical gaps identified.",
		Findings: []schema.Finding{
			{RegulationID: "FDA-21-CFR-50", RiskLevel: schema.RiskHigh, ComplianceScore: score(0.93), Evidence: "Observed protocol section 4.2 matches requirements."},
			{RegulationID: "ICH-E6-R2", RiskLevel: schema.RiskMedium, ComplianceScore: score(0.90), Evidence: "Observed protocol section 4.2 matches requirements."},
			{RegulationID: "GDPR-Health", RiskLevel: schema.RiskMedium, ComplianceScore: score(0.88), Evidence: "Observed protocol section 4.2 matches requirements."},
			{RegulationID: "ICH-E6-SAE", RiskLevel: schema.RiskHigh, ComplianceScore: score(0.89), Evidence: "Observed protocol section 4.2 matches requirements."},
		},
	}
}

func TestCompare_Categorizes(t *testing.T) {
	d := Compare(baselineReport(), currentReport())

	assert.Equal(t, "run-1", d.BaselineRunID)
	assert.Equal(t, "NEEDS REVIEW -> APPROVED", d.StatusChange)
	require.NotNil(t, d.ScoreDelta)
	assert.InDelta(t, 0.08, *d.ScoreDelta, 1e-9)

	require.Len(t, d.Resolved, 1)
	assert.Equal(t, "FDA-21-CFR-50", d.Resolved[0].RegulationID)
	require.Len(t, d.Changed, 1)
	assert.Equal(t, "GDPR-Health", d.Changed[0].RegulationID)
	require.Len(t, d.New, 1)
	assert.Equal(t, "ICH-E6-SAE", d.New[0].RegulationID)
	require.Len(t, d.Dropped, 1)
	assert.Equal(t, "EMA-CTR-536", d.Dropped[0].RegulationID)
	assert.Empty(t, d.Regressed)
	assert.Equal(t, 1, d.Unchanged)

	assert.Contains(t, d.SummaryPatch, "@@")
	assert.False(t, d.Empty())
}

func TestCompare_Regression(t *testing.T) {
	base := currentReport()
	cur := currentReport()
	cur.Findings[1].GapDetected = true
	d := Compare(base, cur)
	require.Len(t, d.Regressed, 1)
	assert.Equal(t, "ICH-E6-R2", d.Regressed[0].RegulationID)
}

func TestCompare_Identical(t *testing.T) {
	d := Compare(currentReport(), currentReport())
	assert.True(t, d.Empty())
	assert.Equal(t, 4, d.Unchanged)
	assert.Empty(t, d.SummaryPatch)
}

func statusReport(ss ...schema.Status) *schema.Report {
	rep := &schema.Report{Status: schema.VerdictNeedsReview}
	for i, s := range ss {
		rep.Findings = append(rep.Findings, schema.Finding{
			RegulationID: string(rune('A' + i)),
			Status:       s,
			GapDetected:  s == schema.StatusNonCompliant,
		})
	}
	return rep
}

func TestCompare_StatusBasedHasNoScoreDelta(t *testing.T) {
	d := Compare(statusReport(schema.StatusNonCompliant), statusReport(schema.StatusNonCompliant))
	assert.Nil(t, d.ScoreDelta)
	assert.Equal(t, 1, d.Unchanged)
}

func TestCompare_StatusSeverity(t *testing.T) {
	tests := []struct {
		name      string
		before    schema.Status
		after     schema.Status
		regressed bool
		resolved  bool
	}{
		{"partial to non-compliant", schema.StatusPartial, schema.StatusNonCompliant, true, false},
		{"compliant to partial", schema.StatusCompliant, schema.StatusPartial, true, false},
		{"compliant to non-compliant", schema.StatusCompliant, schema.StatusNonCompliant, true, false},
		{"non-compliant to partial", schema.StatusNonCompliant, schema.StatusPartial, false, true},
		{"partial to compliant", schema.StatusPartial, schema.StatusCompliant, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare(statusReport(tt.before), statusReport(tt.after))
			assert.Equal(t, tt.regressed, len(d.Regressed) == 1, "regressed: %+v", d.Regressed)
			assert.Equal(t, tt.resolved, len(d.Resolved) == 1, "resolved: %+v", d.Resolved)
			assert.Empty(t, d.Changed)
		})
	}
}

func TestLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status":"APPROVED","run_id":"abc","findings":[{"regulation_id":"A","status":"Compliant"}]}`), 0o644))

	rep, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, schema.VerdictApproved, rep.Status)
	assert.Equal(t, "abc", rep.RunID)
	require.Len(t, rep.Findings, 1)
}

func TestLoadReport_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err := LoadReport(path)
	assert.Error(t, err)

	_, err = LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb", normalize("a  \r\nb\t"))
}
