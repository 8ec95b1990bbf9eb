package schema

import "time"

// Report is the top-level compliance report written by the audit command.
// The first five fields are the synthesized summary; the rest describe the run.
type Report struct {
	OverallHealthScore *float64 `json:"overall_health_score,omitempty"` // score-based policies only
	Status             Verdict  `json:"status"`
	FindingsCount      int      `json:"findings_count"`
	CriticalViolations int      `json:"critical_violations"`
	Summary            string   `json:"summary"`

	// Per-status counts; populated for status-based policies only.
	CompliantCount    int `json:"compliant_count,omitempty"`
	PartialCount      int `json:"partial_count,omitempty"`
	NonCompliantCount int `json:"non_compliant_count,omitempty"`

	Tool     string    `json:"tool"`
	Version  string    `json:"version"`
	RunID    string    `json:"run_id"`
	Policy   Policy    `json:"policy"`
	Input    Input     `json:"input"`
	Findings []Finding `json:"findings"`
	Meta     Meta      `json:"meta"`
}

// Input captures the parameters used for this run.
type Input struct {
	ProtocolFile     string `json:"protocol_file"`
	ProtocolHash     string `json:"protocol_hash"` // SHA-256 of the original file, computed before redaction
	RegulationSource string `json:"regulation_source"`
	RuleCount        int    `json:"rule_count"`
	Seed             *int64 `json:"seed,omitempty"`
	RiskThreshold    string `json:"risk_threshold"`
}

// Meta holds runtime metadata about the run.
type Meta struct {
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Verdict is the overall report status.
type Verdict string

const (
	VerdictApproved    Verdict = "APPROVED"
	VerdictNeedsReview Verdict = "NEEDS REVIEW"
)

// Policy names a finding evaluation strategy.
type Policy string

const (
	PolicyStochastic Policy = "stochastic"
	PolicyKeyword    Policy = "keyword"
	PolicyModel      Policy = "model"
)

// ScoreBased reports whether findings produced under p carry a compliance score
// rather than a status.
func (p Policy) ScoreBased() bool {
	return p == PolicyStochastic
}

// RiskLevel is the regulatory risk of a rule.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskOrdinal returns the numeric ordering for a risk level.
// Low(0) < Medium(1) < High(2). Returns -1 for an unrecognised level.
func RiskOrdinal(r RiskLevel) int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

// IsValidRiskLevel reports whether r is one of the three defined risk levels.
func IsValidRiskLevel(r RiskLevel) bool {
	return RiskOrdinal(r) >= 0
}

// Status is the judgment of a status-based finding.
type Status string

const (
	StatusCompliant    Status = "Compliant"
	StatusPartial      Status = "Partial"
	StatusNonCompliant Status = "Non-Compliant"
)

// IsValidStatus reports whether s is one of the three finding statuses.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusCompliant, StatusPartial, StatusNonCompliant:
		return true
	}
	return false
}

// Rule is a single regulatory rule record.
type Rule struct {
	ID        string    `json:"id" yaml:"id"`
	Category  string    `json:"category" yaml:"category"`
	RiskLevel RiskLevel `json:"risk_level" yaml:"risk_level"`
}

// Finding is the per-rule compliance judgment. Exactly one of ComplianceScore
// or Status is set, depending on the policy that produced it.
type Finding struct {
	RegulationID    string    `json:"regulation_id"`
	Category        string    `json:"category"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ComplianceScore *float64  `json:"compliance_score,omitempty"`
	Status          Status    `json:"status,omitempty"`
	GapDetected     bool      `json:"gap_detected"`
	Evidence        string    `json:"evidence"`
}

// ScoreBased reports whether f carries a numeric compliance score.
func (f Finding) ScoreBased() bool {
	return f.ComplianceScore != nil
}

// Critical reports whether f counts as a critical violation: a flagged gap for
// score-based findings, Non-Compliant for status-based ones.
func (f Finding) Critical() bool {
	if f.ScoreBased() {
		return f.GapDetected
	}
	return f.Status == StatusNonCompliant
}

// Severity ranks how far f falls short: 0 when met, 1 for Partial, 2 for a
// critical violation.
func (f Finding) Severity() int {
	switch {
	case f.Critical():
		return 2
	case f.Status == StatusPartial:
		return 1
	}
	return 0
}
