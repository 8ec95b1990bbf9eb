package regulation

import "github.com/dshills/protoaudit/internal/schema"

// vaccine covers an infectious-disease / vaccine trial.
func vaccine() []schema.Rule {
	return []schema.Rule{
		{ID: "FDA-21-CFR-50", Category: "Protection of Human Subjects", RiskLevel: schema.RiskHigh},
		{ID: "FDA-21-CFR-56", Category: "Institutional Review Boards", RiskLevel: schema.RiskMedium},
		{ID: "EMA-GCP-R2", Category: "Good Clinical Practice Guidelines", RiskLevel: schema.RiskHigh},
		{ID: "GDPR-Health", Category: "Patient Data Privacy Standards", RiskLevel: schema.RiskHigh},
	}
}
