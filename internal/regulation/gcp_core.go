package regulation

import "github.com/dshills/protoaudit/internal/schema"

func gcpCore() []schema.Rule {
	return []schema.Rule{
		{ID: "FDA-21-CFR-50.25", Category: "Informed Consent Elements", RiskLevel: schema.RiskHigh},
		{ID: "ICH-E6-4.11", Category: "Safety Reporting", RiskLevel: schema.RiskHigh},
		{ID: "FDA-21-CFR-56.109", Category: "IRB Oversight", RiskLevel: schema.RiskMedium},
		{ID: "FDA-21-CFR-11", Category: "Data Integrity and Electronic Records", RiskLevel: schema.RiskMedium},
		{ID: "ICH-E6-5.18", Category: "Trial Monitoring", RiskLevel: schema.RiskLow},
	}
}
