package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/protoaudit/internal/schema"
)

// Rules checks every rule for the required fields and for duplicate ids.
// It stops at the first offending rule so that no partial finding set is ever
// produced from a malformed rule list.
func Rules(stage string, rules []schema.Rule) error {
	if len(rules) == 0 {
		return &schema.EmptyInputError{Stage: stage, What: "regulation rules"}
	}
	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		if err := rule(stage, r, i); err != nil {
			return err
		}
		if prev, ok := seen[r.ID]; ok {
			return &schema.ValidationError{
				Stage:  stage,
				RuleID: r.ID,
				Index:  i,
				Field:  "id",
				Reason: fmt.Sprintf("duplicates rule[%d]", prev),
			}
		}
		seen[r.ID] = i
	}
	return nil
}

func rule(stage string, r schema.Rule, idx int) error {
	fail := func(field, reason string) error {
		return &schema.ValidationError{Stage: stage, RuleID: r.ID, Index: idx, Field: field, Reason: reason}
	}
	if strings.TrimSpace(r.ID) == "" {
		return fail("id", "is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fail("category", "is required")
	}
	if r.RiskLevel == "" {
		return fail("risk_level", "is required")
	}
	if !schema.IsValidRiskLevel(r.RiskLevel) {
		return fail("risk_level", fmt.Sprintf("%q is not one of Low, Medium, High", r.RiskLevel))
	}
	return nil
}

// Protocol rejects blank protocol text for policies that read it.
func Protocol(stage, text string) error {
	if strings.TrimSpace(text) == "" {
		return &schema.ValidationError{Stage: stage, Index: -1, Field: "protocol", Reason: "text is empty"}
	}
	return nil
}

// ModelVerdict is the JSON object a model returns for a single rule.
type ModelVerdict struct {
	Status        schema.Status `json:"status"`
	Justification string        `json:"justification"`
}

// ParseVerdict strips markdown fences, unmarshals JSON, and validates a model's
// verdict for a single rule.
func ParseVerdict(raw string) (*ModelVerdict, error) {
	cleaned := stripFences(raw)

	var v ModelVerdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}
	if !schema.IsValidStatus(v.Status) {
		return nil, fmt.Errorf("invalid status %q (must be Compliant, Partial, or Non-Compliant)", v.Status)
	}
	if strings.TrimSpace(v.Justification) == "" {
		return nil, fmt.Errorf("justification is required")
	}
	return &v, nil
}

// stripFences removes leading/trailing markdown code fences (```json ... ``` or ``` ... ```).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove first line (the fence opener)
		idx := strings.Index(s, "\n")
		if idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		idx := strings.LastIndex(s, "\n```")
		if idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
