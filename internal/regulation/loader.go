package regulation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/protoaudit/internal/schema"
	"github.com/dshills/protoaudit/internal/schema/validate"
)

// record is the on-disk shape of a rule. Older rule files name the label
// "body"; it is accepted when "category" is absent.
type record struct {
	ID        string `json:"id" yaml:"id"`
	Category  string `json:"category" yaml:"category"`
	Body      string `json:"body" yaml:"body"`
	RiskLevel string `json:"risk_level" yaml:"risk_level"`
}

type document struct {
	Regulations []record `json:"regulations" yaml:"regulations"`
}

// Load reads a JSON or YAML rule file. The file holds either a bare list of
// rule records or a mapping with a "regulations" list. The rules are validated
// before they are returned.
func Load(path string) ([]schema.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regulation file: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes rule records from JSON or YAML bytes and validates them.
func Parse(data []byte) ([]schema.Rule, error) {
	var (
		records []record
		err     error
	)
	// Tab-indented JSON is not valid YAML, so JSON goes through encoding/json.
	if json.Valid(data) {
		records, err = decodeJSON(data)
	} else {
		records, err = decodeYAML(data)
	}
	if err != nil {
		return nil, err
	}

	rules := make([]schema.Rule, len(records))
	for i, rec := range records {
		category := rec.Category
		if category == "" {
			category = rec.Body
		}
		rules[i] = schema.Rule{
			ID:        strings.TrimSpace(rec.ID),
			Category:  strings.TrimSpace(category),
			RiskLevel: normalizeRisk(rec.RiskLevel),
		}
	}

	if err := validate.Rules("regulation", rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func decodeJSON(data []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding rule list: %w", err)
		}
		return records, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decoding regulations document: %w", err)
	}
	return doc.Regulations, nil
}

func decodeYAML(data []byte) ([]record, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing regulation file: %w", err)
	}

	var records []record
	if len(root.Content) > 0 {
		node := root.Content[0]
		switch node.Kind {
		case yaml.SequenceNode:
			if err := node.Decode(&records); err != nil {
				return nil, fmt.Errorf("decoding rule list: %w", err)
			}
		case yaml.MappingNode:
			var doc document
			if err := node.Decode(&doc); err != nil {
				return nil, fmt.Errorf("decoding regulations document: %w", err)
			}
			records = doc.Regulations
		default:
			return nil, fmt.Errorf("regulation file must contain a list or a regulations mapping")
		}
	}
	return records, nil
}

// normalizeRisk maps "high", "HIGH", etc. onto the canonical spelling. Unknown
// values are passed through so validation can report them.
func normalizeRisk(s string) schema.RiskLevel {
	s = strings.TrimSpace(s)
	for _, r := range []schema.RiskLevel{schema.RiskLow, schema.RiskMedium, schema.RiskHigh} {
		if strings.EqualFold(s, string(r)) {
			return r
		}
	}
	return schema.RiskLevel(s)
}
