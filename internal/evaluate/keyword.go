package evaluate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/schema"
	"github.com/dshills/protoaudit/internal/schema/validate"
)

const (
	justificationConsent = "Protocol lacks explicit reference to FDA 21 CFR Part 50 as required."
	justificationSafety  = "Adverse event reporting is mentioned but without specific timelines."
)

// Keyword judges each rule by fixed substring checks on the protocol text.
// The first matching check wins:
//
//  1. "Informed Consent" rules fail when the text never cites "CFR".
//  2. "Safety" rules are partial when the text never mentions a "timeline".
//  3. Everything else is compliant.
type Keyword struct {
	log *zap.Logger
}

// NewKeyword returns a keyword evaluator.
func NewKeyword(log *zap.Logger) *Keyword {
	if log == nil {
		log = zap.NewNop()
	}
	return &Keyword{log: log}
}

func (k *Keyword) Policy() schema.Policy { return schema.PolicyKeyword }

func (k *Keyword) Evaluate(_ context.Context, rules []schema.Rule, p *protocol.Protocol) ([]schema.Finding, error) {
	if err := validate.Rules(stage, rules); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &schema.ValidationError{Stage: stage, Index: -1, Field: "protocol", Reason: "is required"}
	}
	if err := validate.Protocol(stage, p.Raw); err != nil {
		return nil, err
	}

	text := p.Raw
	lower := strings.ToLower(text)

	findings := make([]schema.Finding, 0, len(rules))
	for _, r := range rules {
		f := judge(r, text, lower)
		findings = append(findings, f)
		k.log.Debug("rule judged", zap.String("rule", r.ID), zap.String("status", string(f.Status)))
	}
	k.log.Info("audit complete", zap.Int("findings", len(findings)))
	return findings, nil
}

func judge(r schema.Rule, text, lower string) schema.Finding {
	switch {
	case strings.Contains(r.Category, "Informed Consent") && !strings.Contains(text, "CFR"):
		return statusFinding(r, schema.StatusNonCompliant, justificationConsent)
	case strings.Contains(r.Category, "Safety") && !strings.Contains(lower, "timeline"):
		return statusFinding(r, schema.StatusPartial, justificationSafety)
	default:
		return statusFinding(r, schema.StatusCompliant, fmt.Sprintf(
			"The protocol's section on %s matches the regulatory requirements defined in %s.", r.Category, r.ID))
	}
}
