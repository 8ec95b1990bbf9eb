package evaluate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/llm"
	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/redact"
	"github.com/dshills/protoaudit/internal/reference"
	"github.com/dshills/protoaudit/internal/schema"
	"github.com/dshills/protoaudit/internal/schema/validate"
)

// Model asks a completion provider for a status verdict per rule. Rules are
// evaluated one request at a time, in order.
type Model struct {
	provider    llm.Provider
	refs        []reference.Document
	strict      bool
	temperature float64
	maxTokens   int
	log         *zap.Logger

	model string
}

func (m *Model) Policy() schema.Policy { return schema.PolicyModel }

// ModelName returns the "provider:model" string echoed by the last response.
func (m *Model) ModelName() string { return m.model }

func (m *Model) Evaluate(ctx context.Context, rules []schema.Rule, p *protocol.Protocol) ([]schema.Finding, error) {
	if err := validate.Rules(stage, rules); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &schema.ValidationError{Stage: stage, Index: -1, Field: "protocol", Reason: "is required"}
	}
	if err := validate.Protocol(stage, p.Raw); err != nil {
		return nil, err
	}

	// The protocol leaves the machine, so it is redacted first.
	scrubbed := *p
	scrubbed.Raw = redact.Redact(p.Raw)
	scrubbed.Numbered = redact.Redact(p.Numbered)

	sys := llm.BuildSystemPrompt(m.strict)
	m.log.Debug("system prompt", zap.String("prompt", sys))
	findings := make([]schema.Finding, 0, len(rules))
	for i, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: rule[%d] (%s): %w", stage, i, r.ID, err)
		}
		req := &llm.Request{
			SystemPrompt: sys,
			UserPrompt:   llm.BuildUserPrompt(&scrubbed, r, m.refs),
			Temperature:  m.temperature,
			MaxTokens:    m.maxTokens,
			JSON:         true,
		}
		// The prompt is logged after redaction.
		m.log.Debug("requesting verdict", zap.String("rule", r.ID), zap.String("prompt", req.UserPrompt))

		verdict, model, err := callWithRetry(ctx, m.provider, req, m.log)
		if err != nil {
			return nil, fmt.Errorf("%s: rule[%d] (%s): %w", stage, i, r.ID, err)
		}
		m.model = model
		findings = append(findings, statusFinding(r, verdict.Status, verdict.Justification))
	}
	m.log.Info("audit complete", zap.Int("findings", len(findings)), zap.String("model", m.model))
	return findings, nil
}

// callWithRetry attempts a completion and retries once on validation failure.
// Returns the parsed verdict and the model string from the response.
func callWithRetry(ctx context.Context, provider llm.Provider, req *llm.Request, log *zap.Logger) (*validate.ModelVerdict, string, error) {
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("model call failed: %w", err)
	}
	log.Debug("model responded", zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens), zap.Int("output_tokens", resp.OutputTokens))

	verdict, parseErr := validate.ParseVerdict(resp.Content)
	if parseErr == nil {
		return verdict, resp.Model, nil
	}

	log.Info("verdict failed validation, retrying", zap.Error(parseErr))

	// Only a fixed category is echoed back, never the model's own output, to
	// keep the previous response from steering the retry.
	repairReq := *req
	repairReq.UserPrompt = req.UserPrompt + fmt.Sprintf(
		"\n\nYour previous response failed validation (error category: %q). Return only the JSON object described above.",
		sanitizeErrForPrompt(parseErr),
	)

	resp2, err := provider.Complete(ctx, &repairReq)
	if err != nil {
		return nil, "", fmt.Errorf("model retry call failed: %w", err)
	}

	verdict, parseErr = validate.ParseVerdict(resp2.Content)
	if parseErr != nil {
		return nil, "", fmt.Errorf("invalid model output after retry: %w", parseErr)
	}
	return verdict, resp2.Model, nil
}

// sanitizeErrForPrompt classifies a parse error into a fixed category string.
func sanitizeErrForPrompt(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "JSON parse failed"):
		return "JSON syntax error"
	case strings.Contains(msg, "invalid status"):
		return "invalid enum value (status must be Compliant, Partial, or Non-Compliant)"
	case strings.Contains(msg, "justification is required"):
		return "missing required field"
	default:
		return "validation error"
	}
}
