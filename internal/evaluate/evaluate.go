// Package evaluate turns regulation rules into findings. Each policy is a
// separate Evaluator; a run uses exactly one of them.
package evaluate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/llm"
	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/reference"
	"github.com/dshills/protoaudit/internal/schema"
)

const stage = "evaluate"

// Evaluator produces exactly one finding per rule, in input order. Malformed
// rules fail the whole call before any finding is produced.
type Evaluator interface {
	Policy() schema.Policy
	Evaluate(ctx context.Context, rules []schema.Rule, p *protocol.Protocol) ([]schema.Finding, error)
}

// Options carries the collaborators each policy may need. Fields a policy
// does not use are ignored.
type Options struct {
	// Rand drives the stochastic policy. A time-seeded source is used when nil.
	Rand *rand.Rand

	// Model policy settings.
	Provider    llm.Provider
	References  []reference.Document
	Strict      bool
	Temperature float64
	MaxTokens   int

	Logger *zap.Logger
}

// ParsePolicy converts a flag or config value to a Policy.
func ParsePolicy(s string) (schema.Policy, error) {
	switch p := schema.Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case schema.PolicyStochastic, schema.PolicyKeyword, schema.PolicyModel:
		return p, nil
	}
	return "", fmt.Errorf("unknown policy %q: valid policies are stochastic, keyword, model", s)
}

// New returns the Evaluator for the given policy.
func New(policy schema.Policy, opts Options) (Evaluator, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("analyzer").With(zap.String("policy", string(policy)))

	switch policy {
	case schema.PolicyStochastic:
		rng := opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		return NewStochastic(rng, log), nil
	case schema.PolicyKeyword:
		return NewKeyword(log), nil
	case schema.PolicyModel:
		if opts.Provider == nil {
			return nil, fmt.Errorf("model policy requires a provider")
		}
		return &Model{
			provider:    opts.Provider,
			refs:        opts.References,
			strict:      opts.Strict,
			temperature: opts.Temperature,
			maxTokens:   opts.MaxTokens,
			log:         log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}

// statusFinding builds a status-based finding. Only Non-Compliant is a gap;
// Partial shows through the status alone.
func statusFinding(r schema.Rule, status schema.Status, evidence string) schema.Finding {
	return schema.Finding{
		RegulationID: r.ID,
		Category:     r.Category,
		RiskLevel:    r.RiskLevel,
		Status:       status,
		GapDetected:  status == schema.StatusNonCompliant,
		Evidence:     evidence,
	}
}
