// Package audit runs the three-stage compliance pipeline: the researcher
// resolves regulation rules, the analyzer evaluates them against the protocol,
// and the synthesizer aggregates the findings into a report.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/evaluate"
	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/regulation"
	"github.com/dshills/protoaudit/internal/review"
	"github.com/dshills/protoaudit/internal/schema"
)

// Tool is the report's tool name.
const Tool = "protoaudit"

// Options configures a single audit run.
type Options struct {
	// Protocol is the document under audit; the built-in sample when nil.
	Protocol *protocol.Protocol
	// RegulationsPath is a rule file. When empty, Catalog names a built-in
	// rule set.
	RegulationsPath string
	Catalog         string

	Evaluator     evaluate.Evaluator
	RiskThreshold schema.RiskLevel
	Seed          *int64 // recorded in the report only
	Version       string

	Logger *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Stage names, used as logger names and in StageError.
const (
	StageResearcher  = "researcher"
	StageAnalyzer    = "analyzer"
	StageSynthesizer = "synthesizer"
)

// StageError wraps the error that aborted a run with the stage it came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// modelNamer is implemented by evaluators that call a model.
type modelNamer interface {
	ModelName() string
}

// Run executes the pipeline. Any stage error aborts the run; no partial
// report is returned.
func Run(ctx context.Context, opts Options) (*schema.Report, error) {
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("audit: no evaluator configured")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	threshold := opts.RiskThreshold
	if threshold == "" {
		threshold = schema.RiskLow
	}
	p := opts.Protocol
	if p == nil {
		p = protocol.Sample()
	}

	rules, source, err := research(opts, log.Named(StageResearcher))
	if err != nil {
		return nil, &StageError{Stage: StageResearcher, Err: err}
	}

	findings, err := opts.Evaluator.Evaluate(ctx, rules, p)
	if err != nil {
		return nil, &StageError{Stage: StageAnalyzer, Err: err}
	}

	synth := log.Named(StageSynthesizer)
	synth.Info("synthesizing analysis into executive summary", zap.Int("findings", len(findings)))
	rep, err := review.Synthesize(findings)
	if err != nil {
		return nil, &StageError{Stage: StageSynthesizer, Err: err}
	}
	synth.Info("final report status", zap.String("status", string(rep.Status)),
		zap.Int("critical_violations", rep.CriticalViolations))

	rep.Tool = Tool
	rep.Version = opts.Version
	rep.RunID = uuid.NewString()
	rep.Policy = opts.Evaluator.Policy()
	rep.Input = schema.Input{
		ProtocolFile:     p.Path,
		ProtocolHash:     p.Hash,
		RegulationSource: source,
		RuleCount:        len(rules),
		Seed:             opts.Seed,
		RiskThreshold:    string(threshold),
	}
	rep.Meta = schema.Meta{GeneratedAt: now().UTC()}
	if m, ok := opts.Evaluator.(modelNamer); ok {
		rep.Meta.Model = m.ModelName()
	}

	// Summary fields above already reflect every finding.
	rep.Findings = review.FilterByRisk(rep.Findings, threshold)
	return rep, nil
}

// research resolves the rule set and names its source for the report.
func research(opts Options, log *zap.Logger) ([]schema.Rule, string, error) {
	log.Info("searching regulations")

	var (
		rules  []schema.Rule
		source string
		err    error
	)
	if opts.RegulationsPath != "" {
		rules, err = regulation.Load(opts.RegulationsPath)
		source = opts.RegulationsPath
	} else {
		name := opts.Catalog
		if name == "" {
			name = regulation.DefaultCatalog
		}
		rules, err = regulation.Catalog(name)
		source = "catalog:" + name
	}
	if err != nil {
		return nil, "", err
	}

	log.Info("retrieved regulations", zap.Int("count", len(rules)), zap.String("source", source))
	return rules, source, nil
}
