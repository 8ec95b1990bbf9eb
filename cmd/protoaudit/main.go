package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/protoaudit/internal/attest"
	"github.com/dshills/protoaudit/internal/audit"
	"github.com/dshills/protoaudit/internal/config"
	"github.com/dshills/protoaudit/internal/evaluate"
	"github.com/dshills/protoaudit/internal/llm"
	"github.com/dshills/protoaudit/internal/logging"
	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/reference"
	"github.com/dshills/protoaudit/internal/render"
	"github.com/dshills/protoaudit/internal/schema"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// defaultModel is used by the model policy when no model is configured.
const defaultModel = "anthropic:claude-sonnet-4-6"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// auditFlags holds the parsed flags for the audit command.
type auditFlags struct {
	policy        string
	catalog       string
	regulations   string
	seed          int64
	seedSet       bool
	format        string
	out           string
	riskThreshold string
	failOnReview  bool
	model         string
	contextFiles  []string
	signKey       string
	strict        bool
	temperature   float64
	maxTokens     int
	verbose       bool
	debug         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:     "protoaudit",
		Short:   "Audit clinical trial protocols against regulatory rules",
		Long:    "protoaudit checks a clinical trial protocol against a set of regulatory rules and produces a compliance report.",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.protoaudit/config.yaml)")

	root.AddCommand(
		newAuditCmd(&configPath),
		newRegulationsCmd(),
		newCompareCmd(),
		newVerifyCmd(),
	)
	return root
}

func newAuditCmd(configPath *string) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "audit [protocol-file]",
		Short: "Audit a protocol and produce a compliance report",
		Long:  "Audit evaluates every regulation rule against the protocol. Without a protocol file the built-in sample protocol summary is audited.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return codeError(3, "%s", err)
			}
			applyConfig(cmd.Flags().Changed, &flags, cfg)

			protocolPath := ""
			if len(args) == 1 {
				protocolPath = args[0]
			}
			return runAudit(cmd.Context(), protocolPath, flags, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.policy, "policy", "stochastic", "Evaluation policy: stochastic, keyword, or model")
	f.StringVar(&flags.catalog, "catalog", "vaccine", "Built-in regulation catalog")
	f.StringVar(&flags.regulations, "regulations", "", "Regulation rule file (JSON or YAML); overrides --catalog")
	f.Int64Var(&flags.seed, "seed", 0, "Random seed for the stochastic policy (default: time-based, recorded in the report)")
	f.StringVar(&flags.format, "format", "json", "Output format: json, md, or text")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.riskThreshold, "risk-threshold", "Low", "Minimum risk level to emit: Low, Medium, or High")
	f.BoolVar(&flags.failOnReview, "fail-on-review", false, "Exit 2 if the report status is NEEDS REVIEW")
	f.StringVar(&flags.model, "model", "", "Model for the model policy as provider:model (overrides PROTOAUDIT_MODEL)")
	f.StringArrayVar(&flags.contextFiles, "context", nil, "Reference document paths for the model policy (may be repeated)")
	f.StringVar(&flags.signKey, "sign-key", "", "Armored private key; writes a detached signature to <out>.asc")
	f.BoolVar(&flags.strict, "strict", false, "Model policy: treat unstated requirements as gaps")
	f.Float64Var(&flags.temperature, "temperature", 0, "Model policy: LLM temperature")
	f.IntVar(&flags.maxTokens, "max-tokens", 1024, "Model policy: maximum response tokens")
	f.BoolVar(&flags.verbose, "verbose", false, "Log pipeline stages to stderr")
	f.BoolVar(&flags.debug, "debug", false, "Log redacted prompts and debug detail to stderr; use only in trusted environments")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(path)
}

// applyConfig fills every flag the user did not set explicitly from cfg.
// The model resolves as --model, then PROTOAUDIT_MODEL, then the config file.
func applyConfig(changed func(name string) bool, flags *auditFlags, cfg *config.Config) {
	if !changed("policy") && cfg.Policy != "" {
		flags.policy = cfg.Policy
	}
	if !changed("catalog") && cfg.Catalog != "" {
		flags.catalog = cfg.Catalog
	}
	if !changed("regulations") {
		if changed("catalog") {
			flags.regulations = ""
		} else if cfg.Regulations != "" {
			flags.regulations = cfg.Regulations
		}
	}
	if !changed("format") && cfg.Format != "" {
		flags.format = cfg.Format
	}
	if !changed("risk-threshold") && cfg.RiskThreshold != "" {
		flags.riskThreshold = cfg.RiskThreshold
	}
	if !changed("sign-key") && cfg.SignKey != "" {
		flags.signKey = cfg.SignKey
	}
	if !changed("model") {
		flags.model = cfg.ResolveModel()
	}
	if changed("seed") {
		flags.seedSet = true
	} else if cfg.Seed != nil {
		flags.seed = *cfg.Seed
		flags.seedSet = true
	}
}

func runAudit(ctx context.Context, protocolPath string, flags auditFlags, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Step 1: Validate flags ---
	if err := validateFlags(flags); err != nil {
		return codeError(3, "invalid flags: %s", err)
	}
	policy, _ := evaluate.ParsePolicy(flags.policy)
	threshold, _ := parseRiskLevel(flags.riskThreshold)

	log, err := logging.New(flags.verbose, flags.debug)
	if err != nil {
		return codeError(1, "%s", err)
	}
	defer log.Sync() //nolint:errcheck

	// --- Step 2: Load the signing key before doing any work ---
	var signer *openpgp.Entity
	if flags.signKey != "" {
		signer, err = attest.LoadSigner(flags.signKey, os.Getenv(attest.PassphraseEnv))
		if err != nil {
			return codeError(3, "loading signing key: %s", err)
		}
	}

	// --- Step 3: Load protocol ---
	p := protocol.Sample()
	if protocolPath != "" {
		log.Info("loading protocol", zap.String("path", protocolPath))
		p, err = protocol.Load(protocolPath)
		if err != nil {
			return codeError(3, "loading protocol: %s", err)
		}
	}

	// --- Step 4: Build the evaluator ---
	opts := evaluate.Options{Logger: log}
	var seed *int64
	switch policy {
	case schema.PolicyStochastic:
		s := flags.seed
		if !flags.seedSet {
			s = time.Now().UnixNano()
		}
		seed = &s
		opts.Rand = rand.New(rand.NewSource(s))
	case schema.PolicyModel:
		refs, err := reference.Load(flags.contextFiles)
		if err != nil {
			return codeError(3, "loading reference documents: %s", err)
		}
		modelStr := flags.model
		if modelStr == "" {
			modelStr = defaultModel
			log.Warn("no model configured, using default", zap.String("model", modelStr))
		}
		provider, err := llm.NewProvider(ctx, modelStr)
		if err != nil {
			return codeError(4, "creating LLM provider: %s", err)
		}
		if c, ok := provider.(io.Closer); ok {
			defer c.Close() //nolint:errcheck
		}
		opts.Provider = provider
		opts.References = refs
		opts.Strict = flags.strict
		opts.Temperature = flags.temperature
		opts.MaxTokens = flags.maxTokens
	}
	ev, err := evaluate.New(policy, opts)
	if err != nil {
		return codeError(3, "%s", err)
	}

	// --- Step 5: Run the pipeline ---
	report, err := audit.Run(ctx, audit.Options{
		Protocol:        p,
		RegulationsPath: flags.regulations,
		Catalog:         flags.catalog,
		Evaluator:       ev,
		RiskThreshold:   threshold,
		Seed:            seed,
		Version:         version,
		Logger:          log,
	})
	if err != nil {
		return codeError(runExitCode(err, policy), "%s", err)
	}

	// --- Step 6: Render output ---
	log.Info("rendering output", zap.String("format", flags.format))
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(report)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}

	// --- Step 7: Write output ---
	if flags.out != "" {
		if err := os.WriteFile(flags.out, outputBytes, 0o644); err != nil {
			return codeError(3, "writing output file: %s", err)
		}
	} else if _, err := stdout.Write(outputBytes); err != nil {
		return codeError(3, "writing output: %s", err)
	}

	// --- Step 8: Sign the rendered bytes ---
	if signer != nil {
		sigPath := flags.out + ".asc"
		if err := writeSignature(sigPath, signer, outputBytes); err != nil {
			return codeError(3, "%s", err)
		}
		log.Info("wrote signature", zap.String("path", sigPath))
	}

	// --- Step 9: Evaluate --fail-on-review ---
	if flags.failOnReview && report.Status == schema.VerdictNeedsReview {
		return codeError(2, "status %s with --fail-on-review (%d critical violations)", report.Status, report.CriticalViolations)
	}
	return nil
}

// writeSignature writes an armored detached signature over data to path.
func writeSignature(path string, signer *openpgp.Entity, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating signature file: %w", err)
	}
	if err := attest.Sign(f, signer, data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing signature file: %w", err)
	}
	return nil
}

// runExitCode maps a pipeline error to an exit code: bad input is 3, a failed
// model call is 5, anything else is 1.
func runExitCode(err error, policy schema.Policy) int {
	var ve *schema.ValidationError
	var ee *schema.EmptyInputError
	if errors.As(err, &ve) || errors.As(err, &ee) {
		return 3
	}
	var se *audit.StageError
	if errors.As(err, &se) {
		switch {
		case se.Stage == audit.StageResearcher:
			return 3
		case se.Stage == audit.StageAnalyzer && policy == schema.PolicyModel:
			return 5
		}
	}
	return 1
}

// validateFlags returns an error if any flag value is invalid.
func validateFlags(flags auditFlags) error {
	if _, err := evaluate.ParsePolicy(flags.policy); err != nil {
		return fmt.Errorf("--policy: %w", err)
	}

	switch flags.format {
	case "json", "md", "text":
	default:
		return fmt.Errorf("--format must be json, md, or text, got %q", flags.format)
	}

	if _, err := parseRiskLevel(flags.riskThreshold); err != nil {
		return err
	}

	if flags.signKey != "" && flags.out == "" {
		return fmt.Errorf("--sign-key requires --out")
	}

	if flags.temperature < 0 || flags.temperature > 2 {
		return fmt.Errorf("--temperature must be between 0.0 and 2.0, got %g", flags.temperature)
	}

	if flags.maxTokens <= 0 {
		return fmt.Errorf("--max-tokens must be > 0, got %d", flags.maxTokens)
	}

	return nil
}

// parseRiskLevel converts a flag string to a schema.RiskLevel, ignoring case.
func parseRiskLevel(s string) (schema.RiskLevel, error) {
	for _, r := range []schema.RiskLevel{schema.RiskLow, schema.RiskMedium, schema.RiskHigh} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("--risk-threshold must be Low, Medium, or High, got %q", s)
}
