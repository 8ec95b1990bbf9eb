package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/protoaudit/internal/attest"
	"github.com/dshills/protoaudit/internal/compare"
	"github.com/dshills/protoaudit/internal/regulation"
	"github.com/dshills/protoaudit/internal/render"
	"github.com/dshills/protoaudit/internal/schema"
)

func newRegulationsCmd() *cobra.Command {
	var catalog, path, format string
	cmd := &cobra.Command{
		Use:   "regulations",
		Short: "List the regulation rules an audit would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegulations(catalog, path, format, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&catalog, "catalog", regulation.DefaultCatalog, "Built-in regulation catalog")
	f.StringVar(&path, "regulations", "", "Regulation rule file (JSON or YAML); overrides --catalog")
	f.StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func runRegulations(catalog, path, format string, w io.Writer) error {
	var (
		rules []schema.Rule
		err   error
	)
	if path != "" {
		rules, err = regulation.Load(path)
	} else {
		rules, err = regulation.Catalog(catalog)
	}
	if err != nil {
		return codeError(3, "%s", err)
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(rules, "", "  ")
		if err != nil {
			return codeError(1, "encoding rules: %s", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tRISK\tCATEGORY")
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.RiskLevel, r.Category)
		}
		return tw.Flush()
	default:
		return codeError(3, "--format must be text or json, got %q", format)
	}
}

func newCompareCmd() *cobra.Command {
	var format string
	var failOnRegression bool
	cmd := &cobra.Command{
		Use:   "compare <baseline.json> <current.json>",
		Short: "Compare two JSON reports of the same protocol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(args[0], args[1], format, failOnRegression, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit 2 if a regulation regressed or a new gap appeared")
	return cmd
}

func runCompare(baselinePath, currentPath, format string, failOnRegression bool, w io.Writer) error {
	baseline, err := compare.LoadReport(baselinePath)
	if err != nil {
		return codeError(3, "%s", err)
	}
	current, err := compare.LoadReport(currentPath)
	if err != nil {
		return codeError(3, "%s", err)
	}

	d := compare.Compare(baseline, current)
	out, err := render.Delta(format, d)
	if err != nil {
		return codeError(3, "%s", err)
	}
	if _, err := w.Write(out); err != nil {
		return codeError(3, "writing output: %s", err)
	}

	if failOnRegression {
		newGaps := 0
		for _, f := range d.New {
			if f.Critical() {
				newGaps++
			}
		}
		if len(d.Regressed) > 0 || newGaps > 0 {
			return codeError(2, "%d regressed and %d new gaps since baseline", len(d.Regressed), newGaps)
		}
	}
	return nil
}

func newVerifyCmd() *cobra.Command {
	var keyringPath string
	cmd := &cobra.Command{
		Use:   "verify <report> [signature]",
		Short: "Verify a report's detached signature",
		Long:  "Verify checks an armored detached signature over a rendered report. The signature defaults to <report>.asc.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sigPath := args[0] + ".asc"
			if len(args) == 2 {
				sigPath = args[1]
			}
			return runVerify(args[0], sigPath, keyringPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&keyringPath, "keyring", "", "Armored public keyring (required)")
	_ = cmd.MarkFlagRequired("keyring")
	return cmd
}

func runVerify(reportPath, sigPath, keyringPath string, w io.Writer) error {
	keyring, err := attest.LoadKeyring(keyringPath)
	if err != nil {
		return codeError(3, "%s", err)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return codeError(3, "reading report: %s", err)
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return codeError(3, "reading signature: %s", err)
	}

	signer, err := attest.Verify(keyring, data, sig)
	if err != nil {
		return codeError(2, "%s", err)
	}
	fmt.Fprintf(w, "Good signature from %s\n", signer)
	return nil
}
