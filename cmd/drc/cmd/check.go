package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
	"github.com/spf13/cobra"
)

var (
	rulesFile  string
	format     string
	onlyChecks []string
	workers    int
	indexName  string
)

var checkCmd = &cobra.Command{
	Use:   "check <layout.json|board.kicad_pcb>",
	Short: "Run design rule checks on a layout",
	Long: `Run design rule checks and report every violation found.

Clearances come from the built-in defaults, then the rules file, then the
command line flags. The command exits with status 1 when violations are found.

Examples:
  drc check board.kicad_pcb
  drc check layout.json --format json
  drc check layout.json --only trace_overlap --only pad_overlap
  drc check layout.json --workers 8 --index rtree -v`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&rulesFile, "rules", "", "design rules file")
	checkCmd.Flags().StringVar(&format, "format", "text", "output format (text or json)")
	checkCmd.Flags().StringSliceVar(&onlyChecks, "only", nil, "run only the named checks")
	checkCmd.Flags().IntVar(&workers, "workers", 0, "goroutines scanning trace segments")
	checkCmd.Flags().StringVar(&indexName, "index", "", "spatial index (hash or rtree)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	l, err := loadLayout(args[0])
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())
	checker, err := drc.New(l, drc.WithConfig(cfg), drc.WithLogger(logger))
	if err != nil {
		return err
	}

	var violations []drc.Violation
	if len(onlyChecks) == 0 {
		if violations, err = checker.RunAll(cmd.Context()); err != nil {
			return err
		}
	} else {
		violations = []drc.Violation{}
		for _, name := range onlyChecks {
			vs, err := checker.Run(cmd.Context(), name)
			if err != nil {
				return err
			}
			violations = append(violations, vs...)
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(violations); err != nil {
			return fmt.Errorf("failed to encode violations: %w", err)
		}
	} else {
		printViolations(out, violations)
	}

	if len(violations) > 0 {
		return errViolations
	}
	return nil
}

// resolveConfig layers the rules file and then explicit flags over the defaults
func resolveConfig(cmd *cobra.Command) (*drc.Config, error) {
	cfg := drc.DefaultConfig()
	if rulesFile != "" {
		if err := rules.Load(rulesFile, cfg); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("index") {
		cfg.Index = spatial.Backend(indexName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printViolations(w io.Writer, violations []drc.Violation) {
	if len(violations) == 0 {
		fmt.Fprintln(w, "No violations found")
		return
	}

	counts := make(map[string]int)
	for _, v := range violations {
		fmt.Fprintf(w, "%-28s %s\n", v.Check, v.Message)
		counts[v.Check]++
	}

	checks := make([]string, 0, len(counts))
	for name := range counts {
		checks = append(checks, name)
	}
	sort.Strings(checks)

	fmt.Fprintf(w, "\n%d violation(s)\n", len(violations))
	for _, name := range checks {
		fmt.Fprintf(w, "  %-26s %d\n", name, counts[name])
	}
}
