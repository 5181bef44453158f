package cmd

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <file>",
	Short: "Show the configuration a rules file resolves to",
	Long: `Parse a design rules file, apply it over the defaults and print the
resulting configuration.

Example rules file:
  # clearances
  trace_clearance = 0.15mm
  via_clearance[different_net] = 12mil
  index = rtree
  disable = [hanging_traces]`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg := drc.DefaultConfig()
	if err := rules.Load(args[0], cfg); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "trace_clearance              %.4fmm\n", cfg.TraceMargin)
	fmt.Fprintf(w, "via_clearance[same_net]      %.4fmm\n", cfg.SameNetViaMargin)
	fmt.Fprintf(w, "via_clearance[different_net] %.4fmm\n", cfg.DifferentNetViaMargin)
	fmt.Fprintf(w, "via_board_clearance          %.4fmm\n", cfg.ViaBoardMargin)
	fmt.Fprintf(w, "board_clearance              %.4fmm\n", cfg.BoardMargin)
	fmt.Fprintf(w, "trace_thickness              %.4fmm\n", cfg.DefaultTraceThickness)
	fmt.Fprintf(w, "board_trace_width            %.4fmm\n", cfg.BoardTraceWidth)
	fmt.Fprintf(w, "index                        %s\n", cfg.Index)
	fmt.Fprintf(w, "cell_size                    %.4fmm\n", cfg.CellSize)
	fmt.Fprintf(w, "workers                      %d\n", cfg.Workers)

	disabled := "none"
	if len(cfg.Disabled) > 0 {
		disabled = strings.Join(cfg.Disabled, ", ")
	}
	fmt.Fprintf(w, "disabled                     %s\n", disabled)
	return nil
}
