package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// errViolations makes check exit with status 1 without printing an error
var errViolations = errors.New("violations found")

var rootCmd = &cobra.Command{
	Use:   "drc",
	Short: "OpenTraceDRC - design rule checks for PCB layouts",
	Long: `drc checks a PCB layout for clearance, placement and connectivity errors.

Layouts are read from circuit JSON (a list of pcb_* and source_* records) or
directly from KiCad board files (.kicad_pcb).

Examples:
  drc check board.kicad_pcb                     # Run every check
  drc check layout.json --rules board.rules     # Use a design rules file
  drc check layout.json --only trace_overlap    # Run a single check
  drc checks                                    # List the available checks
  drc convert board.kicad_pcb -o layout.json    # Export a KiCad board as JSON`,
	Version:       "0.9.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger writes text logs to w, including debug records when verbose
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
