package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
	"github.com/spf13/cobra"
)

var convertOutput string

var convertCmd = &cobra.Command{
	Use:   "convert <board.kicad_pcb>",
	Short: "Export a layout as circuit JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default stdout)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	l, err := loadLayout(args[0])
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if convertOutput != "" {
		f, err := os.Create(convertOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := layout.Encode(w, l); err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}
	newLogger(cmd.ErrOrStderr()).Debug("layout written", "elements", l.Len())
	return nil
}
