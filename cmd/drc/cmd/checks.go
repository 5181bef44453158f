package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/spf13/cobra"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the available checks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range drc.Checks() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", c.Name, c.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
}
