package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ingo-eichhorst/pygraph/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the graphctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
