package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
	"github.com/ingo-eichhorst/pygraph/pkg/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "graphctl",
	Short:   "graphctl builds a dependency and call graph for a Python codebase",
	Long:    "graphctl scans a Python project (a directory or a zip archive), parses every\nmodule with Tree-sitter, resolves imports to local modules or external\npackages, and assembles a JSON graph of modules, symbols, and the calls and\nimports between them, laid out for visualization.",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.SilenceErrors = true
}

// Execute runs the root command and exits with code 1 on error.
// ExitError is handled specially: its Code is used as the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *types.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
