package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ingo-eichhorst/pygraph/internal/config"
	"github.com/ingo-eichhorst/pygraph/internal/emit"
	"github.com/ingo-eichhorst/pygraph/internal/ingest"
	"github.com/ingo-eichhorst/pygraph/internal/metric"
	"github.com/ingo-eichhorst/pygraph/internal/orchestrator"
	"github.com/ingo-eichhorst/pygraph/internal/progress"
	"github.com/ingo-eichhorst/pygraph/internal/pyast"
	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

var (
	configPath  string
	outPath     string
	symbolLevel bool
	jsonOutput  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <archive-or-dir>",
	Short: "Build a dependency and call graph for a Python project",
	Long: `Analyze a Python project, given as a directory or a .zip archive.

The project is parsed module by module, imports are resolved to local
modules or external packages, and the result is assembled into a JSON
graph of modules, symbols, and the edges between them.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("cannot resolve path: %s", err)
		}

		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("cannot access %s: %w", src, err)
		}

		var result *ingest.Result
		var configDir string
		if info.IsDir() {
			configDir = src
			result, err = ingest.Directory(src)
		} else if strings.HasSuffix(strings.ToLower(src), ".zip") {
			configDir = filepath.Dir(src)
			result, err = ingest.Zip(src)
		} else {
			return fmt.Errorf("unsupported input %s: expected a directory or a .zip archive", src)
		}
		if err != nil {
			return fmt.Errorf("ingest %s: %w", src, err)
		}

		projectCfg, err := config.LoadProjectConfig(configDir, configPath)
		if err != nil {
			return fmt.Errorf("load project config: %w", err)
		}

		useSymbolLevel := symbolLevel
		var rootOverride map[string]bool
		var extraStdlib map[string]bool
		if projectCfg != nil {
			if !cmd.Flags().Changed("symbol-level") {
				useSymbolLevel = projectCfg.SymbolLevel
			}
			rootOverride = projectCfg.ApplyRoots()
			if len(projectCfg.StdlibExtra) > 0 {
				extraStdlib = make(map[string]bool, len(projectCfg.StdlibExtra))
				for _, name := range projectCfg.StdlibExtra {
					extraStdlib[name] = true
				}
			}
		}

		parser, err := pyast.NewParser()
		if err != nil {
			return fmt.Errorf("init parser: %w", err)
		}
		defer parser.Close()

		spinner := progress.NewSpinner(os.Stderr)
		onProgress := func(stage, detail string) {
			if verbose {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", stage, detail)
			}
			spinner.Update(detail)
		}
		spinner.Start("Analyzing...")

		bulkRelease := func(processed int) {
			if verbose {
				fmt.Fprintf(os.Stderr, "[gc] releasing memory after %d modules\n", processed)
			}
			runtime.GC()
			debug.FreeOSMemory()
		}

		o := orchestrator.New(parser, metric.NewDefaultProvider(parser), nowRFC3339, onProgress)
		artifact, err := o.Run(orchestrator.Input{
			Files:           result.Files,
			FolderStructure: result.FolderStructure,
			SymbolLevel:     useSymbolLevel,
			RootOverride:    rootOverride,
			ExtraStdlib:     extraStdlib,
			GraphProgress:   bulkRelease,
		})
		if err != nil {
			spinner.Stop("")
			return fmt.Errorf("analyze %s: %w", src, err)
		}
		spinner.Stop("Done.")

		out := cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := emit.Write(out, artifact); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}

		stdoutIsTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		if !jsonOutput && stdoutIsTTY {
			printSummary(os.Stderr, artifact)
		}

		return nil
	},
}

// printSummary writes a colored human-readable run summary to w: green for
// a clean run, yellow when some files failed to parse.
func printSummary(w io.Writer, artifact *types.Artifact) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "graphctl summary")
	fmt.Fprintf(w, "  modules:  %d\n", artifact.Metadata.ModuleCount)
	fmt.Fprintf(w, "  edges:    %d\n", artifact.Metadata.EdgeCount)
	fmt.Fprintf(w, "  external: %d\n", artifact.Metadata.ExternalCount)

	if artifact.Metadata.UnparseableCount > 0 {
		color.New(color.FgYellow).Fprintf(w, "  unparseable: %d\n", artifact.Metadata.UnparseableCount)
	} else {
		color.New(color.FgGreen).Fprintln(w, "  unparseable: 0")
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "path to .graphctl.yml project config file")
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "write the JSON artifact to this path instead of stdout")
	analyzeCmd.Flags().BoolVar(&symbolLevel, "symbol-level", false, "emit per-function/class nodes and defines edges")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "force machine-readable output (default when stdout is not a TTY)")
	rootCmd.AddCommand(analyzeCmd)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
