package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

func resetAnalyzeFlags() {
	configPath = ""
	outPath = ""
	symbolLevel = false
	jsonOutput = false
	verbose = false
	analyzeCmd.Flags().Lookup("symbol-level").Changed = false
}

func makeMinimalPythonProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("import os\n\ndef run():\n    return os.getcwd()\n"), 0644))
	return dir
}

func TestAnalyzeCmdMetadata(t *testing.T) {
	assert.Equal(t, "analyze <archive-or-dir>", analyzeCmd.Use)
	assert.NotEmpty(t, analyzeCmd.Short)
	assert.True(t, analyzeCmd.SilenceUsage)
}

func TestAnalyzeCmdFlags(t *testing.T) {
	for _, name := range []string{"config", "out", "symbol-level", "json"} {
		f := analyzeCmd.Flags().Lookup(name)
		require.NotNilf(t, f, "flag %q not registered on analyze command", name)
	}
}

func TestAnalyzeCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := analyzeCmd
	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a"}))
}

func TestAnalyzeRunE_NonExistentPath(t *testing.T) {
	resetAnalyzeFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", "/nonexistent/path/xyz"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestAnalyzeRunE_UnsupportedExtension(t *testing.T) {
	resetAnalyzeFlags()
	f, err := os.CreateTemp("", "graphctl-test-*.txt")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	f.Close()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", f.Name()})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input")
}

func TestAnalyzeRunE_ValidDirectory(t *testing.T) {
	resetAnalyzeFlags()
	dir := makeMinimalPythonProject(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", dir})
	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"nodes"`)
}

func TestAnalyzeRunE_SymbolLevel(t *testing.T) {
	resetAnalyzeFlags()
	dir := makeMinimalPythonProject(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", "--symbol-level", dir})
	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"main.run"`)
}

func TestAnalyzeRunE_WritesToOutFile(t *testing.T) {
	resetAnalyzeFlags()
	dir := makeMinimalPythonProject(t)
	outFile := filepath.Join(t.TempDir(), "graph.json")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", "--out", outFile, dir})
	err := rootCmd.Execute()
	require.NoError(t, err)

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"generatedAt"`)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestPrintSummary_ReportsCounts(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &types.Artifact{
		Metadata: types.Metadata{ModuleCount: 3, EdgeCount: 5, ExternalCount: 1, UnparseableCount: 0},
	})
	assert.Contains(t, buf.String(), "modules:  3")
	assert.Contains(t, buf.String(), "edges:    5")
	assert.Contains(t, buf.String(), "unparseable: 0")
}

func TestPrintSummary_FlagsUnparseableFiles(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &types.Artifact{
		Metadata: types.Metadata{UnparseableCount: 2},
	})
	assert.Contains(t, buf.String(), "unparseable: 2")
}

func TestAnalyzeRunE_ProjectConfigOverridesSymbolLevel(t *testing.T) {
	resetAnalyzeFlags()
	dir := makeMinimalPythonProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".graphctl.yml"), []byte("version: 1\nsymbol_level: true\n"), 0644))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"analyze", dir})
	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"main.run"`)
}
