package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfcheckCommand_RegisteredOnRoot(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "selfcheck" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSelfcheckCommand_RunsAgainstGoTree(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "pkg", "widget", "widget.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte("package widget\n\nfunc Run() {}\n"), 0644))

	var buf bytes.Buffer
	selfcheckCmd.SetOut(&buf)
	selfcheckCmd.SetArgs([]string{dir})
	require.NoError(t, selfcheckCmd.Execute())

	assert.Contains(t, buf.String(), "roots:")
	assert.Contains(t, buf.String(), "modules: 1")
}

func TestSelfcheckCommand_RequiresExactlyOneArg(t *testing.T) {
	err := selfcheckCmd.Args(selfcheckCmd, []string{})
	assert.Error(t, err)
}
