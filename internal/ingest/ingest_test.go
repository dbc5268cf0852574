package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestDirectory_CollectsPythonFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/main.py", "print('hi')\n")
	writeFile(t, dir, "app/util.pyi", "def f() -> int: ...\n")
	writeFile(t, dir, "readme.md", "# hi\n")

	result, err := Directory(dir)
	require.NoError(t, err)
	assert.Contains(t, result.Files, "app/main.py")
	assert.Contains(t, result.Files, "app/util.pyi")
	assert.NotContains(t, result.Files, "readme.md")
}

func TestDirectory_SkipsNoiseDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/main.py", "print(1)\n")
	writeFile(t, dir, "__pycache__/main.cpython.py", "garbage\n")
	writeFile(t, dir, ".venv/lib/site.py", "garbage\n")

	result, err := Directory(dir)
	require.NoError(t, err)
	assert.Contains(t, result.Files, "app/main.py")
	assert.Len(t, result.Files, 1)
}

func TestDirectory_RespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/main.py", "print(1)\n")
	writeFile(t, dir, "app/generated.py", "print(2)\n")
	writeFile(t, dir, ".gitignore", "generated.py\n")

	result, err := Directory(dir)
	require.NoError(t, err)
	assert.Contains(t, result.Files, "app/main.py")
	assert.NotContains(t, result.Files, "app/generated.py")
	assert.Equal(t, 1, result.ExcludedCount)
}

func TestDirectory_BuildsFolderStructure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/sub/main.py", "print(1)\n")

	result, err := Directory(dir)
	require.NoError(t, err)
	require.NotNil(t, result.FolderStructure)
	assert.True(t, result.FolderStructure.IsDir)
}

func TestDirectory_NonExistentPath(t *testing.T) {
	_, err := Directory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestZip_CollectsPythonFiles(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "project.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(f)

	entries := map[string]string{
		"proj/app/main.py":       "print(1)\n",
		"proj/__pycache__/x.py":  "garbage\n",
		"proj/readme.md":         "# hi\n",
	}
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	result, err := Zip(zipPath)
	require.NoError(t, err)
	assert.Contains(t, result.Files, "proj/app/main.py")
	assert.NotContains(t, result.Files, "proj/__pycache__/x.py")
	assert.NotContains(t, result.Files, "proj/readme.md")
}

func TestRelPaths_SortedDeterministic(t *testing.T) {
	files := map[string]string{"b.py": "", "a.py": "", "c.py": ""}
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, RelPaths(files))
}
