// Package ingest is the thin adapter between the filesystem and the core's
// (path -> source-text) input contract. Archive extraction and directory
// filtering live here, outside the core's scope, but something has to
// walk a tree or a zip file and hand the core its files map.
package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// skipDirs lists directory names that are never walked into: VCS metadata,
// build output, and the noise directories a Python project accumulates.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"testdata":     true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"venv":         true,
	"env":          true,
	"__pycache__":  true,
	".tox":         true,
	".mypy_cache":  true,
	".pytest_cache": true,
	".ipynb_checkpoints": true,
}

// pySourceExt are the file extensions the ingest adapter treats as Python
// source.
var pySourceExt = map[string]bool{
	".py":  true,
	".pyi": true,
}

// Result is the ingestion adapter's output: the core's input contract plus
// bookkeeping the CLI reports to the user.
type Result struct {
	Files           map[string]string // relPath -> source text
	FolderStructure *FolderNode
	SkippedCount    int
	ExcludedCount   int
}

// FolderNode is the opaque folder-structure passthrough the core forwards
// unchanged.
type FolderNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	IsDir    bool          `json:"isDir"`
	Children []*FolderNode `json:"children,omitempty"`
}

// Directory walks rootDir, collecting every Python source file not excluded
// by .gitignore, a noise directory, or an egg-info package marker.
func Directory(rootDir string) (*Result, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("cannot access root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", rootDir)
	}

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(rootDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gitIgnore, err = ignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse .gitignore: %w", err)
		}
	}

	result := &Result{Files: make(map[string]string)}
	root := &FolderNode{Name: filepath.Base(rootDir), Path: "", IsDir: true}
	byPath := map[string]*FolderNode{"": root}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			result.SkippedCount++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == rootDir {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			fmt.Fprintf(os.Stderr, "warning: skipping symlink %s\n", path)
			result.SkippedCount++
			return nil
		}

		name := d.Name()
		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			result.SkippedCount++
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] || strings.HasSuffix(name, ".egg-info") {
				return fs.SkipDir
			}
			addFolderNode(byPath, relPath, name, true)
			return nil
		}

		if !pySourceExt[filepath.Ext(name)] {
			return nil
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			result.ExcludedCount++
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", relPath, readErr)
			result.SkippedCount++
			return nil
		}

		result.Files[relPath] = string(content)
		addFolderNode(byPath, relPath, name, false)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}

	result.FolderStructure = root
	return result, nil
}

// Zip ingests a .zip archive the same way Directory ingests a tree, using
// the standard library's archive/zip (no pack example covers archive
// extraction, so this one concern is justifiably stdlib; see DESIGN.md).
func Zip(zipPath string) (*Result, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	defer r.Close()

	result := &Result{Files: make(map[string]string)}
	root := &FolderNode{Name: filepath.Base(zipPath), IsDir: true}
	byPath := map[string]*FolderNode{"": root}

	for _, f := range r.File {
		relPath := filepath.ToSlash(f.Name)
		if f.FileInfo().IsDir() {
			continue
		}

		segs := strings.Split(relPath, "/")
		skip := false
		for _, seg := range segs[:len(segs)-1] {
			if strings.HasPrefix(seg, ".") || skipDirs[seg] || strings.HasSuffix(seg, ".egg-info") {
				skip = true
				break
			}
		}
		if skip {
			result.ExcludedCount++
			continue
		}

		if !pySourceExt[filepath.Ext(relPath)] {
			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", relPath, openErr)
			result.SkippedCount++
			continue
		}
		content, readErr := io.ReadAll(rc)
		rc.Close()
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", relPath, readErr)
			result.SkippedCount++
			continue
		}

		result.Files[relPath] = string(content)
		addFolderNode(byPath, relPath, filepath.Base(relPath), false)
	}

	result.FolderStructure = root
	return result, nil
}

// addFolderNode inserts a node at relPath into the folder tree, creating any
// missing ancestor directories along the way.
func addFolderNode(byPath map[string]*FolderNode, relPath, name string, isDir bool) {
	if _, exists := byPath[relPath]; exists {
		return
	}

	parentPath := ""
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		parentPath = relPath[:idx]
	}
	parent, ok := byPath[parentPath]
	if !ok {
		addFolderNode(byPath, parentPath, filepath.Base(parentPath), true)
		parent = byPath[parentPath]
	}

	node := &FolderNode{Name: name, Path: relPath, IsDir: isDir}
	byPath[relPath] = node
	parent.Children = append(parent.Children, node)
}

// RelPaths returns the sorted list of keys of a Files map, the deterministic
// iteration order the Module Mapper and orchestrator depend on.
func RelPaths(files map[string]string) []string {
	out := make([]string, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
