// Package selfcheck points graphctl's Module Mapper at a Go source tree
// instead of a Python one, as a regression check that the root-detection
// cascade (internal/modmap) generalizes beyond the language it was written
// for. It pairs that with gocyclo cyclomatic complexity over the same tree,
// giving a complexity report shaped like internal/metric's Python output so
// the two can be compared side by side.
package selfcheck

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fzipp/gocyclo"

	"github.com/ingo-eichhorst/pygraph/internal/modmap"
)

// skipDirs are directory names that never contain source relevant to the
// check: vendored deps, VCS metadata, and the read-only reference pack.
var skipDirs = map[string]bool{
	"vendor":       true,
	".git":         true,
	"_examples":    true,
	"node_modules": true,
}

// FunctionComplexity is one function's cyclomatic complexity, in the same
// shape internal/metric reports for Python functions.
type FunctionComplexity struct {
	Package    string
	Name       string
	File       string
	Line       int
	Complexity int
}

// Report is the self-check's combined output: the Module Mapper's verdict
// on the tree's roots and per-file module IDs, plus a gocyclo complexity
// summary over the same files.
type Report struct {
	Roots         []string
	ModuleIDs     map[string]string
	Functions     []FunctionComplexity
	MaxComplexity int
	MaxEntity     string
	AvgComplexity float64
}

// Run walks dir for .go files, excluding tests and vendored/reference
// directories, and builds a Report from the Module Mapper and gocyclo.
func Run(dir string) (*Report, error) {
	relPaths, err := collectGoFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("collect go files under %s: %w", dir, err)
	}
	if len(relPaths) == 0 {
		return nil, fmt.Errorf("no .go files found under %s", dir)
	}

	table := modmap.BuildTable(relPaths)
	roots := modmap.DetectRoots(relPaths)

	moduleIDs := make(map[string]string, len(table))
	for path, id := range table {
		moduleIDs[path] = string(id)
	}

	functions, err := analyzeComplexity(dir, relPaths)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Roots:     sortedKeys(roots),
		ModuleIDs: moduleIDs,
		Functions: functions,
	}
	report.summarize()
	return report, nil
}

// collectGoFiles returns dir-relative, slash-separated paths to every
// non-test .go file under dir.
func collectGoFiles(dir string) ([]string, error) {
	var relPaths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(relPaths)
	return relPaths, nil
}

// analyzeComplexity runs gocyclo over every file in relPaths and attaches
// each function's enclosing package directory for grouping.
func analyzeComplexity(dir string, relPaths []string) ([]FunctionComplexity, error) {
	fset := token.NewFileSet()
	var functions []FunctionComplexity

	for _, rel := range relPaths {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		f, err := parser.ParseFile(fset, full, nil, parser.ParseComments)
		if err != nil {
			// A file that fails to parse is skipped, not fatal: the check is
			// a cascade regression test, not a build.
			continue
		}

		var stats gocyclo.Stats
		stats = gocyclo.AnalyzeASTFile(f, fset, stats)

		complexityByLine := make(map[int]int, len(stats))
		for _, s := range stats {
			complexityByLine[s.Pos.Line] = s.Complexity
		}

		pkgDir := filepath.Dir(rel)
		ast.Inspect(f, func(n ast.Node) bool {
			fn, ok := n.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				return true
			}
			pos := fset.Position(fn.Pos())
			complexity := complexityByLine[pos.Line]
			if complexity == 0 {
				complexity = 1
			}
			functions = append(functions, FunctionComplexity{
				Package:    pkgDir,
				Name:       funcName(fn),
				File:       rel,
				Line:       pos.Line,
				Complexity: complexity,
			})
			return true
		})
	}

	return functions, nil
}

func funcName(fn *ast.FuncDecl) string {
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		return fmt.Sprintf("%s.%s", receiverTypeName(fn.Recv.List[0].Type), fn.Name.Name)
	}
	return fn.Name.Name
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	default:
		return "?"
	}
}

// summarize fills in the report's max/average complexity from Functions.
func (r *Report) summarize() {
	if len(r.Functions) == 0 {
		return
	}
	sum := 0
	for _, fn := range r.Functions {
		sum += fn.Complexity
		if fn.Complexity > r.MaxComplexity {
			r.MaxComplexity = fn.Complexity
			r.MaxEntity = fmt.Sprintf("%s:%d %s", fn.File, fn.Line, fn.Name)
		}
	}
	r.AvgComplexity = float64(sum) / float64(len(r.Functions))
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
