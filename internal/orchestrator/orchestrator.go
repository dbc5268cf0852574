// Package orchestrator drives the analyzer pipeline end to end:
// module mapping, parallel per-file parsing and metrics, import resolution,
// graph assembly, layout, and final artifact construction.
package orchestrator

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ingo-eichhorst/pygraph/internal/graph"
	"github.com/ingo-eichhorst/pygraph/internal/layout"
	"github.com/ingo-eichhorst/pygraph/internal/metric"
	"github.com/ingo-eichhorst/pygraph/internal/modmap"
	"github.com/ingo-eichhorst/pygraph/internal/pyast"
	"github.com/ingo-eichhorst/pygraph/internal/resolve"
	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// ProgressFunc receives a stage name and a human-readable message; the CLI
// uses it to drive terminal progress reporting.
type ProgressFunc func(stage, message string)

// artifactVersion is the output schema version.
const artifactVersion = "1.0"

// Input is the core's input contract.
type Input struct {
	Files           map[string]string
	FolderStructure interface{}
	SymbolLevel     bool
	RootOverride    map[string]bool // optional; from project config
	ExtraStdlib     map[string]bool // optional; from project config's stdlib_extra

	// GraphProgress, if non-nil, is forwarded to the Graph Assembler as its
	// bulk-release hook: invoked every 500 modules processed during edge
	// assembly so the caller can run an explicit GC pass on large graphs.
	GraphProgress func(processed int)
}

// Orchestrator holds the long-lived collaborators a run needs: a parser and
// a metric provider. Both are safe to reuse across runs.
type Orchestrator struct {
	parser     *pyast.Parser
	metrics    metric.Provider
	onProgress ProgressFunc
	nowFn      func() string
}

// New constructs an Orchestrator. nowFn supplies the artifact's generatedAt
// timestamp (injected so callers can keep the core free of wall-clock
// reads); onProgress may be nil.
func New(parser *pyast.Parser, metrics metric.Provider, nowFn func() string, onProgress ProgressFunc) *Orchestrator {
	if onProgress == nil {
		onProgress = func(string, string) {}
	}
	return &Orchestrator{parser: parser, metrics: metrics, onProgress: onProgress, nowFn: nowFn}
}

// fileResult is one file's independently computed output, before the
// deterministic ordered reduction into the shared module table.
type fileResult struct {
	id      types.ModuleID
	parsed  *types.ParsedModule
	metrics types.ComplexityMetrics
	blocks  []types.Block
}

// Run executes the full pipeline over one batch of files and returns the
// final artifact.
func (o *Orchestrator) Run(in Input) (*types.Artifact, error) {
	relPaths := sortedKeys(in.Files)

	o.onProgress("modmap", "Detecting project roots...")
	table := modmap.BuildTableWithRoots(relPaths, in.RootOverride)

	o.onProgress("parse", "Parsing source files...")
	results, err := o.parseAndMeasure(relPaths, in.Files, table)
	if err != nil {
		return nil, err
	}

	o.onProgress("resolve", "Resolving imports...")
	resolver := resolve.New(table)

	modules := make(map[types.ModuleID]*graph.Module, len(results))
	unparseable := 0
	for _, r := range results {
		if !r.parsed.Parseable {
			unparseable++
		}
		modules[r.id] = &graph.Module{ID: r.id, Parsed: r.parsed, Metrics: r.metrics, Blocks: r.blocks}
	}

	o.onProgress("assemble", "Assembling graph...")
	assembler := graph.New(resolver, in.SymbolLevel, in.ExtraStdlib, in.GraphProgress)
	assembled := assembler.Assemble(modules)

	o.onProgress("layout", "Computing layout...")
	laid := layout.Apply(assembled.Nodes, assembled.Edges)

	details := make(map[string]types.ModuleDetails, len(assembled.ModuleDetails))
	for k, v := range assembled.ModuleDetails {
		details[k] = v
	}

	artifact := &types.Artifact{
		Version:         artifactVersion,
		GeneratedAt:     o.generatedAt(),
		Nodes:           assembled.Nodes,
		Edges:           assembled.Edges,
		ModuleDetails:   details,
		FolderStructure: in.FolderStructure,
		FileContents:    in.Files,
		LayoutDepth:     laid.Depth,
		Metadata: types.Metadata{
			ModuleCount:      len(modules),
			ExternalCount:    assembled.ExternalCount,
			EdgeCount:        len(assembled.Edges),
			UnparseableCount: unparseable,
			ResolverStats:    resolver.Stats(),
			SymbolLevel:      in.SymbolLevel,
		},
	}

	return artifact, nil
}

func (o *Orchestrator) generatedAt() string {
	if o.nowFn != nil {
		return o.nowFn()
	}
	return ""
}

// parseAndMeasure runs the AST Visitors and the metric provider over every
// file in parallel, writing each result into its own pre-allocated slot so
// the reduction back into the module table is deterministic regardless of
// goroutine completion order.
func (o *Orchestrator) parseAndMeasure(relPaths []string, files map[string]string, table map[string]types.ModuleID) ([]fileResult, error) {
	out := make([]fileResult, len(relPaths))

	g := new(errgroup.Group)
	for i, relPath := range relPaths {
		i, relPath := i, relPath
		g.Go(func() error {
			content := []byte(files[relPath])
			id := table[relPath]

			parsed := pyast.Analyze(o.parser, relPath, content, id)
			metrics, blocks := o.metrics.Analyze(content)

			out[i] = fileResult{id: id, parsed: parsed, metrics: metrics, blocks: blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func sortedKeys(files map[string]string) []string {
	out := make([]string, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
