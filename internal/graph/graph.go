// Package graph implements the Graph Assembler: turning
// parsed modules plus resolved imports into the typed node/edge graph,
// call-graph inversion, dead-code detection, and external-package folding.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ingo-eichhorst/pygraph/internal/pyast"
	"github.com/ingo-eichhorst/pygraph/internal/resolve"
	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// bulkReleaseInterval is the "every 500 modules" advisory progress
// checkpoint. It carries no semantic weight; it only gives
// callers a hook to reclaim transient state on very large inputs.
const bulkReleaseInterval = 500

// Module bundles one file's parsed output with its independently computed
// metrics, keyed by the id the Module Mapper assigned it.
type Module struct {
	ID      types.ModuleID
	Parsed  *types.ParsedModule
	Metrics types.ComplexityMetrics
	Blocks  []types.Block
}

// Assembler builds the graph for one run.
type Assembler struct {
	resolver    *resolve.Resolver
	symbolLevel bool
	extraStdlib map[string]bool
	onProgress  func(processed int)
}

// New constructs an Assembler. onProgress, if non-nil, is invoked every
// bulkReleaseInterval modules processed.
// extraStdlib augments the curated stdlib recognizer (e.g. from project
// config's stdlib_extra) and may be nil.
func New(resolver *resolve.Resolver, symbolLevel bool, extraStdlib map[string]bool, onProgress func(int)) *Assembler {
	return &Assembler{resolver: resolver, symbolLevel: symbolLevel, extraStdlib: extraStdlib, onProgress: onProgress}
}

func (a *Assembler) isStdlib(top string) bool {
	return resolve.IsStdlib(top) || a.extraStdlib[top]
}

// Result is the Assembler's output, prior to layout.
type Result struct {
	Nodes         []types.GraphNode
	Edges         []types.GraphEdge
	ModuleDetails map[string]types.ModuleDetails
	ExternalCount int
}

// Assemble builds the node/edge graph over every module, in ascending
// ModuleID order (the determinism the orchestrator and layout engine
// depend on).
func (a *Assembler) Assemble(modules map[types.ModuleID]*Module) Result {
	ids := sortedModuleIDs(modules)

	var nodes []types.GraphNode
	var edges []types.GraphEdge
	details := make(map[string]types.ModuleDetails, len(ids))
	externalImporters := make(map[string]map[types.ModuleID]bool)

	for i, id := range ids {
		m := modules[id]
		node, moduleEdges, detail := a.assembleModule(id, m, externalImporters)
		nodes = append(nodes, node)
		edges = append(edges, moduleEdges...)
		details[string(id)] = detail

		if a.symbolLevel {
			nodes = append(nodes, symbolNodes(id, m.Parsed, m.Blocks)...)
			edges = append(edges, definesEdges(id, m.Parsed)...)
		}

		if a.onProgress != nil && (i+1)%bulkReleaseInterval == 0 {
			a.onProgress(i + 1)
		}
	}

	externalNodes, externalEdges := materializeExternals(externalImporters)
	nodes = append(nodes, externalNodes...)
	edges = append(edges, externalEdges...)

	edges = dedupeEdges(edges)
	sort.Slice(edges, func(i, j int) bool { return edgeLess(edges[i], edges[j]) })

	return Result{Nodes: nodes, Edges: edges, ModuleDetails: details, ExternalCount: len(externalNodes)}
}

func sortedModuleIDs(modules map[types.ModuleID]*Module) []types.ModuleID {
	ids := make([]types.ModuleID, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// assembleModule builds one module's node, its resolved/external import
// edges, and its ModuleDetails record.
func (a *Assembler) assembleModule(id types.ModuleID, m *Module, externalImporters map[string]map[types.ModuleID]bool) (types.GraphNode, []types.GraphEdge, types.ModuleDetails) {
	recordExternalImporter := func(pkg string, mod types.ModuleID) {
		if externalImporters[pkg] == nil {
			externalImporters[pkg] = make(map[types.ModuleID]bool)
		}
		externalImporters[pkg][mod] = true
	}
	pm := m.Parsed

	lines := pyast.CountLines(pm.Content)
	classes, functions := countSymbols(pm.Symbols)

	stats := map[string]string{
		"Lines":         strconv.Itoa(lines),
		"Classes":       strconv.Itoa(classes),
		"Functions":     strconv.Itoa(functions),
		"Imports":       strconv.Itoa(len(pm.Imports)),
		"MaxComplexity": strconv.Itoa(m.Metrics.Max),
		"MI":            formatFloat(m.Metrics.MaintainabilityIdx),
		"Blocks":        strconv.Itoa(m.Metrics.TotalBlocks),
	}
	if m.Metrics.HighComplexity > 0 {
		stats["HighComplexity"] = strconv.Itoa(m.Metrics.HighComplexity)
	}
	if m.Metrics.TotalBlocks > 0 {
		stats["AvgComplexity"] = formatFloat(m.Metrics.Avg)
	}

	node := types.GraphNode{
		ID:      string(id),
		Kind:    types.NodeModule,
		Type:    pm.Meta.Type,
		Title:   pm.Meta.Title,
		Path:    pm.RelPath,
		Role:    pm.Meta.Role,
		Project: projectOf(string(id)),
		Stats:   stats,
	}

	edges, importList := a.moduleImportEdges(id, pm, recordExternalImporter)

	funcRecords, callGraph := functionRecords(pm, blockComplexity(m.Blocks))
	dead := deadFunctions(pm, funcRecords)

	detail := types.ModuleDetails{
		Path:          pm.RelPath,
		Type:          pm.Meta.Type,
		Role:          pm.Meta.Role,
		Imports:       importList,
		SymbolCount:   len(pm.Symbols),
		Stats:         stats,
		Functions:     funcRecords,
		EntryPoints:   sortedEntryPoints(pm.EntryPoints, pm.MainGuard),
		CallGraph:     callGraph,
		DeadFunctions: dead,
	}

	return node, edges, detail
}

func countSymbols(symbols []types.Symbol) (classes, functions int) {
	for _, s := range symbols {
		switch s.Kind {
		case types.SymbolClass:
			classes++
		case types.SymbolFunction:
			functions++
		}
	}
	return
}

func projectOf(id string) string {
	if idx := strings.IndexByte(id, '.'); idx >= 0 {
		return id[:idx]
	}
	return id
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// blockComplexity indexes per-symbol complexity blocks by (name, class) so
// function records can be enriched without re-walking the AST.
func blockComplexity(blocks []types.Block) map[string]int {
	out := make(map[string]int, len(blocks))
	for _, b := range blocks {
		key := b.Name
		if b.EnclosingClass != "" {
			key = b.EnclosingClass + "." + b.Name
		}
		out[key] = b.Complexity
	}
	return out
}

// moduleImportEdges resolves every import recorded for a module and emits
// resolved, promoted, or externally-deferred edges. Imports
// that resolve to the module's own id are self-edges and are dropped.
func (a *Assembler) moduleImportEdges(id types.ModuleID, pm *types.ParsedModule, recordExternalImporter func(pkg string, mod types.ModuleID)) ([]types.GraphEdge, []string) {
	var edges []types.GraphEdge
	seenImports := make(map[string]bool)
	var importList []string

	moduleCallSet := make(map[string]bool, len(pm.ModuleCalls))
	for _, c := range pm.ModuleCalls {
		moduleCallSet[c] = true
	}

	for _, imp := range pm.Imports {
		if seenImports[imp] {
			continue
		}
		seenImports[imp] = true
		importList = append(importList, imp)

		target, _ := a.resolver.Resolve(imp)
		if target != "" {
			if target == id {
				continue
			}
			edges = append(edges, types.GraphEdge{Source: string(id), Target: string(target), Type: types.EdgeImports})
			if importPromotesToCall(imp, pm.ImportAliases, moduleCallSet) {
				edges = append(edges, types.GraphEdge{Source: string(id), Target: string(target), Type: types.EdgeCalls})
			}
			continue
		}

		top := firstSegment(imp)
		if a.isStdlib(top) {
			continue
		}
		extTarget := "external:" + top
		edges = append(edges, types.GraphEdge{Source: string(id), Target: extTarget, Type: types.EdgeImports})
		if importPromotesToCall(imp, pm.ImportAliases, moduleCallSet) {
			edges = append(edges, types.GraphEdge{Source: string(id), Target: extTarget, Type: types.EdgeCalls})
		}
		recordExternalImporter(top, id)
	}

	sort.Strings(importList)
	return edges, importList
}

// importPromotesToCall reports whether an imports-edge should be promoted
// to calls: true when some module-level bare call receiver equals a name
// the aliases map binds to this import, or equals the import's own final
// segment.
func importPromotesToCall(imp string, aliases map[string]string, moduleCalls map[string]bool) bool {
	for bound, recorded := range aliases {
		if recorded == imp && moduleCalls[bound] {
			return true
		}
	}
	return moduleCalls[lastSegment(imp)]
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

// functionRecords builds the per-function detail list and the raw
// (function -> call targets) map, inverting it to populate CalledBy.
func functionRecords(pm *types.ParsedModule, complexity map[string]int) ([]types.FunctionRecord, map[string][]string) {
	calledBy := make(map[string][]string)
	names := make([]string, 0, len(pm.FuncCalls))
	for name := range pm.FuncCalls {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, caller := range names {
		for _, callee := range pm.FuncCalls[caller] {
			if _, isLocal := pm.FuncCalls[callee]; isLocal {
				calledBy[callee] = append(calledBy[callee], caller)
			}
		}
	}

	var records []types.FunctionRecord
	for _, sym := range pm.Symbols {
		if sym.Kind != types.SymbolFunction {
			continue
		}
		cb := calledBy[sym.Name]
		sort.Strings(cb)
		records = append(records, types.FunctionRecord{
			Name:         sym.Name,
			Line:         sym.Line,
			Complexity:   complexity[sym.Name],
			Calls:        pm.FuncCalls[sym.Name],
			CalledBy:     cb,
			IsEntryPoint: pm.EntryPoints[sym.Name],
		})
	}

	return records, pm.FuncCalls
}

// deadFunctions computes {f.name : f.name not a call target of any function
// in the module nor of a module-level call, and f is not an entry point}.
func deadFunctions(pm *types.ParsedModule, records []types.FunctionRecord) []string {
	calledAnywhere := make(map[string]bool)
	for _, targets := range pm.FuncCalls {
		for _, t := range targets {
			calledAnywhere[t] = true
		}
	}
	for _, c := range pm.ModuleCalls {
		calledAnywhere[c] = true
	}

	var dead []string
	for _, r := range records {
		if r.IsEntryPoint {
			continue
		}
		if calledAnywhere[r.Name] {
			continue
		}
		dead = append(dead, r.Name)
	}
	sort.Strings(dead)
	return dead
}

// sortedEntryPoints lists a module's recorded entry points. mainGuard folds
// in the module-wide "__main__" sentinel alongside any per-function entry
// points, since the guard marks the module itself as runnable rather than
// any single decorated function.
func sortedEntryPoints(entryPoints map[string]bool, mainGuard bool) []string {
	out := make([]string, 0, len(entryPoints)+1)
	for name, ok := range entryPoints {
		if ok {
			out = append(out, name)
		}
	}
	if mainGuard {
		out = append(out, "__main__")
	}
	sort.Strings(out)
	return out
}

// symbolNodes builds one node per top-level symbol when symbol-level detail
// is enabled, parented to its module.
func symbolNodes(moduleID types.ModuleID, pm *types.ParsedModule, blocks []types.Block) []types.GraphNode {
	complexity := blockComplexity(blocks)

	var nodes []types.GraphNode
	for _, sym := range pm.Symbols {
		id := fmt.Sprintf("%s.%s", moduleID, sym.Name)
		kind := types.NodeFunction
		if sym.Kind == types.SymbolClass {
			kind = types.NodeClass
		}
		stats := map[string]string{}
		if sym.Kind == types.SymbolFunction {
			stats["MaxComplexity"] = strconv.Itoa(complexity[sym.Name])
		}
		nodes = append(nodes, types.GraphNode{
			ID:      id,
			Kind:    kind,
			Title:   sym.Name,
			Path:    pm.RelPath,
			Role:    sym.Doc,
			Project: projectOf(string(moduleID)),
			Stats:   stats,
			Parent:  string(moduleID),
		})
	}
	return nodes
}

func definesEdges(moduleID types.ModuleID, pm *types.ParsedModule) []types.GraphEdge {
	var edges []types.GraphEdge
	for _, sym := range pm.Symbols {
		edges = append(edges, types.GraphEdge{
			Source: string(moduleID),
			Target: fmt.Sprintf("%s.%s", moduleID, sym.Name),
			Type:   types.EdgeDefines,
		})
	}
	return edges
}

// materializeExternals emits one external node per unique top-level package
// name, plus one external edge per (module, package) importer pair,
// deterministically ordered by package name.
func materializeExternals(importers map[string]map[types.ModuleID]bool) ([]types.GraphNode, []types.GraphEdge) {
	pkgs := make([]string, 0, len(importers))
	for pkg := range importers {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	var nodes []types.GraphNode
	var edges []types.GraphEdge
	for _, pkg := range pkgs {
		id := "external:" + pkg
		nodes = append(nodes, types.GraphNode{
			ID:      id,
			Kind:    types.NodeExternal,
			Title:   pkg,
			Project: "external",
			Stats:   map[string]string{"Type": "External Package"},
		})

		modIDs := make([]string, 0, len(importers[pkg]))
		for m := range importers[pkg] {
			modIDs = append(modIDs, string(m))
		}
		sort.Strings(modIDs)
		for _, m := range modIDs {
			edges = append(edges, types.GraphEdge{Source: m, Target: id, Type: types.EdgeExternal})
		}
	}
	return nodes, edges
}

func dedupeEdges(edges []types.GraphEdge) []types.GraphEdge {
	seen := make(map[types.GraphEdge]bool, len(edges))
	out := make([]types.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func edgeLess(a, b types.GraphEdge) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	return a.Type < b.Type
}
