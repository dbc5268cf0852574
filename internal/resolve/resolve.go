// Package resolve implements the Import Resolver: mapping an
// import name to a known module id through an ordered cascade of heuristic
// strategies, or to an external package reference.
package resolve

import (
	"sort"
	"strings"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// Resolver resolves import names against a fixed table of known module ids.
// Iteration order is fixed at construction time (sorted) so that ambiguous
// matches are resolved the same way on every run.
type Resolver struct {
	sortedIDs []types.ModuleID
	known     map[types.ModuleID]bool
	stats     map[types.ResolverStrategy]int
}

// New builds a Resolver over the given module table.
func New(table map[string]types.ModuleID) *Resolver {
	known := make(map[types.ModuleID]bool, len(table))
	for _, id := range table {
		known[id] = true
	}
	ids := make([]types.ModuleID, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Resolver{
		sortedIDs: ids,
		known:     known,
		stats:     make(map[types.ResolverStrategy]int),
	}
}

// Resolve applies the ordered strategy cascade to an import name and
// returns the matched module id (if any) and the strategy that matched.
func (r *Resolver) Resolve(importName string) (types.ModuleID, types.ResolverStrategy) {
	id := types.ModuleID(importName)

	if r.known[id] {
		r.record(types.StrategyExact)
		return id, types.StrategyExact
	}

	suffix := "." + importName
	for _, candidate := range r.sortedIDs {
		if strings.HasSuffix(string(candidate), suffix) {
			r.record(types.StrategyFuzzySuffix)
			return candidate, types.StrategyFuzzySuffix
		}
	}

	wantBase := lastSegment(importName)
	for _, candidate := range r.sortedIDs {
		if lastSegment(string(candidate)) == wantBase {
			r.record(types.StrategyBasename)
			return candidate, types.StrategyBasename
		}
	}

	for _, candidate := range r.sortedIDs {
		if strings.Contains(string(candidate), importName) {
			r.record(types.StrategyFuzzySubstring)
			return candidate, types.StrategyFuzzySubstring
		}
	}

	top := firstSegment(importName)
	if r.known[types.ModuleID(top)] {
		r.record(types.StrategyTopLevel)
		return types.ModuleID(top), types.StrategyTopLevel
	}

	r.record(types.StrategyFailed)
	return "", types.StrategyFailed
}

// Stats returns a copy of the accumulated per-strategy outcome counts.
func (r *Resolver) Stats() types.ResolverStats {
	out := make(map[types.ResolverStrategy]int, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return types.ResolverStats{Counts: out}
}

func (r *Resolver) record(s types.ResolverStrategy) {
	r.stats[s]++
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
