// Package emit renders the final Artifact to its wire JSON form. Field
// names follow the external interface contract rather than the internal
// Go-idiomatic ones (e.g. edges use "from"/"to").
package emit

import (
	"encoding/json"
	"io"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// JSONArtifact is the wire representation of types.Artifact.
type JSONArtifact struct {
	Version         string                          `json:"version"`
	GeneratedAt     string                          `json:"generatedAt"`
	Nodes           []JSONNode                      `json:"nodes"`
	Edges           []JSONEdge                      `json:"edges"`
	ModuleDetails   map[string]JSONModuleDetails     `json:"module_details"`
	FolderStructure interface{}                      `json:"folder_structure"`
	FileContents    map[string]string                `json:"file_contents"`
	LayoutDepth     map[string]int                    `json:"layout_depth"`
	Metadata        JSONMetadata                      `json:"metadata"`
}

// JSONNode mirrors GraphNode.
type JSONNode struct {
	ID      string            `json:"id"`
	Kind    string            `json:"kind"`
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Path    string            `json:"path"`
	Role    string            `json:"role"`
	Project string            `json:"project"`
	Stats   map[string]string `json:"stats"`
	X       float64           `json:"x"`
	Y       float64           `json:"y"`
	Parent  string            `json:"parent,omitempty"`
}

// JSONEdge mirrors GraphEdge with the external "from"/"to" field names.
type JSONEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// JSONFunctionRecord mirrors FunctionRecord.
type JSONFunctionRecord struct {
	Name         string   `json:"name"`
	Line         int      `json:"line"`
	Complexity   int      `json:"complexity"`
	Calls        []string `json:"calls"`
	CalledBy     []string `json:"called_by"`
	IsEntryPoint bool     `json:"is_entry_point"`
}

// JSONModuleDetails mirrors ModuleDetails.
type JSONModuleDetails struct {
	Path          string              `json:"path"`
	Type          string              `json:"type"`
	Role          string              `json:"role"`
	Imports       []string            `json:"imports"`
	SymbolCount   int                 `json:"symbol_count"`
	Stats         map[string]string   `json:"stats"`
	Functions     []JSONFunctionRecord `json:"functions"`
	EntryPoints   []string            `json:"entry_points"`
	CallGraph     map[string][]string `json:"call_graph"`
	DeadFunctions []string            `json:"dead_functions"`
}

// JSONMetadata mirrors Metadata.
type JSONMetadata struct {
	ModuleCount      int            `json:"module_count"`
	ExternalCount    int            `json:"external_count"`
	EdgeCount        int            `json:"edge_count"`
	UnparseableCount int            `json:"unparseable_count"`
	ResolverStats    map[string]int `json:"resolver_stats"`
	SymbolLevel      bool           `json:"symbol_level"`
}

// FromArtifact converts the internal Artifact into its wire representation.
func FromArtifact(a *types.Artifact) *JSONArtifact {
	out := &JSONArtifact{
		Version:         a.Version,
		GeneratedAt:     a.GeneratedAt,
		FolderStructure: a.FolderStructure,
		FileContents:    a.FileContents,
		LayoutDepth:     a.LayoutDepth,
		ModuleDetails:   make(map[string]JSONModuleDetails, len(a.ModuleDetails)),
	}

	for _, n := range a.Nodes {
		out.Nodes = append(out.Nodes, JSONNode{
			ID: n.ID, Kind: string(n.Kind), Type: n.Type, Title: n.Title,
			Path: n.Path, Role: n.Role, Project: n.Project, Stats: n.Stats,
			X: n.X, Y: n.Y, Parent: n.Parent,
		})
	}

	for _, e := range a.Edges {
		out.Edges = append(out.Edges, JSONEdge{From: e.Source, To: e.Target, Type: string(e.Type)})
	}

	for id, d := range a.ModuleDetails {
		var funcs []JSONFunctionRecord
		for _, f := range d.Functions {
			funcs = append(funcs, JSONFunctionRecord{
				Name: f.Name, Line: f.Line, Complexity: f.Complexity,
				Calls: f.Calls, CalledBy: f.CalledBy, IsEntryPoint: f.IsEntryPoint,
			})
		}
		out.ModuleDetails[id] = JSONModuleDetails{
			Path: d.Path, Type: d.Type, Role: d.Role, Imports: d.Imports,
			SymbolCount: d.SymbolCount, Stats: d.Stats, Functions: funcs,
			EntryPoints: d.EntryPoints, CallGraph: d.CallGraph, DeadFunctions: d.DeadFunctions,
		}
	}

	stats := make(map[string]int, len(a.Metadata.ResolverStats.Counts))
	for strategy, count := range a.Metadata.ResolverStats.Counts {
		stats[string(strategy)] = count
	}
	out.Metadata = JSONMetadata{
		ModuleCount:      a.Metadata.ModuleCount,
		ExternalCount:    a.Metadata.ExternalCount,
		EdgeCount:        a.Metadata.EdgeCount,
		UnparseableCount: a.Metadata.UnparseableCount,
		ResolverStats:    stats,
		SymbolLevel:      a.Metadata.SymbolLevel,
	}

	return out
}

// Write renders the artifact as pretty-printed JSON.
func Write(w io.Writer, a *types.Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(FromArtifact(a))
}
