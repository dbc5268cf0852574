package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

func radiusOf(n types.GraphNode) float64 {
	return math.Hypot(n.X, n.Y)
}

func TestApply_NoEdgesFallsBackToSingleCircle(t *testing.T) {
	nodes := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
	}
	result := Apply(nodes, nil)

	assert.Equal(t, 0, result.Depth["a"])
	assert.Equal(t, 0, result.Depth["b"])
	for _, n := range nodes {
		assert.InDelta(t, fallbackRadius, radiusOf(n), 0.01)
	}
}

func TestApply_LinearChainIncreasesDepth(t *testing.T) {
	nodes := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
		{ID: "c", Kind: types.NodeModule},
	}
	edges := []types.GraphEdge{
		{Source: "a", Target: "b", Type: types.EdgeImports},
		{Source: "b", Target: "c", Type: types.EdgeImports},
	}
	result := Apply(nodes, edges)

	assert.Equal(t, 0, result.Depth["a"])
	assert.Equal(t, 1, result.Depth["b"])
	assert.Equal(t, 2, result.Depth["c"])
}

func TestApply_CycleCollapsesToSameDepth(t *testing.T) {
	nodes := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
	}
	edges := []types.GraphEdge{
		{Source: "a", Target: "b", Type: types.EdgeCalls},
		{Source: "b", Target: "a", Type: types.EdgeCalls},
	}
	result := Apply(nodes, edges)
	assert.Equal(t, result.Depth["a"], result.Depth["b"])
}

func TestApply_DefinesEdgesExcludedFromLayoutGraph(t *testing.T) {
	nodes := []types.GraphNode{
		{ID: "mod", Kind: types.NodeModule},
		{ID: "mod.fn", Kind: types.NodeFunction, Parent: "mod"},
	}
	edges := []types.GraphEdge{
		{Source: "mod", Target: "mod.fn", Type: types.EdgeDefines},
	}
	result := Apply(nodes, edges)
	// No layout-eligible edges -> degenerate fallback for every node.
	assert.Equal(t, 0, result.Depth["mod"])
	assert.Equal(t, 0, result.Depth["mod.fn"])
}

func TestApply_SymbolNodeInheritsParentDepth(t *testing.T) {
	nodes := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
		{ID: "b.fn", Kind: types.NodeFunction, Parent: "b"},
	}
	edges := []types.GraphEdge{
		{Source: "a", Target: "b", Type: types.EdgeImports},
		{Source: "b", Target: "b.fn", Type: types.EdgeDefines},
	}
	result := Apply(nodes, edges)
	assert.Equal(t, result.Depth["b"], result.Depth["b.fn"])
	assert.Equal(t, 1, result.Depth["b"])
}

func TestApply_DeterministicAcrossRuns(t *testing.T) {
	nodes1 := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
		{ID: "c", Kind: types.NodeExternal},
	}
	nodes2 := []types.GraphNode{
		{ID: "a", Kind: types.NodeModule},
		{ID: "b", Kind: types.NodeModule},
		{ID: "c", Kind: types.NodeExternal},
	}
	edges := []types.GraphEdge{
		{Source: "a", Target: "b", Type: types.EdgeImports},
		{Source: "a", Target: "c", Type: types.EdgeExternal},
	}

	r1 := Apply(nodes1, edges)
	r2 := Apply(nodes2, edges)
	assert.Equal(t, r1.Depth, r2.Depth)
	for i := range nodes1 {
		assert.InDelta(t, nodes1[i].X, nodes2[i].X, 1e-9)
		assert.InDelta(t, nodes1[i].Y, nodes2[i].Y, 1e-9)
	}
}
