package emit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

func sampleArtifact() *types.Artifact {
	return &types.Artifact{
		Version:     "1.0",
		GeneratedAt: "2026-07-30T00:00:00Z",
		Nodes: []types.GraphNode{
			{ID: "app.main", Kind: types.NodeModule, Stats: map[string]string{"Lines": "3"}},
		},
		Edges: []types.GraphEdge{
			{Source: "app.main", Target: "app.utils", Type: types.EdgeImports},
		},
		ModuleDetails: map[string]types.ModuleDetails{
			"app.main": {
				Path: "app/main.py",
				Functions: []types.FunctionRecord{
					{Name: "run", Line: 1, Calls: []string{"helper"}},
				},
				DeadFunctions: []string{"unused"},
			},
		},
		FileContents: map[string]string{"app/main.py": "print(1)\n"},
		LayoutDepth:  map[string]int{"app.main": 0},
		Metadata: types.Metadata{
			ModuleCount: 1,
			ResolverStats: types.ResolverStats{
				Counts: map[types.ResolverStrategy]int{types.StrategyExact: 1},
			},
		},
	}
}

func TestFromArtifact_EdgeFieldNames(t *testing.T) {
	out := FromArtifact(sampleArtifact())
	require.Len(t, out.Edges, 1)
	assert.Equal(t, "app.main", out.Edges[0].From)
	assert.Equal(t, "app.utils", out.Edges[0].To)
	assert.Equal(t, "imports", out.Edges[0].Type)
}

func TestFromArtifact_ModuleDetailsPreserved(t *testing.T) {
	out := FromArtifact(sampleArtifact())
	detail, ok := out.ModuleDetails["app.main"]
	require.True(t, ok)
	assert.Equal(t, []string{"unused"}, detail.DeadFunctions)
	require.Len(t, detail.Functions, 1)
	assert.Equal(t, "run", detail.Functions[0].Name)
}

func TestFromArtifact_ResolverStatsKeyedByString(t *testing.T) {
	out := FromArtifact(sampleArtifact())
	assert.Equal(t, 1, out.Metadata.ResolverStats["exact"])
}

func TestWrite_ProducesValidIndentedJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleArtifact()))

	assert.Contains(t, buf.String(), "\n  ")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1.0", decoded["version"])
	assert.Contains(t, decoded, "nodes")
	assert.Contains(t, decoded, "module_details")
}
