package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

func newTestResolver() *Resolver {
	return New(map[string]types.ModuleID{
		"pkg/utils/helpers.py":  "utils.helpers",
		"pkg/utils/__init__.py": "utils",
		"pkg/app/main.py":       "app.main",
	})
}

func TestResolve_Exact(t *testing.T) {
	r := newTestResolver()
	id, strat := r.Resolve("utils.helpers")
	assert.Equal(t, types.ModuleID("utils.helpers"), id)
	assert.Equal(t, types.StrategyExact, strat)
}

func TestResolve_FuzzySuffix(t *testing.T) {
	r := newTestResolver()
	id, strat := r.Resolve("helpers")
	assert.Equal(t, types.ModuleID("utils.helpers"), id)
	assert.Equal(t, types.StrategyFuzzySuffix, strat)
}

func TestResolve_TopLevel(t *testing.T) {
	r := newTestResolver()
	id, strat := r.Resolve("utils.missing")
	assert.Equal(t, types.ModuleID("utils"), id)
	assert.Equal(t, types.StrategyTopLevel, strat)
}

func TestResolve_Failed(t *testing.T) {
	r := newTestResolver()
	id, strat := r.Resolve("numpy")
	assert.Equal(t, types.ModuleID(""), id)
	assert.Equal(t, types.StrategyFailed, strat)
}

func TestResolve_StatsAccumulate(t *testing.T) {
	r := newTestResolver()
	r.Resolve("utils.helpers")
	r.Resolve("utils.helpers")
	r.Resolve("numpy")

	stats := r.Stats()
	assert.Equal(t, 2, stats.Counts[types.StrategyExact])
	assert.Equal(t, 1, stats.Counts[types.StrategyFailed])
}

func TestResolve_DeterministicAcrossRepeatedCalls(t *testing.T) {
	r1 := newTestResolver()
	r2 := newTestResolver()

	id1, strat1 := r1.Resolve("helpers")
	id2, strat2 := r2.Resolve("helpers")
	assert.Equal(t, id1, id2)
	assert.Equal(t, strat1, strat2)
}

func TestIsStdlib(t *testing.T) {
	assert.True(t, IsStdlib("os"))
	assert.True(t, IsStdlib("json"))
	assert.False(t, IsStdlib("numpy"))
	assert.False(t, IsStdlib(""))
}
