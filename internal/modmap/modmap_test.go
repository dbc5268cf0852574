package modmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

func TestDetectRoots_PrefersPreferred(t *testing.T) {
	roots := DetectRoots([]string{"src/app/main.py", "docs/readme.md", "tests/test_app.py"})
	assert.Equal(t, map[string]bool{"src": true}, roots)
}

func TestDetectRoots_FallsBackToAllFirstSegments(t *testing.T) {
	roots := DetectRoots([]string{"alpha/main.py", "beta/util.py"})
	assert.Equal(t, map[string]bool{"alpha": true, "beta": true}, roots)
}

func TestDetectRoots_PreferredRootThatIsThePackageItselfIsPreserved(t *testing.T) {
	roots := DetectRoots([]string{"pkg/__init__.py", "pkg/a.py", "pkg/b.py"})
	assert.Equal(t, map[string]bool{}, roots)
}

func TestBuildTable_PreferredRootThatIsThePackageItselfIsPreserved(t *testing.T) {
	paths := []string{"pkg/__init__.py", "pkg/a.py", "pkg/b.py"}
	table := BuildTable(paths)
	assert.Equal(t, types.ModuleID("pkg"), table["pkg/__init__.py"])
	assert.Equal(t, types.ModuleID("pkg.a"), table["pkg/a.py"])
	assert.Equal(t, types.ModuleID("pkg.b"), table["pkg/b.py"])
}

func TestDetectRoots_WrapperRootStillStrippedAlongsidePackageRoot(t *testing.T) {
	roots := DetectRoots([]string{"src/app/main.py", "pkg/__init__.py", "pkg/a.py"})
	assert.Equal(t, map[string]bool{"src": true}, roots)
}

func TestToModuleID_StripsRootAndExtension(t *testing.T) {
	roots := map[string]bool{"src": true}
	id := ToModuleID("src/app/main.py", roots)
	assert.Equal(t, types.ModuleID("app.main"), id)
}

func TestToModuleID_CollapsesInitPackageMarker(t *testing.T) {
	roots := map[string]bool{"src": true}
	id := ToModuleID("src/app/__init__.py", roots)
	assert.Equal(t, types.ModuleID("app"), id)
}

func TestToModuleID_NoMatchingRoot(t *testing.T) {
	roots := map[string]bool{"src": true}
	id := ToModuleID("lib/util.py", roots)
	assert.Equal(t, types.ModuleID("lib.util"), id)
}

func TestBuildTableWithRoots_OverrideWins(t *testing.T) {
	paths := []string{"src/app/main.py", "lib/helper.py"}
	table := BuildTableWithRoots(paths, map[string]bool{"src": true})
	assert.Equal(t, types.ModuleID("app.main"), table["src/app/main.py"])
	assert.Equal(t, types.ModuleID("lib.helper"), table["lib/helper.py"])
}

func TestBuildTable_AutoDetectsRoots(t *testing.T) {
	paths := []string{"src/app/main.py", "src/app/util.py"}
	table := BuildTable(paths)
	assert.Equal(t, types.ModuleID("app.main"), table["src/app/main.py"])
	assert.Equal(t, types.ModuleID("app.util"), table["src/app/util.py"])
}
