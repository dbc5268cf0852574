// Package modmap implements the Module Mapper: project-root
// detection and path -> dotted ModuleID conversion.
package modmap

import (
	"strings"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// preferredRoots are the first-segment names that win root detection when
// any of them appears among the discovered files.
var preferredRoots = map[string]bool{
	"src":    true,
	"python": true,
	"lib":    true,
	"pkg":    true,
	"app":    true,
}

// packageMarkers are file base names (without extension) that collapse the
// final path segment into their containing package.
var packageMarkers = map[string]bool{
	"__init__": true,
}

// DetectRoots inspects the relative paths of every discovered file and
// returns the set of project-root first-segments to strip when building
// module ids. A preferred-root segment that is itself the analyzed package
// (it holds a direct "<root>/__init__.py") is a package, not a wrapper
// directory like a src-layout's "src/", so it is excluded here: its name
// must survive into the module id rather than being stripped away.
func DetectRoots(relPaths []string) map[string]bool {
	firstSegs := make(map[string]bool)
	for _, p := range relPaths {
		firstSegs[firstSegment(p)] = true
	}

	hasPreferred := false
	for seg := range firstSegs {
		if preferredRoots[seg] {
			hasPreferred = true
			break
		}
	}

	if !hasPreferred {
		return firstSegs
	}

	roots := make(map[string]bool)
	for seg := range firstSegs {
		if preferredRoots[seg] && !isPackageRoot(relPaths, seg) {
			roots[seg] = true
		}
	}
	return roots
}

// isPackageRoot reports whether root itself holds a direct __init__ module
// (e.g. "pkg/__init__.py"), which marks root as the package under analysis
// rather than a wrapper directory whose name should be stripped.
func isPackageRoot(relPaths []string, root string) bool {
	prefix := root + "/"
	for _, p := range relPaths {
		rest := strings.TrimPrefix(p, prefix)
		if rest == p {
			continue
		}
		if packageMarkers[strings.TrimSuffix(strings.TrimSuffix(rest, ".py"), ".pyi")] {
			return true
		}
	}
	return false
}

func firstSegment(relPath string) string {
	p := strings.TrimPrefix(relPath, "/")
	if idx := strings.IndexByte(p, '/'); idx >= 0 {
		return p[:idx]
	}
	return ""
}

// ToModuleID converts a file's relative path into a dotted ModuleID,
// stripping the chosen root prefix, the source extension, and collapsing a
// trailing package-marker segment.
func ToModuleID(relPath string, roots map[string]bool) types.ModuleID {
	p := strings.TrimPrefix(relPath, "/")

	for root := range roots {
		if root == "" {
			continue
		}
		prefix := root + "/"
		if strings.HasPrefix(p, prefix) {
			p = strings.TrimPrefix(p, prefix)
			break
		}
	}

	p = strings.TrimSuffix(p, ".py")
	p = strings.TrimSuffix(p, ".pyi")

	segs := strings.Split(p, "/")
	if len(segs) > 0 && packageMarkers[segs[len(segs)-1]] {
		segs = segs[:len(segs)-1]
	}

	return types.ModuleID(strings.Join(segs, "."))
}

// BuildTable computes the ModuleID for every relative path in one pass,
// detecting roots first.
func BuildTable(relPaths []string) map[string]types.ModuleID {
	return BuildTableWithRoots(relPaths, nil)
}

// BuildTableWithRoots computes the ModuleID for every relative path, using
// the given root override set when non-empty (e.g. from project config)
// instead of running root detection.
func BuildTableWithRoots(relPaths []string, rootOverride map[string]bool) map[string]types.ModuleID {
	roots := rootOverride
	if len(roots) == 0 {
		roots = DetectRoots(relPaths)
	}
	table := make(map[string]types.ModuleID, len(relPaths))
	for _, p := range relPaths {
		table[p] = ToModuleID(p, roots)
	}
	return table
}
