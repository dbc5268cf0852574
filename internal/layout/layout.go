// Package layout implements the Layout Engine: Kosaraju-style
// strongly-connected-component condensation, longest-path depth assignment
// over the condensation DAG, and deterministic radial placement.
package layout

import (
	"math"
	"sort"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// baseRadius and radiusStep define the per-depth-band circle radius
// r = baseRadius + depth*radiusStep.
const (
	baseRadius     = 300.0
	radiusStep     = 200.0
	fallbackRadius = 500.0
)

// layoutEdgeTypes are the edge kinds that participate in the layout graph;
// "defines" edges (module -> symbol) are excluded.
var layoutEdgeTypes = map[types.EdgeType]bool{
	types.EdgeImports:  true,
	types.EdgeCalls:    true,
	types.EdgeExternal: true,
}

// Result is the computed layout's per-node depths; coordinates are written
// into the nodes' X/Y fields by Apply.
type Result struct {
	Depth map[string]int
}

// Apply computes depths and coordinates for every node, mutating the X/Y
// fields in place, and returns the node -> depth map the artifact reports as
// layout_depth.
func Apply(nodes []types.GraphNode, edges []types.GraphEdge) Result {
	moduleIDs, adjacency := buildLayoutGraph(nodes, edges)

	if len(adjacency.edgeCount) == 0 {
		placeFallbackCircle(nodes)
		depth := make(map[string]int, len(nodes))
		for _, n := range nodes {
			depth[n.ID] = 0
		}
		return Result{Depth: depth}
	}

	components, compOf := stronglyConnectedComponents(moduleIDs, adjacency)
	condAdj := condensation(components, compOf, adjacency)
	compDepth := longestPathDepths(len(components), condAdj)

	nodeDepth := make(map[string]int, len(nodes))
	for _, id := range moduleIDs {
		nodeDepth[id] = compDepth[compOf[id]]
	}
	// Symbol-level nodes inherit their parent module's depth.
	for _, n := range nodes {
		if _, ok := nodeDepth[n.ID]; ok {
			continue
		}
		if n.Parent != "" {
			if d, ok := nodeDepth[n.Parent]; ok {
				nodeDepth[n.ID] = d
			}
		}
	}

	placeByDepthBand(nodes, nodeDepth)
	return Result{Depth: nodeDepth}
}

// layoutAdjacency is an adjacency structure over node ids restricted to
// layout-eligible edges.
type layoutAdjacency struct {
	out       map[string]map[string]bool
	in        map[string]map[string]bool
	edgeCount map[[2]string]bool
}

func buildLayoutGraph(nodes []types.GraphNode, edges []types.GraphEdge) ([]string, *layoutAdjacency) {
	adj := &layoutAdjacency{
		out:       make(map[string]map[string]bool),
		in:        make(map[string]map[string]bool),
		edgeCount: make(map[[2]string]bool),
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == types.NodeModule || n.Kind == types.NodeExternal {
			ids = append(ids, n.ID)
			adj.out[n.ID] = make(map[string]bool)
			adj.in[n.ID] = make(map[string]bool)
		}
	}
	sort.Strings(ids)

	for _, e := range edges {
		if !layoutEdgeTypes[e.Type] {
			continue
		}
		if adj.out[e.Source] == nil || adj.in[e.Target] == nil {
			continue
		}
		adj.out[e.Source][e.Target] = true
		adj.in[e.Target][e.Source] = true
		adj.edgeCount[[2]string{e.Source, e.Target}] = true
	}

	return ids, adj
}

// stronglyConnectedComponents runs Kosaraju's algorithm iteratively (an
// explicit work-stack, not recursion, to tolerate large cyclic graphs):
// forward DFS to produce a finish order, then reverse-graph DFS in reverse
// finish order, assigning component ids.
func stronglyConnectedComponents(ids []string, adj *layoutAdjacency) ([][]string, map[string]int) {
	visited := make(map[string]bool, len(ids))
	var finishOrder []string

	for _, start := range ids {
		if visited[start] {
			continue
		}
		finishOrder = append(finishOrder, iterativeFinishOrder(start, visited, adj.out)...)
	}

	assigned := make(map[string]int, len(ids))
	var components [][]string
	for i := len(finishOrder) - 1; i >= 0; i-- {
		root := finishOrder[i]
		if _, done := assigned[root]; done {
			continue
		}
		comp := iterativeReverseReach(root, assigned, len(components), adj.in)
		sort.Strings(comp)
		components = append(components, comp)
	}

	return components, assigned
}

// iterativeFinishOrder performs a post-order DFS from start over `out`,
// appending each node to the returned slice when fully explored.
func iterativeFinishOrder(start string, visited map[string]bool, out map[string]map[string]bool) []string {
	type frame struct {
		node     string
		children []string
		idx      int
	}
	var order []string
	visited[start] = true
	stack := []*frame{{node: start, children: sortedKeys(out[start])}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.idx < len(top.children) {
			next := top.children[top.idx]
			top.idx++
			if !visited[next] {
				visited[next] = true
				stack = append(stack, &frame{node: next, children: sortedKeys(out[next])})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	return order
}

// iterativeReverseReach performs a DFS from root over `in` (the reverse
// graph), assigning every newly-reached node to component id `compID`.
func iterativeReverseReach(root string, assigned map[string]int, compID int, in map[string]map[string]bool) []string {
	var comp []string
	stack := []string{root}
	assigned[root] = compID
	comp = append(comp, root)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range sortedKeys(in[n]) {
			if _, done := assigned[pred]; done {
				continue
			}
			assigned[pred] = compID
			comp = append(comp, pred)
			stack = append(stack, pred)
		}
	}
	return comp
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// condensation builds the DAG over components, one arc per inter-component
// edge, deduplicated.
func condensation(components [][]string, compOf map[string]int, adj *layoutAdjacency) [][]int {
	out := make([][]int, len(components))
	seen := make(map[[2]int]bool)
	for edge := range adj.edgeCount {
		src, dst := compOf[edge[0]], compOf[edge[1]]
		if src == dst {
			continue
		}
		key := [2]int{src, dst}
		if seen[key] {
			continue
		}
		seen[key] = true
		out[src] = append(out[src], dst)
	}
	for i := range out {
		sort.Ints(out[i])
	}
	return out
}

// longestPathDepths assigns each component a depth by longest-path layering
// via Kahn-style topological traversal: sources (indegree 0) start at depth
// 0; each successor's depth is max(current, predecessor_depth+1).
func longestPathDepths(n int, condAdj [][]int) []int {
	indegree := make([]int, n)
	for _, targets := range condAdj {
		for _, t := range targets {
			indegree[t]++
		}
	}

	depth := make([]int, n)
	var queue []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range condAdj[cur] {
			if depth[cur]+1 > depth[next] {
				depth[next] = depth[cur] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
				sort.Ints(queue)
			}
		}
	}

	return depth
}

// placeByDepthBand sorts nodes within each depth band by id and places them
// on a circle of radius baseRadius+depth*radiusStep, spaced by equal
// angular step.
func placeByDepthBand(nodes []types.GraphNode, nodeDepth map[string]int) {
	byDepth := make(map[int][]int) // depth -> indices into nodes
	for i, n := range nodes {
		d := nodeDepth[n.ID]
		byDepth[d] = append(byDepth[d], i)
	}

	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, d := range depths {
		indices := byDepth[d]
		sort.Slice(indices, func(i, j int) bool { return nodes[indices[i]].ID < nodes[indices[j]].ID })
		radius := baseRadius + float64(d)*radiusStep
		step := 360.0 / float64(len(indices))
		for k, idx := range indices {
			theta := step * float64(k) * math.Pi / 180
			nodes[idx].X = radius * math.Cos(theta)
			nodes[idx].Y = radius * math.Sin(theta)
		}
	}
}

// placeFallbackCircle handles the degenerate no-layout-eligible-edges case:
// a single circle of radius 500 holding every node.
func placeFallbackCircle(nodes []types.GraphNode) {
	sorted := make([]int, len(nodes))
	for i := range nodes {
		sorted[i] = i
	}
	sort.Slice(sorted, func(i, j int) bool { return nodes[sorted[i]].ID < nodes[sorted[j]].ID })

	step := 360.0
	if len(sorted) > 0 {
		step = 360.0 / float64(len(sorted))
	}
	for k, idx := range sorted {
		theta := step * float64(k) * math.Pi / 180
		nodes[idx].X = fallbackRadius * math.Cos(theta)
		nodes[idx].Y = fallbackRadius * math.Sin(theta)
	}
}
