// Package metric provides the pluggable complexity/maintainability metric
// provider contract and a default implementation grounded on
// McCabe cyclomatic complexity over the Python Tree-sitter grammar.
//
// The core treats this as an external collaborator: callers may supply any
// Provider (e.g. one backed by radon, if shelling out to a Python
// toolchain is acceptable for a given deployment); DefaultProvider is the
// batteries-included implementation used when none is configured.
package metric

import (
	"math"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ingo-eichhorst/pygraph/internal/pyast"
	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// highComplexityThreshold is the per-block complexity above which a block
// counts toward ComplexityMetrics.HighComplexity.
const highComplexityThreshold = 10

// Provider computes complexity/maintainability metrics for a single
// source file.
type Provider interface {
	Analyze(source []byte) (types.ComplexityMetrics, []types.Block)
}

// DefaultProvider computes McCabe cyclomatic complexity per top-level and
// nested function/method by walking the Tree-sitter AST, and derives a
// maintainability index from those numbers plus line count.
type DefaultProvider struct {
	parser *pyast.Parser
}

// NewDefaultProvider wraps a Tree-sitter parser for metric computation. The
// parser may be the same instance the AST Visitors use; Tree-sitter parses
// are serialized internally so sharing is safe.
func NewDefaultProvider(p *pyast.Parser) *DefaultProvider {
	return &DefaultProvider{parser: p}
}

// Analyze implements Provider. A null/failed parse returns MissingMetric
// defaults: zero complexity, MI 100.0.
func (d *DefaultProvider) Analyze(source []byte) (types.ComplexityMetrics, []types.Block) {
	defaultMetrics := types.ComplexityMetrics{MaintainabilityIdx: 100.0}

	if d.parser == nil || len(source) == 0 {
		return defaultMetrics, nil
	}

	tree := d.parser.Parse(source)
	if tree == nil {
		return defaultMetrics, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return defaultMetrics, nil
	}

	blocks := collectBlocks(root, source)
	if len(blocks) == 0 {
		return defaultMetrics, nil
	}

	metrics := aggregate(blocks, pyast.CountLines(source))
	return metrics, blocks
}

// collectBlocks walks direct module-level definitions, methods nested in
// classes, and functions defined directly in a function body, computing one
// Block per function/method.
func collectBlocks(root *tree_sitter.Node, content []byte) []types.Block {
	var blocks []types.Block
	var walk func(n *tree_sitter.Node, class string)
	walk = func(n *tree_sitter.Node, class string) {
		if n == nil {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "function_definition":
				blocks = append(blocks, blockFor(child, content, class))
				if body := child.ChildByFieldName("body"); body != nil {
					walk(body, class)
				}
			case "class_definition":
				name := fieldText(child, "name", content)
				if body := child.ChildByFieldName("body"); body != nil {
					walk(body, name)
				}
			case "decorated_definition":
				for j := uint(0); j < child.ChildCount(); j++ {
					inner := child.Child(j)
					if inner == nil {
						continue
					}
					if inner.Kind() == "function_definition" {
						blocks = append(blocks, blockFor(inner, content, class))
						if body := inner.ChildByFieldName("body"); body != nil {
							walk(body, class)
						}
					} else if inner.Kind() == "class_definition" {
						name := fieldText(inner, "name", content)
						if body := inner.ChildByFieldName("body"); body != nil {
							walk(body, name)
						}
					}
				}
			}
		}
	}
	walk(root, "")
	return blocks
}

func blockFor(fn *tree_sitter.Node, content []byte, class string) types.Block {
	return types.Block{
		Name:           fieldText(fn, "name", content),
		Complexity:     cyclomaticComplexity(fn),
		EnclosingClass: class,
	}
}

func fieldText(node *tree_sitter.Node, field string, content []byte) string {
	if n := node.ChildByFieldName(field); n != nil {
		return pyast.NodeText(n, content)
	}
	return ""
}

// cyclomaticComplexity computes McCabe complexity for a function: base 1,
// +1 per branch construct (if/elif/for/while/except/conditional expression)
// and per boolean operator, excluding nested function/class definitions.
func cyclomaticComplexity(funcNode *tree_sitter.Node) int {
	complexity := 1
	body := funcNode.ChildByFieldName("body")
	if body == nil {
		return complexity
	}

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		if kind == "function_definition" || kind == "class_definition" {
			return
		}
		switch kind {
		case "if_statement", "elif_clause",
			"for_statement", "while_statement",
			"except_clause", "case_clause",
			"conditional_expression", "boolean_operator":
			complexity++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return complexity
}

// aggregate folds per-block complexity into the source-level
// ComplexityMetrics, including a maintainability index derived from the
// classic Halstead/McCabe/LOC formula, with a volume surrogate built from
// line and block counts (no token-level Halstead counters are computed here).
func aggregate(blocks []types.Block, lineCount int) types.ComplexityMetrics {
	max := 0
	total := 0
	high := 0
	for _, b := range blocks {
		total += b.Complexity
		if b.Complexity > max {
			max = b.Complexity
		}
		if b.Complexity > highComplexityThreshold {
			high++
		}
	}

	avg := round1(float64(total) / float64(len(blocks)))
	mi := maintainabilityIndex(avg, lineCount, len(blocks))

	return types.ComplexityMetrics{
		Max:                max,
		Avg:                avg,
		MaintainabilityIdx: mi,
		TotalBlocks:        len(blocks),
		HighComplexity:     high,
	}
}

// maintainabilityIndex approximates the standard Microsoft-derived formula
// MI = (171 - 5.2*ln(V) - 0.23*G - 16.2*ln(LOC)) * 100/171, clamped to
// [0, 100], using V = LOC*log2(blocks+1) as a volume surrogate since no
// Halstead operand/operator counters are tracked.
func maintainabilityIndex(avgComplexity float64, lineCount, blockCount int) float64 {
	if lineCount <= 0 || blockCount <= 0 {
		return 100.0
	}

	volume := float64(lineCount) * math.Log2(float64(blockCount)+1)
	if volume < 1 {
		volume = 1
	}

	raw := 171 - 5.2*math.Log(volume) - 0.23*avgComplexity - 16.2*math.Log(float64(lineCount))
	mi := raw * 100 / 171
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	return round1(mi)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
