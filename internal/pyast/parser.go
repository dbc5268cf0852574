// Package pyast provides Tree-sitter based parsing and AST visitors for
// Python source files: import extraction, call extraction, symbol
// extraction, and entry-point detection.
//
// Tree-sitter parsers require CGO_ENABLED=1.
package pyast

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser holds a single shared Tree-sitter parser for Python. Tree-sitter parsers
// are not thread-safe, so all parse operations are serialized via a mutex;
// the returned trees are safe to read concurrently afterward.
type Parser struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
}

// NewParser creates a Python Tree-sitter parser.
func NewParser() (*Parser, error) {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set python language: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Parse parses source content and returns the Tree-sitter tree. The caller
// must call tree.Close() when done.
func (p *Parser) Parse(content []byte) *tree_sitter.Tree {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parser.Parse(content, nil)
}

// WalkTree walks a Tree-sitter tree depth-first, calling fn for each node.
func WalkTree(node *tree_sitter.Node, fn func(*tree_sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			WalkTree(child, fn)
		}
	}
}

// NodeText extracts the text content of a Tree-sitter node.
func NodeText(node *tree_sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// CountLines counts lines in source content the same way the Graph
// Assembler does.
func CountLines(content []byte) int {
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	return count
}
