package pyast

import (
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ingo-eichhorst/pygraph/pkg/types"
)

// entryPointDecoratorNames are the bare decorator identifiers that mark a
// function as an entry point.
var entryPointDecoratorNames = map[string]bool{
	"app":   true,
	"route": true,
}

// entryPointAttributes are the final attribute names of a decorator access
// (bare or called) that mark a function as an entry point.
var entryPointAttributes = map[string]bool{
	"get":    true,
	"post":   true,
	"put":    true,
	"delete": true,
	"patch":  true,
	"route":  true,
}

// metaTagPattern matches the "@<tag> [name: <name>]" metadata annotation
// scanned over the raw source.
var metaTagPattern = regexp.MustCompile(`(?i)@(agent|rsi|memory|haa|data|project)\b(?:\s*\[\s*name\s*:\s*([^\]]*)\])?`)

// Analyze runs the AST Visitors over a single source file and returns its
// ParsedModule. If the source fails to parse, the returned module has
// Parseable=false and empty imports/symbols.
func Analyze(p *Parser, relPath string, content []byte, moduleID types.ModuleID) *types.ParsedModule {
	pm := &types.ParsedModule{
		RelPath:     relPath,
		Content:     content,
		EntryPoints: make(map[string]bool),
		FuncCalls:   make(map[string][]string),
	}

	tree := p.Parse(content)
	if tree == nil {
		return pm
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		// A syntax error anywhere marks the module unanalyzed; it is still
		// emitted with zero symbols/imports and contributes no edges.
		if root == nil {
			return pm
		}
	}
	if root.HasError() {
		return pm
	}

	pm.Parseable = true
	pm.Imports, pm.ImportAliases = extractImports(root, content, moduleID)
	pm.Symbols, pm.FuncCalls, pm.ModuleCalls, pm.EntryPoints, pm.MainGuard = walkBody(root, content)
	pm.Meta = extractMetadata(root, content)

	return pm
}

// parentPackage returns the dotted prefix formed by dropping the final
// segment of a module id.
func parentPackage(id types.ModuleID) string {
	s := string(id)
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return ""
	}
	return s[:idx]
}

// extractImports walks absolute and relative "import" / "from ... import
// ..." statements. It also returns a bound-name -> recorded-import map: the
// name each import binds into the module namespace (the "as" alias; without
// one, the first segment of a plain "import a.b" or the imported name of a
// "from" import), used by the Graph Assembler to correlate
// module-level call receivers back to the import they came from.
func extractImports(root *tree_sitter.Node, content []byte, moduleID types.ModuleID) ([]string, map[string]string) {
	var out []string
	aliases := make(map[string]string)
	WalkTree(root, func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "import_statement":
			for i := uint(0); i < n.ChildCount(); i++ {
				child := n.Child(i)
				if child == nil {
					continue
				}
				switch child.Kind() {
				case "dotted_name":
					name := NodeText(child, content)
					out = append(out, name)
					aliases[firstSegment(name)] = name
				case "aliased_import":
					name := fieldText(child, "name", content)
					alias := fieldText(child, "alias", content)
					out = append(out, name)
					if alias != "" {
						aliases[alias] = name
					} else {
						aliases[firstSegment(name)] = name
					}
				}
			}
		case "import_from_statement":
			level, base := relativeImportParts(n, content)
			resolvedBase := base
			if level > 0 {
				resolvedBase = resolveRelativeBase(moduleID, level, base)
			}
			for _, item := range importAliases(n, content) {
				if item.name == "*" {
					if resolvedBase != "" {
						out = append(out, resolvedBase)
					}
					continue
				}
				var recorded string
				if resolvedBase != "" {
					recorded = resolvedBase + "." + item.name
				} else {
					recorded = item.name
				}
				out = append(out, recorded)

				bound := item.name
				if item.alias != "" {
					bound = item.alias
				}
				aliases[bound] = recorded
			}
		}
	})
	return out, aliases
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

// relativeImportParts extracts the dot-level and remaining dotted module
// name from an import_from_statement's module reference.
func relativeImportParts(n *tree_sitter.Node, content []byte) (level int, base string) {
	modNode := n.ChildByFieldName("module_name")
	if modNode == nil {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child != nil && (child.Kind() == "dotted_name" || child.Kind() == "relative_import") {
				modNode = child
				break
			}
		}
	}
	if modNode == nil {
		return 0, ""
	}
	text := NodeText(modNode, content)
	i := 0
	for i < len(text) && text[i] == '.' {
		i++
	}
	return i, text[i:]
}

// resolveRelativeBase resolves a relative import's dot-level and module
// suffix against the importing module's id.
func resolveRelativeBase(moduleID types.ModuleID, level int, m string) string {
	parentPkg := parentPackage(moduleID)
	var segs []string
	if parentPkg != "" {
		segs = strings.Split(parentPkg, ".")
	}

	var resolved string
	if level <= len(segs) {
		resolved = strings.Join(segs[:len(segs)-level], ".")
	} else {
		resolved = parentPkg // defensive fallback
	}

	if m == "" {
		return resolved
	}
	if resolved == "" {
		return m
	}
	return resolved + "." + m
}

// importedName is one entry of a "from ... import ..." list: the imported
// name and its optional "as" alias.
type importedName struct {
	name  string
	alias string
}

// importAliases collects the imported-name list of an import_from_statement:
// each plain name, each aliased_import's original name plus its "as" alias,
// or "*" for a wildcard import.
func importAliases(n *tree_sitter.Node, content []byte) []importedName {
	var names []importedName
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			names = append(names, importedName{name: "*"})
		case "aliased_import":
			name := fieldText(child, "name", content)
			alias := fieldText(child, "alias", content)
			if name != "" {
				names = append(names, importedName{name: name, alias: alias})
			}
		case "dotted_name":
			// Only a name if it isn't the module_name field (module_name is
			// skipped because it's consumed by relativeImportParts via field
			// lookup separately; a second dotted_name here is an import item).
			if child != n.ChildByFieldName("module_name") {
				names = append(names, importedName{name: NodeText(child, content)})
			}
		case "identifier":
			text := NodeText(child, content)
			if text != "import" && text != "from" && text != "as" {
				names = append(names, importedName{name: text})
			}
		}
	}
	return names
}

// walkBody runs the symbol, call, and entry-point visitors over the module
// body in one pass over its top-level statements.
func walkBody(root *tree_sitter.Node, content []byte) (
	symbols []types.Symbol,
	funcCalls map[string][]string,
	moduleCalls []string,
	entryPoints map[string]bool,
	mainGuard bool,
) {
	funcCalls = make(map[string][]string)
	entryPoints = make(map[string]bool)

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_definition":
			sym, calls, isEntry := visitFunction(child, content, "")
			symbols = append(symbols, sym)
			funcCalls[sym.Name] = calls
			if isEntry {
				entryPoints[sym.Name] = true
			}
		case "class_definition":
			symbols = append(symbols, visitClass(child, content))
		case "decorated_definition":
			def := innerDefinition(child)
			if def == nil {
				continue
			}
			switch def.Kind() {
			case "function_definition":
				isEntry := hasEntryPointDecorator(child, content)
				sym, calls, _ := visitFunction(def, content, "")
				sym.IsEntryPoint = sym.IsEntryPoint || isEntry
				symbols = append(symbols, sym)
				funcCalls[sym.Name] = calls
				if sym.IsEntryPoint {
					entryPoints[sym.Name] = true
				}
			case "class_definition":
				symbols = append(symbols, visitClass(def, content))
			}
		default:
			moduleCalls = append(moduleCalls, moduleLevelCallReceivers(child, content)...)
			if containsMainGuard(child, content) {
				mainGuard = true
			}
		}
	}

	return symbols, funcCalls, moduleCalls, entryPoints, mainGuard
}

// innerDefinition unwraps a decorated_definition to its inner function or
// class definition node.
func innerDefinition(decorated *tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < decorated.ChildCount(); i++ {
		child := decorated.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "function_definition" || child.Kind() == "class_definition" {
			return child
		}
	}
	return nil
}

// visitFunction extracts a function Symbol: name, docstring, line, entry
// point via its own (non-decorated) form, and call targets scoped to its own
// body (nested function/class definitions do not contribute).
func visitFunction(node *tree_sitter.Node, content []byte, className string) (types.Symbol, []string, bool) {
	name := fieldText(node, "name", content)
	if className != "" {
		name = className + "." + name
	}

	sym := types.Symbol{
		Name: name,
		Kind: types.SymbolFunction,
		Line: int(node.StartPosition().Row) + 1,
		Doc:  symbolDoc(node, content, fmt.Sprintf("Function %s", name)),
	}

	calls := functionCallTargets(node, content)
	sym.Calls = calls

	return sym, calls, false
}

// visitClass extracts a class Symbol. Classes do not contribute call
// targets; only top-level functions feed the call graph.
func visitClass(node *tree_sitter.Node, content []byte) types.Symbol {
	name := fieldText(node, "name", content)
	return types.Symbol{
		Name: name,
		Kind: types.SymbolClass,
		Line: int(node.StartPosition().Row) + 1,
		Doc:  symbolDoc(node, content, fmt.Sprintf("Class %s", name)),
	}
}

func fieldText(node *tree_sitter.Node, field string, content []byte) string {
	if n := node.ChildByFieldName(field); n != nil {
		return NodeText(n, content)
	}
	return ""
}

// symbolDoc returns the first line of a class/function's docstring, or the
// synthesized placeholder when none is present.
func symbolDoc(node *tree_sitter.Node, content []byte, placeholder string) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return placeholder
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		stmt := body.Child(i)
		if stmt == nil {
			continue
		}
		if stmt.Kind() != "expression_statement" {
			break
		}
		for j := uint(0); j < stmt.ChildCount(); j++ {
			expr := stmt.Child(j)
			if expr != nil && expr.Kind() == "string" {
				return firstLine(stringLiteralBody(expr, content))
			}
		}
		break
	}
	return placeholder
}

// stringLiteralBody strips the Python string-literal delimiters (quotes,
// triple-quotes, string-prefix letters) from a "string" node's raw text.
func stringLiteralBody(node *tree_sitter.Node, content []byte) string {
	text := NodeText(node, content)
	text = strings.TrimLeft(text, "rRbBuUfF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// functionCallTargets walks a function's body collecting call targets:
// name(...) -> name; receiver.method(...) -> method. Nested function/class
// bodies are excluded.
func functionCallTargets(funcNode *tree_sitter.Node, content []byte) []string {
	var calls []string
	body := funcNode.ChildByFieldName("body")
	if body == nil {
		return calls
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
		if kind == "call" {
			if target := callTarget(n, content, false); target != "" {
				calls = append(calls, target)
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return calls
}

// moduleLevelCallReceivers walks a top-level, non-definition statement
// collecting module-level bare call receivers: name(...) -> name;
// receiver.method(...) -> receiver.
func moduleLevelCallReceivers(stmt *tree_sitter.Node, content []byte) []string {
	var calls []string
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		if kind == "function_definition" || kind == "class_definition" {
			return
		}
		if kind == "call" {
			if target := callTarget(n, content, true); target != "" {
				calls = append(calls, target)
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(stmt)
	return calls
}

// callTarget extracts the bare identifier from a call expression: the
// callee name for name(...), the receiver for moduleLevel receiver.method(...),
// or the method for function-level receiver.method(...). Returns "" when the
// callee is neither a bare identifier nor a bare-receiver attribute access.
func callTarget(call *tree_sitter.Node, content []byte, moduleLevel bool) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return NodeText(fn, content)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.Kind() != "identifier" {
			return ""
		}
		if moduleLevel {
			return NodeText(obj, content)
		}
		return NodeText(attr, content)
	default:
		return ""
	}
}

// hasEntryPointDecorator checks a decorated_definition's decorator list for
// a known web-framework route/handler decorator.
func hasEntryPointDecorator(decorated *tree_sitter.Node, content []byte) bool {
	for i := uint(0); i < decorated.ChildCount(); i++ {
		child := decorated.Child(i)
		if child == nil || child.Kind() != "decorator" {
			continue
		}
		if decoratorMatchesEntryPoint(child, content) {
			return true
		}
	}
	return false
}

func decoratorMatchesEntryPoint(decorator *tree_sitter.Node, content []byte) bool {
	// A decorator node wraps exactly one expression child after the '@'.
	var expr *tree_sitter.Node
	for i := uint(0); i < decorator.ChildCount(); i++ {
		child := decorator.Child(i)
		if child != nil && child.Kind() != "@" {
			expr = child
		}
	}
	if expr == nil {
		return false
	}

	switch expr.Kind() {
	case "identifier":
		return entryPointDecoratorNames[NodeText(expr, content)]
	case "attribute":
		attr := expr.ChildByFieldName("attribute")
		return attr != nil && entryPointAttributes[NodeText(attr, content)]
	case "call":
		callee := expr.ChildByFieldName("function")
		if callee == nil || callee.Kind() != "attribute" {
			return false
		}
		attr := callee.ChildByFieldName("attribute")
		return attr != nil && entryPointAttributes[NodeText(attr, content)]
	default:
		return false
	}
}

// containsMainGuard reports whether a top-level statement is the
// `if __name__ == "__main__":` sentinel.
func containsMainGuard(stmt *tree_sitter.Node, content []byte) bool {
	if stmt.Kind() != "if_statement" {
		return false
	}
	cond := stmt.ChildByFieldName("condition")
	if cond == nil || cond.Kind() != "comparison_operator" {
		return false
	}
	var hasName, hasMainLiteral bool
	for i := uint(0); i < cond.ChildCount(); i++ {
		child := cond.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			if NodeText(child, content) == "__name__" {
				hasName = true
			}
		case "string":
			if stringLiteralBody(child, content) == "__main__" {
				hasMainLiteral = true
			}
		}
	}
	return hasName && hasMainLiteral
}

// extractMetadata runs the metadata-tag regex scan over the raw source,
// falling back to the module docstring's first line when no tag is present.
func extractMetadata(root *tree_sitter.Node, content []byte) types.MetaTag {
	if m := metaTagPattern.FindSubmatch(content); m != nil {
		tag := strings.ToLower(string(m[1]))
		name := strings.TrimSpace(string(m[2]))
		if tag == "project" {
			return types.MetaTag{Type: "data", Title: name, Role: name}
		}
		return types.MetaTag{Type: tag, Title: name, Role: ""}
	}

	return types.MetaTag{Type: "data", Title: "", Role: moduleDocFirstLine(root, content)}
}

// moduleDocFirstLine returns the first line of the module-level docstring,
// if the module body starts with a bare string expression statement.
func moduleDocFirstLine(root *tree_sitter.Node, content []byte) string {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "expression_statement" {
			for j := uint(0); j < child.ChildCount(); j++ {
				expr := child.Child(j)
				if expr != nil && expr.Kind() == "string" {
					return firstLine(stringLiteralBody(expr, content))
				}
			}
		}
		return ""
	}
	return ""
}
