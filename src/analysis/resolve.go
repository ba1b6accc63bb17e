package analysis

import (
	"strings"

	"go.lsp.dev/protocol"

	"couleuvre/src/ast"
)

// ResolvedSymbol is the ephemeral result of resolving an identifier chain.
// A nil Node with a non-nil Module means the chain named an import
// statement itself; callers render that as the start of the imported file.
type ResolvedSymbol struct {
	Node   *ast.Node
	Module *Module
	URI    string
	Entry  *SymbolEntry
}

// ModuleLoader provides modules for resolved import paths. Implemented by
// the server's module cache; a nil loader disables cross-module steps.
type ModuleLoader interface {
	ModuleForPath(path string) (*Module, string, bool)
}

// EnclosingFunction finds the function whose span contains the 0-based
// cursor position, or nil at module level.
func EnclosingFunction(m *Module, pos protocol.Position) *ast.Node {
	line := int(pos.Line) + 1 // AST lines are 1-based
	for _, node := range m.AST.Body {
		if node.Kind == ast.KindFunctionDef && node.StartLine <= line && line <= node.EndLine {
			return node
		}
	}
	return nil
}

// positionContext classifies the cursor by exact AST ancestry rather than
// line arithmetic, so multi-line top-level statements do not misclassify.
type positionContext struct {
	deepest *ast.Node // innermost node containing the cursor, nil on blank module lines
}

func contextAt(m *Module, pos protocol.Position) positionContext {
	line := int(pos.Line) + 1
	col := int(pos.Character)
	return positionContext{deepest: ast.DeepestAt(m.AST, line, col)}
}

// inDeclarationBody reports whether the cursor sits strictly inside a
// flag/event/struct body: names there are member and field declarations,
// not usages. A cursor on the definition's own header line is not inside.
func (c positionContext) inDeclarationBody(line int) bool {
	if c.deepest == nil {
		return false
	}
	if isDeclarationDef(c.deepest) {
		return line > c.deepest.StartLine
	}
	return inDeclarationContext(c.deepest)
}

// selfFallbackEligible permits the implicit-self spelling in module and
// function contexts only, never inside nested declaration bodies.
func (c positionContext) selfFallbackEligible(line int) bool {
	return !c.inDeclarationBody(line)
}

// ResolveWord resolves a dotted identifier at a cursor position to its
// definition. NotFound is an ordinary nil result.
func ResolveWord(m *Module, uri string, word string, pos protocol.Position, loader ModuleLoader) *ResolvedSymbol {
	if word == "" {
		return nil
	}
	chain := strings.Split(word, ".")
	line := int(pos.Line) + 1

	pctx := contextAt(m, pos)
	if pctx.inDeclarationBody(line) {
		return nil
	}

	enclosing := EnclosingFunction(m, pos)

	entry := m.Symbols.Resolve(chain, enclosing, pctx.selfFallbackEligible(line))
	if entry != nil {
		return &ResolvedSymbol{Node: entry.Node, Module: m, URI: uri, Entry: entry}
	}

	return resolveImported(m, chain, loader)
}

// resolveImported resolves a chain whose first element is an import alias
// against the imported module's external namespace. An empty remainder
// denotes the import statement itself.
func resolveImported(m *Module, chain []string, loader ModuleLoader) *ResolvedSymbol {
	if loader == nil {
		return nil
	}
	path, ok := m.Imports[chain[0]]
	if !ok {
		return nil
	}
	imported, importedURI, ok := loader.ModuleForPath(path)
	if !ok || imported == nil {
		return nil
	}

	remainder := chain[1:]
	if len(remainder) == 0 {
		return &ResolvedSymbol{Module: imported, URI: importedURI}
	}
	// The external namespace is flat; deeper chains do not resolve.
	if len(remainder) > 1 {
		return nil
	}
	entry, ok := imported.ExternalNamespace()[remainder[0]]
	if !ok {
		return nil
	}
	return &ResolvedSymbol{Node: entry.Node, Module: imported, URI: importedURI, Entry: entry}
}
