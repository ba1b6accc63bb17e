package analysis

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"couleuvre/src/ast"
	"couleuvre/src/internal/common"
)

// rangeKey deduplicates locations: a bare name nested inside an already
// matched attribute chain must not be counted twice.
type rangeKey struct {
	uri                                  string
	startLine, startCol, endLine, endCol uint32
}

type locationSet struct {
	seen      map[rangeKey]bool
	locations []protocol.Location
}

func newLocationSet() *locationSet {
	return &locationSet{seen: make(map[rangeKey]bool)}
}

func (s *locationSet) add(docURI string, node *ast.Node) {
	r := ast.RangeOf(node)
	key := rangeKey{docURI, r.Start.Line, r.Start.Character, r.End.Line, r.End.Character}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.locations = append(s.locations, protocol.Location{URI: uri.URI(docURI), Range: r})
}

// isDeclarationNode reports whether a candidate is the declaration itself:
// the definition node, or its target name for variable declarations.
func isDeclarationNode(candidate, definition *ast.Node) bool {
	if definition == nil {
		return false
	}
	if candidate.Same(definition) {
		return true
	}
	switch definition.Kind {
	case ast.KindVariableDecl, ast.KindAnnAssign:
		return definition.Target != nil && candidate.Same(definition.Target)
	}
	return false
}

// findInSubtree collects pattern matches under root. Declaration-context
// exclusion only applies to whole-module searches: local searches
// distinguish declarations structurally by node kind instead.
func findInSubtree(set *locationSet, root *ast.Node, docURI string, patterns []ReferencePattern, declNode *ast.Node, excludeDeclContexts bool) {
	ast.Walk(root, func(n *ast.Node) bool {
		chain := ExtractChain(n)
		if chain == nil {
			return true
		}
		if isDeclarationNode(n, declNode) {
			return true
		}
		if excludeDeclContexts && inDeclarationContext(n) {
			return true
		}
		if MatchesPattern(chain, patterns) {
			set.add(docURI, n)
			// A nested name inside a matched chain is the same occurrence.
			return false
		}
		return true
	})
}

// FindReferences finds all pattern matches in a whole module. The
// declaration itself is appended only when includeDeclaration is set.
func FindReferences(m *Module, docURI string, patterns []ReferencePattern, includeDeclaration bool, declNode *ast.Node) []protocol.Location {
	if len(patterns) == 0 {
		return nil
	}
	set := newLocationSet()
	if includeDeclaration && declNode != nil {
		set.add(docURI, declNode)
	}
	findInSubtree(set, m.AST, docURI, patterns, declNode, true)
	return set.locations
}

// FindLocalReferences searches only the enclosing function's subtree.
// Local symbols never require cross-file work.
func FindLocalReferences(docURI string, patterns []ReferencePattern, enclosing *ast.Node, includeDeclaration bool, declNode *ast.Node) []protocol.Location {
	if len(patterns) == 0 || enclosing == nil {
		return nil
	}
	set := newLocationSet()
	if includeDeclaration && declNode != nil {
		set.add(docURI, declNode)
	}
	findInSubtree(set, enclosing, docURI, patterns, declNode, false)
	return set.locations
}

// SearchSources supplies the candidate universe for a cross-module search.
// LoadedModules is the server's URI-keyed cache; the two callbacks widen
// the search to on-disk files and are optional (nil skips the workspace
// scan without affecting single-file correctness).
type SearchSources struct {
	LoadedModules map[string]*Module
	WorkspaceRoot string

	// FilesContaining lists workspace source files whose text contains at
	// least one of the terms, excluding already-searched canonical paths.
	FilesContaining func(root string, terms []string, exclude map[string]bool) []string
	// LoadFile parses an on-disk file into a module.
	LoadFile func(path string) (*Module, string, bool)
}

// searchTerms extracts the bare symbol names used for the cheap text
// prefilter: the last element of each pattern chain.
func searchTerms(patterns []ReferencePattern) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, p := range patterns {
		if len(p.Chain) == 0 {
			continue
		}
		name := p.Chain[len(p.Chain)-1]
		if !seen[name] {
			seen[name] = true
			terms = append(terms, name)
		}
	}
	return terms
}

// FindAllReferences orchestrates the full search for a resolved symbol.
//
// Function-scoped symbols restrict the search to their function subtree.
// Module-scoped symbols search the defining module with the original
// patterns and every other candidate module with alias-rewritten patterns;
// aliasing modules never contribute a declaration location.
func FindAllReferences(src SearchSources, docURI string, m *Module, resolved *ResolvedSymbol, includeDeclaration bool) []protocol.Location {
	if resolved == nil || resolved.Node == nil {
		return nil
	}

	var patterns []ReferencePattern
	if resolved.Entry != nil {
		patterns = resolved.Entry.AccessPatterns
	} else {
		patterns = BuildAccessPatterns(resolved.Node, ModuleScope)
	}
	if len(patterns) == 0 {
		return nil
	}

	if resolved.Entry != nil && resolved.Entry.IsLocal() {
		return FindLocalReferences(docURI, patterns, resolved.Entry.ParentFunction, includeDeclaration, resolved.Node)
	}

	targetPath := resolved.Module.CanonicalPath(resolved.URI)

	modules := make(map[string]*Module, len(src.LoadedModules)+2)
	for u, mod := range src.LoadedModules {
		modules[u] = mod
	}
	if _, ok := modules[docURI]; !ok {
		modules[docURI] = m
	}
	if _, ok := modules[resolved.URI]; !ok && resolved.Module != nil {
		modules[resolved.URI] = resolved.Module
	}

	var locations []protocol.Location
	searched := make(map[string]bool)

	for u, mod := range modules {
		path := mod.CanonicalPath(u)
		if path == "" || searched[path] {
			// Two cache entries can canonicalize to the same file; search it once.
			continue
		}
		searched[path] = true
		locations = append(locations, searchModule(mod, u, path, targetPath, patterns, includeDeclaration, resolved.Node)...)
	}

	// Widen to on-disk files, text-prefiltered by the bare symbol name
	// before any parse.
	if src.WorkspaceRoot != "" && targetPath != "" && src.FilesContaining != nil && src.LoadFile != nil {
		terms := searchTerms(patterns)
		for _, path := range src.FilesContaining(src.WorkspaceRoot, terms, searched) {
			mod, fileURI, ok := src.LoadFile(path)
			if !ok {
				continue
			}
			canonical := mod.CanonicalPath(fileURI)
			if searched[canonical] {
				continue
			}
			searched[canonical] = true
			locations = append(locations, searchModule(mod, fileURI, canonical, targetPath, patterns, false, nil)...)
		}
	}

	return locations
}

// searchModule searches one candidate module: the defining module uses the
// original patterns, any other module only matches through import aliases
// whose resolved path names the defining module.
func searchModule(mod *Module, docURI, path, targetPath string, patterns []ReferencePattern, includeDeclaration bool, declNode *ast.Node) []protocol.Location {
	if targetPath != "" && path == targetPath {
		return FindReferences(mod, docURI, patterns, includeDeclaration, declNode)
	}
	var rewritten []ReferencePattern
	for alias, importPath := range mod.Imports {
		if common.NormalizePath(importPath) == targetPath {
			rewritten = append(rewritten, PrefixPatterns(patterns, alias)...)
		}
	}
	if len(rewritten) == 0 {
		return nil
	}
	return FindReferences(mod, docURI, rewritten, false, nil)
}
