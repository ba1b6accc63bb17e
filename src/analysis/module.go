package analysis

import (
	"couleuvre/src/ast"
	"couleuvre/src/internal/common"
)

// Module is one parsed source file: the AST root, its symbol table,
// categorized definition sets (non-owning node references keyed by node
// id), and the import map. A Module is built atomically by a successful
// parse and wholly replaces its predecessor for the same URI.
type Module struct {
	Version string
	AST     *ast.Node
	Symbols *SymbolTable

	Functions  map[int]*ast.Node
	Variables  map[int]*ast.Node
	Flags      map[int]*ast.Node
	Events     map[int]*ast.Node
	Structs    map[int]*ast.Node
	Interfaces map[int]*ast.Node

	// Imports maps both alias and canonical name to the resolved absolute
	// path of the imported file.
	Imports map[string]string
}

// NewModule builds a Module from a gateway-produced AST in a single
// visitor pass.
func NewModule(root *ast.Node, version string) *Module {
	m := &Module{
		Version:    version,
		AST:        root,
		Symbols:    NewSymbolTable(),
		Functions:  make(map[int]*ast.Node),
		Variables:  make(map[int]*ast.Node),
		Flags:      make(map[int]*ast.Node),
		Events:     make(map[int]*ast.Node),
		Structs:    make(map[int]*ast.Node),
		Interfaces: make(map[int]*ast.Node),
		Imports:    make(map[string]string),
	}
	newVisitor(m).visit(root)
	return m
}

// ExternalNamespace is the flattened view an importing module sees.
func (m *Module) ExternalNamespace() map[string]*SymbolEntry {
	return m.Symbols.ExternalNamespace()
}

// CanonicalPath resolves the module's identity path for cross-module
// matching. The URI-derived path wins over the path the compiler reported:
// the latter may be a scratch file created for an unsaved buffer.
func (m *Module) CanonicalPath(uri string) string {
	if uri != "" {
		if path := common.URIToFilePath(uri); path != "" {
			return common.NormalizePath(path)
		}
	}
	if m.AST != nil && m.AST.ResolvedPath != "" {
		return common.NormalizePath(m.AST.ResolvedPath)
	}
	return ""
}
