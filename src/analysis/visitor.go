package analysis

import (
	"go.lsp.dev/protocol"

	"couleuvre/src/ast"
	"couleuvre/src/internal/common"
)

// visitor populates a Module's symbol table, categorized definition sets,
// and import map in a single pre-order walk. Dispatch is an exhaustive
// switch over the closed node kind set; kinds that declare nothing fall
// through silently.
type visitor struct {
	module *Module
}

func newVisitor(m *Module) *visitor { return &visitor{module: m} }

func (v *visitor) visit(node *ast.Node) {
	switch node.Kind {
	case ast.KindModule:
		for _, child := range node.Body {
			v.visit(child)
		}
	case ast.KindVariableDecl:
		v.visitVariableDecl(node)
	case ast.KindAnnAssign:
		v.visitModuleAnnAssign(node)
	case ast.KindFunctionDef:
		v.visitFunctionDef(node)
	case ast.KindFlagDef:
		v.visitFlagDef(node)
	case ast.KindEventDef:
		v.visitEventDef(node)
	case ast.KindStructDef:
		v.visitStructDef(node)
	case ast.KindInterfaceDef:
		v.visitInterfaceDef(node)
	case ast.KindImport, ast.KindImportFrom:
		v.visitImport(node)
	case ast.KindImplementsDecl, ast.KindUsesDecl, ast.KindInitializesDecl, ast.KindExportsDecl:
		// Visited, but they declare no symbol.
	default:
		common.AnalysisLogger.Debug("no visitor for node kind %s", node.Kind)
	}
}

func (v *visitor) addSymbol(name string, node *ast.Node, kind protocol.SymbolKind, children []*SymbolEntry) *SymbolEntry {
	entry := &SymbolEntry{
		Name:           name,
		Node:           node,
		Kind:           kind,
		Scope:          ModuleScope,
		AccessPatterns: BuildAccessPatterns(node, ModuleScope),
		Children:       children,
	}
	v.module.Symbols.Add(entry)
	return entry
}

func (v *visitor) visitVariableDecl(node *ast.Node) {
	v.module.Variables[node.ID] = node
	name := Identifier(node)
	if name == "" {
		return
	}
	kind := protocol.SymbolKindVariable
	if node.IsConstant || node.IsImmutable {
		kind = protocol.SymbolKindConstant
	}
	v.addSymbol(name, node, kind, nil)
}

// visitModuleAnnAssign handles the legacy spelling where state variables
// appear as module-level annotated assignments.
func (v *visitor) visitModuleAnnAssign(node *ast.Node) {
	if node.Parent() == nil || node.Parent().Kind != ast.KindModule {
		return
	}
	name := Identifier(node)
	if name == "" {
		return
	}
	v.module.Variables[node.ID] = node
	kind := protocol.SymbolKindVariable
	if isConstantAnnotation(node) {
		kind = protocol.SymbolKindConstant
	}
	v.addSymbol(name, node, kind, nil)
}

func (v *visitor) visitFunctionDef(node *ast.Node) {
	v.module.Functions[node.ID] = node
	if node.Name == "" {
		return
	}

	var children []*SymbolEntry

	for _, arg := range node.Args {
		if arg.Kind != ast.KindArg || arg.Name == "" {
			continue
		}
		entry := &SymbolEntry{
			Name:           arg.Name,
			Node:           arg,
			Kind:           protocol.SymbolKindVariable,
			Scope:          node.Name,
			AccessPatterns: []ReferencePattern{{Chain: []string{arg.Name}}},
			ParentFunction: node,
		}
		v.module.Symbols.Add(entry)
		children = append(children, entry)
	}

	for _, child := range node.Body {
		children = append(children, v.collectLocals(child, node)...)
	}

	v.addSymbol(node.Name, node, protocol.SymbolKindFunction, children)
}

// collectLocals walks a function body statement for local declarations:
// annotated assignments, for-loop targets (at the loop variable's own node),
// and both arms of if/else.
func (v *visitor) collectLocals(node *ast.Node, fn *ast.Node) []*SymbolEntry {
	var entries []*SymbolEntry
	addLocal := func(name string, at *ast.Node) {
		if name == "" {
			return
		}
		entry := &SymbolEntry{
			Name:           name,
			Node:           at,
			Kind:           protocol.SymbolKindVariable,
			Scope:          fn.Name,
			AccessPatterns: []ReferencePattern{{Chain: []string{name}}},
			ParentFunction: fn,
		}
		v.module.Symbols.Add(entry)
		entries = append(entries, entry)
	}

	switch node.Kind {
	case ast.KindAnnAssign:
		addLocal(Identifier(node), node)
	case ast.KindFor:
		switch {
		case node.Target == nil:
		case node.Target.Kind == ast.KindAnnAssign && node.Target.Target != nil:
			// Point at the loop variable's own Name node, not the
			// enclosing annotation.
			addLocal(node.Target.Target.Name, node.Target.Target)
		case node.Target.Kind == ast.KindName:
			addLocal(node.Target.Name, node.Target)
		}
		for _, child := range node.Body {
			entries = append(entries, v.collectLocals(child, fn)...)
		}
	case ast.KindIf:
		for _, child := range node.Body {
			entries = append(entries, v.collectLocals(child, fn)...)
		}
		for _, child := range node.OrElse {
			entries = append(entries, v.collectLocals(child, fn)...)
		}
	}
	return entries
}

func (v *visitor) visitFlagDef(node *ast.Node) {
	v.module.Flags[node.ID] = node
	if node.Name == "" {
		return
	}
	var children []*SymbolEntry
	for _, child := range node.Body {
		if child.Kind != ast.KindExpr || child.Value == nil || child.Value.Kind != ast.KindName {
			continue
		}
		member := child.Value
		// Members are children only, never module-level entries.
		children = append(children, &SymbolEntry{
			Name:           member.Name,
			Node:           member,
			Kind:           protocol.SymbolKindEnumMember,
			Scope:          ModuleScope,
			AccessPatterns: []ReferencePattern{{Chain: []string{node.Name, member.Name}}},
		})
	}
	v.addSymbol(node.Name, node, protocol.SymbolKindEnum, children)
}

func (v *visitor) visitEventDef(node *ast.Node) {
	v.module.Events[node.ID] = node
	if node.Name == "" {
		return
	}
	v.addSymbol(node.Name, node, protocol.SymbolKindEvent, v.collectFields(node))
}

func (v *visitor) visitStructDef(node *ast.Node) {
	v.module.Structs[node.ID] = node
	if node.Name == "" {
		return
	}
	v.addSymbol(node.Name, node, protocol.SymbolKindStruct, v.collectFields(node))
}

// collectFields gathers the field declarations of an event or struct body
// as child-only entries.
func (v *visitor) collectFields(node *ast.Node) []*SymbolEntry {
	var children []*SymbolEntry
	for _, child := range node.Body {
		if child.Kind != ast.KindAnnAssign {
			continue
		}
		name := Identifier(child)
		if name == "" {
			continue
		}
		children = append(children, &SymbolEntry{
			Name:  name,
			Node:  child,
			Kind:  protocol.SymbolKindField,
			Scope: ModuleScope,
		})
	}
	return children
}

func (v *visitor) visitInterfaceDef(node *ast.Node) {
	v.module.Interfaces[node.ID] = node
	if node.Name == "" {
		return
	}
	var children []*SymbolEntry
	for _, child := range node.Body {
		if child.Kind != ast.KindFunctionDef || child.Name == "" {
			continue
		}
		children = append(children, &SymbolEntry{
			Name:  child.Name,
			Node:  child,
			Kind:  protocol.SymbolKindMethod,
			Scope: ModuleScope,
		})
	}
	v.addSymbol(node.Name, node, protocol.SymbolKindInterface, children)
}

// visitImport records both the alias and the canonical name against the
// resolved path. An import the compiler could not resolve is skipped, not
// an error.
func (v *visitor) visitImport(node *ast.Node) {
	if node.ResolvedPath == "" {
		return
	}
	if node.Alias != "" {
		v.module.Imports[node.Alias] = node.ResolvedPath
	}
	if node.Name != "" {
		v.module.Imports[node.Name] = node.ResolvedPath
	}
}
