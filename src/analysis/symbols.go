// Package analysis implements the symbol resolution core: the unified
// symbol table, the reference pattern matcher, the cross-module resolver,
// and the reference search that navigation features are built on.
package analysis

import (
	"go.lsp.dev/protocol"

	"couleuvre/src/ast"
)

// ModuleScope is the scope name of top-level symbols. Everything else is
// scoped under the name of its enclosing function.
const ModuleScope = "module"

// SymbolEntry describes one definition in a module.
//
// Children hold nested declarations (function parameters and locals, flag
// members, event/struct fields, interface methods). Child-only entries are
// reachable through their parent for the outline view but never satisfy a
// standalone lookup.
type SymbolEntry struct {
	Name           string
	Node           *ast.Node
	Kind           protocol.SymbolKind
	Scope          string
	AccessPatterns []ReferencePattern
	ParentFunction *ast.Node
	Children       []*SymbolEntry
}

// IsLocal reports whether the symbol is function-scoped.
func (e *SymbolEntry) IsLocal() bool { return e.Scope != ModuleScope }

// DocumentSymbol converts the entry and its children to the outline shape.
func (e *SymbolEntry) DocumentSymbol() protocol.DocumentSymbol {
	children := make([]protocol.DocumentSymbol, 0, len(e.Children))
	for _, child := range e.Children {
		children = append(children, child.DocumentSymbol())
	}
	r := ast.RangeOf(e.Node)
	return protocol.DocumentSymbol{
		Name:           e.Name,
		Kind:           e.Kind,
		Range:          r,
		SelectionRange: r,
		Children:       children,
	}
}

// SymbolTable owns every entry of one module, with secondary non-owning
// indices by name and by scope.
type SymbolTable struct {
	entries []*SymbolEntry
	byName  map[string][]*SymbolEntry
	byScope map[string][]*SymbolEntry
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName:  make(map[string][]*SymbolEntry),
		byScope: make(map[string][]*SymbolEntry),
	}
}

// Add inserts an entry and updates the indices.
func (t *SymbolTable) Add(entry *SymbolEntry) {
	t.entries = append(t.entries, entry)
	t.byName[entry.Name] = append(t.byName[entry.Name], entry)
	t.byScope[entry.Scope] = append(t.byScope[entry.Scope], entry)
}

// ByName returns all entries with the given name, in insertion order.
func (t *SymbolTable) ByName(name string) []*SymbolEntry { return t.byName[name] }

// ByScope returns all entries in the given scope, in insertion order.
func (t *SymbolTable) ByScope(scope string) []*SymbolEntry { return t.byScope[scope] }

// ModuleSymbols returns all top-level entries.
func (t *SymbolTable) ModuleSymbols() []*SymbolEntry { return t.byScope[ModuleScope] }

// LocalSymbols returns the entries scoped to the named function.
func (t *SymbolTable) LocalSymbols(functionName string) []*SymbolEntry {
	return t.byScope[functionName]
}

// Resolve maps an identifier chain to an entry.
//
// Single-name chains inside a function check the local scope first, so a
// local always shadows a module-level symbol of the same name. Module-scope
// resolution matches access patterns exactly; for single names the implicit
// self form is tried as well when allowSelfFallback permits it.
func (t *SymbolTable) Resolve(chain []string, enclosing *ast.Node, allowSelfFallback bool) *SymbolEntry {
	if len(chain) == 0 {
		return nil
	}

	if len(chain) == 1 && enclosing != nil && enclosing.Name != "" {
		if entry := t.resolveLocal(chain[0], enclosing.Name); entry != nil {
			return entry
		}
	}

	return t.resolveModule(chain, allowSelfFallback)
}

func (t *SymbolTable) resolveLocal(name, functionName string) *SymbolEntry {
	for _, entry := range t.ByScope(functionName) {
		if entry.Name == name {
			return entry
		}
	}
	return nil
}

func (t *SymbolTable) resolveModule(chain []string, allowSelfFallback bool) *SymbolEntry {
	for _, entry := range t.ModuleSymbols() {
		for _, pattern := range entry.AccessPatterns {
			if chainEqual(chain, pattern.Chain) {
				return entry
			}
		}
	}

	// Legacy implicit-self spelling: a bare name referring to self.name.
	if len(chain) == 1 && allowSelfFallback {
		selfChain := append([]string{"self"}, chain...)
		for _, entry := range t.ModuleSymbols() {
			for _, pattern := range entry.AccessPatterns {
				if chainEqual(selfChain, pattern.Chain) {
					return entry
				}
			}
		}
	}

	return nil
}

// ExternalNamespace flattens the view an importing module gets: module-level
// names plus self-scoped names with the self prefix dropped. Child-only
// entries (fields, members) are not addressable and do not appear.
func (t *SymbolTable) ExternalNamespace() map[string]*SymbolEntry {
	ns := make(map[string]*SymbolEntry)
	for _, entry := range t.ModuleSymbols() {
		for _, pattern := range entry.AccessPatterns {
			switch {
			case len(pattern.Chain) == 1:
				ns[pattern.Chain[0]] = entry
			case len(pattern.Chain) == 2 && pattern.Chain[0] == "self":
				ns[pattern.Chain[1]] = entry
			}
		}
	}
	return ns
}

// DocumentSymbols generates the outline: module-level entries with their
// children, in declaration order.
func (t *SymbolTable) DocumentSymbols() []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, entry := range t.entries {
		if entry.Scope == ModuleScope {
			symbols = append(symbols, entry.DocumentSymbol())
		}
	}
	return symbols
}

func chainEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
