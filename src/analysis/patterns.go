package analysis

import "couleuvre/src/ast"

// ReferencePattern is an identifier chain plus a flag for whether chains
// that merely begin with it also count. Prefix matching exists for flag
// types: Status.ACTIVE is a reference to the flag Status itself.
type ReferencePattern struct {
	Chain       []string
	AllowPrefix bool
}

// BuildAccessPatterns derives how a definition is referenced, by kind:
//
//	constant / immutable    [name]
//	mutable state variable  [self, name]
//	function                [self, name]
//	flag type               [name] with prefix matching
//	event/struct/interface  [name]
//	local / parameter       [name], scope = function
//
// Patterns are built once at definition time and reused for both
// resolution and reference search.
func BuildAccessPatterns(node *ast.Node, scope string) []ReferencePattern {
	name := Identifier(node)
	if name == "" {
		return nil
	}

	if scope != ModuleScope {
		return []ReferencePattern{{Chain: []string{name}}}
	}

	switch node.Kind {
	case ast.KindVariableDecl:
		if node.IsConstant || node.IsImmutable {
			return []ReferencePattern{{Chain: []string{name}}}
		}
		return []ReferencePattern{{Chain: []string{"self", name}}}
	case ast.KindAnnAssign:
		// Module-level AnnAssign is the legacy state-variable spelling.
		if isConstantAnnotation(node) {
			return []ReferencePattern{{Chain: []string{name}}}
		}
		if node.Parent() != nil && node.Parent().Kind == ast.KindModule {
			return []ReferencePattern{{Chain: []string{"self", name}}}
		}
		return []ReferencePattern{{Chain: []string{name}}}
	case ast.KindFunctionDef:
		return []ReferencePattern{{Chain: []string{"self", name}}}
	case ast.KindFlagDef:
		return []ReferencePattern{{Chain: []string{name}, AllowPrefix: true}}
	case ast.KindEventDef, ast.KindStructDef, ast.KindInterfaceDef:
		return []ReferencePattern{{Chain: []string{name}}}
	default:
		return []ReferencePattern{{Chain: []string{name}}}
	}
}

// PrefixPatterns rewrites a defining module's patterns for use inside an
// importing module: a leading self is replaced by the import alias, any
// other chain is prefixed with the alias directly.
func PrefixPatterns(patterns []ReferencePattern, alias string) []ReferencePattern {
	rewritten := make([]ReferencePattern, 0, len(patterns))
	for _, p := range patterns {
		chain := p.Chain
		if len(chain) > 0 && chain[0] == "self" {
			chain = chain[1:]
		}
		prefixed := make([]string, 0, len(chain)+1)
		prefixed = append(prefixed, alias)
		prefixed = append(prefixed, chain...)
		rewritten = append(rewritten, ReferencePattern{Chain: prefixed, AllowPrefix: p.AllowPrefix})
	}
	return rewritten
}

// ExtractChain unrolls an attribute-access expression into a root-first
// identifier chain: self.foo.bar yields [self foo bar], a bare name yields
// a one-element chain. Any other expression form is not a reference
// candidate and yields nil.
func ExtractChain(node *ast.Node) []string {
	switch node.Kind {
	case ast.KindAttribute:
		chain := []string{node.Attr}
		value := node.Value
		for value != nil && value.Kind == ast.KindAttribute {
			chain = append(chain, value.Attr)
			value = value.Value
		}
		if value == nil || value.Kind != ast.KindName {
			return nil
		}
		chain = append(chain, value.Name)
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		return chain
	case ast.KindName:
		return []string{node.Name}
	default:
		return nil
	}
}

// MatchesPattern reports whether a chain satisfies any of the patterns:
// exact equality, or a prefix match when the pattern allows it.
func MatchesPattern(chain []string, patterns []ReferencePattern) bool {
	for _, p := range patterns {
		if chainEqual(chain, p.Chain) {
			return true
		}
		if p.AllowPrefix && len(chain) >= len(p.Chain) && chainEqual(chain[:len(p.Chain)], p.Chain) {
			return true
		}
	}
	return false
}

// Identifier extracts the defining name of a node: the assignment target's
// name for variable declarations, the node's own name otherwise.
func Identifier(node *ast.Node) string {
	if node.Target != nil && node.Target.Name != "" {
		return node.Target.Name
	}
	return node.Name
}

// isConstantAnnotation recognizes the legacy constant(...)/immutable(...)
// annotation spelling on module-level AnnAssign declarations.
func isConstantAnnotation(node *ast.Node) bool {
	ann := node.Annotation
	if ann == nil || ann.Kind != ast.KindCall || ann.Func == nil {
		return false
	}
	return ann.Func.Kind == ast.KindName && (ann.Func.Name == "constant" || ann.Func.Name == "immutable")
}

// isDeclarationDef reports whether a node opens a declaration context: the
// body of a flag, event, or struct, where bare names declare members and
// fields rather than reference anything.
func isDeclarationDef(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindFlagDef, ast.KindEventDef, ast.KindStructDef:
		return true
	default:
		return false
	}
}

// inDeclarationContext reports whether a node sits lexically inside a
// flag/event/struct body.
func inDeclarationContext(n *ast.Node) bool {
	return ast.HasAncestor(n, isDeclarationDef)
}
