// Package ast defines the typed syntax tree produced by the compiler
// gateway. Nodes carry source spans (1-based lines, 0-based columns,
// end-exclusive) and stable integer ids. The tree is owned top-down;
// parent links are non-owning and established once after construction.
package ast

import "go.lsp.dev/protocol"

// Kind identifies a node variant. The set is closed: the visitor and the
// reference matcher dispatch on it exhaustively, and anything the decoder
// does not recognize becomes KindUnknown (still walkable, never a symbol).
type Kind int

const (
	KindUnknown Kind = iota
	KindModule
	KindFunctionDef
	KindVariableDecl
	KindAnnAssign
	KindAssign
	KindAugAssign
	KindFlagDef
	KindEventDef
	KindStructDef
	KindInterfaceDef
	KindImport
	KindImportFrom
	KindImplementsDecl
	KindUsesDecl
	KindInitializesDecl
	KindExportsDecl
	KindName
	KindAttribute
	KindSubscript
	KindCall
	KindFor
	KindIf
	KindExpr
	KindArg
	KindArguments
	KindReturn
	KindPass
	KindBinOp
	KindBoolOp
	KindUnaryOp
	KindCompare
	KindKeyword
	KindInt
	KindDecimal
	KindHex
	KindStr
	KindBytes
	KindNameConstant
	KindList
	KindTuple
	KindDict
	KindAssert
	KindRaise
	KindLog
	KindBreak
	KindContinue
)

var kindNames = map[Kind]string{
	KindUnknown:         "Unknown",
	KindModule:          "Module",
	KindFunctionDef:     "FunctionDef",
	KindVariableDecl:    "VariableDecl",
	KindAnnAssign:       "AnnAssign",
	KindAssign:          "Assign",
	KindAugAssign:       "AugAssign",
	KindFlagDef:         "FlagDef",
	KindEventDef:        "EventDef",
	KindStructDef:       "StructDef",
	KindInterfaceDef:    "InterfaceDef",
	KindImport:          "Import",
	KindImportFrom:      "ImportFrom",
	KindImplementsDecl:  "ImplementsDecl",
	KindUsesDecl:        "UsesDecl",
	KindInitializesDecl: "InitializesDecl",
	KindExportsDecl:     "ExportsDecl",
	KindName:            "Name",
	KindAttribute:       "Attribute",
	KindSubscript:       "Subscript",
	KindCall:            "Call",
	KindFor:             "For",
	KindIf:              "If",
	KindExpr:            "Expr",
	KindArg:             "arg",
	KindArguments:       "arguments",
	KindReturn:          "Return",
	KindPass:            "Pass",
	KindBinOp:           "BinOp",
	KindBoolOp:          "BoolOp",
	KindUnaryOp:         "UnaryOp",
	KindCompare:         "Compare",
	KindKeyword:         "keyword",
	KindInt:             "Int",
	KindDecimal:         "Decimal",
	KindHex:             "Hex",
	KindStr:             "Str",
	KindBytes:           "Bytes",
	KindNameConstant:    "NameConstant",
	KindList:            "List",
	KindTuple:           "Tuple",
	KindDict:            "Dict",
	KindAssert:          "Assert",
	KindRaise:           "Raise",
	KindLog:             "Log",
	KindBreak:           "Break",
	KindContinue:        "Continue",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Node is the tagged variant over all syntax kinds. Only the fields
// meaningful for a given Kind are populated; the rest stay zero. Identity
// and equality follow ID, never structure: the parent back-reference makes
// structural recursion unsafe.
type Node struct {
	Kind Kind
	ID   int

	// Span: 1-based lines, 0-based columns, end-exclusive.
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int

	// Name carries the identifier for definitions (FunctionDef, FlagDef,
	// EventDef, StructDef, InterfaceDef, Import), Name nodes, and args.
	Name string
	// Attr is the member name of an Attribute access.
	Attr string
	// Alias is the local alias of an Import/ImportFrom.
	Alias string
	// ResolvedPath is the absolute path the compiler resolved an import to.
	// Empty when the import could not be resolved.
	ResolvedPath string

	// VariableDecl modifiers.
	IsConstant  bool
	IsImmutable bool
	IsPublic    bool

	Target     *Node
	Annotation *Node
	Value      *Node
	Func       *Node
	Iter       *Node
	Test       *Node
	Returns    *Node

	Args       []*Node // flattened parameters for FunctionDef, call args for Call
	Decorators []*Node
	Body       []*Node
	OrElse     []*Node
	// Extra holds child nodes decoded from fields the model has no named
	// slot for, so reference search still reaches every identifier.
	Extra []*Node

	parent *Node
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Same reports whether two nodes denote the same syntax node (by id).
func (n *Node) Same(o *Node) bool {
	return n != nil && o != nil && n.ID == o.ID
}

// Children returns the owned child nodes in source-field order.
func (n *Node) Children() []*Node {
	var kids []*Node
	for _, c := range []*Node{n.Target, n.Annotation, n.Value, n.Func, n.Iter, n.Test, n.Returns} {
		if c != nil {
			kids = append(kids, c)
		}
	}
	for _, list := range [][]*Node{n.Args, n.Decorators, n.Body, n.OrElse, n.Extra} {
		for _, c := range list {
			if c != nil {
				kids = append(kids, c)
			}
		}
	}
	return kids
}

// LinkParents establishes the non-owning parent references across the whole
// tree. Called once after construction; hand-built trees (tests) must call
// it before any ancestry-dependent query.
func LinkParents(root *Node) {
	if root == nil {
		return
	}
	for _, child := range root.Children() {
		child.parent = root
		LinkParents(child)
	}
}

// Contains reports whether the node's span contains the given 1-based line
// and 0-based column, honoring end-exclusive ranges.
func (n *Node) Contains(line, col int) bool {
	if line < n.StartLine || line > n.EndLine {
		return false
	}
	if line == n.StartLine && col < n.StartCol {
		return false
	}
	if line == n.EndLine && col >= n.EndCol {
		return false
	}
	return true
}

// RangeOf converts a node span to an editor range: the gateway reports
// 1-based lines, the protocol wants 0-based.
func RangeOf(n *Node) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(n.StartLine - 1), Character: uint32(n.StartCol)},
		End:   protocol.Position{Line: uint32(n.EndLine - 1), Character: uint32(n.EndCol)},
	}
}
