package analysis

import (
	"couleuvre/src/ast"
)

// builder hands out unique node ids for hand-built trees.
type builder struct{ nextID int }

func (b *builder) node(kind ast.Kind, startLine, startCol, endLine, endCol int) *ast.Node {
	b.nextID++
	return &ast.Node{
		Kind: kind, ID: b.nextID,
		StartLine: startLine, StartCol: startCol,
		EndLine: endLine, EndCol: endCol,
	}
}

func (b *builder) name(text string, line, col int) *ast.Node {
	n := b.node(ast.KindName, line, col, line, col+len(text))
	n.Name = text
	return n
}

// attr builds base.member as an Attribute over a Name.
func (b *builder) attr(base, member string, line, col int) *ast.Node {
	n := b.node(ast.KindAttribute, line, col, line, col+len(base)+1+len(member))
	n.Attr = member
	n.Value = b.name(base, line, col)
	return n
}

func (b *builder) expr(value *ast.Node) *ast.Node {
	n := b.node(ast.KindExpr, value.StartLine, value.StartCol, value.EndLine, value.EndCol)
	n.Value = value
	return n
}

// annAssign builds "name: uint256" with the target at (line, col).
func (b *builder) annAssign(name string, line, col int) *ast.Node {
	n := b.node(ast.KindAnnAssign, line, col, line, col+len(name)+9)
	n.Target = b.name(name, line, col)
	n.Annotation = b.name("uint256", line, col+len(name)+2)
	return n
}

// fixture is a representative token contract:
//
//	 1  import lib as helpers
//	 2  MAX_SUPPLY: constant(uint256) = 100
//	 3  fee: constant(uint256) = 2
//	 4  totalSupply: public(
//	 5      uint256
//	 6  )
//	 7  flag Status:
//	 8      ACTIVE
//	 9      CLOSED
//	10  event Transfer:
//	11      sender: address
//	12      amount: uint256
//	13  struct Point:
//	14      x: uint256
//	15      y: uint256
//	16  interface IToken:
//	17      def balanceOf(): ...
//	18  @external
//	19  def transfer(amount: uint256):
//	20      fee: uint256 = 1
//	21      self.totalSupply
//	22      amount
//	23      for i: uint256 in range(10):
//	24          self._helper()
//	25      MAX_SUPPLY
//	26  @internal
//	27  def _helper():
//	28      Status.ACTIVE
//	29      helpers.tally
//	30      totalSupply
type fixture struct {
	module *Module
	root   *ast.Node

	imp, maxSupply, feeConst, totalSupply  *ast.Node
	statusFlag, transferEvent, pointStruct *ast.Node
	itoken, transferFn, helperFn           *ast.Node
	argAmount, feeLocal, loopVar           *ast.Node
	useTotalSupply, useAmount, useStatus   *ast.Node
	useHelpersTally, useBareTotal          *ast.Node
}

const mainURI = "file:///ws/main.vy"
const libPath = "/ws/lib.vy"
const libURI = "file:///ws/lib.vy"

func newFixture() *fixture {
	b := &builder{}
	f := &fixture{}

	f.imp = b.node(ast.KindImport, 1, 0, 1, 21)
	f.imp.Name = "lib"
	f.imp.Alias = "helpers"
	f.imp.ResolvedPath = libPath

	f.maxSupply = b.node(ast.KindVariableDecl, 2, 0, 2, 35)
	f.maxSupply.Target = b.name("MAX_SUPPLY", 2, 0)
	f.maxSupply.IsConstant = true

	f.feeConst = b.node(ast.KindVariableDecl, 3, 0, 3, 26)
	f.feeConst.Target = b.name("fee", 3, 0)
	f.feeConst.IsConstant = true

	// Multi-line declaration: positions on its interior lines are still
	// ordinary module context.
	f.totalSupply = b.node(ast.KindVariableDecl, 4, 0, 6, 1)
	f.totalSupply.Target = b.name("totalSupply", 4, 0)
	f.totalSupply.Annotation = b.name("uint256", 5, 4)
	f.totalSupply.IsPublic = true

	f.statusFlag = b.node(ast.KindFlagDef, 7, 0, 9, 10)
	f.statusFlag.Name = "Status"
	f.statusFlag.Body = []*ast.Node{
		b.expr(b.name("ACTIVE", 8, 4)),
		b.expr(b.name("CLOSED", 9, 4)),
	}

	f.transferEvent = b.node(ast.KindEventDef, 10, 0, 12, 19)
	f.transferEvent.Name = "Transfer"
	f.transferEvent.Body = []*ast.Node{
		b.annAssign("sender", 11, 4),
		b.annAssign("amount", 12, 4),
	}

	f.pointStruct = b.node(ast.KindStructDef, 13, 0, 15, 14)
	f.pointStruct.Name = "Point"
	f.pointStruct.Body = []*ast.Node{
		b.annAssign("x", 14, 4),
		b.annAssign("y", 15, 4),
	}

	balanceOf := b.node(ast.KindFunctionDef, 17, 4, 17, 25)
	balanceOf.Name = "balanceOf"
	f.itoken = b.node(ast.KindInterfaceDef, 16, 0, 17, 25)
	f.itoken.Name = "IToken"
	f.itoken.Body = []*ast.Node{balanceOf}

	f.argAmount = b.node(ast.KindArg, 19, 13, 19, 28)
	f.argAmount.Name = "amount"
	f.argAmount.Annotation = b.name("uint256", 19, 21)

	f.feeLocal = b.annAssign("fee", 20, 4)
	f.useTotalSupply = b.attr("self", "totalSupply", 21, 4)
	f.useAmount = b.name("amount", 22, 4)

	f.loopVar = b.name("i", 23, 8)
	loopTarget := b.node(ast.KindAnnAssign, 23, 8, 23, 18)
	loopTarget.Target = f.loopVar
	loopTarget.Annotation = b.name("uint256", 23, 11)
	rangeCall := b.node(ast.KindCall, 23, 22, 23, 31)
	rangeCall.Func = b.name("range", 23, 22)
	helperCall := b.node(ast.KindCall, 24, 8, 24, 22)
	helperCall.Func = b.attr("self", "_helper", 24, 8)
	forStmt := b.node(ast.KindFor, 23, 4, 24, 22)
	forStmt.Target = loopTarget
	forStmt.Iter = rangeCall
	forStmt.Body = []*ast.Node{b.expr(helperCall)}

	f.transferFn = b.node(ast.KindFunctionDef, 19, 0, 25, 14)
	f.transferFn.Name = "transfer"
	f.transferFn.Decorators = []*ast.Node{b.name("external", 18, 1)}
	f.transferFn.Args = []*ast.Node{f.argAmount}
	f.transferFn.Body = []*ast.Node{
		f.feeLocal,
		b.expr(f.useTotalSupply),
		b.expr(f.useAmount),
		forStmt,
		b.expr(b.name("MAX_SUPPLY", 25, 4)),
	}

	f.useStatus = b.attr("Status", "ACTIVE", 28, 4)
	f.useHelpersTally = b.attr("helpers", "tally", 29, 4)
	f.useBareTotal = b.name("totalSupply", 30, 4)

	f.helperFn = b.node(ast.KindFunctionDef, 27, 0, 30, 15)
	f.helperFn.Name = "_helper"
	f.helperFn.Decorators = []*ast.Node{b.name("internal", 26, 1)}
	f.helperFn.Body = []*ast.Node{
		b.expr(f.useStatus),
		b.expr(f.useHelpersTally),
		b.expr(f.useBareTotal),
	}

	f.root = b.node(ast.KindModule, 1, 0, 31, 0)
	f.root.Body = []*ast.Node{
		f.imp, f.maxSupply, f.feeConst, f.totalSupply,
		f.statusFlag, f.transferEvent, f.pointStruct, f.itoken,
		f.transferFn, f.helperFn,
	}
	ast.LinkParents(f.root)
	f.module = NewModule(f.root, "0.4.0")
	return f
}

// libFixture is the imported module:
//
//	1  RATE: constant(uint256) = 3
//	2  def tally():
//	3      self.tally
type libFixture struct {
	module  *Module
	tallyFn *ast.Node
	useSelf *ast.Node
}

func newLibFixture() *libFixture {
	b := &builder{nextID: 1000}
	f := &libFixture{}

	rate := b.node(ast.KindVariableDecl, 1, 0, 1, 27)
	rate.Target = b.name("RATE", 1, 0)
	rate.Annotation = b.name("uint256", 1, 6)
	rate.IsConstant = true

	f.useSelf = b.attr("self", "tally", 3, 4)
	f.tallyFn = b.node(ast.KindFunctionDef, 2, 0, 3, 14)
	f.tallyFn.Name = "tally"
	f.tallyFn.Body = []*ast.Node{b.expr(f.useSelf)}

	root := b.node(ast.KindModule, 1, 0, 4, 0)
	root.Body = []*ast.Node{rate, f.tallyFn}
	ast.LinkParents(root)
	f.module = NewModule(root, "0.4.0")
	return f
}

// fakeLoader serves a single module by resolved path.
type fakeLoader struct {
	path   string
	uri    string
	module *Module
}

func (l *fakeLoader) ModuleForPath(path string) (*Module, string, bool) {
	if path == l.path {
		return l.module, l.uri, true
	}
	return nil, "", false
}
