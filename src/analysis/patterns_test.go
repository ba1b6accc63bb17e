package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couleuvre/src/ast"
)

func TestBuildAccessPatternsLegacyAnnAssign(t *testing.T) {
	b := &builder{}

	// Module-level annotated assignment is the legacy state variable form.
	stateVar := b.annAssign("balance", 2, 0)
	root := b.node(ast.KindModule, 1, 0, 5, 0)
	root.Body = []*ast.Node{stateVar}
	ast.LinkParents(root)
	assert.Equal(t, []ReferencePattern{{Chain: []string{"self", "balance"}}},
		BuildAccessPatterns(stateVar, ModuleScope))

	// constant(...) annotation makes it a bare-name constant.
	constVar := b.node(ast.KindAnnAssign, 3, 0, 3, 30)
	constVar.Target = b.name("FEE", 3, 0)
	call := b.node(ast.KindCall, 3, 5, 3, 25)
	call.Func = b.name("constant", 3, 5)
	constVar.Annotation = call
	root2 := b.node(ast.KindModule, 1, 0, 5, 0)
	root2.Body = []*ast.Node{constVar}
	ast.LinkParents(root2)
	assert.Equal(t, []ReferencePattern{{Chain: []string{"FEE"}}},
		BuildAccessPatterns(constVar, ModuleScope))
}

func TestBuildAccessPatternsLocalScope(t *testing.T) {
	b := &builder{}
	decl := b.annAssign("counter", 5, 4)
	assert.Equal(t, []ReferencePattern{{Chain: []string{"counter"}}},
		BuildAccessPatterns(decl, "transfer"))
}

func TestPrefixPatternsRewritesForAlias(t *testing.T) {
	rewritten := PrefixPatterns([]ReferencePattern{
		{Chain: []string{"self", "totalSupply"}},
		{Chain: []string{"MAX_SUPPLY"}},
		{Chain: []string{"Status"}, AllowPrefix: true},
	}, "helpers")

	require.Len(t, rewritten, 3)
	assert.Equal(t, []string{"helpers", "totalSupply"}, rewritten[0].Chain, "leading self is replaced by the alias")
	assert.Equal(t, []string{"helpers", "MAX_SUPPLY"}, rewritten[1].Chain)
	assert.Equal(t, []string{"helpers", "Status"}, rewritten[2].Chain)
	assert.True(t, rewritten[2].AllowPrefix, "prefix matching survives rewriting")
}

func TestExtractChain(t *testing.T) {
	b := &builder{}

	assert.Equal(t, []string{"self", "totalSupply"}, ExtractChain(b.attr("self", "totalSupply", 1, 0)))
	assert.Equal(t, []string{"amount"}, ExtractChain(b.name("amount", 1, 0)))

	// a.b.c unrolls root-first.
	inner := b.attr("a", "b", 2, 0)
	outer := b.node(ast.KindAttribute, 2, 0, 2, 5)
	outer.Attr = "c"
	outer.Value = inner
	assert.Equal(t, []string{"a", "b", "c"}, ExtractChain(outer))

	// Attribute over a call is not a reference candidate.
	call := b.node(ast.KindCall, 3, 0, 3, 10)
	call.Func = b.name("get", 3, 0)
	onCall := b.node(ast.KindAttribute, 3, 0, 3, 14)
	onCall.Attr = "field"
	onCall.Value = call
	assert.Nil(t, ExtractChain(onCall))

	assert.Nil(t, ExtractChain(call))
}

func TestMatchesPattern(t *testing.T) {
	exact := []ReferencePattern{{Chain: []string{"self", "totalSupply"}}}
	assert.True(t, MatchesPattern([]string{"self", "totalSupply"}, exact))
	assert.False(t, MatchesPattern([]string{"totalSupply"}, exact))
	assert.False(t, MatchesPattern([]string{"self", "totalSupply", "x"}, exact), "no prefix match without AllowPrefix")

	prefix := []ReferencePattern{{Chain: []string{"Status"}, AllowPrefix: true}}
	assert.True(t, MatchesPattern([]string{"Status"}, prefix))
	assert.True(t, MatchesPattern([]string{"Status", "ACTIVE"}, prefix))
	assert.False(t, MatchesPattern([]string{"State", "ACTIVE"}, prefix))
}

func TestIdentifier(t *testing.T) {
	b := &builder{}
	decl := b.annAssign("fee", 1, 0)
	assert.Equal(t, "fee", Identifier(decl))

	fn := b.node(ast.KindFunctionDef, 2, 0, 3, 0)
	fn.Name = "transfer"
	assert.Equal(t, "transfer", Identifier(fn))

	anon := b.node(ast.KindExpr, 4, 0, 4, 1)
	assert.Equal(t, "", Identifier(anon))
}
