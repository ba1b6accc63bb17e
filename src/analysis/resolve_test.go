package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

// pos builds a 0-based wire position from 1-based source coordinates.
func pos(line, col int) protocol.Position {
	return protocol.Position{Line: uint32(line - 1), Character: uint32(col)}
}

func TestEnclosingFunction(t *testing.T) {
	f := newFixture()

	fn := EnclosingFunction(f.module, pos(20, 4))
	require.NotNil(t, fn)
	assert.True(t, fn.Same(f.transferFn))

	fn = EnclosingFunction(f.module, pos(28, 4))
	require.NotNil(t, fn)
	assert.True(t, fn.Same(f.helperFn))

	assert.Nil(t, EnclosingFunction(f.module, pos(2, 0)))
}

func TestResolveWordLocalShadowsModule(t *testing.T) {
	f := newFixture()

	// "fee" inside transfer is the local, not the module constant.
	resolved := ResolveWord(f.module, mainURI, "fee", pos(20, 4), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.feeLocal))
	assert.True(t, resolved.Entry.IsLocal())

	// The same name at module level is the constant.
	resolved = ResolveWord(f.module, mainURI, "fee", pos(3, 0), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.feeConst))
	assert.False(t, resolved.Entry.IsLocal())
}

func TestResolveWordParameter(t *testing.T) {
	f := newFixture()

	resolved := ResolveWord(f.module, mainURI, "amount", pos(22, 4), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.argAmount))
}

func TestResolveWordSelfChain(t *testing.T) {
	f := newFixture()

	resolved := ResolveWord(f.module, mainURI, "self.totalSupply", pos(21, 4), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.totalSupply))
}

func TestResolveWordSelfFallback(t *testing.T) {
	f := newFixture()

	// Bare "totalSupply" inside a function falls back to self.totalSupply.
	resolved := ResolveWord(f.module, mainURI, "totalSupply", pos(30, 4), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.totalSupply))
}

func TestResolveWordFallbackInsideMultilineDeclaration(t *testing.T) {
	f := newFixture()

	// Line 5 sits inside the multi-line totalSupply declaration; that is
	// ordinary module context, not a declaration body.
	resolved := ResolveWord(f.module, mainURI, "totalSupply", pos(5, 4), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.totalSupply))
}

func TestResolveWordDeclarationBodiesDoNotResolve(t *testing.T) {
	f := newFixture()

	assert.Nil(t, ResolveWord(f.module, mainURI, "ACTIVE", pos(8, 4), nil),
		"flag members are declarations, not usages")
	assert.Nil(t, ResolveWord(f.module, mainURI, "sender", pos(11, 4), nil),
		"event fields are declarations")
	assert.Nil(t, ResolveWord(f.module, mainURI, "x", pos(14, 4), nil),
		"struct fields are declarations")
}

func TestResolveWordFlagHeaderStillResolves(t *testing.T) {
	f := newFixture()

	// The definition's own header line is not inside its body.
	resolved := ResolveWord(f.module, mainURI, "Status", pos(7, 5), nil)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(f.statusFlag))
}

func TestResolveWordImported(t *testing.T) {
	f := newFixture()
	lib := newLibFixture()
	loader := &fakeLoader{path: libPath, uri: libURI, module: lib.module}

	resolved := ResolveWord(f.module, mainURI, "helpers.tally", pos(29, 4), loader)
	require.NotNil(t, resolved)
	assert.True(t, resolved.Node.Same(lib.tallyFn))
	assert.Equal(t, libURI, resolved.URI)

	// The alias alone names the import statement itself.
	resolved = ResolveWord(f.module, mainURI, "helpers", pos(29, 4), loader)
	require.NotNil(t, resolved)
	assert.Nil(t, resolved.Node)
	assert.Equal(t, libURI, resolved.URI)

	assert.Nil(t, ResolveWord(f.module, mainURI, "helpers.tally.deep", pos(29, 4), loader),
		"the external namespace is flat")
	assert.Nil(t, ResolveWord(f.module, mainURI, "unknown.thing", pos(29, 4), loader))
}

func TestResolveWordWithoutLoader(t *testing.T) {
	f := newFixture()
	assert.Nil(t, ResolveWord(f.module, mainURI, "helpers.tally", pos(29, 4), nil))
}

func TestResolveWordEmpty(t *testing.T) {
	f := newFixture()
	assert.Nil(t, ResolveWord(f.module, mainURI, "", pos(20, 4), nil))
}
