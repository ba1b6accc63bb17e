package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorLocation(t *testing.T) {
	line, col := ParseErrorLocation("vyper.exceptions.SyntaxException: invalid syntax (<unknown>, line 6:17)")
	assert.Equal(t, 5, line, "reported lines are 1-based, ours are 0-based")
	assert.Equal(t, 17, col)

	line, col = ParseErrorLocation("something went wrong")
	assert.Equal(t, -1, line)
	assert.Equal(t, 0, col)
}

func TestGatewayError(t *testing.T) {
	err := &GatewayError{Stage: StageParse, Message: "bad input", Line: -1}
	assert.Equal(t, "compiler parse failed: bad input", err.Error())
	assert.False(t, err.HasLocation())

	err = &GatewayError{Stage: StageCompile, Message: "type mismatch", Line: 3, Col: 8}
	assert.Equal(t, "compiler compile failed: type mismatch", err.Error())
	assert.True(t, err.HasLocation())
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityError, severityFor("TypeMismatch"))
	assert.Equal(t, SeverityError, severityFor(""))
	assert.Equal(t, SeverityWarning, severityFor("DeprecationWarning"))
	assert.Equal(t, SeverityWarning, severityFor("SyntaxWarning"))
}

func TestErrorTypePattern(t *testing.T) {
	traceback := "Traceback (most recent call last):\n  ...\nvyper.exceptions.UndeclaredDefinition: 'foo' has not been declared"
	match := errorTypePattern.FindStringSubmatch(traceback)
	require.NotNil(t, match)
	assert.Equal(t, "UndeclaredDefinition", match[1])
}

func TestQuotePy(t *testing.T) {
	quoted := quotePy(`["a","b"]`)
	assert.True(t, strings.HasPrefix(quoted, `"`))
	assert.Contains(t, quoted, `\"a\"`)
}

func TestMaterializeScratchFile(t *testing.T) {
	g := New("")
	dir := t.TempDir()
	original := filepath.Join(dir, "token.vy")
	require.NoError(t, os.WriteFile(original, []byte("old content"), 0644))

	path, cleanup, sanitize, err := g.materialize(original, "x: uint256\n")
	require.NoError(t, err)
	assert.NotEqual(t, original, path)
	assert.Equal(t, dir, filepath.Dir(path), "scratch file lives beside the original so imports resolve")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x: uint256\n", string(data))

	msg := sanitize("error in " + filepath.Base(path) + " at line 1:0")
	assert.Contains(t, msg, "token.vy")
	assert.NotContains(t, msg, filepath.Base(path))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMaterializeOnDiskPassthrough(t *testing.T) {
	g := New("")
	path, cleanup, sanitize, err := g.materialize("/ws/token.vy", "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "/ws/token.vy", path)
	assert.Equal(t, "unchanged", sanitize("unchanged"))
}

func TestNewDefaultsInterpreter(t *testing.T) {
	g := New("")
	assert.Equal(t, "python3", g.python)

	g = New("/usr/bin/python3.11")
	assert.Equal(t, "/usr/bin/python3.11", g.python)
}
