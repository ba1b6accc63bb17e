package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestListSourceFiles(t *testing.T) {
	root := t.TempDir()
	main := writeFile(t, root, "main.vy", "x: uint256\n")
	lib := writeFile(t, root, "lib/math.vy", "def add(): pass\n")
	iface := writeFile(t, root, "interfaces/IToken.vyi", "def balanceOf(): ...\n")
	writeFile(t, root, "README.md", "docs\n")

	files := ListSourceFiles(root, nil)
	assert.ElementsMatch(t, []string{main, lib, iface}, files)
}

func TestListSourceFilesCustomGlobs(t *testing.T) {
	root := t.TempDir()
	top := writeFile(t, root, "main.vy", "")
	writeFile(t, root, "nested/other.vy", "")

	files := ListSourceFiles(root, []string{"*.vy"})
	assert.Equal(t, []string{top}, files, "non-recursive glob stays at the top level")
}

func TestListSourceFilesMissingRoot(t *testing.T) {
	assert.Nil(t, ListSourceFiles("", nil))
	assert.Nil(t, ListSourceFiles("/does/not/exist", nil))
}

func TestFilesContaining(t *testing.T) {
	root := t.TempDir()
	match := writeFile(t, root, "uses.vy", "import lib\nlib.tally()\n")
	writeFile(t, root, "other.vy", "y: uint256\n")

	files := FilesContaining(root, nil, []string{"tally"}, nil)
	assert.Equal(t, []string{match}, files)
}

func TestFilesContainingExcludes(t *testing.T) {
	root := t.TempDir()
	match := writeFile(t, root, "uses.vy", "tally\n")

	exclude := map[string]bool{}
	files := FilesContaining(root, nil, []string{"tally"}, exclude)
	require.Len(t, files, 1)

	// Excluding the canonical path removes it from the results.
	canonical, err := filepath.EvalSymlinks(match)
	require.NoError(t, err)
	exclude[canonical] = true
	assert.Empty(t, FilesContaining(root, nil, []string{"tally"}, exclude))
}

func TestFilesContainingNoTerms(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "uses.vy", "anything\n")
	assert.Nil(t, FilesContaining(root, nil, nil, nil))
}
