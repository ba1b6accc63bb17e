// Package workspace discovers source files under a project root. It is
// advisory: reference search uses it to widen beyond loaded modules, and
// single-file correctness never depends on it.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"couleuvre/src/internal/common"
)

// DefaultSourceGlobs match the language's source and interface files.
var DefaultSourceGlobs = []string{"**/*.vy", "**/*.vyi"}

// ListSourceFiles returns the absolute paths of all source files under
// root matching the given globs (DefaultSourceGlobs when empty).
func ListSourceFiles(root string, globs []string) []string {
	if root == "" {
		return nil
	}
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	if len(globs) == 0 {
		globs = DefaultSourceGlobs
	}

	fsys := os.DirFS(root)
	var files []string
	for _, glob := range globs {
		matches, err := doublestar.Glob(fsys, glob)
		if err != nil {
			common.ServerLogger.Debug("workspace glob %q failed: %v", glob, err)
			continue
		}
		for _, match := range matches {
			files = append(files, filepath.Join(root, filepath.FromSlash(match)))
		}
	}
	return files
}

// FilesContaining pre-filters workspace files by cheap substring search:
// only files whose text contains at least one term are worth parsing.
// Files whose canonical path is in exclude were already searched.
func FilesContaining(root string, globs, terms []string, exclude map[string]bool) []string {
	if len(terms) == 0 {
		return nil
	}
	var matching []string
	for _, path := range ListSourceFiles(root, globs) {
		if exclude[common.NormalizePath(path)] {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)
		for _, term := range terms {
			if strings.Contains(content, term) {
				matching = append(matching, path)
				break
			}
		}
	}
	return matching
}
