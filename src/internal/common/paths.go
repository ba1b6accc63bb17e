package common

import (
	"path/filepath"

	"go.lsp.dev/uri"
)

// URIToFilePath converts a file:// URI to a file system path.
// Non-file URIs are returned unchanged.
func URIToFilePath(docURI string) (path string) {
	// uri.Filename panics on non-file schemes
	defer func() {
		if recover() != nil {
			path = docURI
		}
	}()
	return uri.URI(docURI).Filename()
}

// FilePathToURI converts a file system path to a file:// URI.
func FilePathToURI(path string) string {
	return string(uri.File(path))
}

// NormalizePath resolves a path to a canonical absolute form so that two
// spellings of the same file compare equal. Symlinks are resolved when
// possible; a path that cannot be resolved is still made absolute.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}
