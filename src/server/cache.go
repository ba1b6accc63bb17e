package server

import (
	"sync"

	"couleuvre/src/analysis"
)

// moduleCache holds the last successfully parsed module per document,
// indexed both by URI and by canonical file path. A failed reparse never
// evicts: navigation keeps answering from the previous good module.
type moduleCache struct {
	mu     sync.RWMutex
	byURI  map[string]*analysis.Module
	byPath map[string]string // canonical path -> uri
}

func newModuleCache() *moduleCache {
	return &moduleCache{
		byURI:  make(map[string]*analysis.Module),
		byPath: make(map[string]string),
	}
}

// Store replaces the module for a URI atomically.
func (c *moduleCache) Store(uri string, m *analysis.Module) {
	path := m.CanonicalPath(uri)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byURI[uri] = m
	if path != "" {
		c.byPath[path] = uri
	}
}

// Get returns the cached module for a URI.
func (c *moduleCache) Get(uri string) (*analysis.Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byURI[uri]
	return m, ok
}

// GetByPath returns the cached module for a canonical file path.
func (c *moduleCache) GetByPath(path string) (*analysis.Module, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uri, ok := c.byPath[path]
	if !ok {
		return nil, "", false
	}
	m, ok := c.byURI[uri]
	return m, uri, ok
}

// DropPath evicts the module for a canonical file path. Used when the
// watcher reports an on-disk change for a file not open in the editor.
func (c *moduleCache) DropPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if uri, ok := c.byPath[path]; ok {
		delete(c.byPath, path)
		delete(c.byURI, uri)
	}
}

// Snapshot copies the URI-keyed view for a cross-module search.
func (c *moduleCache) Snapshot() map[string]*analysis.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*analysis.Module, len(c.byURI))
	for uri, m := range c.byURI {
		out[uri] = m
	}
	return out
}
