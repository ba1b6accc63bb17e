package server

import (
	"regexp"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
)

// wordPattern matches a dotted identifier chain: the unit of navigation.
var wordPattern = regexp.MustCompile(`[A-Za-z_0-9]+(\.[A-Za-z_0-9]+)*`)

// document is one open editor buffer. The server is the source of truth
// for open files; disk content is ignored until close.
type document struct {
	text    string
	version int32
}

// documentStore tracks open documents under full-content synchronization.
type documentStore struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*document
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[protocol.DocumentURI]*document)}
}

func (s *documentStore) Open(uri protocol.DocumentURI, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = &document{text: text, version: version}
}

func (s *documentStore) Update(uri protocol.DocumentURI, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[uri]; ok {
		doc.text = text
		doc.version = version
		return
	}
	s.docs[uri] = &document{text: text, version: version}
}

func (s *documentStore) Close(uri protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *documentStore) Get(uri protocol.DocumentURI) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return doc.text, true
}

// Line returns the 0-based line of an open document, without trailing
// newline. Out-of-range lines return "".
func (s *documentStore) Line(uri protocol.DocumentURI, line int) string {
	text, ok := s.Get(uri)
	if !ok {
		return ""
	}
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line], "\r")
}

// WordAt extracts the dotted identifier chain containing the cursor
// position, or "" when the cursor is not on one. A cursor immediately
// after the last character of a word still counts.
func (s *documentStore) WordAt(uri protocol.DocumentURI, pos protocol.Position) string {
	line := s.Line(uri, int(pos.Line))
	if line == "" {
		return ""
	}
	character := int(pos.Character)
	for _, match := range wordPattern.FindAllStringIndex(line, -1) {
		if match[0] <= character && character <= match[1] {
			return line[match[0]:match[1]]
		}
	}
	return ""
}
