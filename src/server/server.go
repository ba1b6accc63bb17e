// Package server hosts the language server: JSON-RPC dispatch, document
// synchronization, the analysis scheduler, and the module cache that all
// navigation queries answer from.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"couleuvre/src/analysis"
	"couleuvre/src/ast"
	"couleuvre/src/compiler"
	"couleuvre/src/config"
	"couleuvre/src/internal/common"
	rpc "couleuvre/src/server/protocol"
	"couleuvre/src/workspace"
)

// loadTimeout bounds synchronous on-demand parses of imported files.
const loadTimeout = 30 * time.Second

// Server is the language server instance. One Server serves one editor
// session over one transport.
type Server struct {
	cfg     *config.Config
	gateway *compiler.Gateway

	conn      *rpc.Conn
	writeMu   sync.Mutex
	documents *documentStore
	cache     *moduleCache
	scheduler *Scheduler
	watcher   *workspace.Watcher

	workspaceRoot string
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewServer creates a server from configuration.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		gateway:   compiler.New(cfg.Compiler.Python),
		documents: newDocumentStore(),
		cache:     newModuleCache(),
		stopCh:    make(chan struct{}),
	}
	s.scheduler = NewScheduler(
		time.Duration(cfg.Analysis.FastDebounceMs)*time.Millisecond,
		time.Duration(cfg.Analysis.SlowDebounceMs)*time.Millisecond,
		s.runFastPipeline,
		s.runSlowPipeline,
	)
	return s
}

// Run serves the transport until the client disconnects or exits.
func (s *Server) Run(reader io.Reader, writer io.Writer) error {
	s.conn = rpc.NewConn(reader, writer)
	common.ServerLogger.Info("couleuvre language server started")
	err := s.conn.Serve(s, s.stopCh)
	s.stop()
	return err
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.scheduler.Stop()
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				common.ServerLogger.Warn("watcher stop: %v", err)
			}
		}
	})
}

// reply sends a response over the transport.
func (s *Server) reply(id interface{}, result interface{}, rpcErr *rpc.RPCError) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(rpc.CreateResponse(id, result, rpcErr))
}

// notify sends a server-initiated notification.
func (s *Server) notify(method string, params interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(rpc.CreateNotification(method, params)); err != nil {
		common.ServerLogger.Error("failed to send %s: %v", method, err)
	}
}

// HandleRequest dispatches a client request.
func (s *Server) HandleRequest(method string, id interface{}, params json.RawMessage) error {
	switch method {
	case protocol.MethodInitialize:
		return s.handleInitialize(id, params)
	case protocol.MethodShutdown:
		return s.reply(id, nil, nil)
	case protocol.MethodTextDocumentDefinition:
		return s.handleDefinition(id, params)
	case protocol.MethodTextDocumentReferences:
		return s.handleReferences(id, params)
	case protocol.MethodTextDocumentDocumentSymbol:
		return s.handleDocumentSymbol(id, params)
	case protocol.MethodTextDocumentCompletion:
		return s.handleCompletion(id, params)
	default:
		return s.reply(id, nil, rpc.NewMethodNotFoundError(method))
	}
}

// HandleNotification dispatches a client notification.
func (s *Server) HandleNotification(method string, params json.RawMessage) error {
	switch method {
	case protocol.MethodInitialized:
		return nil
	case protocol.MethodExit:
		s.stop()
		return nil
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(params)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(params)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(params)
	case protocol.MethodTextDocumentDidSave:
		return s.handleDidSave(params)
	case protocol.MethodCancelRequest:
		return nil
	default:
		common.ServerLogger.Debug("ignoring notification %s", method)
		return nil
	}
}

func (s *Server) handleInitialize(id interface{}, raw json.RawMessage) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.reply(id, nil, rpc.NewInvalidParamsError(err.Error()))
	}

	if params.RootURI != "" {
		s.workspaceRoot = common.URIToFilePath(string(params.RootURI))
	} else if len(params.WorkspaceFolders) > 0 {
		s.workspaceRoot = common.URIToFilePath(params.WorkspaceFolders[0].URI)
	}
	common.ServerLogger.Info("initialized with workspace root %q", s.workspaceRoot)

	s.startWatcher()

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{},
			},
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			DocumentSymbolProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"."},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "couleuvre",
			Version: "0.1.0",
		},
	}
	return s.reply(id, result, nil)
}

// startWatcher begins invalidating cached modules for files changed on
// disk outside the editor. Open documents stay authoritative.
func (s *Server) startWatcher() {
	if s.workspaceRoot == "" {
		return
	}
	watcher, err := workspace.NewWatcher([]string{".vy", ".vyi"}, s.onFileChanges)
	if err != nil {
		common.ServerLogger.Warn("file watcher unavailable: %v", err)
		return
	}
	if err := watcher.AddPath(s.workspaceRoot); err != nil {
		common.ServerLogger.Warn("cannot watch workspace root: %v", err)
		return
	}
	watcher.Start()
	s.watcher = watcher
}

func (s *Server) onFileChanges(events []workspace.FileChangeEvent) {
	for _, event := range events {
		docURI := common.FilePathToURI(event.Path)
		if _, open := s.documents.Get(protocol.DocumentURI(docURI)); open {
			continue
		}
		s.cache.DropPath(common.NormalizePath(event.Path))
		common.ServerLogger.Debug("invalidated %s (%s on disk)", event.Path, event.Operation)
	}
}

func (s *Server) handleDidOpen(raw json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	docURI := params.TextDocument.URI
	s.documents.Open(docURI, params.TextDocument.Text, params.TextDocument.Version)
	s.scheduler.DocumentChanged(docURI, params.TextDocument.Text, params.TextDocument.Version)
	return nil
}

func (s *Server) handleDidChange(raw json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full synchronization: the last change carries the whole document.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	docURI := params.TextDocument.URI
	s.documents.Update(docURI, text, params.TextDocument.Version)
	s.scheduler.DocumentChanged(docURI, text, params.TextDocument.Version)
	return nil
}

func (s *Server) handleDidClose(raw json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	docURI := params.TextDocument.URI
	s.documents.Close(docURI)
	s.scheduler.DocumentClosed(docURI)
	// Clear stale markers for the closed buffer.
	s.notify(protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI: docURI, Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) handleDidSave(raw json.RawMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	docURI := params.TextDocument.URI
	if text, ok := s.documents.Get(docURI); ok {
		s.scheduler.DocumentChanged(docURI, text, 0)
	}
	return nil
}

func (s *Server) handleDefinition(id interface{}, raw json.RawMessage) error {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.reply(id, nil, rpc.NewInvalidParamsError(err.Error()))
	}
	docURI := params.TextDocument.URI

	m, ok := s.cache.Get(string(docURI))
	if !ok {
		return s.reply(id, nil, nil)
	}
	word := s.documents.WordAt(docURI, params.Position)
	resolved := analysis.ResolveWord(m, string(docURI), word, params.Position, s)
	if resolved == nil {
		return s.reply(id, nil, nil)
	}

	location := protocol.Location{URI: uri.URI(resolved.URI)}
	if resolved.Node != nil {
		location.Range = ast.RangeOf(resolved.Node)
	}
	return s.reply(id, []protocol.Location{location}, nil)
}

func (s *Server) handleReferences(id interface{}, raw json.RawMessage) error {
	var params protocol.ReferenceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.reply(id, nil, rpc.NewInvalidParamsError(err.Error()))
	}
	docURI := params.TextDocument.URI

	m, ok := s.cache.Get(string(docURI))
	if !ok {
		return s.reply(id, nil, nil)
	}
	word := s.documents.WordAt(docURI, params.Position)
	resolved := analysis.ResolveWord(m, string(docURI), word, params.Position, s)
	if resolved == nil || resolved.Node == nil {
		return s.reply(id, nil, nil)
	}

	sources := analysis.SearchSources{
		LoadedModules: s.cache.Snapshot(),
		WorkspaceRoot: s.workspaceRoot,
		FilesContaining: func(root string, terms []string, exclude map[string]bool) []string {
			return workspace.FilesContaining(root, s.cfg.Sources.Globs, terms, exclude)
		},
		LoadFile: s.loadPath,
	}
	locations := analysis.FindAllReferences(sources, string(docURI), m, resolved, params.Context.IncludeDeclaration)
	return s.reply(id, locations, nil)
}

func (s *Server) handleDocumentSymbol(id interface{}, raw json.RawMessage) error {
	var params protocol.DocumentSymbolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.reply(id, nil, rpc.NewInvalidParamsError(err.Error()))
	}
	m, ok := s.cache.Get(string(params.TextDocument.URI))
	if !ok {
		return s.reply(id, []protocol.DocumentSymbol{}, nil)
	}
	return s.reply(id, analysis.DocumentSymbols(m), nil)
}

func (s *Server) handleCompletion(id interface{}, raw json.RawMessage) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.reply(id, nil, rpc.NewInvalidParamsError(err.Error()))
	}
	docURI := params.TextDocument.URI

	// Completion answers from the last good parse; a buffer mid-keystroke
	// is frequently invalid and must not force a reparse.
	m, ok := s.cache.Get(string(docURI))
	if !ok {
		return s.reply(id, nil, nil)
	}
	lineText := s.documents.Line(docURI, int(params.Position.Line))
	items := analysis.Completions(m, s, lineText, params.Position)
	return s.reply(id, protocol.CompletionList{IsIncomplete: false, Items: items}, nil)
}

// ModuleForPath loads the module for a resolved import path, from cache
// or by parsing the file on disk. Implements analysis.ModuleLoader.
func (s *Server) ModuleForPath(path string) (*analysis.Module, string, bool) {
	return s.loadPath(path)
}

func (s *Server) loadPath(path string) (*analysis.Module, string, bool) {
	canonical := common.NormalizePath(path)
	if m, docURI, ok := s.cache.GetByPath(canonical); ok {
		return m, docURI, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		common.ServerLogger.Debug("cannot read %s: %v", path, err)
		return nil, "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	root, err := s.gateway.Parse(ctx, path, "", s.workspaceRoot)
	if err != nil {
		common.ServerLogger.Debug("cannot parse %s: %v", path, err)
		return nil, "", false
	}

	version, err := compiler.DetectVersion(string(data), s.cfg.Compiler.DefaultVersion)
	if err != nil {
		// Imported files load in the background; a missing pragma is only
		// worth a log line there.
		common.CompilerLogger.Debug("no version for %s: %v", path, err)
	}
	m := analysis.NewModule(root, version)
	docURI := common.FilePathToURI(path)
	s.cache.Store(docURI, m)
	return m, docURI, true
}

// runFastPipeline reparses a document revision and atomically swaps the
// cached module. Failure keeps the previous good module and surfaces the
// parse error as a diagnostic.
func (s *Server) runFastPipeline(ctx context.Context, docURI protocol.DocumentURI, text string, version int32) {
	path := common.URIToFilePath(string(docURI))
	root, err := s.gateway.Parse(ctx, path, text, s.workspaceRoot)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var gerr *compiler.GatewayError
		if errors.As(err, &gerr) {
			s.notify(protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
				URI: docURI, Diagnostics: []protocol.Diagnostic{parseErrorDiagnostic(gerr)},
			})
		} else {
			common.ServerLogger.Error("parse of %s failed: %v", path, err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	moduleVersion, verr := compiler.DetectVersion(text, s.cfg.Compiler.DefaultVersion)
	if errors.Is(verr, compiler.ErrVersionNotFound) {
		// Best effort: the slow pipeline replaces this once it compiles.
		s.notify(protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI: docURI, Diagnostics: []protocol.Diagnostic{missingVersionDiagnostic()},
		})
	}
	m := analysis.NewModule(root, moduleVersion)
	s.cache.Store(string(docURI), m)
	common.AnalysisLogger.Debug("indexed %s v%d: %d symbols", docURI, version, len(m.Symbols.ModuleSymbols()))

	go s.prefetchImports(m)
}

// runSlowPipeline runs full semantic analysis and publishes the result.
// A clean compile publishes an empty set, clearing earlier markers.
func (s *Server) runSlowPipeline(ctx context.Context, docURI protocol.DocumentURI, text string, version int32) {
	path := common.URIToFilePath(string(docURI))
	diags, err := s.gateway.CompileDiagnostics(ctx, path, text, s.workspaceRoot)
	if err != nil {
		if ctx.Err() == nil {
			common.CompilerLogger.Warn("diagnostics for %s failed: %v", path, err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.notify(protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI: docURI, Diagnostics: toProtocolDiagnostics(diags),
	})
}

// prefetchImports loads the transitive import closure in the background
// so cross-module navigation answers without a synchronous parse. Cache
// hits terminate the recursion.
func (s *Server) prefetchImports(m *analysis.Module) {
	visited := make(map[string]bool)
	queue := make([]string, 0, len(m.Imports))
	for _, path := range m.Imports {
		queue = append(queue, path)
	}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		canonical := common.NormalizePath(path)
		if visited[canonical] {
			continue
		}
		visited[canonical] = true

		imported, _, ok := s.loadPath(path)
		if !ok {
			continue
		}
		for _, next := range imported.Imports {
			queue = append(queue, next)
		}
	}
}

var _ rpc.MessageHandler = (*Server)(nil)
var _ analysis.ModuleLoader = (*Server)(nil)
