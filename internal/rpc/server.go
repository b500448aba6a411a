package rpc

import (
	"context"
	"encoding/json"
	"io"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/SeleniaProject/qmlls/internal/completion"
	"github.com/SeleniaProject/qmlls/internal/coordinator"
	"github.com/SeleniaProject/qmlls/internal/environ"
	"github.com/SeleniaProject/qmlls/internal/errors"
	"github.com/SeleniaProject/qmlls/internal/indexer"
	"github.com/SeleniaProject/qmlls/internal/lifecycle"
	"github.com/SeleniaProject/qmlls/internal/log"
	"github.com/SeleniaProject/qmlls/internal/registry"
	"github.com/SeleniaProject/qmlls/internal/updater"
)

// indexDepthBudget bounds how many levels of subdirectories a single
// workspace-folder root enqueues in one AddDirectories call.
const indexDepthBudget = 64

// Server is the object-thread collaborator: it owns the jsonrpc2.Conn, runs
// the lifecycle gate on every incoming message, and routes requests that
// pass the gate to the coordinator or directly to the registry for
// synchronous text-sync notifications.
type Server struct {
	lifecycle  *lifecycle.Lifecycle
	registry   *registry.Registry
	current    *environ.Environment
	valid      *environ.Environment
	indexer    *indexer.Indexer
	updater    *updater.Updater
	completion *coordinator.Coordinator
	engine     *completion.Engine

	conn *jsonrpc2.Conn
	log  *log.Entry
}

// New creates a Server wired to the given collaborators. conn is attached
// by Run.
func New(
	lc *lifecycle.Lifecycle,
	reg *registry.Registry,
	current, valid *environ.Environment,
	ix *indexer.Indexer,
	up *updater.Updater,
	completionCoord *coordinator.Coordinator,
	engine *completion.Engine,
	logger *log.Entry,
) *Server {
	return &Server{
		lifecycle:  lc,
		registry:   reg,
		current:    current,
		valid:      valid,
		indexer:    ix,
		updater:    up,
		completion: completionCoord,
		engine:     engine,
		log:        logger,
	}
}

// Run serves JSON-RPC over rwc (typically stdin/stdout) until the
// connection closes, returning once the exit notification has been
// processed or the stream is closed.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	s.conn = conn

	<-conn.DisconnectNotify()

	return nil
}

// handle is the jsonrpc2 entry point: it runs the lifecycle gate, then
// dispatches to the matching method handler. Handlers with a result return
// it as (value, nil); jsonrpc2.HandlerWithError turns that into a reply or
// an error reply automatically, and removes the in-flight bookkeeping on
// both paths.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	hasID := !req.Notif

	gate := s.lifecycle.Admit(req.Method, hasID)

	switch gate {
	case lifecycle.GateDrop:
		return nil, nil
	case lifecycle.GateServerNotInitialized:
		// -32002 is LSP's ServerNotInitialized code.
		return nil, &jsonrpc2.Error{Code: -32002, Message: "server not initialized"}
	case lifecycle.GateInvalidRequest:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "invalid request in current run-state"}
	}

	// shutdown is excluded from in-flight bookkeeping: Lifecycle.Shutdown
	// itself waits for in-flight requests to drain, and the shutdown
	// request's own id can never be the thing it's waiting on.
	trackInFlight := hasID && req.Method != "shutdown"

	if trackInFlight {
		s.lifecycle.RegisterInFlight(req.ID.String())
		defer s.lifecycle.CompleteInFlight(req.ID.String())
	}

	switch req.Method {
	case "initialize":
		return s.onInitialize(ctx, req)
	case "initialized":
		return nil, nil
	case "shutdown":
		return s.onShutdown(ctx, req)
	case "exit":
		s.lifecycle.ExecuteShutdown()
		return nil, nil
	case "$/cancelRequest":
		return s.onCancelRequest(req)
	case "$/addBuildDirs":
		return nil, s.onAddBuildDirs(req)
	case "textDocument/didOpen":
		return nil, s.onDidOpen(ctx, req)
	case "textDocument/didChange":
		return nil, s.onDidChange(ctx, req)
	case "textDocument/didClose":
		return nil, s.onDidClose(req)
	case "workspace/didChangeWorkspaceFolders":
		return nil, s.onDidChangeWorkspaceFolders(req)
	case "textDocument/completion":
		return s.onCompletion(ctx, req)
	case "textDocument/formatting":
		return s.onFormatting(req)
	case "textDocument/rangeFormatting":
		return s.onRangeFormatting(req)
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) onInitialize(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.lifecycle.BeginInitialize()

	var params lsp.InitializeParams
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	if params.RootURI != "" {
		rootURL := string(params.RootURI)

		s.registry.AddRoot(rootURL)

		if path, ok := s.registry.UrlToPath(rootURL, registry.Force); ok {
			s.indexer.AddDirectories([]string{path}, indexDepthBudget)
			s.indexer.Kick(context.Background())
		}
	}

	caps := ServerCapabilities{
		PositionEncoding: "utf-16",
	}
	caps.TextDocumentSync = &lsp.TextDocumentSyncOptionsOrKind{
		Kind: lspSyncKindPtr(lsp.TDSKIncremental),
	}
	caps.CompletionProvider = &lsp.CompletionOptions{
		TriggerCharacters: []string{"."},
	}
	caps.WorkspaceSymbolProvider = true
	caps.DocumentFormattingProvider = true
	caps.DocumentRangeFormattingProvider = true
	caps.Experimental.AddBuildDirs.Supported = true

	s.lifecycle.CapabilitiesBuilt()

	return lsp.InitializeResult{Capabilities: caps.ServerCapabilities}, nil
}

func lspSyncKindPtr(k lsp.TextDocumentSyncKind) *lsp.TextDocumentSyncKind { return &k }

func (s *Server) onShutdown(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	resultCh := make(chan interface{}, 1)

	s.lifecycle.Shutdown(func() {
		resultCh <- struct{}{}
	})

	<-resultCh

	return nil, nil
}

func (s *Server) onCancelRequest(req *jsonrpc2.Request) (interface{}, error) {
	var params struct {
		ID json.RawMessage `json:"id"`
	}

	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}

	s.lifecycle.Cancel(string(params.ID))

	return nil, nil
}

func (s *Server) onAddBuildDirs(req *jsonrpc2.Request) error {
	var params AddBuildDirsParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return errors.MalformedMessage(err.Error())
		}
	}

	for _, entry := range params.BuildDirsToSet {
		baseURI := string(entry.BaseURI)
		s.registry.AddRoot(baseURI)
		s.registry.SetBuildDirs(baseURI, entry.BuildDirs)
	}

	return nil
}

func (s *Server) onDidOpen(ctx context.Context, req *jsonrpc2.Request) error {
	var params lsp.DidOpenTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return errors.MalformedMessage(err.Error())
	}

	u := string(params.TextDocument.URI)
	path, _ := s.registry.UrlToPath(u, registry.Force)

	s.registry.Open(u, path, params.TextDocument.Text, params.TextDocument.Version)
	s.updater.Enqueue(ctx, u)

	return nil
}

func (s *Server) onDidChange(ctx context.Context, req *jsonrpc2.Request) error {
	var params lsp.DidChangeTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return errors.MalformedMessage(err.Error())
	}

	u := string(params.TextDocument.URI)

	for _, ch := range params.ContentChanges {
		rng := lspRangeToTextRange(ch.Range)

		if err := s.registry.Change(u, rng, ch.Text, params.TextDocument.Version); err != nil {
			return err
		}
	}

	s.updater.Enqueue(ctx, u)

	return nil
}

func (s *Server) onDidClose(req *jsonrpc2.Request) error {
	var params lsp.DidCloseTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return errors.MalformedMessage(err.Error())
	}

	s.registry.Close(string(params.TextDocument.URI))

	return nil
}

// workspaceFoldersChangeParams models workspace/didChangeWorkspaceFolders,
// kept local rather than pulled from go-lsp since that library predates
// the workspace-folders addition to several LSP server implementations it
// was written against.
type workspaceFoldersChangeParams struct {
	Event struct {
		Added []struct {
			URI string `json:"uri"`
		} `json:"added"`
		Removed []struct {
			URI string `json:"uri"`
		} `json:"removed"`
	} `json:"event"`
}

func (s *Server) onDidChangeWorkspaceFolders(req *jsonrpc2.Request) error {
	var params workspaceFoldersChangeParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return errors.MalformedMessage(err.Error())
		}
	}

	for _, removed := range params.Event.Removed {
		s.registry.RemoveRoot(removed.URI)
	}

	for _, added := range params.Event.Added {
		s.registry.AddRoot(added.URI)

		if path, ok := s.registry.UrlToPath(added.URI, registry.Force); ok {
			s.indexer.AddDirectories([]string{path}, indexDepthBudget)
		}
	}

	if len(params.Event.Added) > 0 {
		s.indexer.Kick(context.Background())
	}

	return nil
}

// onCompletion enqueues a PendingRequest on the completion coordinator and
// blocks this worker (not the object thread — handle already runs off the
// object thread's synchronous dispatch path for requests routed through a
// coordinator) until Send/SendErr fires.
func (s *Server) onCompletion(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params lsp.CompletionParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, errors.MalformedMessage(err.Error())
	}

	u := string(params.TextDocument.URI)

	od := s.registry.OpenDocumentAt(u)
	if od == nil {
		return nil, errors.UnknownDocument(u)
	}

	minVersion, _ := od.TextDocument.Version()

	type result struct {
		value interface{}
		err   error
	}

	done := make(chan result, 1)

	pr := &coordinator.PendingRequest{
		URL:        u,
		MinVersion: minVersion,
		Params:     params,
		Process: func(ctx context.Context, snap registry.Snapshot, rawParams interface{}) (interface{}, *errors.StandardError) {
			p := rawParams.(lsp.CompletionParams)
			offset := od.TextDocument.OffsetOf(lspPositionToTextPosition(p.Position))

			items := s.engine.Complete(snap, p.Position.Line, p.Position.Character, offset)

			return lsp.CompletionList{IsIncomplete: false, Items: completion.ToLSP(items)}, nil
		},
		Send: func(value interface{}) {
			done <- result{value: value}
		},
		SendErr: func(code, message string) {
			done <- result{err: &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: message}}
		},
	}

	s.completion.Receive(pr)

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
