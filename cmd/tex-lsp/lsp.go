package main

import (
	"context"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"tex-lsp/analysis"
	"tex-lsp/lsp"
	lspserver "tex-lsp/lsp-server"
)

// server holds the session. Handlers run one at a time on the message
// loop; only checker runs leave it, through the engine's own locking.
type server struct {
	log    *zap.Logger
	engine *analysis.Engine

	// touched only on the message loop
	shutdown bool
}

func newServer(log *zap.Logger, checker, options []string) *server {
	return &server{
		log:    log,
		engine: analysis.NewEngine(log, checker, options),
	}
}

func (s *server) methods() lspserver.MethodMap {
	return lspserver.MethodMap{
		"initialize":                     lspserver.Bind(s.Initialize),
		"initialized":                    lspserver.Bind(s.Initialized),
		"shutdown":                       lspserver.Bind(s.Shutdown),
		"exit":                           lspserver.Bind(s.Exit),
		"textDocument/didOpen":           lspserver.Bind(s.DidOpen),
		"textDocument/didChange":         lspserver.Bind(s.DidChange),
		"textDocument/didSave":           lspserver.Bind(s.DidSave),
		"textDocument/didClose":          lspserver.Bind(s.DidClose),
		"textDocument/codeAction":        lspserver.Bind(s.CodeAction),
		"window/workDoneProgress/cancel": lspserver.Bind(s.CancelProgress),
	}
}

func (s *server) Initialize(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.InitializeParams) (*lsp.InitializeResult, error) {
	s.engine.FetchConfig = params.Capabilities.Workspace.Configuration
	s.engine.Progress = params.Capabilities.Window.WorkDoneProgress
	s.log.Info("initialize",
		zap.Bool("client_configuration", s.engine.FetchConfig),
		zap.Bool("client_progress", s.engine.Progress))

	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.SyncIncremental,
				Save:      &lsp.SaveOptions{IncludeText: false},
			},
			CodeActionProvider: &lsp.CodeActionOptions{
				CodeActionKinds: []lsp.CodeActionKind{lsp.KindQuickFix},
			},
		},
		ServerInfo: &lsp.ServerInfo{Name: "tex-lsp", Version: version},
	}, nil
}

func (s *server) Initialized(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.InitializedParams) {
	s.log.Info("client ready")
}

func (s *server) Shutdown(ctx context.Context, conn jsonrpc2.JSONRPC2, params struct{}) (interface{}, error) {
	s.shutdown = true
	s.engine.Shutdown()
	return nil, nil
}

func (s *server) Exit(ctx context.Context, conn jsonrpc2.JSONRPC2, params struct{}) {
	code := 1
	if s.shutdown {
		code = 0
	}
	s.log.Info("exit", zap.Int("code", code))
	s.log.Sync()
	os.Exit(code)
}

func (s *server) DidOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.DidOpenTextDocumentParams) {
	doc := params.TextDocument
	if err := s.engine.Open(doc.URI, doc.Text, doc.Version); err != nil {
		s.log.Warn("ignoring document we cannot check",
			zap.String("uri", string(doc.URI)), zap.Error(err))
		return
	}
	// checks run on save; opening only registers the document
	s.log.Debug("opened", zap.String("uri", string(doc.URI)), zap.Int("version", doc.Version))
}

func (s *server) DidChange(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.DidChangeTextDocumentParams) {
	uri := params.TextDocument.URI
	diags, ok := s.engine.ApplyChanges(uri, params.TextDocument.Version, params.ContentChanges)
	if !ok {
		s.log.Debug("change for unknown document", zap.String("uri", string(uri)))
		return
	}
	analysis.PublishDiagnostics(ctx, conn, uri, diags)
}

func (s *server) DidSave(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.DidSaveTextDocumentParams) {
	go s.engine.Check(ctx, conn, params.TextDocument.URI)
}

func (s *server) DidClose(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.DidCloseTextDocumentParams) {
	uri := params.TextDocument.URI
	if s.engine.Close(uri) {
		analysis.PublishDiagnostics(ctx, conn, uri, nil)
	}
}

func (s *server) CodeAction(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.CodeActionParams) ([]lsp.CodeAction, error) {
	uri := params.TextDocument.URI
	text, docVersion, ok := s.engine.DocumentState(uri)
	if !ok {
		return []lsp.CodeAction{}, nil
	}
	actions := analysis.BuildQuickFixes(uri, text, docVersion, params.Context.Diagnostics)
	if actions == nil {
		actions = []lsp.CodeAction{}
	}
	return actions, nil
}

func (s *server) CancelProgress(ctx context.Context, conn jsonrpc2.JSONRPC2, params lsp.WorkDoneProgressCancelParams) {
	if s.engine.CancelRun(params.Token) {
		s.log.Info("user cancelled run", zap.String("token", params.Token))
		return
	}
	s.log.Debug("cancel for unknown token", zap.String("token", params.Token))
}
