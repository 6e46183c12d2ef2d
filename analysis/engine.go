package analysis

import (
	"sync"

	"go.uber.org/zap"

	"tex-lsp/lsp"
)

// Engine owns everything one editing session knows: the open documents,
// their published diagnostics, and the checker runs in flight. It is
// created on initialize and torn down when the session ends. All state
// sits behind one mutex; document mutation happens on the message loop
// while runs report back from their own goroutines.
type Engine struct {
	log *zap.Logger

	// Command is the argv prefix that starts the checker. Options are
	// extra arguments placed between the fixed flags and the document
	// path; client configuration can override them per run.
	Command []string
	Options []string

	// FetchConfig gates the workspace/configuration round trip; set it
	// from the client's advertised capabilities.
	FetchConfig bool

	// Progress gates work-done progress reporting, same deal.
	Progress bool

	execute executeFunc

	mu   sync.Mutex
	docs map[lsp.DocumentURI]*document
	runs map[string]*Run
}

type document struct {
	path        string
	version     int
	text        string
	diagnostics []lsp.Diagnostic
	run         *Run
}

// DefaultCommand invokes YaLafi's shell frontend, which filters the LaTeX
// away and feeds the remaining prose through LanguageTool.
var DefaultCommand = []string{"python3", "-m", "yalafi.shell"}

// NewEngine builds the session state around a checker command. A nil
// logger becomes a no-op one; an empty command falls back to
// DefaultCommand.
func NewEngine(log *zap.Logger, command, options []string) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Engine{
		log:     log,
		Command: command,
		Options: options,
		execute: realExecute,
		docs:    map[lsp.DocumentURI]*document{},
		runs:    map[string]*Run{},
	}
}

// Open registers a document. Re-opening an already known URI replaces it.
func (e *Engine) Open(uri lsp.DocumentURI, text string, version int) error {
	path, err := lsp.URIToPath(uri)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[uri] = &document{
		path:        path,
		version:     version,
		text:        text,
		diagnostics: []lsp.Diagnostic{},
	}
	return nil
}

// Close forgets a document. A run still in flight for it is cancelled;
// its completion will find the document gone and publish nothing.
func (e *Engine) Close(uri lsp.DocumentURI) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return false
	}
	if doc.run != nil {
		doc.run.Cancel()
	}
	delete(e.docs, uri)
	return true
}

// ApplyChanges splices one edit notification into the stored text, change
// by change, shifting the published diagnostics alongside. It returns the
// diagnostics to republish.
func (e *Engine) ApplyChanges(uri lsp.DocumentURI, version int, changes []lsp.TextDocumentContentChangeEvent) ([]lsp.Diagnostic, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return nil, false
	}
	for _, change := range changes {
		doc.text = applyChange(doc.text, change)
	}
	doc.diagnostics = ShiftAll(doc.diagnostics, changes)
	doc.version = version
	return snapshotDiagnostics(doc.diagnostics), true
}

// SetDiagnostics replaces a document's diagnostic set wholesale, the way
// a completed run does. Reports false when the document has been closed
// in the meantime.
func (e *Engine) SetDiagnostics(uri lsp.DocumentURI, diags []lsp.Diagnostic) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return false
	}
	doc.diagnostics = snapshotDiagnostics(diags)
	return true
}

// Diagnostics returns a copy of a document's current diagnostic set.
func (e *Engine) Diagnostics(uri lsp.DocumentURI) ([]lsp.Diagnostic, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return nil, false
	}
	return snapshotDiagnostics(doc.diagnostics), true
}

// DocumentState returns the live text and version the client last told us
// about.
func (e *Engine) DocumentState(uri lsp.DocumentURI) (text string, version int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, found := e.docs[uri]
	if !found {
		return "", 0, false
	}
	return doc.text, doc.version, true
}

// Shutdown cancels every run still in flight and forgets all documents.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, run := range e.runs {
		run.Cancel()
	}
	e.docs = map[lsp.DocumentURI]*document{}
}

// applyChange splices one content change into text. The range addresses
// the pre-change text in protocol coordinates; a nil range replaces the
// whole document.
func applyChange(text string, change lsp.TextDocumentContentChangeEvent) string {
	if change.Range == nil {
		return change.Text
	}
	start := OffsetAt(text, change.Range.Start)
	end := OffsetAt(text, change.Range.End)
	runes := []rune(text)
	return string(runes[:start]) + change.Text + string(runes[end:])
}

func snapshotDiagnostics(diags []lsp.Diagnostic) []lsp.Diagnostic {
	out := make([]lsp.Diagnostic, len(diags))
	copy(out, diags)
	return out
}
