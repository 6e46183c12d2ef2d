package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"tex-lsp/lsp"
)

// Failure classification for a run. The user sees a single generic
// notification either way; these decide what lands in the operator log.
var (
	// ErrProcessNotFound means the checker executable could not be
	// located at all.
	ErrProcessNotFound = errors.New("checker not found")
	// ErrProcessFailed means the checker started but did not exit
	// cleanly.
	ErrProcessFailed = errors.New("checker failed")
	// ErrBadOutput means the checker exited cleanly but its stdout was
	// not a report we understand.
	ErrBadOutput = errors.New("unreadable checker output")
)

// fixedArgs make the checker speak JSON regardless of user options.
var fixedArgs = []string{"--out", "json"}

// ConfigSection is the settings namespace clients keep our options under.
const ConfigSection = "texlsp"

// configTimeout bounds the workspace/configuration round trip; a client
// that never answers must not stall the run.
const configTimeout = 3 * time.Second

// RunState tracks a checker invocation from trigger to terminal state.
type RunState int

const (
	RunPending RunState = iota
	RunRunning
	RunCompleted
	RunFailed
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	case RunCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// Run is one checker invocation against one document. The token doubles
// as the progress token on the wire, which is how cancel requests find
// their way back.
type Run struct {
	Token string
	URI   lsp.DocumentURI

	// path and text snapshot the document at trigger time; the result
	// describes this text even if the buffer moves on.
	path string
	text string

	mu    sync.Mutex
	state RunState
	stop  context.CancelFunc
}

func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// begin moves the run to Running, failing when a cancel won the race
// before the process ever started.
func (r *Run) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RunPending {
		return false
	}
	r.state = RunRunning
	return true
}

// finish settles the terminal state and returns it. A run that was
// already cancelled stays cancelled no matter what the caller saw.
func (r *Run) finish(s RunState) RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RunPending || r.state == RunRunning {
		r.state = s
	}
	return r.state
}

// Cancel kills the checker process and marks the run cancelled. Safe to
// call from any goroutine at any point in the run's life.
func (r *Run) Cancel() {
	r.mu.Lock()
	if r.state == RunPending || r.state == RunRunning {
		r.state = RunCancelled
	}
	stop := r.stop
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// StartRun registers a fresh run for a document, cancelling any run still
// in flight for it: a save is an explicit request for up-to-date results,
// so the newest one wins. The returned context dies when the run is
// cancelled.
func (e *Engine) StartRun(ctx context.Context, uri lsp.DocumentURI) (*Run, context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return nil, nil, false
	}
	if doc.run != nil {
		doc.run.Cancel()
	}
	runCtx, stop := context.WithCancel(ctx)
	run := &Run{
		Token: uuid.NewString(),
		URI:   uri,
		path:  doc.path,
		text:  doc.text,
		stop:  stop,
	}
	doc.run = run
	e.runs[run.Token] = run
	return run, runCtx, true
}

// CancelRun cancels the run identified by token. Unknown tokens are a
// no-op: the run may have settled while the cancel request was in flight.
func (e *Engine) CancelRun(token string) bool {
	e.mu.Lock()
	run, ok := e.runs[token]
	e.mu.Unlock()
	if !ok {
		return false
	}
	run.Cancel()
	return true
}

// release drops a settled run from the registry.
func (e *Engine) release(run *Run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, run.Token)
	if doc, ok := e.docs[run.URI]; ok && doc.run == run {
		doc.run = nil
	}
}

// Check runs the checker against a document's saved state and publishes
// what it finds. It blocks for the duration of the run, so callers put it
// on its own goroutine and keep the message loop free.
func (e *Engine) Check(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI) {
	run, runCtx, ok := e.StartRun(ctx, uri)
	if !ok {
		e.log.Debug("check requested for unknown document", zap.String("uri", string(uri)))
		return
	}
	defer e.release(run)

	log := e.log.With(zap.String("token", run.Token), zap.String("path", run.path))
	log.Info("checking document")

	e.progressCreate(ctx, conn, run.Token)
	e.progress(ctx, conn, run.Token, lsp.WorkDoneProgress{
		Kind:        lsp.ProgressKindBegin,
		Title:       "Checking document",
		Message:     "running " + e.Command[0],
		Cancellable: true,
	})

	args := CheckerArgs(e.Command, e.fetchOptions(ctx, conn), run.path)

	var stdout, stderr []byte
	var err error
	if run.begin() {
		stdout, stderr, err = e.execute(runCtx, filepath.Dir(run.path), args)
	}
	if run.State() == RunCancelled || runCtx.Err() != nil {
		run.finish(RunCancelled)
		log.Info("run cancelled")
		e.progressEnd(ctx, conn, run.Token, "cancelled")
		return
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrProcessNotFound, err)
		} else {
			err = fmt.Errorf("%w: %v", ErrProcessFailed, err)
		}
		e.reportFailure(ctx, conn, log, args, err, stderr)
		run.finish(RunFailed)
		e.progressEnd(ctx, conn, run.Token, "failed")
		return
	}

	e.progressReport(ctx, conn, run.Token, "parsing checker output")
	raw, err := DecodeReport(stdout)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrBadOutput, err)
		e.reportFailure(ctx, conn, log, args, err, stderr)
		run.finish(RunFailed)
		e.progressEnd(ctx, conn, run.Token, "failed")
		return
	}

	e.progressReport(ctx, conn, run.Token, "building diagnostics")
	diags, skipped := MapMatches(run.text, raw)
	for _, err := range skipped {
		log.Warn("skipping malformed match", zap.Error(err))
		e.clientLog(ctx, conn, fmt.Sprintf("skipping malformed match in %s: %v", run.path, err))
	}

	if run.finish(RunCompleted) != RunCompleted {
		log.Info("run cancelled after checker exit")
		e.progressEnd(ctx, conn, run.Token, "cancelled")
		return
	}
	if !e.SetDiagnostics(uri, diags) {
		log.Info("document closed before the run finished")
		e.progressEnd(ctx, conn, run.Token, "finished")
		return
	}
	log.Info("run finished", zap.Int("diagnostics", len(diags)), zap.Int("skipped", len(skipped)))
	PublishDiagnostics(ctx, conn, uri, diags)
	e.progressEnd(ctx, conn, run.Token, "finished")
}

// CheckerArgs assembles the argv for one invocation: the command prefix,
// the fixed output flags, per-run options, then the document path.
func CheckerArgs(command, options []string, path string) []string {
	args := make([]string, 0, len(command)+len(fixedArgs)+len(options)+1)
	args = append(args, command...)
	args = append(args, fixedArgs...)
	args = append(args, options...)
	return append(args, path)
}

// PublishDiagnostics sends a document's full diagnostic set; the client
// replaces whatever it held before, so never send nil for "none".
func PublishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, diags []lsp.Diagnostic) {
	if diags == nil {
		diags = []lsp.Diagnostic{}
	}
	conn.Notify(ctx, "textDocument/publishDiagnostics", lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// CheckFile runs the checker over one file on disk and maps its findings.
// text must be the file's current content, since the report's offsets are
// resolved against it. This is the one-shot path used by the batch
// linter; the server goes through Check instead.
func CheckFile(ctx context.Context, command, options []string, path, text string) ([]lsp.Diagnostic, []error, error) {
	args := CheckerArgs(command, options, path)
	stdout, stderr, err := realExecute(ctx, filepath.Dir(path), args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %v", ErrProcessNotFound, err)
		}
		return nil, nil, fmt.Errorf("%w: %v: %s", ErrProcessFailed, err, bytes.TrimSpace(stderr))
	}
	raw, err := DecodeReport(stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	diags, skipped := MapMatches(text, raw)
	return diags, skipped, nil
}

// executeFunc runs an assembled command line and waits it out; tests swap
// in their own.
type executeFunc func(ctx context.Context, dir string, args []string) (stdout, stderr []byte, err error)

func realExecute(ctx context.Context, dir string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// fetchOptions asks the client for checker options. Any failure demotes
// to the engine's static options: configuration is a nicety, not a
// prerequisite for checking.
func (e *Engine) fetchOptions(ctx context.Context, conn jsonrpc2.JSONRPC2) []string {
	if !e.FetchConfig {
		return e.Options
	}
	cctx, cancel := context.WithTimeout(ctx, configTimeout)
	defer cancel()

	var settings []struct {
		CommandLineOptions []string `json:"commandLineOptions"`
	}
	err := conn.Call(cctx, "workspace/configuration", lsp.ConfigurationParams{
		Items: []lsp.ConfigurationItem{{Section: ConfigSection}},
	}, &settings)
	if err != nil {
		e.log.Warn("could not fetch configuration", zap.Error(err))
		return e.Options
	}
	if len(settings) == 0 || settings[0].CommandLineOptions == nil {
		return e.Options
	}
	return settings[0].CommandLineOptions
}

// reportFailure tells the user once, generically, and gives the operator
// the full picture: the command line, the error, and whatever the checker
// wrote to stderr.
func (e *Engine) reportFailure(ctx context.Context, conn jsonrpc2.JSONRPC2, log *zap.Logger, args []string, err error, stderr []byte) {
	log.Error("run failed",
		zap.Error(err),
		zap.String("command", strings.Join(args, " ")),
		zap.ByteString("stderr", stderr))
	e.clientLog(ctx, conn, fmt.Sprintf("check failed: %v\ncommand: %s\nstderr:\n%s",
		err, strings.Join(args, " "), stderr))
	conn.Notify(ctx, "window/showMessage", lsp.ShowMessageParams{
		Type:    lsp.MessageError,
		Message: "Checking the document failed. See the server log for details.",
	})
}

// clientLog mirrors operator detail into the client's output channel,
// where users go digging when something misbehaves.
func (e *Engine) clientLog(ctx context.Context, conn jsonrpc2.JSONRPC2, message string) {
	conn.Notify(ctx, "window/logMessage", lsp.LogMessageParams{
		Type:    lsp.MessageLog,
		Message: message,
	})
}

func (e *Engine) progressCreate(ctx context.Context, conn jsonrpc2.JSONRPC2, token string) {
	if !e.Progress {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, configTimeout)
	defer cancel()
	var ack interface{}
	if err := conn.Call(cctx, "window/workDoneProgress/create", lsp.WorkDoneProgressCreateParams{Token: token}, &ack); err != nil {
		e.log.Debug("progress token rejected", zap.Error(err))
	}
}

func (e *Engine) progress(ctx context.Context, conn jsonrpc2.JSONRPC2, token string, value lsp.WorkDoneProgress) {
	if !e.Progress {
		return
	}
	conn.Notify(ctx, "$/progress", lsp.ProgressParams{Token: token, Value: value})
}

func (e *Engine) progressReport(ctx context.Context, conn jsonrpc2.JSONRPC2, token, message string) {
	e.progress(ctx, conn, token, lsp.WorkDoneProgress{
		Kind:    lsp.ProgressKindReport,
		Message: message,
	})
}

func (e *Engine) progressEnd(ctx context.Context, conn jsonrpc2.JSONRPC2, token, message string) {
	e.progress(ctx, conn, token, lsp.WorkDoneProgress{
		Kind:    lsp.ProgressKindEnd,
		Message: message,
	})
}
