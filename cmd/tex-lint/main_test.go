package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tex-lsp/lsp"
)

const fakeReport = `{"matches": [{
	"offset": 6, "length": 4,
	"message": "Possible spelling mistake found.",
	"shortMessage": "Spelling mistake",
	"rule": {"id": "MORFOLOGIK_RULE_EN_US", "category": {"id": "%s"}},
	"replacements": [{"value": "world"}],
	"context": {"text": "Hello wrld, nice day.", "offset": 6, "length": 4}
}]}`

// fakeChecker writes a script that prints a fixed report no matter what
// it is asked to check.
func fakeChecker(t *testing.T, dir, category string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	report := fmt.Sprintf(fakeReport, category)
	script := filepath.Join(dir, "fake-checker")
	body := "#!/bin/sh\ncat <<'EOF'\n" + report + "\nEOF\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func writeDoc(t *testing.T, dir string) string {
	t.Helper()
	doc := filepath.Join(dir, "notes.tex")
	require.NoError(t, os.WriteFile(doc, []byte("Hello wrld, nice day.\n"), 0o644))
	return doc
}

func TestWriteDiagnostic(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	writeDiagnostic(&buf, "notes.tex", lsp.Diagnostic{
		Range: lsp.Range{
			Start: lsp.Position{Line: 0, Character: 6},
			End:   lsp.Position{Line: 0, Character: 10},
		},
		Severity: lsp.SeverityWarning,
		Code:     "morfologik_rule_en_us",
		Message:  "Spelling mistake\nPossible spelling mistake found.",
	})

	out := buf.String()
	assert.Contains(t, out, "notes.tex:0:6 - 0:10")
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "Spelling mistake (morfologik_rule_en_us)")
	assert.Contains(t, out, "\tPossible spelling mistake found.\n")
}

func TestLintExitsOneOnErrors(t *testing.T) {
	dir := t.TempDir()
	// a category the severity table does not know lands as an error
	script := fakeChecker(t, dir, "SOME_NEW_CATEGORY")
	doc := writeDoc(t, dir)

	err := newApp().Run([]string{"tex-lint", "--no-color", "--checker", script, doc})
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "1 errors")
}

func TestLintExitsCleanOnWarnings(t *testing.T) {
	dir := t.TempDir()
	script := fakeChecker(t, dir, "TYPOS")
	doc := writeDoc(t, dir)

	err := newApp().Run([]string{"tex-lint", "--no-color", "--checker", script, doc})
	assert.NoError(t, err)
}

func TestLintReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	script := fakeChecker(t, dir, "TYPOS")
	doc := writeDoc(t, dir)
	cfg := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("checker = [\""+script+"\"]\n"), 0o644))

	err := newApp().Run([]string{"tex-lint", "--no-color", "--config", cfg, doc})
	assert.NoError(t, err)
}

func TestLintNoFiles(t *testing.T) {
	err := newApp().Run([]string{"tex-lint"})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestLintMissingFile(t *testing.T) {
	dir := t.TempDir()
	script := fakeChecker(t, dir, "TYPOS")

	err := newApp().Run([]string{"tex-lint", "--no-color", "--checker", script,
		filepath.Join(dir, "no-such-file.tex")})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(exitError{"boom", 1}))
	assert.Equal(t, 2, exitCode(errors.New("plain")))
}
