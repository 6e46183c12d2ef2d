package analysis

import (
	"strings"

	"tex-lsp/lsp"
)

// ShiftDiagnostics rewrites published ranges after one incremental edit so
// they keep pointing at the text they were produced from. Changes arrive in
// the order the client applied them and each call sees the diagnostic set
// that precedes its change. A diagnostic the edit overwrote or partially
// intersected is dropped: a range we cannot vouch for is worse than none.
// Returns the surviving diagnostics, reusing the given slice's storage.
func ShiftDiagnostics(diags []lsp.Diagnostic, change lsp.TextDocumentContentChangeEvent) []lsp.Diagnostic {
	if change.Range == nil {
		// whole-document replacement: nothing survives
		return diags[:0]
	}
	edited := *change.Range
	rows := strings.Count(change.Text, "\n")
	singleLine := edited.Start.Line == edited.End.Line && rows == 0
	newLength := UTF16Len(change.Text)
	lineDelta := edited.Start.Line - edited.End.Line + rows
	colDelta := edited.Start.Character - edited.End.Character + newLength

	kept := diags[:0]
	for _, d := range diags {
		switch {
		case d.Range.End.Before(edited.Start):
			// the edit is entirely behind this diagnostic
			kept = append(kept, d)
		case d.Range.Start.Line > edited.End.Line:
			d.Range.Start.Line += lineDelta
			d.Range.End.Line += lineDelta
			kept = append(kept, d)
		case edited.Contains(d.Range):
			// span fully overwritten, drop it
		case singleLine && d.Range.Start.Line == edited.Start.Line &&
			edited.End.Character <= d.Range.Start.Character:
			d.Range.Start.Character += colDelta
			d.Range.End.Character += colDelta
			kept = append(kept, d)
		default:
			// partial overlap, or an edit touching the diagnostic's
			// boundary: the stored range is stale now, drop it
		}
	}
	return kept
}

// ShiftAll applies a batch of changes from one edit notification, each
// against the diagnostic set produced by the one before it.
func ShiftAll(diags []lsp.Diagnostic, changes []lsp.TextDocumentContentChangeEvent) []lsp.Diagnostic {
	for _, change := range changes {
		diags = ShiftDiagnostics(diags, change)
	}
	return diags
}
