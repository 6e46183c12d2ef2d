package analysis

import (
	"testing"

	"tex-lsp/lsp"
)

func rng(startLine, startCol, endLine, endCol int) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: startLine, Character: startCol},
		End:   lsp.Position{Line: endLine, Character: endCol},
	}
}

func diagAt(r lsp.Range) lsp.Diagnostic {
	return lsp.Diagnostic{Range: r, Message: "m", Source: SourceName}
}

func change(r lsp.Range, text string) lsp.TextDocumentContentChangeEvent {
	return lsp.TextDocumentContentChangeEvent{Range: &r, Text: text}
}

func TestShiftMultiLineInsertionBefore(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(2, 2, 2, 5))}
	got := ShiftDiagnostics(diags, change(rng(0, 0, 0, 0), "X\nY\n"))
	if len(got) != 1 {
		t.Fatalf("diagnostic vanished")
	}
	if want := rng(4, 2, 4, 5); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftMultiLineDeletionBefore(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(5, 3, 5, 8))}
	got := ShiftDiagnostics(diags, change(rng(1, 0, 3, 0), ""))
	if len(got) != 1 {
		t.Fatalf("diagnostic vanished")
	}
	if want := rng(3, 3, 3, 8); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftSameLineInsertionBefore(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 10, 0, 14))}
	got := ShiftDiagnostics(diags, change(rng(0, 0, 0, 0), "abc"))
	if want := rng(0, 13, 0, 17); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftSameLineDeletionBefore(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 10, 0, 14))}
	got := ShiftDiagnostics(diags, change(rng(0, 0, 0, 4), ""))
	if want := rng(0, 6, 0, 10); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftCountsUTF16Units(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 10, 0, 14))}
	got := ShiftDiagnostics(diags, change(rng(0, 0, 0, 0), "𝕏"))
	if want := rng(0, 12, 0, 16); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftEditAfterDiagnostic(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 0, 0, 4))}
	got := ShiftDiagnostics(diags, change(rng(0, 10, 0, 12), "yy"))
	if want := rng(0, 0, 0, 4); got[0].Range != want {
		t.Errorf("range = %v, want it untouched", got[0].Range)
	}
}

func TestShiftRemovesContainedDiagnostic(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(1, 4, 1, 8))}
	got := ShiftDiagnostics(diags, change(rng(1, 0, 1, 20), "rewritten"))
	if len(got) != 0 {
		t.Errorf("contained diagnostic survived: %v", got)
	}
}

func TestShiftRemovesExactSpanReplacement(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(1, 4, 1, 8))}
	got := ShiftDiagnostics(diags, change(rng(1, 4, 1, 8), "fine"))
	if len(got) != 0 {
		t.Errorf("exactly replaced diagnostic survived: %v", got)
	}
}

func TestShiftRemovesPartialOverlap(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 5, 0, 10))}
	got := ShiftDiagnostics(diags, change(rng(0, 8, 0, 12), "zz"))
	if len(got) != 0 {
		t.Errorf("partially overlapped diagnostic survived: %v", got)
	}
}

func TestShiftRemovesOnMultiLineEditTouchingStartLine(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(3, 10, 3, 15))}
	got := ShiftDiagnostics(diags, change(rng(1, 0, 3, 2), "x"))
	if len(got) != 0 {
		t.Errorf("diagnostic with a stale range survived: %v", got)
	}
}

func TestShiftInsertionAtDiagnosticStartSlidesIt(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 4, 0, 8))}
	got := ShiftDiagnostics(diags, change(rng(0, 4, 0, 4), "ab"))
	if len(got) != 1 {
		t.Fatalf("diagnostic vanished")
	}
	if want := rng(0, 6, 0, 10); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftInsertionAtDiagnosticEndInvalidates(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 0, 0, 4))}
	got := ShiftDiagnostics(diags, change(rng(0, 4, 0, 4), "x"))
	if len(got) != 0 {
		t.Errorf("boundary-touching edit should invalidate, got %v", got)
	}
}

func TestShiftFullDocumentChangeClearsAll(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(0, 0, 0, 4)), diagAt(rng(2, 0, 2, 4))}
	got := ShiftDiagnostics(diags, lsp.TextDocumentContentChangeEvent{Text: "entirely new"})
	if len(got) != 0 {
		t.Errorf("full replacement should clear the set, got %v", got)
	}
}

func TestShiftVisitsEveryDiagnosticOnce(t *testing.T) {
	// neighbouring removals must not make the survivors shift twice or
	// get skipped
	diags := []lsp.Diagnostic{
		diagAt(rng(0, 0, 0, 2)),   // before the edit, stays put
		diagAt(rng(1, 1, 1, 3)),   // swallowed
		diagAt(rng(1, 4, 1, 6)),   // swallowed
		diagAt(rng(3, 2, 3, 5)),   // after, slides up
		diagAt(rng(10, 0, 10, 4)), // after, slides up
	}
	got := ShiftDiagnostics(diags, change(rng(1, 0, 2, 0), ""))
	if len(got) != 3 {
		t.Fatalf("got %d survivors, want 3: %v", len(got), got)
	}
	if want := rng(0, 0, 0, 2); got[0].Range != want {
		t.Errorf("first survivor = %v, want %v", got[0].Range, want)
	}
	if want := rng(2, 2, 2, 5); got[1].Range != want {
		t.Errorf("second survivor = %v, want %v", got[1].Range, want)
	}
	if want := rng(9, 0, 9, 4); got[2].Range != want {
		t.Errorf("third survivor = %v, want %v", got[2].Range, want)
	}
}

func TestShiftAllAppliesInOrder(t *testing.T) {
	diags := []lsp.Diagnostic{diagAt(rng(1, 10, 1, 14))}
	got := ShiftAll(diags, []lsp.TextDocumentContentChangeEvent{
		change(rng(1, 0, 1, 0), "ab"), // pushes to 12..16
		change(rng(1, 0, 1, 2), ""),   // pulls back to 10..14
		change(rng(0, 0, 0, 0), "\n"), // pushes a line down
	})
	if len(got) != 1 {
		t.Fatalf("diagnostic vanished")
	}
	if want := rng(2, 10, 2, 14); got[0].Range != want {
		t.Errorf("range = %v, want %v", got[0].Range, want)
	}
}

func TestShiftNeverInvertsRanges(t *testing.T) {
	diags := []lsp.Diagnostic{
		diagAt(rng(0, 3, 0, 7)),
		diagAt(rng(2, 0, 2, 9)),
		diagAt(rng(4, 1, 5, 2)),
	}
	edits := []lsp.TextDocumentContentChangeEvent{
		change(rng(0, 0, 0, 1), ""),
		change(rng(0, 0, 0, 0), "padding "),
		change(rng(1, 0, 2, 0), ""),
		change(rng(0, 2, 0, 2), "x\ny\n"),
		change(rng(3, 0, 3, 0), "zz"),
	}
	for _, e := range edits {
		diags = ShiftDiagnostics(diags, e)
		for _, d := range diags {
			if d.Range.End.Before(d.Range.Start) {
				t.Fatalf("inverted range %v after edit %v", d.Range, e)
			}
		}
	}
}
