package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"tex-lsp/lsp"
)

// SourceName tags every diagnostic this server publishes. Code actions
// only ever touch diagnostics carrying it.
const SourceName = "tex-lsp"

// maxReplacements caps how many candidate fixes ride along on a single
// diagnostic.
const maxReplacements = 10

// MapMatch turns one validated match into a diagnostic against the text
// the checker ran over. The range comes from the whole-document offsets;
// the stored plain text comes from the context excerpt, which covers the
// same characters.
func MapMatch(text string, m *Match) lsp.Diagnostic {
	plain := SliceRunes(m.Context.Text, m.Context.Offset, m.Context.Offset+m.Context.Length)
	marked := SliceRunes(m.Context.Text, 0, m.Context.Offset) +
		">>>" + plain + "<<<" +
		SliceRunes(m.Context.Text, m.Context.Offset+m.Context.Length, RuneLen(m.Context.Text))

	replacements := m.Replacements
	if len(replacements) > maxReplacements {
		replacements = replacements[:maxReplacements]
	}

	return lsp.Diagnostic{
		Range: lsp.Range{
			Start: PositionAt(text, m.Offset),
			End:   PositionAt(text, m.Offset+m.Length),
		},
		Severity: SeverityFor(m.CategoryID),
		Code:     strings.ToLower(m.RuleID),
		Source:   SourceName,
		Message:  m.ShortMessage + "\n" + m.Message + "\nContext: " + marked,
		Data: &lsp.DiagnosticData{
			PlainText:    plain,
			Replacements: replacements,
		},
	}
}

// MapMatches maps every raw match against text. A match that fails to
// decode is skipped; its error is returned alongside the good results so
// the caller can log it.
func MapMatches(text string, raw []json.RawMessage) ([]lsp.Diagnostic, []error) {
	diags := make([]lsp.Diagnostic, 0, len(raw))
	var errs []error
	for i, body := range raw {
		m, err := DecodeMatch(body)
		if err != nil {
			errs = append(errs, fmt.Errorf("match %d: %w", i, err))
			continue
		}
		diags = append(diags, MapMatch(text, m))
	}
	return diags, errs
}
