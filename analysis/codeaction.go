package analysis

import (
	"tex-lsp/lsp"
)

// maxQuickFixes bounds one code action response; LanguageTool happily
// suggests dozens of rewordings and clients render them all.
const maxQuickFixes = 10

// BuildQuickFixes turns the replacement suggestions riding on a
// document's diagnostics into code actions. liveText and version describe
// the document as the client sees it right now; candidates is the set of
// diagnostics the client asked about.
//
// Each candidate is checked against the live text as it is reached. If
// the text under a diagnostic no longer reads the way the checker saw
// it, the whole batch is abandoned: a stale fix that garbles the
// document is worse than no fix at all. Building stops as soon as
// maxQuickFixes actions exist, so candidates past the cap go unexamined.
func BuildQuickFixes(uri lsp.DocumentURI, liveText string, version int, candidates []lsp.Diagnostic) []lsp.CodeAction {
	actions := []lsp.CodeAction{}
	for i := range candidates {
		if len(actions) == maxQuickFixes {
			break
		}
		diag := candidates[i]
		if diag.Source != SourceName || diag.Data == nil || len(diag.Data.Replacements) == 0 {
			continue
		}
		start := OffsetAt(liveText, diag.Range.Start)
		end := OffsetAt(liveText, diag.Range.End)
		if SliceRunes(liveText, start, end) != diag.Data.PlainText {
			return nil
		}
		for _, rep := range diag.Data.Replacements {
			if len(actions) == maxQuickFixes {
				return actions
			}
			actions = append(actions, quickFix(uri, version, diag, rep))
		}
	}
	return actions
}

func quickFix(uri lsp.DocumentURI, version int, diag lsp.Diagnostic, rep lsp.Replacement) lsp.CodeAction {
	title := rep.Value
	if rep.ShortDescription != "" {
		title += " (" + rep.ShortDescription + ")"
	}
	ver := version
	return lsp.CodeAction{
		Title:       title,
		Kind:        lsp.KindQuickFix,
		Diagnostics: []lsp.Diagnostic{diag},
		Edit: &lsp.WorkspaceEdit{
			DocumentChanges: []lsp.TextDocumentEdit{{
				TextDocument: lsp.OptionalVersionedTextDocumentIdentifier{
					URI:     uri,
					Version: &ver,
				},
				Edits: []lsp.TextEdit{{Range: diag.Range, NewText: rep.Value}},
			}},
		},
	}
}
