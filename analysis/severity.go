package analysis

import "tex-lsp/lsp"

// severityByCategory grades LanguageTool rule categories. Grammar-class
// findings surface as warnings, style-class findings as information.
// Anything not listed here is treated as an error, so a category we have
// never seen shows up loud instead of being silently downgraded.
var severityByCategory = map[string]lsp.DiagnosticSeverity{
	"CASING":                        lsp.SeverityWarning,
	"COLLOCATIONS":                  lsp.SeverityWarning,
	"COLLOQUIALISMS":                lsp.SeverityInformation,
	"COMPOUNDING":                   lsp.SeverityWarning,
	"CONFUSED_WORDS":                lsp.SeverityInformation,
	"CORRESPONDENCE":                lsp.SeverityWarning,
	"EINHEIT_LEERZEICHEN":           lsp.SeverityWarning,
	"EMPFOHLENE_RECHTSCHREIBUNG":    lsp.SeverityInformation,
	"FALSE_FRIENDS":                 lsp.SeverityInformation,
	"GENDER_NEUTRALITY":             lsp.SeverityInformation,
	"GRAMMAR":                       lsp.SeverityWarning,
	"HILFESTELLUNG_KOMMASETZUNG":    lsp.SeverityWarning,
	"IDIOMS":                        lsp.SeverityInformation,
	"MISC":                          lsp.SeverityWarning,
	"MISUSED_TERMS_EU_PUBLICATIONS": lsp.SeverityWarning,
	"NONSTANDARD_PHRASES":           lsp.SeverityInformation,
	"PLAIN_ENGLISH":                 lsp.SeverityInformation,
	"PROPER_NOUNS":                  lsp.SeverityWarning,
	"PUNCTUATION":                   lsp.SeverityWarning,
	"REDUNDANCY":                    lsp.SeverityWarning,
	"REGIONALISMS":                  lsp.SeverityInformation,
	"REPETITIONS":                   lsp.SeverityInformation,
	"SEMANTICS":                     lsp.SeverityWarning,
	"STYLE":                         lsp.SeverityInformation,
	"TYPOGRAPHY":                    lsp.SeverityWarning,
	"TYPOS":                         lsp.SeverityWarning,
	"WIKIPEDIA":                     lsp.SeverityInformation,
}

// SeverityFor grades a rule category id, defaulting to Error for unknown
// categories.
func SeverityFor(categoryID string) lsp.DiagnosticSeverity {
	if sev, ok := severityByCategory[categoryID]; ok {
		return sev
	}
	return lsp.SeverityError
}
