package analysis

import (
	"unicode/utf8"

	"tex-lsp/lsp"
)

// The checker reports character offsets into the document as a whole,
// while the protocol wants (line, UTF-16 column) pairs. The helpers here
// convert between the two. Offsets count runes, columns count UTF-16 code
// units, and only '\n' ends a line; a '\r' before it is an ordinary unit
// on that line.

func utf16Width(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// UTF16Len reports the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// PositionAt resolves a character offset to a position. Offsets outside
// [0, len] clamp to the nearest end, so the conversion is total.
func PositionAt(text string, offset int) lsp.Position {
	if offset < 0 {
		offset = 0
	}
	line, col, i := 0, 0, 0
	for _, r := range text {
		if i >= offset {
			break
		}
		i++
		if r == '\n' {
			line++
			col = 0
		} else {
			col += utf16Width(r)
		}
	}
	return lsp.Position{Line: line, Character: col}
}

// OffsetAt resolves a position to a character offset. Columns past the
// end of a line clamp to the line break, lines past the end of the text
// clamp to the end of the text.
func OffsetAt(text string, pos lsp.Position) int {
	if pos.Line < 0 {
		return 0
	}
	line, col, i := 0, 0, 0
	for _, r := range text {
		if line == pos.Line {
			if col >= pos.Character {
				return i
			}
			if r == '\n' {
				return i
			}
			col += utf16Width(r)
		} else if r == '\n' {
			line++
		}
		i++
	}
	return i
}

// SliceRunes returns text[start:end] counted in runes, with both bounds
// clamped to the text.
func SliceRunes(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	if end < start {
		end = start
	}
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

// RuneLen reports the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
