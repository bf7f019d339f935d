package usecase

import (
	"unicode"
	"unicode/utf8"
)

// Highlighter maps spoken fragments back onto the response text. The cursor
// only moves forward, so a fragment that repeats is matched at its next
// occurrence rather than its first.
type Highlighter struct {
	text   string
	cursor int
}

// NewHighlighter creates a highlighter over the full response text
func NewHighlighter(text string) *Highlighter {
	return &Highlighter{text: text}
}

// Next returns the text to append for a spoken fragment: everything from the
// cursor up to the end of the next case-insensitive match, plus one trailing
// non-alphanumeric character. It returns "" when the fragment is not found.
func (h *Highlighter) Next(fragment string) string {
	if fragment == "" || h.cursor >= len(h.text) {
		return ""
	}

	end := h.indexFold(fragment)
	if end < 0 {
		return ""
	}

	if end < len(h.text) {
		r, size := utf8.DecodeRuneInString(h.text[end:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			end += size
		}
	}

	out := h.text[h.cursor:end]
	h.cursor = end
	return out
}

// Flush returns the unspoken tail and moves the cursor to the end
func (h *Highlighter) Flush() string {
	if h.cursor >= len(h.text) {
		return ""
	}
	out := h.text[h.cursor:]
	h.cursor = len(h.text)
	return out
}

// Cursor returns the byte offset of the first unspoken character
func (h *Highlighter) Cursor() int {
	return h.cursor
}

// indexFold returns the byte offset just past the first case-insensitive
// match of fragment at or after the cursor, or -1. Runes are compared by
// simple folding, so matches may differ in byte length from fragment.
func (h *Highlighter) indexFold(fragment string) int {
	for i := h.cursor; i < len(h.text); {
		if end := matchFoldAt(h.text, i, fragment); end >= 0 {
			return end
		}
		_, size := utf8.DecodeRuneInString(h.text[i:])
		i += size
	}
	return -1
}

func matchFoldAt(text string, start int, fragment string) int {
	i := start
	for _, want := range fragment {
		if i >= len(text) {
			return -1
		}
		got, size := utf8.DecodeRuneInString(text[i:])
		if !equalFoldRune(got, want) {
			return -1
		}
		i += size
	}
	return i
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
