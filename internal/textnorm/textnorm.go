// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textnorm canonicalizes titles and names so that strings from PDFs,
// filenames and lookup services compare equal when they denote the same text.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures maps typographic ligatures to their letter sequences. NFKC
// covers these already; the table keeps the expansion explicit for text
// that was decomposed oddly by a PDF producer.
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "ft",
	"ﬆ", "st",
)

// Title lowercases s, expands ligatures and compatibility characters, and
// collapses every run of non-word characters to a single space. The result
// has no leading or trailing space. Title is idempotent.
func Title(s string) string {
	s = ligatures.Replace(s)
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return collapse(s)
}

// Words returns the space-separated words of Title(s).
func Words(s string) []string {
	return strings.Fields(Title(s))
}

// isWord reports whether r belongs to a word: letters, digits and underscore.
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if !isWord(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold removes diacritics, so "Müller" becomes "Muller".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Alnum folds diacritics and strips s down to ASCII letters and digits.
func Alnum(s string) string {
	s = Fold(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
