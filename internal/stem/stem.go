// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stem builds canonical, collision-free file stems and bibliography
// keys of the form {AuthorSurname}{Year}{TitleWords...}.
package stem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/refsync/internal/textnorm"
)

// Options bounds how many title words a stem may carry.
type Options struct {
	MinWords int
	MaxWords int
}

// DefaultOptions starts at two title words and stops at six.
var DefaultOptions = Options{MinWords: 2, MaxWords: 6}

const (
	fallbackSurname = "Unknown"
	fallbackTitle   = "Untitled"
	fallbackStem    = "unnamed"
)

// TitleWords splits a title into alphanumeric words, folding diacritics and
// collapsing consecutive case-insensitive repeats ("Deep Deep Learning"
// becomes "Deep Learning").
func TitleWords(title string) []string {
	fields := strings.FieldsFunc(textnorm.Fold(title), func(r rune) bool {
		return r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	var out []string
	for _, w := range fields {
		if len(out) > 0 && strings.EqualFold(out[len(out)-1], w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Sanitize strips s to ASCII letters and digits, returning "unnamed" when
// nothing is left.
func Sanitize(s string) string {
	if a := textnorm.Alnum(s); a != "" {
		return a
	}
	return fallbackStem
}

// ExistingStems returns the lowercase stems of the .pdf files in dir. A
// missing directory has no stems.
func ExistingStems(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	stems := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		stems[strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))] = true
	}
	return stems, nil
}

// Build returns the first stem surname+year+words[:k], for k from
// opts.MinWords to opts.MaxWords, whose lowercase form is not in taken.
// When every length collides it returns the longest form; callers resolve
// the collision with UniquePath or UniqueKey. Build is deterministic.
func Build(taken map[string]bool, surname, year string, words []string, opts Options) string {
	if surname = textnorm.Alnum(surname); surname == "" {
		surname = fallbackSurname
	}
	var clean []string
	for _, w := range words {
		if w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		clean = []string{fallbackTitle}
	}

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultOptions.MaxWords
	}
	minWords := opts.MinWords
	if minWords <= 0 {
		minWords = 1
	}
	upper := min(maxWords, len(clean))
	lower := min(minWords, upper)

	for k := lower; k <= upper; k++ {
		s := Sanitize(surname + year + strings.Join(clean[:k], ""))
		if !taken[strings.ToLower(s)] {
			return s
		}
	}
	return Sanitize(surname + year + strings.Join(clean[:upper], ""))
}

// BuildUnique is Build scoped to the .pdf files currently in dir.
func BuildUnique(dir, surname, year string, words []string, opts Options) (string, error) {
	taken, err := ExistingStems(dir)
	if err != nil {
		return "", err
	}
	return Build(taken, surname, year, words, opts), nil
}

// UniquePath returns dir/stem+ext, or the first dir/stem_N+ext (N = 2, 3, ...)
// that does not exist. A path equal to self is treated as free, so renaming
// a file onto its own name is a no-op.
func UniquePath(dir, stem, ext, self string) string {
	return UniquePathExcept(dir, stem, ext, self, nil)
}

// UniquePathExcept is UniquePath that also passes over the paths in
// claimed, keyed by lowercase path. Dry runs use it to keep planned
// destinations apart.
func UniquePathExcept(dir, stem, ext, self string, claimed map[string]bool) string {
	taken := func(p string) bool {
		return claimed[strings.ToLower(p)] || exists(p) && !samePath(p, self)
	}
	candidate := filepath.Join(dir, stem+ext)
	for i := 2; taken(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	return candidate
}

// UniqueKey returns key, or key_N for the smallest N >= 2 not in taken.
// Keys are compared case-insensitively.
func UniqueKey(taken map[string]bool, key string) string {
	if !taken[strings.ToLower(key)] {
		return key
	}
	for i := 2; ; i++ {
		k := fmt.Sprintf("%s_%d", key, i)
		if !taken[strings.ToLower(k)] {
			return k
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func samePath(a, b string) bool {
	if b == "" {
		return false
	}
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
