// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package titles guesses document titles from PDF metadata, filenames and
// first-page text. Guesses are produced by an ordered list of generators,
// each paired with the plausibility test its output must pass.
package titles

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Source identifies where a candidate title came from.
type Source string

const (
	SourceMetadata  Source = "metadata"
	SourceFilename  Source = "filename"
	SourceFirstPage Source = "first_page"
)

// Candidate is one guessed title.
type Candidate struct {
	Text   string
	Source Source

	// Line is the index of the first-page line the candidate starts at, or
	// -1 for metadata and filename candidates.
	Line int

	// Expansions holds the candidate joined with the next one and two
	// first-page lines. Only first-page candidates carry expansions.
	Expansions []string
}

// Input is what the extractor knows about one PDF.
type Input struct {
	MetadataTitle  string
	MetadataAuthor string
	FirstPage      string
	Filename       string
}

// Generator produces candidate titles from one source. Generators apply
// their own plausibility predicate and return only passing candidates.
type Generator struct {
	Source   Source
	Generate func(Input) []Candidate
}

// maxFirstPageLines bounds how many non-blank first-page lines are scanned.
const maxFirstPageLines = 10

// DefaultGenerators lists the generators in priority order.
var DefaultGenerators = []Generator{
	{Source: SourceMetadata, Generate: fromMetadata},
	{Source: SourceFilename, Generate: fromFilename},
	{Source: SourceFirstPage, Generate: fromFirstPage},
}

// Extract runs DefaultGenerators over in and returns every candidate in
// priority order. An empty result means no plausible title exists.
func Extract(in Input) []Candidate {
	return ExtractWith(DefaultGenerators, in)
}

// ExtractWith runs the given generators in order and concatenates their output.
func ExtractWith(gens []Generator, in Input) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, g := range gens {
		for _, c := range g.Generate(in) {
			key := strings.ToLower(c.Text)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

func fromMetadata(in Input) []Candidate {
	t := cleanLine(in.MetadataTitle)
	if !Plausible(t) {
		return nil
	}
	return []Candidate{{Text: t, Source: SourceMetadata, Line: -1}}
}

func fromFilename(in Input) []Candidate {
	t := TitleFromFilename(in.Filename)
	if !Plausible(t) {
		return nil
	}
	return []Candidate{{Text: t, Source: SourceFilename, Line: -1}}
}

func fromFirstPage(in Input) []Candidate {
	lines := FirstLines(in.FirstPage, maxFirstPageLines)
	var out []Candidate
	for i, line := range lines {
		if !PlausibleRelaxed(line) {
			continue
		}
		c := Candidate{Text: line, Source: SourceFirstPage, Line: i}
		if i+1 < len(lines) {
			c.Expansions = append(c.Expansions, line+" "+lines[i+1])
		}
		if i+2 < len(lines) {
			c.Expansions = append(c.Expansions, line+" "+lines[i+1]+" "+lines[i+2])
		}
		out = append(out, c)
	}
	return out
}

// TitleFromFilename turns a PDF filename into a title-like string by
// dropping the directory and extension and treating separators as spaces.
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', '+':
			return ' '
		}
		return r
	}, base)
	return cleanLine(base)
}

// FirstLines returns up to n trimmed, non-blank lines of text.
func FirstLines(text string, n int) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = cleanLine(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == n {
			break
		}
	}
	return lines
}

func cleanLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Plausible is the strict title test: at least five words, not fully upper
// case, fewer than five digits and more than ten letters.
func Plausible(s string) bool {
	return shapeOK(s, 5)
}

// PlausibleRelaxed is the first-page line test: at least four words, the
// same shape tests as Plausible, and no copyright or DOI marker among the
// first three words.
func PlausibleRelaxed(s string) bool {
	if !shapeOK(s, 4) {
		return false
	}
	words := strings.Fields(s)
	if len(words) > 3 {
		words = words[:3]
	}
	for _, w := range words {
		if isBoilerplate(w) {
			return false
		}
	}
	return true
}

func shapeOK(s string, minWords int) bool {
	if len(strings.Fields(s)) < minWords {
		return false
	}
	var digits, letters int
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
			hasUpper = hasUpper || unicode.IsUpper(r)
			hasLower = hasLower || unicode.IsLower(r)
		}
	}
	if hasUpper && !hasLower {
		return false
	}
	return digits < 5 && letters > 10
}

func isBoilerplate(word string) bool {
	w := strings.ToLower(word)
	if strings.Contains(w, "copyright") || strings.Contains(w, "©") {
		return true
	}
	w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ':' })
	return w == "doi" || strings.HasPrefix(w, "doi:") || strings.Contains(w, "doi.org")
}
