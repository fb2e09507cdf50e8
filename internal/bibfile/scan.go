// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibfile

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nickng/bibtex"
)

type blockKind int

const (
	blockText   blockKind = iota // comments and anything between blocks
	blockString                  // @string
	blockKeep                    // @comment, @preamble
	blockEntry
)

// block is one top-level piece of a bibliography file. Blocks that were
// not edited are written back exactly as read.
type block struct {
	kind blockKind
	raw  string
	line int

	entry    *bibtex.BibEntry
	dirty    bool
	appended bool
}

// splitBlocks cuts src into text and @-blocks. An '@' not followed by an
// identifier and an opening delimiter is plain text.
func splitBlocks(src string) ([]*block, error) {
	var blocks []*block
	textStart, i := 0, 0
	for i < len(src) {
		at := strings.IndexByte(src[i:], '@')
		if at < 0 {
			break
		}
		at += i
		kind, end, ok, err := readBlock(src, at)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineOf(src, at), err)
		}
		if !ok {
			i = at + 1
			continue
		}
		if at > textStart {
			blocks = append(blocks, &block{kind: blockText, raw: src[textStart:at]})
		}
		blocks = append(blocks, &block{kind: kind, raw: src[at:end], line: lineOf(src, at)})
		i, textStart = end, end
	}
	if textStart < len(src) {
		blocks = append(blocks, &block{kind: blockText, raw: src[textStart:]})
	}
	return blocks, nil
}

// readBlock reads the @-block starting at at and returns its kind and end
// offset. ok is false when at does not start a block.
func readBlock(src string, at int) (kind blockKind, end int, ok bool, err error) {
	j := at + 1
	for j < len(src) && isIdentByte(src[j]) {
		j++
	}
	ident := strings.ToLower(src[at+1 : j])
	if ident == "" {
		return 0, 0, false, nil
	}
	for j < len(src) && isSpace(src[j]) {
		j++
	}
	if j >= len(src) || (src[j] != '{' && src[j] != '(') {
		return 0, 0, false, nil
	}

	switch ident {
	case "string":
		kind = blockString
	case "comment", "preamble":
		kind = blockKeep
	default:
		kind = blockEntry
	}

	open := src[j]
	depth := 0
	for k := j; k < len(src); k++ {
		switch src[k] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return 0, 0, false, fmt.Errorf("unbalanced braces in @%s", ident)
			}
			if open == '{' && depth == 0 {
				return kind, k + 1, true, nil
			}
		case ')':
			if open == '(' && depth == 0 {
				return kind, k + 1, true, nil
			}
		}
	}
	return 0, 0, false, fmt.Errorf("unterminated @%s", ident)
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func lineOf(src string, off int) int {
	return strings.Count(src[:off], "\n") + 1
}

// atMark stands in for '@' inside field values while parsing; the parser
// rejects a bare '@' in a braced value.
const atMark = "\uE040"

// parserInput rewrites one block so the parser accepts it: parentheses
// become braces, '@' inside values is masked and bare macro names not in
// defined are braced into literals. hasKey is false for @string blocks.
func parserInput(raw string, defined map[string]bool, hasKey bool) string {
	open := strings.IndexAny(raw, "{(")
	if open < 0 {
		return raw
	}
	closeAt := len(raw) - 1
	var b strings.Builder
	b.WriteString(raw[:open])
	b.WriteByte('{')

	p := open + 1
	if hasKey {
		comma := strings.IndexByte(raw[p:closeAt], ',')
		if comma < 0 {
			b.WriteString(raw[p:closeAt])
			b.WriteByte('}')
			return b.String()
		}
		b.WriteString(raw[p : p+comma+1])
		p += comma + 1
	}

	for p < closeAt {
		eq := strings.IndexByte(raw[p:closeAt], '=')
		if eq < 0 {
			break
		}
		b.WriteString(raw[p : p+eq+1])
		p += eq + 1
		p = copyValue(&b, raw, p, closeAt, defined)
		for p < closeAt && isSpace(raw[p]) {
			b.WriteByte(raw[p])
			p++
		}
		if p < closeAt && raw[p] == ',' {
			b.WriteByte(',')
			p++
			continue
		}
		break
	}
	if p < closeAt {
		b.WriteString(raw[p:closeAt])
	}
	b.WriteByte('}')
	return b.String()
}

// copyValue copies one possibly '#'-joined field value starting at p and
// returns the offset after it.
func copyValue(b *strings.Builder, raw string, p, end int, defined map[string]bool) int {
	for {
		for p < end && isSpace(raw[p]) {
			b.WriteByte(raw[p])
			p++
		}
		if p >= end {
			return p
		}
		switch raw[p] {
		case '{':
			q := matchBrace(raw, p, end)
			b.WriteString(strings.ReplaceAll(raw[p:q], "@", atMark))
			p = q
		case '"':
			q := matchQuote(raw, p, end)
			b.WriteString(strings.ReplaceAll(raw[p:q], "@", atMark))
			p = q
		default:
			q := p
			for q < end && !isSpace(raw[q]) && !strings.ContainsRune(",#}", rune(raw[q])) {
				q++
			}
			tok := raw[p:q]
			if _, err := strconv.Atoi(tok); err == nil || defined[tok] {
				b.WriteString(tok)
			} else {
				b.WriteString("{" + tok + "}")
			}
			p = q
		}
		for p < end && isSpace(raw[p]) {
			b.WriteByte(raw[p])
			p++
		}
		if p < end && raw[p] == '#' {
			b.WriteByte('#')
			p++
			continue
		}
		return p
	}
}

func matchBrace(raw string, p, end int) int {
	depth := 0
	for q := p; q < end; q++ {
		switch raw[q] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return q + 1
			}
		}
	}
	return end
}

func matchQuote(raw string, p, end int) int {
	depth := 0
	for q := p + 1; q < end; q++ {
		switch raw[q] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				return q + 1
			}
		}
	}
	return end
}

var stringName = regexp.MustCompile(`(?is)^@string\s*[{(]\s*([^\s=]+)\s*=`)

// parseBlocks parses every entry block against the @string definitions
// that precede it. Any entry the parser rejects fails the whole load.
func parseBlocks(blocks []*block) error {
	defined := make(map[string]bool)
	var defs strings.Builder
	for _, bl := range blocks {
		switch bl.kind {
		case blockString:
			defs.WriteString(parserInput(bl.raw, defined, false))
			defs.WriteByte('\n')
			if m := stringName.FindStringSubmatch(bl.raw); m != nil {
				defined[m[1]] = true
			}
		case blockEntry:
			be, err := parseOne(defs.String()+parserInput(bl.raw, defined, true), bl.line)
			if err != nil {
				return err
			}
			bl.entry = be
		}
	}
	return nil
}

func parseOne(src string, line int) (*bibtex.BibEntry, error) {
	bib, err := bibtex.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	if len(bib.Entries) != 1 {
		return nil, fmt.Errorf("line %d: unreadable entry", line)
	}
	be := bib.Entries[0]
	for k, v := range be.Fields {
		be.Fields[k] = unmask(v)
	}
	return be, nil
}

func unmask(s bibtex.BibString) bibtex.BibString {
	switch v := s.(type) {
	case bibtex.BibConst:
		return bibtex.NewBibConst(strings.ReplaceAll(string(v), atMark, "@"))
	case *bibtex.BibComposite:
		out := make(bibtex.BibComposite, 0, len(*v))
		for _, part := range *v {
			out = append(out, unmask(part))
		}
		return &out
	default:
		return s
	}
}

// fieldOrder lists the fields printed first; the rest follow sorted.
var fieldOrder = []string{"author", "title", "journal", "booktitle", "publisher", "year", "month",
	"volume", "number", "pages", "doi", "url"}

// formatEntry prints be with brace-delimited values. String variables are
// written by name.
func formatEntry(be *bibtex.BibEntry) string {
	rank := func(k string) int {
		for i, f := range fieldOrder {
			if strings.EqualFold(f, k) {
				return i
			}
		}
		if strings.EqualFold(k, "file") {
			return len(fieldOrder) + 1
		}
		return len(fieldOrder)
	}
	keys := make([]string, 0, len(be.Fields))
	for k := range be.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		return ri < rj || ri == rj && keys[i] < keys[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", be.Type, be.CiteName)
	for i, k := range keys {
		fmt.Fprintf(&b, "  %s = %s", k, rawValue(be.Fields[k]))
		if i < len(keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}

func rawValue(s bibtex.BibString) string {
	switch v := s.(type) {
	case bibtex.BibConst:
		return "{" + string(v) + "}"
	case *bibtex.BibVar:
		return v.Key
	case *bibtex.BibComposite:
		parts := make([]string, 0, len(*v))
		for _, p := range *v {
			parts = append(parts, rawValue(p))
		}
		return strings.Join(parts, " # ")
	case nil:
		return "{}"
	default:
		return "{" + s.String() + "}"
	}
}
