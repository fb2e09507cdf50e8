// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibfile

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/pdiddy/refsync/pkg/types"
)

// Entry is one bibliography record. Field names are lowercase.
type Entry struct {
	Key    string
	Type   string
	Fields map[string]string
}

// Field returns the named field, or "" when absent.
func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Set assigns a field. Empty values remove it.
func (e *Entry) Set(name, value string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	name = strings.ToLower(name)
	if value == "" {
		delete(e.Fields, name)
		return
	}
	e.Fields[name] = value
}

// DOI returns the lowercased DOI field.
func (e Entry) DOI() string { return strings.ToLower(strings.TrimSpace(e.Field("doi"))) }

// Fill copies every field of other that e does not already have.
func (e *Entry) Fill(other Entry) {
	for k, v := range other.Fields {
		if e.Field(k) == "" {
			e.Set(k, v)
		}
	}
	if e.Type == "" {
		e.Type = other.Type
	}
}

// SetFile links the entry to a PDF at rel, a path relative to the
// bibliography's directory.
func (e *Entry) SetFile(rel string) {
	e.Set("file", FileField(rel))
}

// FileField formats a file link as ":path:PDF" with forward slashes. Saved
// entries print it braced, as {:path:PDF}.
func FileField(rel string) string {
	return ":" + filepath.ToSlash(rel) + ":PDF"
}

// LinkedFiles returns the lowercase PDF basenames referenced by a file
// field. Links are separated by ';' and have the form "description:path:type".
func LinkedFiles(field string) []string {
	var out []string
	for _, link := range strings.Split(field, ";") {
		link = strings.Trim(strings.TrimSpace(link), "{}")
		chunks := strings.Split(link, ":")
		var p string
		switch {
		case len(chunks) >= 2:
			p = chunks[len(chunks)-2]
		default:
			p = chunks[0]
		}
		base := strings.ToLower(path.Base(filepath.ToSlash(strings.TrimSpace(p))))
		if strings.HasSuffix(base, ".pdf") {
			out = append(out, base)
		}
	}
	return out
}

// EntryType maps a Crossref work type to a BibTeX entry type.
func EntryType(kind string) string {
	switch kind {
	case "journal-article":
		return "article"
	case "proceedings-article":
		return "inproceedings"
	case "book-chapter":
		return "incollection"
	case "book", "monograph", "edited-book":
		return "book"
	default:
		return "misc"
	}
}

// venueField names the field that carries the container title.
func venueField(entryType string) string {
	switch entryType {
	case "article":
		return "journal"
	case "inproceedings", "incollection":
		return "booktitle"
	case "book":
		return "publisher"
	default:
		return "howpublished"
	}
}

// FromRecord builds an entry from resolved metadata alone.
func FromRecord(rec types.Record, key string) Entry {
	e := Entry{Key: key, Type: EntryType(rec.Kind)}
	e.Set("title", rec.Title)
	e.Set("author", rec.BibTeXAuthors())
	e.Set("year", rec.Year)
	e.Set("doi", rec.ExternalID)
	e.Set(venueField(e.Type), rec.Venue)
	e.Set("url", rec.URL)
	return e
}

// ParseEntry parses the first entry of a BibTeX document, such as the body
// returned by DOI content negotiation. Bare month names and other undefined
// macros are kept as literal text.
func ParseEntry(raw string) (Entry, error) {
	blocks, err := splitBlocks(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing BibTeX: %w", err)
	}
	for _, bl := range blocks {
		if bl.kind != blockEntry {
			continue
		}
		be, err := parseOne(parserInput(bl.raw, nil, true), bl.line)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing BibTeX: %w", err)
		}
		return entryFrom(be), nil
	}
	return Entry{}, fmt.Errorf("parsing BibTeX: no entries")
}

func entryFrom(be *bibtex.BibEntry) Entry {
	e := Entry{Key: be.CiteName, Type: strings.ToLower(be.Type), Fields: make(map[string]string, len(be.Fields))}
	for k, v := range be.Fields {
		if v == nil {
			continue
		}
		e.Fields[strings.ToLower(k)] = strings.TrimSpace(v.String())
	}
	return e
}

// apply writes e's type and fields onto be. Fields e does not carry are
// left untouched so string variables and composites survive.
func (e Entry) apply(be *bibtex.BibEntry) {
	if e.Type != "" {
		be.Type = e.Type
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for existing := range be.Fields {
			if existing != k && strings.EqualFold(existing, k) {
				delete(be.Fields, existing)
			}
		}
		be.AddField(k, bibtex.NewBibConst(e.Fields[k]))
	}
}
