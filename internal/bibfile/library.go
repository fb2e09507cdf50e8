// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibfile reads, updates and writes a BibTeX bibliography. Entries
// are parsed with nickng/bibtex; comments, @string and @preamble blocks and
// unedited entries are written back as read. Duplicate checks run against
// an in-memory SQLite catalog of keys, DOIs, normalized titles and file
// links.
package bibfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/pdiddy/refsync/internal/stem"
)

// Library is a loaded bibliography. It is not safe for concurrent use.
type Library struct {
	blocks []*block
	byKey  map[string]*block
	cat    *catalog
}

// Load reads the bibliography at path. A missing file yields an empty
// library. An entry the parser cannot read fails the load, so a library is
// never saved back with entries missing.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	blocks, err := splitBlocks(string(data))
	if err == nil {
		err = parseBlocks(blocks)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return newLibrary(blocks)
}

func newLibrary(blocks []*block) (*Library, error) {
	cat, err := openCatalog()
	if err != nil {
		return nil, err
	}
	l := &Library{blocks: blocks, byKey: make(map[string]*block), cat: cat}
	for _, bl := range blocks {
		if bl.kind != blockEntry {
			continue
		}
		k := strings.ToLower(bl.entry.CiteName)
		if _, dup := l.byKey[k]; !dup {
			l.byKey[k] = bl
		}
		if err := cat.index(entryFrom(bl.entry), false); err != nil {
			cat.close()
			return nil, err
		}
	}
	return l, nil
}

// Close releases the catalog.
func (l *Library) Close() error { return l.cat.close() }

// Len returns the number of entries.
func (l *Library) Len() int {
	n := 0
	for _, bl := range l.blocks {
		if bl.kind == blockEntry {
			n++
		}
	}
	return n
}

// Entries returns a copy of every entry in file order.
func (l *Library) Entries() []Entry {
	var out []Entry
	for _, bl := range l.blocks {
		if bl.kind == blockEntry {
			out = append(out, entryFrom(bl.entry))
		}
	}
	return out
}

// Entry returns the entry with the given key, compared case-insensitively.
func (l *Library) Entry(key string) (Entry, bool) {
	bl, ok := l.byKey[strings.ToLower(key)]
	if !ok {
		return Entry{}, false
	}
	return entryFrom(bl.entry), true
}

// Keys returns the lowercase keys in use.
func (l *Library) Keys() (map[string]bool, error) { return l.cat.keys() }

// LinkedBasenames returns the lowercase PDF basenames referenced by any
// entry's file field.
func (l *Library) LinkedBasenames() (map[string]bool, error) { return l.cat.basenames() }

// HasIdentifierWithLink reports whether an entry with doi (compared
// case-insensitively) already links a file, and returns its key.
func (l *Library) HasIdentifierWithLink(doi string) (string, bool, error) {
	if strings.TrimSpace(doi) == "" {
		return "", false, nil
	}
	return l.cat.linkedKeyByDOI(strings.TrimSpace(doi))
}

// FindTitleAuthor returns the key of an entry whose normalized title and
// author fields equal the normalized arguments.
func (l *Library) FindTitleAuthor(title, author string) (string, bool, error) {
	return l.cat.keyByTitleAuthor(title, author)
}

// Upsert updates the entry sharing e's DOI, keeping its key, or appends e
// under a key made unique against the library. It returns the key used.
func (l *Library) Upsert(e Entry) (key string, updated bool, err error) {
	if doi := e.DOI(); doi != "" {
		existing, ok, err := l.cat.keyByDOI(doi)
		if err != nil {
			return "", false, err
		}
		if bl, found := l.byKey[strings.ToLower(existing)]; ok && found {
			e.apply(bl.entry)
			bl.dirty = true
			if err := l.cat.index(entryFrom(bl.entry), true); err != nil {
				return "", false, err
			}
			return bl.entry.CiteName, true, nil
		}
	}

	taken, err := l.cat.keys()
	if err != nil {
		return "", false, err
	}
	key = e.Key
	if key == "" {
		key = stem.Sanitize(e.Field("author") + e.Field("year"))
	}
	key = stem.UniqueKey(taken, key)
	typ := e.Type
	if typ == "" {
		typ = "misc"
	}
	be := bibtex.NewBibEntry(typ, key)
	e.apply(be)
	bl := &block{kind: blockEntry, entry: be, dirty: true, appended: true}
	l.blocks = append(l.blocks, bl)
	l.byKey[strings.ToLower(key)] = bl
	if err := l.cat.index(entryFrom(be), false); err != nil {
		return "", false, err
	}
	return key, false, nil
}

// String renders the bibliography. Blocks that were not edited keep their
// original text; edited and new entries are printed with braced values.
func (l *Library) String() string {
	var b strings.Builder
	for _, bl := range l.blocks {
		switch {
		case bl.appended:
			if b.Len() > 0 {
				if !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
				b.WriteByte('\n')
			}
			b.WriteString(formatEntry(bl.entry))
			b.WriteByte('\n')
		case bl.dirty:
			b.WriteString(formatEntry(bl.entry))
		default:
			b.WriteString(bl.raw)
		}
	}
	return b.String()
}

// Save writes the bibliography to path.
func (l *Library) Save(path string) error {
	if err := os.WriteFile(path, []byte(l.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// RelPath returns target relative to the directory holding the
// bibliography at bibPath, or target itself when no relative path exists.
func RelPath(bibPath, target string) string {
	base, err := filepath.Abs(filepath.Dir(bibPath))
	if err != nil {
		return target
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return target
	}
	return rel
}
