// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tracker persists which PDFs in a folder have been handled and
// which content hashes map to which canonical file.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// FileName is the ledger written into the synced folder.
	FileName = ".refsync-tracker.json"

	// LegacyFileName is read when FileName does not exist yet.
	LegacyFileName = ".bibsync-tracker.json"
)

// Ledger is the per-folder processing state. Processed holds original-case
// basenames compared case-insensitively; Hashes maps sha256 hex digests to
// the canonical basename of the file with that content.
type Ledger struct {
	Processed []string          `json:"processed"`
	Hashes    map[string]string `json:"hashes"`

	path string
	seen map[string]bool
}

// New returns an empty ledger that saves into folder.
func New(folder string) *Ledger {
	return &Ledger{
		Hashes: make(map[string]string),
		path:   filepath.Join(folder, FileName),
		seen:   make(map[string]bool),
	}
}

// Load reads the ledger for folder, falling back to the legacy file name.
// A missing or unreadable-as-JSON ledger loads as empty; the corrupt case
// is logged.
func Load(folder string, logger *log.Logger) (*Ledger, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := New(folder)

	var data []byte
	var src string
	for _, name := range []string{FileName, LegacyFileName} {
		p := filepath.Join(folder, name)
		b, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading tracker %s: %w", p, err)
		}
		data, src = b, p
		break
	}
	if data == nil {
		return l, nil
	}

	var stored struct {
		Processed []string          `json:"processed"`
		Hashes    map[string]string `json:"hashes"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn("tracker file is corrupt, starting empty", "path", src, "err", err)
		return l, nil
	}
	for _, name := range stored.Processed {
		l.MarkProcessed(name)
	}
	for h, name := range stored.Hashes {
		l.Hashes[h] = name
	}
	return l, nil
}

// Path returns the file Save writes.
func (l *Ledger) Path() string { return l.path }

// Save writes the ledger as indented JSON.
func (l *Ledger) Save() error {
	if l.Processed == nil {
		l.Processed = []string{}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracker: %w", err)
	}
	if err := os.WriteFile(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing tracker %s: %w", l.path, err)
	}
	return nil
}

// IsProcessed reports whether name was handled in an earlier run.
func (l *Ledger) IsProcessed(name string) bool {
	return l.seen[strings.ToLower(name)]
}

// MarkProcessed records name. Repeated marks are ignored.
func (l *Ledger) MarkProcessed(name string) {
	k := strings.ToLower(name)
	if name == "" || l.seen[k] {
		return
	}
	l.seen[k] = true
	l.Processed = append(l.Processed, name)
}

// HashOwner returns the canonical basename recorded for a content hash.
func (l *Ledger) HashOwner(hash string) (string, bool) {
	name, ok := l.Hashes[hash]
	return name, ok
}

// RecordHash maps hash to the canonical basename name.
func (l *Ledger) RecordHash(hash, name string) {
	l.Hashes[hash] = name
}

// Rebuild replaces the processed set with names and clears every hash.
func (l *Ledger) Rebuild(names []string) {
	l.Processed = nil
	l.seen = make(map[string]bool)
	l.Hashes = make(map[string]string)
	for _, n := range names {
		l.MarkProcessed(n)
	}
}
