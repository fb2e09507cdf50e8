// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe classifies incoming PDFs as duplicates of files already in
// the library and moves them out of the way.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/refsync/internal/bibfile"
	"github.com/pdiddy/refsync/internal/stem"
	"github.com/pdiddy/refsync/internal/tracker"
	"github.com/pdiddy/refsync/pkg/types"
)

// HashFile returns the hex sha256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decision is the result of Classify.
type Decision struct {
	Kind types.DuplicateKind

	// Canonical is the basename on record for a hash duplicate.
	Canonical string

	// Key is the bibliography key of a DOI or title/author duplicate.
	Key string
}

// Duplicate reports whether any rule matched.
func (d Decision) Duplicate() bool {
	return d.Kind != "" && d.Kind != types.DuplicateNone
}

// Reconciler checks the ledger and bibliography for an existing copy.
type Reconciler struct {
	Ledger  *tracker.Ledger
	Library *bibfile.Library
	Stem    stem.Options
}

// Classify applies the rules in order: content hash, then DOI with a file
// link, then title and author for records without a DOI. name is the
// file's current basename; a hash owned by name itself is not a duplicate.
// rec may be nil to run only the hash rule.
func (r *Reconciler) Classify(name, hash string, rec *types.Record) (Decision, error) {
	if hash != "" && r.Ledger != nil {
		if owner, ok := r.Ledger.HashOwner(hash); ok && !strings.EqualFold(owner, name) {
			return Decision{Kind: types.DuplicateHash, Canonical: owner}, nil
		}
	}
	if rec == nil || r.Library == nil {
		return Decision{Kind: types.DuplicateNone}, nil
	}

	if doi := strings.TrimSpace(rec.ExternalID); doi != "" {
		key, ok, err := r.Library.HasIdentifierWithLink(doi)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return Decision{Kind: types.DuplicateDOI, Key: key}, nil
		}
		return Decision{Kind: types.DuplicateNone}, nil
	}

	key, ok, err := r.Library.FindTitleAuthor(rec.Title, rec.BibTeXAuthors())
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Kind: types.DuplicateTitleAuthor, Key: key}, nil
	}
	return Decision{Kind: types.DuplicateNone}, nil
}

// QuarantineName picks the basename a duplicate gets inside dir. Hash
// duplicates reuse the basename on record; the others get a stem built
// from rec. original is used when neither is available.
func (r *Reconciler) QuarantineName(d Decision, rec *types.Record, dir, original string) (string, error) {
	if d.Kind == types.DuplicateHash {
		if d.Canonical != "" {
			return d.Canonical, nil
		}
		return original, nil
	}
	if rec == nil {
		return original, nil
	}
	s, err := stem.BuildUnique(dir, rec.FirstAuthorFamily(), rec.Year, stem.TitleWords(rec.Title), r.Stem)
	if err != nil {
		return "", err
	}
	return s + ".pdf", nil
}

// Target returns the path MoveInto would use for name inside dir, also
// passing over the lowercase paths in claimed.
func Target(dir, name string, claimed map[string]bool) string {
	ext := filepath.Ext(name)
	return stem.UniquePathExcept(dir, strings.TrimSuffix(name, ext), ext, "", claimed)
}

// MoveInto moves src into dir under name, creating dir as needed. A numeric
// suffix is added when name is taken. It returns the new path.
func MoveInto(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	dest := Target(dir, name, nil)
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", src, dest, err)
	}
	return dest, nil
}
