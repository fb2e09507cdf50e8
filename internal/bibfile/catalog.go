// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibfile

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/refsync/internal/textnorm"
)

// catalog indexes entries in an in-memory SQLite database so the duplicate
// checks are plain queries. It is rebuilt from the file on every load.
type catalog struct {
	db *sql.DB
}

func openCatalog() (*catalog, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			doi TEXT,
			title_norm TEXT,
			author_norm TEXT
		)`,
		`CREATE TABLE links (
			key TEXT NOT NULL,
			basename TEXT NOT NULL
		)`,
		`CREATE INDEX idx_entries_key ON entries(key COLLATE NOCASE)`,
		`CREATE INDEX idx_entries_doi ON entries(doi)`,
		`CREATE INDEX idx_links_basename ON links(basename)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating catalog schema: %w", err)
		}
	}
	return &catalog{db: db}, nil
}

func (c *catalog) close() error { return c.db.Close() }

// index adds e to the catalog. With replace set, rows already held for
// e.Key are dropped first.
func (c *catalog) index(e Entry, replace bool) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("indexing %s: %w", e.Key, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.Exec(`DELETE FROM entries WHERE key = ? COLLATE NOCASE`, e.Key); err != nil {
			return fmt.Errorf("indexing %s: %w", e.Key, err)
		}
		if _, err := tx.Exec(`DELETE FROM links WHERE key = ? COLLATE NOCASE`, e.Key); err != nil {
			return fmt.Errorf("indexing %s: %w", e.Key, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO entries (key, doi, title_norm, author_norm) VALUES (?, ?, ?, ?)`,
		e.Key, e.DOI(), textnorm.Title(e.Field("title")), textnorm.Title(e.Field("author")),
	); err != nil {
		return fmt.Errorf("indexing %s: %w", e.Key, err)
	}
	for _, base := range LinkedFiles(e.Field("file")) {
		if _, err := tx.Exec(`INSERT INTO links (key, basename) VALUES (?, ?)`, e.Key, base); err != nil {
			return fmt.Errorf("indexing %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

func (c *catalog) keyByDOI(doi string) (string, bool, error) {
	return c.firstKey(`SELECT key FROM entries WHERE doi = ? ORDER BY seq LIMIT 1`, strings.ToLower(doi))
}

func (c *catalog) linkedKeyByDOI(doi string) (string, bool, error) {
	return c.firstKey(`
		SELECT e.key FROM entries e
		WHERE e.doi = ? AND EXISTS (SELECT 1 FROM links l WHERE l.key = e.key COLLATE NOCASE)
		ORDER BY e.seq LIMIT 1`, strings.ToLower(doi))
}

func (c *catalog) keyByTitleAuthor(title, author string) (string, bool, error) {
	return c.firstKey(
		`SELECT key FROM entries WHERE title_norm = ? AND author_norm = ? ORDER BY seq LIMIT 1`,
		textnorm.Title(title), textnorm.Title(author),
	)
}

func (c *catalog) firstKey(query string, args ...any) (string, bool, error) {
	var key string
	err := c.db.QueryRow(query, args...).Scan(&key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("querying catalog: %w", err)
	}
	return key, true, nil
}

func (c *catalog) basenames() (map[string]bool, error) {
	rows, err := c.db.Query(`SELECT DISTINCT basename FROM links`)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		out[b] = true
	}
	return out, rows.Err()
}

func (c *catalog) keys() (map[string]bool, error) {
	rows, err := c.db.Query(`SELECT key FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		out[strings.ToLower(k)] = true
	}
	return out, rows.Err()
}
