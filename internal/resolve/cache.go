// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import "github.com/pdiddy/refsync/pkg/types"

// Cache remembers backend responses by backend name and exact query string.
// One Cache belongs to one run; it is not persisted and not safe for
// concurrent use.
type Cache struct {
	entries map[cacheKey][]types.Record
	hits    int
	misses  int
}

type cacheKey struct {
	backend string
	query   string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]types.Record)}
}

// Get returns the cached records for query on backend.
func (c *Cache) Get(backend, query string) ([]types.Record, bool) {
	recs, ok := c.entries[cacheKey{backend, query}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return recs, ok
}

// Put stores records for query on backend. Empty results are cached too.
func (c *Cache) Put(backend, query string, recs []types.Record) {
	c.entries[cacheKey{backend, query}] = recs
}

// Len returns the number of cached queries.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }
