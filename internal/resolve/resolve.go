// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve matches candidate titles against bibliographic lookup
// services. It merges the primary and secondary results, ranks them with a
// word-overlap score and accepts an exact or prefix title match.
package resolve

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/hbollon/go-edlib"

	"github.com/pdiddy/refsync/internal/httputil"
	"github.com/pdiddy/refsync/internal/lookup"
	"github.com/pdiddy/refsync/internal/textnorm"
	"github.com/pdiddy/refsync/internal/titles"
	"github.com/pdiddy/refsync/pkg/types"
)

// Resolver queries the primary backend, then the secondary one, then any
// extras. Errors from the primary or secondary backend abort the lookup;
// errors from extras are logged and contribute no results.
type Resolver struct {
	Primary   lookup.Backend
	Secondary lookup.Backend
	Extra     []lookup.Backend

	Cache *Cache

	PrimaryRows    int
	SecondaryLimit int

	// SecondaryDelay is slept before every uncached secondary or extra call.
	SecondaryDelay time.Duration

	Logger *log.Logger
}

// New builds a Resolver over the backends in set with a fresh cache.
func New(set lookup.Set, cfg types.LookupConfig, logger *log.Logger) *Resolver {
	return &Resolver{
		Primary:        set.Primary,
		Secondary:      set.Secondary,
		Extra:          set.Extra,
		Cache:          NewCache(),
		PrimaryRows:    cfg.PrimaryRows,
		SecondaryLimit: cfg.SecondaryLimit,
		SecondaryDelay: cfg.SecondaryDelay,
		Logger:         logger,
	}
}

// Near is the closest rejected result of a failed resolution.
type Near struct {
	Title      string  `json:"title"`
	Similarity float32 `json:"similarity"`
}

// Resolve looks up one candidate title and returns the best match, or a
// Match with ConfidenceNone when no result qualifies.
func (r *Resolver) Resolve(ctx context.Context, title, author string) (types.Match, error) {
	m, _, err := r.resolve(ctx, title, author)
	return m, err
}

func (r *Resolver) resolve(ctx context.Context, title, author string) (types.Match, []types.Record, error) {
	norm := textnorm.Title(title)
	if norm == "" {
		return types.Match{Confidence: types.ConfidenceNone}, nil, nil
	}
	author = strings.TrimSpace(author)

	results, err := r.search(ctx, r.Primary, strings.TrimSpace(norm+" "+author), r.PrimaryRows, 0)
	if err != nil {
		return types.Match{}, nil, err
	}

	recs, err := r.search(ctx, r.Secondary, norm, r.SecondaryLimit, r.SecondaryDelay)
	if err != nil {
		return types.Match{}, nil, err
	}
	results = append(results, recs...)

	// Extra backends only supplement the two services above.
	for _, b := range r.Extra {
		recs, err := r.search(ctx, b, norm, r.SecondaryLimit, r.SecondaryDelay)
		if err != nil {
			if ctx.Err() != nil {
				return types.Match{}, nil, ctx.Err()
			}
			r.logger().Warn("optional lookup failed", "backend", b.Name(), "err", err)
			continue
		}
		results = append(results, recs...)
	}

	ranked := Rank(results, norm, author)
	return Decide(ranked, norm), ranked, nil
}

// search consults the cache before calling b. delay is slept only when the
// backend is actually called.
func (r *Resolver) search(ctx context.Context, b lookup.Backend, query string, limit int, delay time.Duration) ([]types.Record, error) {
	if b == nil {
		return nil, nil
	}
	if r.Cache != nil {
		if recs, ok := r.Cache.Get(b.Name(), query); ok {
			r.logger().Debug("lookup cache hit", "backend", b.Name(), "query", query)
			return recs, nil
		}
	}
	if err := httputil.Sleep(ctx, delay); err != nil {
		return nil, err
	}
	recs, err := b.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", b.Name(), err)
	}
	if r.Cache != nil {
		r.Cache.Put(b.Name(), query, recs)
	}
	return recs, nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

// Score counts the distinct words of the normalized candidate longer than
// three characters that occur in the lowercase result title, plus one when
// the candidate author occurs in the result's author list.
func Score(rec types.Record, normTitle, author string) int {
	t := strings.ToLower(rec.Title)
	s := 0
	seen := make(map[string]bool)
	for _, w := range strings.Fields(normTitle) {
		if seen[w] {
			continue
		}
		seen[w] = true
		if utf8.RuneCountInString(w) > 3 && strings.Contains(t, w) {
			s++
		}
	}
	if author != "" && strings.Contains(strings.ToLower(rec.AuthorList()), strings.ToLower(author)) {
		s++
	}
	return s
}

// Rank returns the records sorted by descending Score. Ties keep their
// original order.
func Rank(recs []types.Record, normTitle, author string) []types.Record {
	type scored struct {
		rec   types.Record
		score int
	}
	ss := make([]scored, len(recs))
	for i, rec := range recs {
		ss[i] = scored{rec, Score(rec, normTitle, author)}
	}
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].score > ss[j].score })
	out := make([]types.Record, len(ss))
	for i, s := range ss {
		out[i] = s.rec
	}
	return out
}

// Decide picks the first ranked record whose normalized title equals
// normTitle (exact), else the first whose leading words agree with the
// candidate over the shorter of the two lengths (partial).
func Decide(ranked []types.Record, normTitle string) types.Match {
	for _, rec := range ranked {
		if textnorm.Title(rec.Title) == normTitle {
			return types.Match{Record: rec, Confidence: types.ConfidenceExact}
		}
	}
	cw := strings.Fields(normTitle)
	for _, rec := range ranked {
		rw := textnorm.Words(rec.Title)
		n := min(len(cw), len(rw))
		if n == 0 {
			continue
		}
		if equalWords(cw[:n], rw[:n]) {
			return types.Match{Record: rec, Confidence: types.ConfidencePartial}
		}
	}
	return types.Match{Confidence: types.ConfidenceNone}
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Resolution is the outcome of resolving a list of candidates.
type Resolution struct {
	Match types.Match

	// Query is the candidate text (possibly a multi-line expansion) that
	// produced Match.
	Query     string
	Candidate titles.Candidate

	// Lookups counts the Resolve calls made.
	Lookups int

	// Near is set when nothing matched and at least one result was seen.
	Near *Near
}

// ResolveCandidates tries candidates in order. Metadata and filename
// candidates accept the first exact or partial match. A first-page line
// with only a partial match is retried with its multi-line expansions and
// the first exact match anywhere wins; otherwise the search moves on to the
// next line. When no exact match turns up, the first first-page partial
// match is returned.
func (r *Resolver) ResolveCandidates(ctx context.Context, cands []titles.Candidate, author string) (Resolution, error) {
	var res Resolution
	var fallback *Resolution
	var near *Near

	try := func(q string) (types.Match, error) {
		res.Lookups++
		m, ranked, err := r.resolve(ctx, q, author)
		if err != nil {
			return m, err
		}
		if !m.Found() {
			near = closer(near, q, ranked)
		}
		return m, nil
	}

	for _, c := range cands {
		m, err := try(c.Text)
		if err != nil {
			return res, err
		}
		switch {
		case m.Confidence == types.ConfidenceExact:
			return res.with(m, c, c.Text), nil
		case m.Confidence == types.ConfidencePartial && c.Source != titles.SourceFirstPage:
			return res.with(m, c, c.Text), nil
		case m.Confidence != types.ConfidencePartial:
			continue
		}

		for _, exp := range c.Expansions {
			em, err := try(exp)
			if err != nil {
				return res, err
			}
			if em.Confidence == types.ConfidenceExact {
				return res.with(em, c, exp), nil
			}
		}
		if fallback == nil {
			fb := res.with(m, c, c.Text)
			fallback = &fb
		}
	}

	if fallback != nil {
		fallback.Lookups = res.Lookups
		return *fallback, nil
	}
	res.Match = types.Match{Confidence: types.ConfidenceNone}
	res.Near = near
	if near != nil {
		r.logger().Debug("closest rejected title", "title", near.Title, "similarity", fmt.Sprintf("%.2f", near.Similarity))
	}
	return res, nil
}

func (res Resolution) with(m types.Match, c titles.Candidate, q string) Resolution {
	res.Match = m
	res.Candidate = c
	res.Query = q
	return res
}

// closer returns whichever of cur and the best record in ranked is more
// similar to query by Jaro-Winkler distance over normalized titles.
func closer(cur *Near, query string, ranked []types.Record) *Near {
	nq := textnorm.Title(query)
	for _, rec := range ranked {
		sim, err := edlib.StringsSimilarity(nq, textnorm.Title(rec.Title), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if cur == nil || sim > cur.Similarity {
			cur = &Near{Title: rec.Title, Similarity: sim}
		}
	}
	return cur
}
