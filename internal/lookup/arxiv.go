// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/refsync/internal/textnorm"
	"github.com/pdiddy/refsync/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv Atom API by title words.
type ArxivBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search returns up to limit preprints whose titles contain the query words.
func (b *ArxivBackend) Search(ctx context.Context, query string, limit int) ([]types.Record, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 1
	}

	var body string
	err := builder(arxivAPIBase, b.Client, b.UserAgent).
		Accept("application/atom+xml").
		Param("search_query", q).
		Param("start", "0").
		ParamInt("max_results", limit).
		Param("sortBy", "relevance").
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, wrapErr("arXiv", err)
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.Record
	for _, item := range feed.Items {
		results = append(results, arxivRecord(item))
	}
	return results, nil
}

func arxivRecord(item *gofeed.Item) types.Record {
	r := types.Record{
		// arXiv wraps long titles across lines.
		Title:  strings.Join(strings.Fields(item.Title), " "),
		URL:    item.Link,
		Kind:   "posted-content",
		Source: "arxiv",
	}
	if item.PublishedParsed != nil {
		r.Year = strconv.Itoa(item.PublishedParsed.Year())
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			r.Authors = append(r.Authors, types.SplitAuthorName(p.Name))
		}
	}
	if arx, ok := item.Extensions["arxiv"]; ok {
		if v := arx["doi"]; len(v) > 0 {
			r.ExternalID = strings.TrimSpace(v[0].Value)
		}
		if v := arx["journal_ref"]; len(v) > 0 {
			r.Venue = strings.TrimSpace(v[0].Value)
		}
	}
	return r
}

// buildArxivQuery requires every normalized query word in the title.
func buildArxivQuery(query string) string {
	words := textnorm.Words(query)
	if len(words) == 0 {
		return ""
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = "ti:" + w
	}
	return strings.Join(parts, " AND ")
}
