// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/refsync/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,year,externalIds,url,venue"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search returns up to limit papers for query. A non-transient error status
// (anything but 429 and 5xx, which the client retries) yields no results
// rather than an error.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 1
	}

	var sr semanticResponse
	rb := builder(semanticAPIBase, b.Client, b.UserAgent).
		Param("query", query).
		Param("fields", semanticFields).
		ParamInt("limit", limit).
		ToJSON(&sr)
	if b.APIKey != "" {
		rb.Header("x-api-key", b.APIKey)
	}
	if err := rb.Fetch(ctx); err != nil {
		if code := StatusCode(err); code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return nil, nil
		}
		return nil, wrapErr("Semantic Scholar", err)
	}

	results := make([]types.Record, 0, len(sr.Data))
	for _, p := range sr.Data {
		results = append(results, p.record())
	}
	return results, nil
}

// record maps a paper to the common shape: authors split on whitespace
// with the last token as family name and the year as a string.
func (p semanticPaper) record() types.Record {
	r := types.Record{
		Title:      p.Title,
		ExternalID: p.ExternalIDs.DOI,
		Venue:      p.Venue,
		URL:        p.URL,
		Source:     "semantic_scholar",
	}
	if p.Year > 0 {
		r.Year = strconv.Itoa(p.Year)
	}
	for _, a := range p.Authors {
		r.Authors = append(r.Authors, types.SplitAuthorName(a.Name))
	}
	return r
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Year        int                 `json:"year"`
	Venue       string              `json:"venue"`
	URL         string              `json:"url"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
