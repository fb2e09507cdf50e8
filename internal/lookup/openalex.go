// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/refsync/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex works search.
type OpenAlexBackend struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email     string
	UserAgent string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search returns up to limit works for query.
func (b *OpenAlexBackend) Search(ctx context.Context, query string, limit int) ([]types.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit = min(max(limit, 1), 200)

	var body string
	rb := builder(openAlexSearchBase, b.Client, b.UserAgent).
		Param("search", query).
		ParamInt("per-page", limit).
		ToString(&body)
	if b.Email != "" {
		rb.Param("mailto", b.Email)
	}
	if err := rb.Fetch(ctx); err != nil {
		return nil, wrapErr("OpenAlex", err)
	}

	var out []types.Record
	gjson.Get(body, "results").ForEach(func(_, w gjson.Result) bool {
		out = append(out, openAlexRecord(w))
		return true
	})
	return out, nil
}

func openAlexRecord(w gjson.Result) types.Record {
	title := w.Get("title").String()
	if title == "" {
		title = w.Get("display_name").String()
	}
	r := types.Record{
		Title: title,
		// OpenAlex DOIs are URLs; keep the bare identifier.
		ExternalID: strings.TrimPrefix(w.Get("doi").String(), "https://doi.org/"),
		Venue:      w.Get("primary_location.source.display_name").String(),
		Kind:       openAlexKind(w.Get("type").String()),
		URL:        w.Get("id").String(),
		Source:     "openalex",
	}
	if y := w.Get("publication_year").Int(); y > 0 {
		r.Year = strconv.FormatInt(y, 10)
	}
	for _, a := range w.Get("authorships.#.author.display_name").Array() {
		if name := a.String(); name != "" {
			r.Authors = append(r.Authors, types.SplitAuthorName(name))
		}
	}
	return r
}

// openAlexKind maps OpenAlex work types onto the Crossref vocabulary used
// elsewhere.
func openAlexKind(t string) string {
	switch t {
	case "article":
		return "journal-article"
	case "preprint":
		return "posted-content"
	default:
		return t
	}
}
