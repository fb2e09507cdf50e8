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

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// CrossrefBackend queries the Crossref works API with a bibliographic query.
type CrossrefBackend struct {
	Client *http.Client
	// Mailto is sent as the mailto parameter for polite pool access.
	Mailto    string
	UserAgent string
}

// Name returns the backend identifier.
func (b *CrossrefBackend) Name() string { return "crossref" }

// Search returns up to limit works for query in Crossref's relevance order.
func (b *CrossrefBackend) Search(ctx context.Context, query string, limit int) ([]types.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 3
	}

	var body string
	rb := builder(crossrefAPIBase, b.Client, b.UserAgent).
		Param("query.bibliographic", query).
		ParamInt("rows", limit).
		ToString(&body)
	if b.Mailto != "" {
		rb.Param("mailto", b.Mailto)
	}
	if err := rb.Fetch(ctx); err != nil {
		return nil, wrapErr("Crossref", err)
	}

	return parseCrossrefItems(gjson.Get(body, "message.items")), nil
}

func parseCrossrefItems(items gjson.Result) []types.Record {
	var out []types.Record
	items.ForEach(func(_, item gjson.Result) bool {
		out = append(out, crossrefRecord(item))
		return true
	})
	return out
}

func crossrefRecord(item gjson.Result) types.Record {
	r := types.Record{
		Title:      item.Get("title.0").String(),
		Year:       crossrefYear(item),
		ExternalID: item.Get("DOI").String(),
		Venue:      item.Get("container-title.0").String(),
		Kind:       item.Get("type").String(),
		URL:        item.Get("URL").String(),
		Source:     "crossref",
	}
	for _, a := range item.Get("author").Array() {
		family := a.Get("family").String()
		if family == "" {
			// Organizational authors carry only a name.
			family = a.Get("name").String()
		}
		r.Authors = append(r.Authors, types.Author{Family: family, Given: a.Get("given").String()})
	}
	return r
}

// crossrefYear reads the first date-parts year of the print, online or
// issued date, in that order.
func crossrefYear(item gjson.Result) string {
	for _, k := range []string{"published-print", "published-online", "issued"} {
		y := item.Get(k + ".date-parts.0.0")
		if y.Exists() && y.Int() > 0 {
			return strconv.FormatInt(y.Int(), 10)
		}
	}
	return ""
}
