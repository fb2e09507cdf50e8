// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// doiResolverBase is the DOI resolver used for content negotiation.
// Declared as a var so tests can substitute an httptest server.
var doiResolverBase = "https://doi.org"

// DOIClient fetches citation data for a DOI through content negotiation.
type DOIClient struct {
	Client    *http.Client
	UserAgent string
}

// FetchBibTeX returns the BibTeX record the registration agency serves for doi.
func (c *DOIClient) FetchBibTeX(ctx context.Context, doi string) (string, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return "", errors.New("empty DOI")
	}

	var body string
	err := builder(doiResolverBase+"/"+doi, c.Client, c.UserAgent).
		Accept("application/x-bibtex").
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return "", wrapErr("DOI resolver", err)
	}
	return body, nil
}

// NormalizeDOI strips resolver prefixes and whitespace from a DOI. DOIs
// compare case-insensitively, so callers lowercase before comparing.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			doi = doi[len(p):]
			break
		}
	}
	return strings.TrimSpace(doi)
}
