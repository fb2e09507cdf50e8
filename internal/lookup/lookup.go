// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup queries bibliographic services for works matching a free
// text query and normalizes every response to types.Record.
//
// Crossref is the primary service. Semantic Scholar, OpenAlex and arXiv are
// optional secondaries with their own response shapes.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/charmbracelet/log"

	"github.com/pdiddy/refsync/internal/httputil"
	"github.com/pdiddy/refsync/pkg/types"
)

// Backend searches a single bibliographic service.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.Record, error)
}

var (
	// ErrEmptyQuery is returned by every backend for a blank query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrBackend marks a failed request to a lookup service.
	ErrBackend = errors.New("lookup backend failed")
)

// Set holds the configured backends in query order.
type Set struct {
	Primary   Backend
	Secondary Backend
	Extra     []Backend
	DOI       *DOIClient
}

// NewSet builds the backends enabled in cfg. Each backend gets its own HTTP
// client so rate limits apply per service.
func NewSet(cfg types.LookupConfig, logger *log.Logger) Set {
	client := func() *http.Client {
		return httputil.NewClient(httputil.ClientOptions{
			Timeout:           cfg.Timeout,
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       cfg.MaxAttempts,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            logger,
		})
	}

	s := Set{
		Primary: &CrossrefBackend{Client: client(), Mailto: cfg.Mailto, UserAgent: cfg.UserAgent},
	}
	if cfg.EnableSemanticScholar {
		s.Secondary = &SemanticScholarBackend{Client: client(), APIKey: cfg.SemanticScholarAPIKey, UserAgent: cfg.UserAgent}
	}
	if cfg.EnableOpenAlex {
		s.Extra = append(s.Extra, &OpenAlexBackend{Client: client(), Email: cfg.Mailto, UserAgent: cfg.UserAgent})
	}
	if cfg.EnableArxiv {
		s.Extra = append(s.Extra, &ArxivBackend{Client: client(), UserAgent: cfg.UserAgent})
	}
	if cfg.FetchBibTeX {
		s.DOI = &DOIClient{Client: client(), UserAgent: cfg.UserAgent}
	}
	return s
}

// StatusCode extracts the HTTP status from a failed request, or 0 when the
// failure was not an HTTP status error.
func StatusCode(err error) int {
	var re *requests.ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func wrapErr(service string, err error) error {
	if code := StatusCode(err); code != 0 {
		return fmt.Errorf("%w: %s returned HTTP %d: %w", ErrBackend, service, code, err)
	}
	return fmt.Errorf("%w: %s request: %w", ErrBackend, service, err)
}

// builder starts a request with the headers every backend sends.
func builder(base string, client *http.Client, ua string) *requests.Builder {
	rb := requests.URL(base).Accept("application/json")
	if client != nil {
		rb.Client(client)
	}
	if ua != "" {
		rb.UserAgent(ua)
	}
	return rb
}
