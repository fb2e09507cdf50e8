// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by the lookup backends:
// bounded retries on transient failures and per-backend rate limiting.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// RetryBaseDelay is the first backoff delay. Each further attempt doubles
// it up to RetryMaxDelay. Tests override both to avoid real sleeps.
var (
	RetryBaseDelay = 1 * time.Second
	RetryMaxDelay  = 6 * time.Second
)

// DefaultMaxAttempts is the number of attempts per request, first try included.
const DefaultMaxAttempts = 3

// ErrRetriesExhausted wraps the last failure once every attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Transient reports whether a response status is worth retrying: 429 and
// every 5xx.
func Transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Backoff returns the delay before retry number attempt (0-based).
func Backoff(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < attempt && d < RetryMaxDelay; i++ {
		d *= 2
	}
	return min(d, RetryMaxDelay)
}

// RetryTransport is an http.RoundTripper that retries network errors and
// transient statuses with bounded exponential backoff. After MaxAttempts
// failures it returns an error wrapping ErrRetriesExhausted; non-transient
// responses pass through untouched.
//
// AttemptTimeout bounds each attempt on its own, body read included. An
// attempt that runs out of time is retried like any network error; only
// cancellation of the request's own context stops the loop early.
type RetryTransport struct {
	Base           http.RoundTripper
	MaxAttempts    int
	AttemptTimeout time.Duration
	Logger         *log.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	ctx := req.Context()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			if t.Logger != nil {
				t.Logger.Debug("retrying request", "url", req.URL.Redacted(), "attempt", attempt+1, "of", attempts, "wait", wait, "err", lastErr)
			}
			if err := Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		r, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}
		cancel := context.CancelFunc(func() {})
		if t.AttemptTimeout > 0 {
			var actx context.Context
			actx, cancel = context.WithTimeout(ctx, t.AttemptTimeout)
			r = r.WithContext(actx)
		}
		resp, err := base.RoundTrip(r)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		if !Transient(resp.StatusCode) {
			return resp, nil
		}

		lastErr = fmt.Errorf("%s returned HTTP %d", req.URL.Host, resp.StatusCode)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// cancelBody releases the attempt's context once the caller is done with
// the response.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// rewind returns a request whose body can be sent again.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// Sleep pauses for d, returning early with ctx.Err() if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
