// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// RateLimitTransport waits on limiter before every request sent through rt.
// A nil limiter disables limiting.
func RateLimitTransport(limiter *rate.Limiter, rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if limiter == nil {
		return rt
	}
	return requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		return rt.RoundTrip(req)
	})
}

// UserAgentTransport sets the User-Agent header on requests that lack one.
func UserAgentTransport(ua string, rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if ua == "" {
		return rt
	}
	return requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("User-Agent") == "" {
			req = req.Clone(req.Context())
			req.Header.Set("User-Agent", ua)
		}
		return rt.RoundTrip(req)
	})
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds each attempt, not the request as a whole.
	Timeout     time.Duration
	UserAgent   string
	MaxAttempts int

	// RequestsPerSecond caps the request rate; zero or less means unlimited.
	RequestsPerSecond float64

	// Base is the innermost transport, http.DefaultTransport when nil.
	Base   http.RoundTripper
	Logger *log.Logger
}

// NewClient returns a client whose transport applies, from the outside in,
// the user agent, the retry policy and the rate limit. Each backend gets its
// own client so limits are per service.
func NewClient(opts ClientOptions) *http.Client {
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	rt := RateLimitTransport(limiter, opts.Base)
	rt = &RetryTransport{Base: rt, MaxAttempts: opts.MaxAttempts, AttemptTimeout: opts.Timeout, Logger: opts.Logger}
	rt = UserAgentTransport(opts.UserAgent, rt)
	return &http.Client{Transport: rt}
}
