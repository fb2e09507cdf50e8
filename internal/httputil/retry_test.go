// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	// Use tiny delays so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
	RetryMaxDelay = 4 * time.Millisecond
}

func countingServer(t *testing.T, status func(n int32) int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(status(n))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

// send issues a GET to url through a RetryTransport over the default transport.
func send(ctx context.Context, t *testing.T, url string, attempts int) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	client := &http.Client{Transport: &RetryTransport{MaxAttempts: attempts}}
	return client.Do(req)
}

func TestRetryTransport_ImmediateSuccess(t *testing.T) {
	ts, calls := countingServer(t, func(int32) int { return http.StatusOK })

	resp, err := send(context.Background(), t, ts.URL, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetryTransport_TransientThen200(t *testing.T) {
	ts, calls := countingServer(t, func(n int32) int {
		switch n {
		case 1:
			return http.StatusTooManyRequests
		case 2:
			return http.StatusBadGateway
		}
		return http.StatusOK
	})

	resp, err := send(context.Background(), t, ts.URL, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestRetryTransport_ExhaustsAttempts(t *testing.T) {
	ts, calls := countingServer(t, func(int32) int { return http.StatusServiceUnavailable })

	_, err := send(context.Background(), t, ts.URL, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestRetryTransport_DefaultAttempts(t *testing.T) {
	ts, calls := countingServer(t, func(int32) int { return http.StatusTooManyRequests })

	_, err := send(context.Background(), t, ts.URL, 0)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(DefaultMaxAttempts), atomic.LoadInt32(calls))
}

func TestRetryTransport_ClientErrorPassesThrough(t *testing.T) {
	ts, calls := countingServer(t, func(int32) int { return http.StatusNotFound })

	resp, err := send(context.Background(), t, ts.URL, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetryTransport_NetworkErrorRetried(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := send(context.Background(), t, url, 2)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestRetryTransport_ContextCancelled(t *testing.T) {
	ts, _ := countingServer(t, func(int32) int { return http.StatusTooManyRequests })

	// Use a longer base delay so the context cancels during the wait.
	oldBase, oldMax := RetryBaseDelay, RetryMaxDelay
	RetryBaseDelay, RetryMaxDelay = 500*time.Millisecond, time.Second
	defer func() { RetryBaseDelay, RetryMaxDelay = oldBase, oldMax }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := send(ctx, t, ts.URL, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_StalledAttemptRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-time.After(300 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ClientOptions{Timeout: 100 * time.Millisecond, MaxAttempts: 3})
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewClient_EveryAttemptStalls(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	client := NewClient(ClientOptions{Timeout: 50 * time.Millisecond, MaxAttempts: 2})
	_, err := client.Get(ts.URL)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBackoff(t *testing.T) {
	oldBase, oldMax := RetryBaseDelay, RetryMaxDelay
	RetryBaseDelay, RetryMaxDelay = time.Second, 6*time.Second
	defer func() { RetryBaseDelay, RetryMaxDelay = oldBase, oldMax }()

	assert.Equal(t, 1*time.Second, Backoff(0))
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 6*time.Second, Backoff(3))
	assert.Equal(t, 6*time.Second, Backoff(40))
}

func TestTransient(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		assert.True(t, Transient(s), "%d", s)
	}
	for _, s := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, Transient(s), "%d", s)
	}
}

func TestNewClient_SetsUserAgentAndRetries(t *testing.T) {
	var calls int32
	var ua atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ClientOptions{Timeout: 5 * time.Second, UserAgent: "refsync-test/1", MaxAttempts: 3, RequestsPerSecond: 1000})
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "refsync-test/1", ua.Load())
}

func TestRateLimitTransport_CancelledContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow()) // drain the single token

	rt := RateLimitTransport(limiter, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.Error(t, err)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
