// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/internal/logging"
)

func init() {
	// Use a tiny delay so tests finish quickly.
	RetryDelay = 1 * time.Millisecond
}

func quietLogger() logrus.FieldLogger {
	return logging.Discard()
}

func countingServer(t *testing.T, calls *int32, handler func(n int32, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler(atomic.AddInt32(calls, 1), w)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDoWithRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, attempts, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{MaxAttempts: 3}, quietLogger())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_RetriesThen200(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(n int32, w http.ResponseWriter) {
		if n <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, attempts, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{MaxAttempts: 3}, quietLogger())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestDoWithRetry_ExhaustsAttempts(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, attempts, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{MaxAttempts: 4}, quietLogger())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_DefaultMaxAttempts(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, _, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{}, quietLogger())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_PermanentStatusNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls int32
			ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
				w.WriteHeader(status)
			})

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, attempts, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{MaxAttempts: 3}, quietLogger())
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, 1, attempts)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, attempts, err := DoWithRetry(context.Background(), http.DefaultClient, req, Policy{MaxAttempts: 2}, quietLogger())
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 2, attempts)
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})

	// Use a longer delay so the context cancels during the wait.
	old := RetryDelay
	RetryDelay = 500 * time.Millisecond
	defer func() { RetryDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, _, err = DoWithRetry(ctx, ts.Client(), req, Policy{MaxAttempts: 5}, quietLogger())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_PolicyDelay(t *testing.T) {
	var calls int32
	ts := countingServer(t, &calls, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, attempts, err := DoWithRetry(context.Background(), ts.Client(), req, Policy{MaxAttempts: 3, Delay: 20 * time.Millisecond}, quietLogger())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 3, attempts)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 502, URL: "http://example.com/x"}
	assert.Equal(t, "HTTP 502 from http://example.com/x", err.Error())
}
