package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envlake/envlake/internal/provider/resilience"
)

func newTestClient(maxAttempts uint64, onRetry func(error, time.Duration)) *resilience.Client {
	return resilience.NewClient(resilience.ClientConfig{
		Name:        "test",
		Timeout:     5 * time.Second,
		MaxAttempts: maxAttempts,
		Backoff:     time.Millisecond,
		OnRetry:     onRetry,
	})
}

func TestClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(3, nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_RetriesThrottlingWithLinearBackoff(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// 429, 429, then 200.
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := newTestClient(3, func(_ error, next time.Duration) {
		sleeps = append(sleeps, next)
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int64(3), calls.Load())
	require.Len(t, sleeps, 2)
	assert.GreaterOrEqual(t, sleeps[1], sleeps[0], "backoff must not decrease")
}

func TestClient_ThrottlingExhaustsAttempts(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(3, nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req) //nolint:bodyclose // error path returns nil response
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, int64(3), calls.Load())

	var throttled *resilience.ThrottledError
	assert.True(t, errors.As(err, &throttled))
}

func TestClient_NonThrottlingStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(3, nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req) //nolint:bodyclose // error path returns nil response
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")

	var apiErr *resilience.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{
		Name:        "test",
		MaxAttempts: 10,
		Backoff:     50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req) //nolint:bodyclose // error path returns nil response
	require.Error(t, err)
}
