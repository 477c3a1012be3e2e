package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envlake/envlake/internal/config"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/runlog"
	"github.com/envlake/envlake/internal/worker"
)

func newTestRouter(t *testing.T) (*httptest.Server, runlog.Repository) {
	t.Helper()

	history := runlog.NewMemoryRepository()
	flagsRepo := featureflags.NewMemoryRepository()
	flags := featureflags.NewService(featureflags.ServiceConfig{Repository: flagsRepo, Logger: zerolog.Nop()})

	// No bucket configured: triggered runs fail fast with a 500 result,
	// which is enough to exercise the HTTP surface without upstreams.
	runner := worker.NewRunner(worker.RunnerConfig{
		Config:   &config.Config{},
		Jobs:     map[string]worker.Job{},
		Flags:    flags,
		History:  history,
		Logger:   zerolog.Nop(),
		NewRunID: func() string { return "run-router-test" },
	})

	router := NewRouter(RouterConfig{
		Version:   "test",
		BuildTime: "now",
		Logger:    zerolog.Nop(),
		Runner:    runner,
		History:   history,
		Flags:     flags,
		FlagsRepo: flagsRepo,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, history
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/v1/ops/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestTriggerRunUnknownSource(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Post(srv.URL+"/v1/ingest/moon-phase", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestTriggerRunInvalidConfigReturns500Result(t *testing.T) {
	srv, history := newTestRouter(t)

	resp, err := http.Post(srv.URL+"/v1/ingest/ecdc", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The rejected run is still recorded.
	entry, err := history.Get(context.Background(), "run-router-test")
	require.NoError(t, err)
	assert.Equal(t, 500, entry.StatusCode)
	assert.Equal(t, config.ErrMissingBucket.Error(), entry.Message)
}

func TestListRunsEmpty(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/v1/runs/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/v1/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSourceGateRoundTrip(t *testing.T) {
	srv, _ := newTestRouter(t)

	body := strings.NewReader(`{"disabled": true}`)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/admin/feature-flags/sources/openaq", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	list, err := http.Get(srv.URL + "/v1/admin/feature-flags/")
	require.NoError(t, err)
	defer list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)
}

func TestTriggerRateLimit(t *testing.T) {
	srv, _ := newTestRouter(t)

	// The trigger tier allows 6 requests per minute per IP.
	var last int
	for i := 0; i < 8; i++ {
		resp, err := http.Post(srv.URL+"/v1/ingest/ecdc", "application/json", nil)
		require.NoError(t, err)
		last = resp.StatusCode
		resp.Body.Close()
		if last == http.StatusTooManyRequests {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
