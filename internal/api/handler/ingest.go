// Package handler implements the HTTP handlers of the ingestion API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/envlake/envlake/internal/api/response"
	"github.com/envlake/envlake/internal/runlog"
	"github.com/envlake/envlake/internal/worker"
)

// knownSources are the source names the trigger endpoint accepts.
var knownSources = map[string]bool{
	worker.SourceOpenAQ:   true,
	worker.SourceECDC:     true,
	worker.SourceEurostat: true,
	worker.SourceWHO:      true,
	worker.SourceAll:      true,
}

// IngestHandler triggers ingestion runs and serves the run history.
type IngestHandler struct {
	runner  *worker.Runner
	history runlog.Repository
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(runner *worker.Runner, history runlog.Repository) *IngestHandler {
	return &IngestHandler{runner: runner, history: history}
}

// TriggerRun handles POST /v1/runs/{source}. The run executes
// synchronously; the response carries the full run result and mirrors
// its status code.
func (h *IngestHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if !knownSources[source] {
		response.BadRequest(w, r, "unknown source: "+source)
		return
	}

	result := h.runner.Run(r.Context(), source)
	response.JSON(w, r, result.StatusCode, result)
}

// ListRuns handles GET /v1/runs. Optional query parameters: source
// filters by source name, limit caps the result count (default 20).
func (h *IngestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.ServiceUnavailable(w, r, "run history is not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.history.Latest(r.Context(), r.URL.Query().Get("source"), limit)
	if err != nil {
		response.InternalError(w, r, "failed to list runs")
		return
	}
	if entries == nil {
		entries = []*runlog.Entry{}
	}
	response.JSON(w, r, http.StatusOK, entries)
}

// GetRun handles GET /v1/runs/{runId}.
func (h *IngestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.ServiceUnavailable(w, r, "run history is not configured")
		return
	}

	entry, err := h.history.Get(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		if errors.Is(err, runlog.ErrRunNotFound) {
			response.NotFound(w, r, "run not found")
			return
		}
		response.InternalError(w, r, "failed to load run")
		return
	}
	response.JSON(w, r, http.StatusOK, entry)
}
