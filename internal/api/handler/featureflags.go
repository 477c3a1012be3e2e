package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/envlake/envlake/internal/api/response"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/worker"
)

// FeatureFlagsHandler manages the per-source ingestion gates.
type FeatureFlagsHandler struct {
	flags *featureflags.Service
	repo  featureflags.Repository
}

// NewFeatureFlagsHandler creates a new feature flags handler.
func NewFeatureFlagsHandler(flags *featureflags.Service, repo featureflags.Repository) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{flags: flags, repo: repo}
}

// ListFlags handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		response.ServiceUnavailable(w, r, "feature flags are not configured")
		return
	}

	flags, err := h.repo.GetAllFlags(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to list feature flags")
		return
	}
	response.JSON(w, r, http.StatusOK, flags)
}

type sourceGateRequest struct {
	Disabled *bool `json:"disabled"`
}

// SetSourceGate handles PUT /v1/admin/feature-flags/sources/{source}.
func (h *FeatureFlagsHandler) SetSourceGate(w http.ResponseWriter, r *http.Request) {
	if h.flags == nil {
		response.ServiceUnavailable(w, r, "feature flags are not configured")
		return
	}

	source := chi.URLParam(r, "source")
	if !knownSources[source] || source == worker.SourceAll {
		response.BadRequest(w, r, "unknown source: "+source)
		return
	}

	var req sourceGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Disabled == nil {
		response.BadRequest(w, r, `body must be {"disabled": true|false}`)
		return
	}

	if err := h.flags.SetSourceDisabled(r.Context(), source, *req.Disabled); err != nil {
		response.InternalError(w, r, "failed to update source gate")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"source":   source,
		"disabled": *req.Disabled,
	})
}
