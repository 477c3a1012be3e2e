package handler

import (
	"net/http"

	"github.com/envlake/envlake/internal/api/response"
)

// OpsHandler serves operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
}

// NewOpsHandler creates a new ops handler.
func NewOpsHandler(version, buildTime string) *OpsHandler {
	return &OpsHandler{version: version, buildTime: buildTime}
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service has no warm-up
// phase; readiness matches liveness.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}
