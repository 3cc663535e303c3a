package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/churnlens/pkg/metrics"
)

// HealthHandler serves the liveness probe, which is the Prometheus
// registry, and the readiness probe, which reports whether a dataset is
// published.
type HealthHandler struct {
	metrics http.Handler
	stats   StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:   stats,
	}
}

// HandleHealth handles GET /healthz by serving the service metrics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

type readyResponse struct {
	Status    string `json:"status"`
	DatasetID string `json:"datasetId,omitempty"`
}

// HandleReady handles GET /readyz: 200 once the service is started with a
// published dataset, 503 before.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	stats := h.stats.GetStats()
	started, _ := stats["started"].(bool)
	id, _ := stats["datasetId"].(string)
	if !started || id == "" {
		writeError(w, http.StatusServiceUnavailable, codeNotReady, ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready", DatasetID: id})
}
