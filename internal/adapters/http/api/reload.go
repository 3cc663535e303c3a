package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/churnlens/pkg/logger"
)

// Reloader rebuilds the dataset from its sources.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadHandler triggers a synchronous dataset rebuild.
type ReloadHandler struct {
	deps Reloader
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps Reloader) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

type reloadResponse struct {
	Status   string `json:"status"`
	Duration string `json:"duration"`
}

// HandleReload handles POST /reload. On failure the previous dataset stays
// published and the load error is returned.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reload"
	if !allow(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	if err := h.deps.Reload(r.Context()); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	took := time.Since(start)
	logger.Get().Info(r.Context(), "dataset reloaded on request", logger.Duration("took", took))
	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Duration: took.String()})
}
