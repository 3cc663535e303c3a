package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/churnlens/internal/adapters/repository"
	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotReady   = errors.New("dataset not loaded")
)

// Machine-readable codes carried in error bodies.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeEmptyHistory     = "empty_history"
	codeLoadFailed       = "load_failed"
	codeNotReady         = "not_ready"
	codeCanceled         = "canceled"
	codeInternal         = "internal_error"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes an error body; a nil err uses the status text.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and domain errors onto status codes.
// Unmapped errors are logged with op and answered with a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err)
	case errors.Is(err, forecast.ErrInvalidParams), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
	case errors.Is(err, forecast.ErrEmptyHistory):
		writeError(w, http.StatusUnprocessableEntity, codeEmptyHistory, err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, repository.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, codeNotReady, ErrNotReady)
	case errors.Is(err, service.ErrLoad):
		writeError(w, http.StatusUnprocessableEntity, codeLoadFailed, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, codeCanceled, err)
	default:
		logger.Get().Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, err)
	}
}
