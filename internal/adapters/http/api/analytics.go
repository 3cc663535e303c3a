package api

import (
	"net/http"
)

// AnalyticsHandler serves the series views: overview KPIs, monthly
// history, forecast and contact reasons.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleOverview handles GET /overview?from=&to=&analysis=&amount_min=&amount_max=.
func (h *AnalyticsHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_overview"
	if !allow(w, r, http.MethodGet) {
		return
	}
	f, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	ov, err := h.deps.Overview(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// HandleHistory handles GET /history with the same filters as /overview.
func (h *AnalyticsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if !allow(w, r, http.MethodGet) {
		return
	}
	f, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	res, err := h.deps.History(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleForecast handles GET /forecast?horizon=&scenario=&window=&recent_weight=&intervention=.
func (h *AnalyticsHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_forecast"
	if !allow(w, r, http.MethodGet) {
		return
	}
	p, err := parseForecastParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	res, err := h.deps.Forecast(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleReasons handles GET /reasons?limit=N.
func (h *AnalyticsHandler) HandleReasons(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_reasons"
	if !allow(w, r, http.MethodGet) {
		return
	}
	limit, err := parseReasonsLimit(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	reasons, err := h.deps.Reasons(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reasons)
}
