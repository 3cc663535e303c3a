// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/domain/filter"
	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	AnalyticsDependencies
	CustomerDependencies
	AgentDependencies
	Reload(ctx context.Context) error
}

// AnalyticsDependencies serve the overview, history, forecast and reasons.
type AnalyticsDependencies interface {
	Overview(ctx context.Context, f service.HistoryFilter) (service.Overview, error)
	History(ctx context.Context, f service.HistoryFilter) (service.HistoryResult, error)
	Forecast(ctx context.Context, p forecast.Params) (forecast.Result, error)
	Reasons(ctx context.Context, limit int) ([]service.Reason, error)
}

// CustomerDependencies serve the prioritized customer views.
type CustomerDependencies interface {
	Customers(ctx context.Context, set filter.Set) (service.CustomersResult, error)
	Customer(ctx context.Context, userID string) (model.Customer, error)
	ExportCustomers(ctx context.Context, w io.Writer, set filter.Set) (int, error)
}

// AgentDependencies serve the agent ranking.
type AgentDependencies interface {
	Agents(ctx context.Context, f ranking.Filter) (service.AgentsResult, error)
	AgentRank(ctx context.Context, agentID string) (model.Agent, error)
	ExportAgents(ctx context.Context, w io.Writer, f ranking.Filter) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	analyticsHandler *AnalyticsHandler
	customersHandler *CustomersHandler
	agentsHandler    *AgentsHandler
	reloadHandler    *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(statsProvider),
		statsHandler:     NewStatsHandler(statsProvider),
		analyticsHandler: NewAnalyticsHandler(deps),
		customersHandler: NewCustomersHandler(deps),
		agentsHandler:    NewAgentsHandler(deps),
		reloadHandler:    NewReloadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/overview", MetricsMiddleware(s.analyticsHandler.HandleOverview, "overview"))
	mux.HandleFunc("/history", MetricsMiddleware(s.analyticsHandler.HandleHistory, "history"))
	mux.HandleFunc("/forecast", MetricsMiddleware(s.analyticsHandler.HandleForecast, "forecast"))
	mux.HandleFunc("/reasons", MetricsMiddleware(s.analyticsHandler.HandleReasons, "reasons"))
	mux.HandleFunc("/customers", MetricsMiddleware(s.customersHandler.HandleList, "customers"))
	mux.HandleFunc("/customers/export", MetricsMiddleware(s.customersHandler.HandleExport, "customers_export"))
	mux.HandleFunc("/customers/{id}", MetricsMiddleware(s.customersHandler.HandleGet, "customer"))
	mux.HandleFunc("/agents", MetricsMiddleware(s.agentsHandler.HandleList, "agents"))
	mux.HandleFunc("/agents/export", MetricsMiddleware(s.agentsHandler.HandleExport, "agents_export"))
	mux.HandleFunc("/agents/rank/{id}", MetricsMiddleware(s.agentsHandler.HandleRank, "agent_rank"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandleReload, "reload"))
}

// writeJSON encodes v before touching the response, so an unencodable
// value turns into a 500 rather than a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Get().Error(context.Background(), "encode response", logger.Int("status", status), logger.Error(err))
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Code: codeInternal, Message: "response could not be encoded"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// allow reports whether the request method is method; otherwise it writes
// a 405 and returns false.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
	return false
}
