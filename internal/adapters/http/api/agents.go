package api

import (
	"bytes"
	"net/http"
)

// AgentsHandler serves the Bayesian agent ranking.
type AgentsHandler struct {
	deps AgentDependencies
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(deps AgentDependencies) *AgentsHandler {
	return &AgentsHandler{deps: deps}
}

// HandleList handles GET /agents?agent_id=&min_win_rate=&max_win_rate=&limit=.
func (h *AgentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_agents"
	if !allow(w, r, http.MethodGet) {
		return
	}
	f, err := parseAgentFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	res, err := h.deps.Agents(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRank handles GET /agents/rank/{id}.
func (h *AgentsHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_agent_rank"
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrBadRequest)
		return
	}
	agent, err := h.deps.AgentRank(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// HandleExport handles GET /agents/export with the /agents filters.
func (h *AgentsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_agents"
	if !allow(w, r, http.MethodGet) {
		return
	}
	f, err := parseAgentFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	var buf bytes.Buffer
	n, err := h.deps.ExportAgents(r.Context(), &buf, f)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeCSV(w, "ranking_agentes.csv", n, buf.Bytes())
}
