package csvio

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/priority"
)

// CustomerHeader is the column layout of customer exports.
var CustomerHeader = []string{
	"id_user", "dias_sin_actividad", "probabilidad_churn", "nivel_riesgo", "estado_actividad",
	"segmento", "monto_historico", "churneado", "prioridad", "accion_sugerida", "genero", "estado", "ultima_actividad",
}

// AgentHeader is the column layout of agent exports.
var AgentHeader = []string{
	"ranking", "id_agente", "casos_ganados", "total_casos", "winrate", "score_bayesiano", "banda",
}

// WriteCustomers writes customers as CSV, header first.
func WriteCustomers(w io.Writer, customers []model.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CustomerHeader); err != nil {
		return err
	}
	for _, c := range customers {
		last := ""
		if c.LastActivity != nil {
			last = c.LastActivity.Format(time.DateOnly)
		}
		rec := []string{
			c.UserID,
			formatFloat(c.DaysInactive, 0),
			formatFloat(c.Probability, 4),
			c.Risk.String(),
			c.Activity.String(),
			c.Segment.String(),
			formatFloat(c.HistoricalAmount, 2),
			strconv.FormatBool(c.IsChurned),
			strconv.Itoa(c.PriorityScore),
			priority.SuggestedAction(c.Risk),
			c.Gender,
			c.State,
			last,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAgents writes ranked agents as CSV, header first.
func WriteAgents(w io.Writer, agents []model.Agent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AgentHeader); err != nil {
		return err
	}
	for _, a := range agents {
		rec := []string{
			strconv.Itoa(a.Rank),
			a.AgentID,
			strconv.Itoa(a.CasesWon),
			strconv.Itoa(a.CasesTotal),
			formatFloat(a.WinRate, 2),
			formatFloat(a.BayesianScore, 2),
			a.Band,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
