// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/churnlens/internal/domain/segment"
)

// Transaction is one itemized transaction row.
type Transaction struct {
	UserID string
	Type   string // fee schedule key, e.g. "retiro_qr"
	Amount float64
	Count  int
	Month  time.Time
}

// ChurnRecord is one row of the monthly churn table.
type ChurnRecord struct {
	Month        time.Time
	Churn        bool
	Amount       float64
	UserID       string
	DaysInactive float64
	TxCount      float64
	HasTxCount   bool
}

// BaseRecord is the typed projection of one row of the optional base table.
// Nil pointers mark values that were missing or unparseable.
type BaseRecord struct {
	UserID       string
	RecencyDays  *float64
	AmountSum    *float64
	TenureMonths *float64
	TxCount      *float64
	FirstTx      *time.Time
	LastTx       *time.Time
	State        string
	Gender       string
}

// CallRecord is one contact-center call. UserID is empty when the calls
// extract does not carry id_user.
type CallRecord struct {
	Reason     string
	UserID     string
	ReportedAt *time.Time
}

// Agent is one contact-center agent with their case outcomes.
type Agent struct {
	AgentID       string  `json:"agent_id"`
	CasesWon      int     `json:"cases_won"`
	CasesTotal    int     `json:"cases_total"`
	WinRate       float64 `json:"win_rate"`
	BayesianScore float64 `json:"bayesian_score"`
	Rank          int     `json:"rank,omitempty"`
	Band          string  `json:"band,omitempty"`
}

// MonthlyAggregate summarizes one calendar month.
type MonthlyAggregate struct {
	Month       time.Time `json:"month"`
	ChurnRate   float64   `json:"churn_rate"`
	Amount      float64   `json:"amount"`
	TxCount     int       `json:"tx_count"`
	Users       int       `json:"users"`
	ActiveUsers int       `json:"active_users"`
	Revenue     float64   `json:"revenue"`
}

// Customer is the per-user snapshot for the latest month.
type Customer struct {
	UserID           string                `json:"user_id"`
	DaysInactive     float64               `json:"days_inactive"`
	Probability      float64               `json:"churn_probability"`
	Risk             segment.RiskTier      `json:"risk_tier"`
	Activity         segment.ActivityState `json:"activity_state"`
	Segment          segment.ValueSegment  `json:"value_segment"`
	HistoricalAmount float64               `json:"historical_amount"`
	IsChurned        bool                  `json:"is_churned"`
	PriorityScore    int                   `json:"priority_score"`
	Gender           string                `json:"gender,omitempty"`
	State            string                `json:"state,omitempty"`
	LastActivity     *time.Time            `json:"last_activity,omitempty"`
}

// ForecastPoint is one projected month.
type ForecastPoint struct {
	Month                     time.Time `json:"month"`
	Predicted                 float64   `json:"predicted_churn"`
	Upper                     float64   `json:"upper_bound"`
	Lower                     float64   `json:"lower_bound"`
	PredictedWithIntervention float64   `json:"predicted_with_intervention"`
	PredictedRevenue          float64   `json:"predicted_revenue"`
}

// MonthStart truncates t to the first day of its month, in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
