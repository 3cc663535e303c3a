package service

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/types"
)

// Analysis restricts the history to a subset of churn rows.
type Analysis string

const (
	AnalysisAll     Analysis = "all"
	AnalysisChurned Analysis = "churned"
	AnalysisActive  Analysis = "active"
)

// HistoryFilter narrows the churn rows before they are aggregated by
// month. Zero values are pass-through.
type HistoryFilter struct {
	From     *time.Time
	To       *time.Time
	Analysis Analysis
	Amount   *types.Range
}

// Empty reports whether f keeps every row.
func (f HistoryFilter) Empty() bool {
	return f.From == nil && f.To == nil && (f.Analysis == "" || f.Analysis == AnalysisAll) && f.Amount.Empty()
}

func (f HistoryFilter) keep(r model.ChurnRecord) bool {
	if f.From != nil && r.Month.Before(model.MonthStart(*f.From)) {
		return false
	}
	if f.To != nil && r.Month.After(model.MonthStart(*f.To)) {
		return false
	}
	switch f.Analysis {
	case AnalysisChurned:
		if !r.Churn {
			return false
		}
	case AnalysisActive:
		if r.Churn {
			return false
		}
	}
	return f.Amount.Contains(r.Amount)
}

// HistoryResult is the monthly series for one filter.
type HistoryResult struct {
	Months   []model.MonthlyAggregate `json:"months"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// History recomputes the monthly aggregates over the rows kept by f. An
// empty match is not an error; it yields no months and a warning.
func History(ds *model.Dataset, f HistoryFilter) HistoryResult {
	if f.Empty() {
		return HistoryResult{Months: ds.Monthly}
	}
	var kept []model.ChurnRecord
	for _, r := range ds.Churn {
		if f.keep(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return HistoryResult{Months: []model.MonthlyAggregate{}, Warnings: []string{"no churn rows match the selected filters"}}
	}
	return HistoryResult{Months: Aggregate(kept, AggregateInputs{Base: ds.Base, Transactions: ds.Transactions})}
}

// riskAtRiskFloor is the lowest tier counted as at risk in the KPIs.
const riskAtRiskFloor = segment.RiskAlto

// Overview holds the headline KPIs of the latest month in a series.
type Overview struct {
	Month             time.Time `json:"month"`
	ChurnRate         float64   `json:"churn_rate"`
	ChurnRateDelta    float64   `json:"churn_rate_delta"`
	Revenue           float64   `json:"revenue"`
	RevenueDeltaPct   float64   `json:"revenue_delta_pct"`
	ActiveUsers       int       `json:"active_users"`
	ActiveUsersDelta  float64   `json:"active_users_delta_pct"`
	AvgAgentWinRate   float64   `json:"avg_agent_win_rate"`
	LastMonthRecords  int       `json:"last_month_records"`
	LastMonthChurned  int       `json:"last_month_churned"`
	LastMonthRetained int       `json:"last_month_retained"`
	CustomersAtRisk   int       `json:"customers_at_risk"`
	AmountAtRisk      float64   `json:"amount_at_risk"`
	Scorer            string    `json:"scorer"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// BuildOverview computes the KPIs over the history kept by f. Deltas
// compare the last month with the one before; a single month has zero
// deltas, as does a previous month with zero revenue or users.
func BuildOverview(ds *model.Dataset, f HistoryFilter, opts ranking.Options) Overview {
	h := History(ds, f)
	ov := Overview{Scorer: ds.ScorerName, Warnings: h.Warnings}

	team := ranking.Summarize(ds.Agents, opts)
	ov.AvgAgentWinRate = team.AvgWinRate

	for _, c := range ds.Customers {
		if c.Risk.Valid() && c.Risk >= riskAtRiskFloor {
			ov.CustomersAtRisk++
			ov.AmountAtRisk += c.HistoricalAmount
		}
	}

	n := len(h.Months)
	if n == 0 {
		return ov
	}
	last := h.Months[n-1]
	ov.Month = last.Month
	ov.ChurnRate = last.ChurnRate
	ov.Revenue = last.Revenue
	ov.ActiveUsers = last.ActiveUsers
	if n > 1 {
		prev := h.Months[n-2]
		ov.ChurnRateDelta = last.ChurnRate - prev.ChurnRate
		ov.RevenueDeltaPct = pctChange(last.Revenue, prev.Revenue)
		ov.ActiveUsersDelta = pctChange(float64(last.ActiveUsers), float64(prev.ActiveUsers))
	}

	for _, r := range ds.Churn {
		if !r.Month.Equal(last.Month) || !f.keep(r) {
			continue
		}
		ov.LastMonthRecords++
		if r.Churn {
			ov.LastMonthChurned++
		}
	}
	ov.LastMonthRetained = ov.LastMonthRecords - ov.LastMonthChurned
	return ov
}

func pctChange(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur/prev - 1) * 100
}

// Reason is one contact reason with its call volume and, when calls carry
// user IDs, the churn rate of the callers in the latest month.
type Reason struct {
	Reason    string  `json:"reason"`
	Calls     int     `json:"calls"`
	Share     float64 `json:"share"`
	Matched   int     `json:"matched"`
	ChurnRate float64 `json:"churn_rate"`
}

var reasonCodePrefix = regexp.MustCompile(`^\d+\s+`)

// CleanReason strips a leading numeric code, "12 Tarjeta" -> "Tarjeta".
func CleanReason(s string) string {
	s = strings.TrimSpace(s)
	if c := reasonCodePrefix.ReplaceAllString(s, ""); c != "" {
		return c
	}
	return s
}

// TopReasons ranks contact reasons by volume. limit <= 0 returns all.
func TopReasons(ds *model.Dataset, limit int) []Reason {
	churned := make(map[string]bool)
	for _, r := range ds.Churn {
		if r.Month.Equal(ds.LatestMonth) {
			churned[r.UserID] = r.Churn
		}
	}

	byReason := make(map[string]*Reason)
	churnedCalls := make(map[string]int)
	total := 0
	for _, c := range ds.Calls {
		name := CleanReason(c.Reason)
		if name == "" {
			continue
		}
		r, ok := byReason[name]
		if !ok {
			r = &Reason{Reason: name}
			byReason[name] = r
		}
		r.Calls++
		total++
		if c.UserID == "" {
			continue
		}
		if ch, ok := churned[c.UserID]; ok {
			r.Matched++
			if ch {
				churnedCalls[name]++
			}
		}
	}

	out := make([]Reason, 0, len(byReason))
	for name, r := range byReason {
		r.Share = float64(r.Calls) / float64(total) * 100
		if r.Matched > 0 {
			r.ChurnRate = float64(churnedCalls[name]) / float64(r.Matched) * 100
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Reason < out[j].Reason
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
