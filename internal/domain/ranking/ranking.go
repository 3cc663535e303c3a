// Package ranking orders contact-center agents by a Bayesian shrinkage
// estimate of their win rate, so low-volume agents do not dominate the
// leaderboard on a handful of cases.
package ranking

import (
	"sort"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/stats"
)

// Defaults.
const (
	DefaultConfidence = 10.0
	// DefaultGlobalRate is the prior, in percent, used when no cases exist.
	DefaultGlobalRate = 48.0
)

// Band labels for raw win-rate quartiles.
const (
	BandTop         = "Top 25%"
	BandAboveMedian = "Above median"
	BandBelowMedian = "Below median"
	BandBottom      = "Bottom 25%"
)

// Options configure the ranker.
type Options struct {
	// Confidence is the virtual sample count k. Larger values shrink
	// low-volume agents harder toward the global rate.
	Confidence float64
	// DefaultGlobalRate is the prior, in percent, when the team has no cases.
	DefaultGlobalRate float64
}

// DefaultOptions returns k=10 and a 48% fallback prior.
func DefaultOptions() Options {
	return Options{Confidence: DefaultConfidence, DefaultGlobalRate: DefaultGlobalRate}
}

// GlobalRate returns the case-weighted team win rate as a fraction. When
// the team has no cases, fallbackPct/100 is returned.
func GlobalRate(agents []model.Agent, fallbackPct float64) float64 {
	var won, total int
	for _, a := range agents {
		w, t := sanitize(a.CasesWon, a.CasesTotal)
		won += w
		total += t
	}
	if total == 0 {
		return fallbackPct / 100
	}
	return float64(won) / float64(total)
}

// AdjustedScore is (won + k*g) / (total + k) * 100 with g as a fraction.
// It tends to g*100 as total goes to zero and to the raw win rate as total
// grows.
func AdjustedScore(won, total int, k, g float64) float64 {
	won, total = sanitize(won, total)
	denom := float64(total) + k
	if denom <= 0 {
		return g * 100
	}
	return (float64(won) + k*g) / denom * 100
}

// WinRate is won/total*100. It returns fallback when total is zero.
func WinRate(won, total int, fallback float64) float64 {
	won, total = sanitize(won, total)
	if total == 0 {
		return stats.Clip(fallback, 0, 100)
	}
	return float64(won) / float64(total) * 100
}

// sanitize clips negative counts and wins above the case total.
func sanitize(won, total int) (int, int) {
	if total < 0 {
		total = 0
	}
	if won < 0 {
		won = 0
	}
	if won > total {
		won = total
	}
	return won, total
}

// Rank returns a new slice with WinRate, BayesianScore, Rank and Band set,
// sorted by adjusted score descending. Ties go to the agent with more cases,
// then to the lower agent ID.
func Rank(agents []model.Agent, opts Options) []model.Agent {
	if opts.Confidence < 0 {
		opts.Confidence = DefaultConfidence
	}
	out := make([]model.Agent, len(agents))
	copy(out, agents)

	g := GlobalRate(out, opts.DefaultGlobalRate)
	for i := range out {
		a := &out[i]
		a.CasesWon, a.CasesTotal = sanitize(a.CasesWon, a.CasesTotal)
		a.WinRate = WinRate(a.CasesWon, a.CasesTotal, a.WinRate)
		a.BayesianScore = AdjustedScore(a.CasesWon, a.CasesTotal, opts.Confidence, g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BayesianScore != b.BayesianScore {
			return a.BayesianScore > b.BayesianScore
		}
		if a.CasesTotal != b.CasesTotal {
			return a.CasesTotal > b.CasesTotal
		}
		return a.AgentID < b.AgentID
	})

	q := ComputeQuartiles(out)
	for i := range out {
		out[i].Rank = i + 1
		out[i].Band = q.Band(out[i].WinRate)
	}
	return out
}

// Quartiles are raw win-rate cut points, independent of the ranking score.
type Quartiles struct {
	Q25 float64 `json:"q25"`
	Q50 float64 `json:"q50"`
	Q75 float64 `json:"q75"`
}

// ComputeQuartiles takes the 25th, 50th and 75th percentiles of WinRate.
func ComputeQuartiles(agents []model.Agent) Quartiles {
	rates := make([]float64, len(agents))
	for i, a := range agents {
		rates[i] = a.WinRate
	}
	return Quartiles{
		Q25: stats.Quantile(rates, 0.25),
		Q50: stats.Quantile(rates, 0.50),
		Q75: stats.Quantile(rates, 0.75),
	}
}

// Band labels a raw win rate.
func (q Quartiles) Band(winRate float64) string {
	switch {
	case winRate >= q.Q75:
		return BandTop
	case winRate >= q.Q50:
		return BandAboveMedian
	case winRate >= q.Q25:
		return BandBelowMedian
	default:
		return BandBottom
	}
}

// TeamStats summarize a set of agents.
type TeamStats struct {
	Agents      int       `json:"agents"`
	AvgWinRate  float64   `json:"avg_win_rate"`
	StdWinRate  float64   `json:"std_win_rate"`
	TotalCases  int       `json:"total_cases"`
	TotalWon    int       `json:"total_won"`
	SuccessRate float64   `json:"success_rate"`
	GlobalRate  float64   `json:"global_rate"`
	Quartiles   Quartiles `json:"quartiles"`
}

// Summarize computes team statistics. SuccessRate is the case-weighted
// rate in percent; AvgWinRate is the plain mean of agent win rates.
func Summarize(agents []model.Agent, opts Options) TeamStats {
	rates := make([]float64, len(agents))
	s := TeamStats{Agents: len(agents)}
	for i, a := range agents {
		w, t := sanitize(a.CasesWon, a.CasesTotal)
		rates[i] = WinRate(w, t, a.WinRate)
		s.TotalCases += t
		s.TotalWon += w
	}
	s.AvgWinRate = stats.Mean(rates)
	s.StdWinRate = stats.StdDev(rates)
	if s.TotalCases > 0 {
		s.SuccessRate = float64(s.TotalWon) / float64(s.TotalCases) * 100
	}
	s.GlobalRate = GlobalRate(agents, opts.DefaultGlobalRate) * 100
	s.Quartiles = ComputeQuartiles(agents)
	return s
}
