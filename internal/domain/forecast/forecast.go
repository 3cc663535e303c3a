// Package forecast projects the monthly churn rate forward by extrapolating
// a blended recent and long-run trend, with widening uncertainty bands, a
// counterfactual intervention curve and a compounding revenue projection.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/stats"
)

const (
	recentPoints    = 3
	bandGrowth      = 0.1
	minRevenueTrend = 3
)

// Summary describes the projected churn values.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Range  float64 `json:"range"`
	// MAPE is the historical coefficient of variation, in percent.
	MAPE float64 `json:"mape"`
	// Confidence is a 0-100 consistency score of the history.
	Confidence float64 `json:"confidence"`
	// Volatility is the standard deviation of the projected values.
	Volatility float64 `json:"volatility"`
}

// Result is one projection.
type Result struct {
	Params         Params                `json:"params"`
	Anchor         model.ForecastPoint   `json:"anchor"`
	Points         []model.ForecastPoint `json:"points"`
	Trend          float64               `json:"trend"`
	RecentTrend    float64               `json:"recent_trend"`
	FullTrend      float64               `json:"full_trend"`
	ScenarioFactor float64               `json:"scenario_factor"`
	RevenueRatio   float64               `json:"revenue_ratio"`
	HistoryUsed    int                   `json:"history_used"`
	Summary        Summary               `json:"summary"`
}

// Project runs the projection over history. history need not be sorted; it
// is ordered by month on a copy.
func Project(history []model.MonthlyAggregate, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(history) == 0 {
		return Result{}, ErrEmptyHistory
	}

	h := make([]model.MonthlyAggregate, len(history))
	copy(h, history)
	sort.SliceStable(h, func(i, j int) bool { return h[i].Month.Before(h[j].Month) })
	if p.Window > 0 && p.Window < len(h) {
		h = h[len(h)-p.Window:]
	}

	churn := make([]float64, len(h))
	rev := make([]float64, len(h))
	for i, m := range h {
		churn[i] = stats.Clip(m.ChurnRate, 0, 100)
		rev[i] = stats.NonNegative(m.Revenue)
	}

	recent := 0.0
	if len(churn) >= recentPoints {
		recent = stats.Mean(stats.Diff(churn[len(churn)-recentPoints:]))
	}
	full := 0.0
	if len(churn) > 1 {
		full = stats.Mean(stats.Diff(churn))
	}
	trend := p.RecentWeight*recent + (1-p.RecentWeight)*full
	factor := p.Scenario.Factor()
	std := stats.StdDev(churn)

	last := h[len(h)-1]
	lastVal := churn[len(churn)-1]
	lastRev := rev[len(rev)-1]
	ratio := RevenueRatio(rev)
	start := model.MonthStart(last.Month)

	res := Result{
		Params: p,
		Anchor: model.ForecastPoint{
			Month:                     start,
			Predicted:                 lastVal,
			Upper:                     lastVal,
			Lower:                     lastVal,
			PredictedWithIntervention: lastVal,
			PredictedRevenue:          lastRev,
		},
		Points:         make([]model.ForecastPoint, 0, p.Horizon),
		Trend:          trend,
		RecentTrend:    recent,
		FullTrend:      full,
		ScenarioFactor: factor,
		RevenueRatio:   ratio,
		HistoryUsed:    len(h),
	}

	preds := make([]float64, 0, p.Horizon)
	for i := 1; i <= p.Horizon; i++ {
		step := float64(i)
		pred := stats.Clip(lastVal+trend*step*factor, 0, 100)
		band := std * (1 + step*bandGrowth)
		res.Points = append(res.Points, model.ForecastPoint{
			Month:                     addMonths(start, i),
			Predicted:                 pred,
			Upper:                     stats.Clip(pred+band, 0, 100),
			Lower:                     stats.Clip(pred-band, 0, 100),
			PredictedWithIntervention: pred * (1 - p.Intervention),
			PredictedRevenue:          lastRev * math.Pow(ratio, step),
		})
		preds = append(preds, pred)
	}

	res.Summary = summarize(churn, preds)
	return res, nil
}

// RevenueRatio is the last month-over-month revenue ratio. Fewer than three
// points, or a non-positive previous month, yield a flat 1.0.
func RevenueRatio(rev []float64) float64 {
	n := len(rev)
	if n < minRevenueTrend || rev[n-2] <= 0 {
		return 1.0
	}
	return rev[n-1] / rev[n-2]
}

func summarize(history, preds []float64) Summary {
	s := Summary{
		Mean:       stats.Mean(preds),
		Median:     stats.Median(preds),
		Std:        stats.StdDev(preds),
		Range:      stats.Max(preds) - stats.Min(preds),
		Volatility: stats.StdDev(preds),
	}
	histMean := stats.Mean(history)
	histStd := stats.StdDev(history)
	if histMean > 0 {
		s.MAPE = histStd / histMean * 100
	}
	s.Confidence = stats.Clip(1-histStd/(histMean+1), 0, 1) * 100
	return s
}

// addMonths returns the first day of the month i months after start.
func addMonths(start time.Time, i int) time.Time {
	return time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
}
