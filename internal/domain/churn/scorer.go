// Package churn scores customers with a churn probability.
//
// Two strategies implement Scorer: MLScorer runs a pre-trained classifier
// over engineered features, and HeuristicScorer derives a probability from
// inactivity alone. The strategy is chosen once at load time; FallbackScorer
// covers failures at scoring time.
package churn

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/stats"
)

// Scorer produces one churn probability per table row, in row order, each
// in [0,1].
type Scorer interface {
	PredictProba(ctx context.Context, t *model.Table) ([]float64, error)
	Name() string
}

// Scorer names.
const (
	NameML        = "ml"
	NameHeuristic = "heuristic"
)

const heuristicDivisor = 100.0

// HeuristicProbability is the inactivity proxy: min(1, days/100).
func HeuristicProbability(days float64) float64 {
	return stats.Clip(days/heuristicDivisor, 0, 1)
}

// HeuristicScorer scores rows from recency_days, falling back to
// dias_sin_transacciones. Rows with neither score 0.
type HeuristicScorer struct{}

// NewHeuristicScorer creates a HeuristicScorer.
func NewHeuristicScorer() *HeuristicScorer { return &HeuristicScorer{} }

func (h *HeuristicScorer) Name() string { return NameHeuristic }

func (h *HeuristicScorer) PredictProba(ctx context.Context, t *model.Table) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, t.Len())
	for i := range out {
		days, ok := t.Float(i, ColRecencyDays)
		if !ok {
			days, _ = t.Float(i, ColDaysInactive)
		}
		out[i] = HeuristicProbability(days)
	}
	return out, nil
}

// MLScorer runs a validated artifact triple.
type MLScorer struct {
	artifacts *Artifacts
}

// NewMLScorer validates the artifacts and returns a scorer. Inconsistent
// artifacts yield ErrSchemaDrift.
func NewMLScorer(a *Artifacts) (*MLScorer, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &MLScorer{artifacts: a}, nil
}

func (m *MLScorer) Name() string { return NameML }

// Info returns the optional model metadata.
func (m *MLScorer) Info() map[string]any {
	if m.artifacts.Info == nil {
		return map[string]any{}
	}
	return m.artifacts.Info
}

// Schema returns the feature schema.
func (m *MLScorer) Schema() *Schema { return m.artifacts.Schema }

func (m *MLScorer) PredictProba(ctx context.Context, t *model.Table) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return []float64{}, nil
	}
	X := PrepareFeatures(t, m.artifacts.Schema)
	scaled, err := m.artifacts.Scaler.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}
	probs, err := m.artifacts.Classifier.PredictProba(scaled)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		if math.IsNaN(p[1]) {
			return nil, fmt.Errorf("%w: NaN probability at row %d", ErrScorerUnavailable, i)
		}
		out[i] = stats.Clip(p[1], 0, 1)
	}
	return out, nil
}

// FallbackScorer tries Primary and, on error, scores with Secondary.
// OnFallback is called with the primary error when that happens.
type FallbackScorer struct {
	Primary    Scorer
	Secondary  Scorer
	OnFallback func(err error)
}

func (f *FallbackScorer) Name() string { return f.Primary.Name() }

func (f *FallbackScorer) PredictProba(ctx context.Context, t *model.Table) ([]float64, error) {
	out, err := f.Primary.PredictProba(ctx, t)
	if err == nil && len(out) == t.Len() {
		return out, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: %d probabilities for %d rows", ErrScorerUnavailable, len(out), t.Len())
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.OnFallback != nil {
		f.OnFallback(err)
	}
	return f.Secondary.PredictProba(ctx, t)
}

// Select picks the scoring strategy once, at load time. Without artifacts
// the heuristic is used. Valid artifacts yield the ML scorer backed by the
// heuristic for scoring-time failures, reported through onFallback.
// Inconsistent artifacts return ErrSchemaDrift, which callers treat as fatal.
func Select(a *Artifacts, onFallback func(error)) (Scorer, error) {
	if a == nil {
		return NewHeuristicScorer(), nil
	}
	ml, err := NewMLScorer(a)
	if err != nil {
		return nil, err
	}
	return &FallbackScorer{Primary: ml, Secondary: NewHeuristicScorer(), OnFallback: onFallback}, nil
}

// Predict converts probabilities to 0/1 labels at threshold.
func Predict(probs []float64, threshold float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}
