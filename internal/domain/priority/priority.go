// Package priority ranks customers for retention outreach with a weighted
// composite of churn probability, customer value and inactivity.
package priority

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/stats"
)

// ErrInvalidWeights is returned when weights are negative or do not sum to 1.
var ErrInvalidWeights = errors.New("invalid priority weights")

const weightTolerance = 1e-6

// Weights blend the three normalized components.
type Weights struct {
	Probability float64 `json:"probability"`
	Amount      float64 `json:"amount"`
	Days        float64 `json:"days"`
}

// DefaultWeights returns 0.4 / 0.4 / 0.2.
func DefaultWeights() Weights {
	return Weights{Probability: 0.4, Amount: 0.4, Days: 0.2}
}

// Validate checks that all weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Probability < 0 || w.Amount < 0 || w.Days < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if sum := w.Probability + w.Amount + w.Days; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f", ErrInvalidWeights, sum)
	}
	return nil
}

// Score returns a copy of customers with PriorityScore set. Amount and days
// are normalized against the maximum of the given set, so callers must pass
// the currently filtered view and rescore after every filter change.
func Score(customers []model.Customer, w Weights) []model.Customer {
	out := make([]model.Customer, len(customers))
	copy(out, customers)

	var maxAmount, maxDays float64
	for _, c := range out {
		maxAmount = math.Max(maxAmount, stats.NonNegative(c.HistoricalAmount))
		maxDays = math.Max(maxDays, stats.NonNegative(c.DaysInactive))
	}
	if maxAmount <= 0 {
		maxAmount = 1
	}
	if maxDays <= 0 {
		maxDays = 1
	}

	for i := range out {
		c := &out[i]
		p := stats.Clip(c.Probability, 0, 1) * 100
		a := stats.NonNegative(c.HistoricalAmount) / maxAmount * 100
		d := stats.NonNegative(c.DaysInactive) / maxDays * 100
		raw := p*w.Probability + a*w.Amount + d*w.Days
		c.PriorityScore = int(math.Round(stats.Clip(raw, 0, 100)))
	}
	return out
}

// Queue scores customers and sorts them by priority descending. Ties fall
// back to probability descending, then user ID ascending.
func Queue(customers []model.Customer, w Weights) []model.Customer {
	out := Score(customers, w)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.Probability != b.Probability {
			return a.Probability > b.Probability
		}
		return model.LessUserID(a.UserID, b.UserID)
	})
	return out
}

// SuggestedAction is the retention action recommended for a risk tier.
func SuggestedAction(r segment.RiskTier) string {
	switch r {
	case segment.RiskCritico:
		return "Contacto inmediato + Oferta exclusiva"
	case segment.RiskAlto:
		return "Llamada + Email personalizado"
	case segment.RiskMedio:
		return "Email de reactivación"
	default:
		return "Programa de fidelización"
	}
}

// Urgency is the coarse urgency label shown next to the action.
func Urgency(r segment.RiskTier) string {
	switch r {
	case segment.RiskCritico:
		return "urgent"
	case segment.RiskAlto:
		return "high"
	case segment.RiskMedio:
		return "medium"
	default:
		return "low"
	}
}
