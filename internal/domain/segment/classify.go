package segment

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/churnlens/internal/domain/stats"
)

// Business defaults.
const (
	DefaultInactivityThreshold = 42.0
	DefaultActivityBoundary    = 30.0

	lowerPercentile = 0.33
	upperPercentile = 0.66

	// sparseSegmentShare flags a segment holding less than this share of customers.
	sparseSegmentShare = 0.05
)

// ClassifyRisk maps days since the last transaction to a risk tier against
// the inactivity threshold t. Negative or NaN days count as zero. A
// non-positive t falls back to the default threshold.
func ClassifyRisk(days, t float64) RiskTier {
	if t <= 0 {
		t = DefaultInactivityThreshold
	}
	days = stats.NonNegative(days)
	switch {
	case days < 0.5*t:
		return RiskBajo
	case days < 0.75*t:
		return RiskMedio
	case days < t:
		return RiskAlto
	default:
		return RiskCritico
	}
}

// ClassifyActivity maps days since the last transaction to the coarse
// activity state. boundary separates Activo from En Riesgo; t marks churn.
func ClassifyActivity(days, boundary, t float64) ActivityState {
	if t <= 0 {
		t = DefaultInactivityThreshold
	}
	if boundary <= 0 || boundary > t {
		boundary = math.Min(DefaultActivityBoundary, t)
	}
	days = stats.NonNegative(days)
	switch {
	case days < boundary:
		return Activo
	case days < t:
		return EnRiesgo
	default:
		return Churneado
	}
}

// IsChurned reports whether days meets the inactivity threshold.
func IsChurned(days, t float64) bool {
	return ClassifyRisk(days, t) == RiskCritico
}

// Thresholds are the value-segment cut points for one data load.
// They are recomputed on every load from the amounts present, so the same
// amount can land in different segments across loads.
type Thresholds struct {
	P33 float64 `json:"p33"`
	P66 float64 `json:"p66"`
	// Calibrated is false when no positive amounts were available.
	Calibrated bool `json:"calibrated"`
	// PositiveCount is the number of amounts the percentiles were taken over.
	PositiveCount int `json:"positive_count"`
}

// ComputeThresholds takes the 33rd and 66th percentiles over the strictly
// positive amounts only.
func ComputeThresholds(amounts []float64) Thresholds {
	positive := make([]float64, 0, len(amounts))
	for _, a := range amounts {
		if a > 0 && !math.IsInf(a, 1) {
			positive = append(positive, a)
		}
	}
	if len(positive) == 0 {
		return Thresholds{}
	}
	sort.Float64s(positive)
	return Thresholds{
		P33:           stats.QuantileSorted(positive, lowerPercentile),
		P66:           stats.QuantileSorted(positive, upperPercentile),
		Calibrated:    true,
		PositiveCount: len(positive),
	}
}

// Classify assigns a segment: <=p33 Básico, (p33,p66] Premium, >p66 VIP.
// Uncalibrated thresholds put everyone in Básico.
func (t Thresholds) Classify(amount float64) ValueSegment {
	if !t.Calibrated {
		return Basico
	}
	switch {
	case amount <= t.P33:
		return Basico
	case amount <= t.P66:
		return Premium
	default:
		return VIP
	}
}

// SegmentAll computes thresholds over amounts and classifies every entry.
func SegmentAll(amounts []float64) ([]ValueSegment, Thresholds) {
	th := ComputeThresholds(amounts)
	out := make([]ValueSegment, len(amounts))
	for i, a := range amounts {
		out[i] = th.Classify(a)
	}
	return out, th
}

// Distribution counts customers per segment.
type Distribution map[ValueSegment]int

// Distribute tallies segs.
func Distribute(segs []ValueSegment) Distribution {
	d := Distribution{Basico: 0, Premium: 0, VIP: 0}
	for _, s := range segs {
		d[s]++
	}
	return d
}

// Warning returns a non-empty message when the distribution looks
// degenerate: a segment is empty or holds less than 5% of customers.
func (d Distribution) Warning() string {
	total := 0
	for _, n := range d {
		total += n
	}
	if total == 0 {
		return ""
	}
	for _, s := range ValueSegments {
		share := float64(d[s]) / float64(total)
		if share < sparseSegmentShare {
			return fmt.Sprintf("segment %s holds %d of %d customers (%.1f%%)", s, d[s], total, share*100)
		}
	}
	return ""
}
