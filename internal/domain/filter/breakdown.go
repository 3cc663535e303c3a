package filter

import (
	"sort"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/stats"
)

// Summary describes a filtered view.
type Summary struct {
	Customers      int     `json:"customers"`
	AvgProbability float64 `json:"avg_probability"`
	AvgDays        float64 `json:"avg_days_inactive"`
	AmountAtRisk   float64 `json:"amount_at_risk"`
	Critical       int     `json:"critical"`
	HighRisk       int     `json:"high_risk"`
	Churned        int     `json:"churned"`
}

// Summarize aggregates customers. AmountAtRisk sums the historical amount
// of Alto and Crítico customers.
func Summarize(customers []model.Customer) Summary {
	s := Summary{Customers: len(customers)}
	if len(customers) == 0 {
		return s
	}
	probs := make([]float64, len(customers))
	days := make([]float64, len(customers))
	for i, c := range customers {
		probs[i] = c.Probability
		days[i] = c.DaysInactive
		if c.Risk >= segment.RiskAlto {
			s.HighRisk++
			s.AmountAtRisk += c.HistoricalAmount
		}
		if c.Risk == segment.RiskCritico {
			s.Critical++
		}
		if c.IsChurned {
			s.Churned++
		}
	}
	s.AvgProbability = stats.Mean(probs)
	s.AvgDays = stats.Mean(days)
	return s
}

// Cell is one risk tier by value segment bucket.
type Cell struct {
	Risk           segment.RiskTier     `json:"risk_tier"`
	Segment        segment.ValueSegment `json:"value_segment"`
	Customers      int                  `json:"customers"`
	AvgProbability float64              `json:"avg_probability"`
	Amount         float64              `json:"amount"`
}

// RiskSegmentMatrix returns all twelve tier and segment combinations in
// ascending order, empty ones included.
func RiskSegmentMatrix(customers []model.Customer) []Cell {
	type acc struct {
		n      int
		prob   float64
		amount float64
	}
	buckets := make(map[[2]int]*acc)
	for _, c := range customers {
		c = Normalize(c)
		k := [2]int{int(c.Risk), int(c.Segment)}
		a := buckets[k]
		if a == nil {
			a = &acc{}
			buckets[k] = a
		}
		a.n++
		a.prob += c.Probability
		a.amount += c.HistoricalAmount
	}

	out := make([]Cell, 0, len(segment.RiskTiers)*len(segment.ValueSegments))
	for _, r := range segment.RiskTiers {
		for _, v := range segment.ValueSegments {
			cell := Cell{Risk: r, Segment: v}
			if a := buckets[[2]int{int(r), int(v)}]; a != nil {
				cell.Customers = a.n
				cell.AvgProbability = a.prob / float64(a.n)
				cell.Amount = a.amount
			}
			out = append(out, cell)
		}
	}
	return out
}

// Group aggregates customers sharing one attribute value.
type Group struct {
	Key            string  `json:"key"`
	Customers      int     `json:"customers"`
	HighRisk       int     `json:"high_risk"`
	AvgProbability float64 `json:"avg_probability"`
	Amount         float64 `json:"amount"`
}

// ByGender groups by gender. ok is false when no customer carries gender
// data, in which case the breakdown is unavailable.
func ByGender(customers []model.Customer) (groups []Group, ok bool) {
	return groupBy(customers, func(c model.Customer) string { return c.Gender })
}

// ByState groups by state, with the same availability rule as ByGender.
func ByState(customers []model.Customer) (groups []Group, ok bool) {
	return groupBy(customers, func(c model.Customer) string { return c.State })
}

func groupBy(customers []model.Customer, key func(model.Customer) string) ([]Group, bool) {
	idx := make(map[string]int)
	var out []Group
	for _, c := range customers {
		k := strings.TrimSpace(key(c))
		if k == "" {
			continue
		}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, Group{Key: k})
		}
		g := &out[i]
		g.Customers++
		g.AvgProbability += stats.Clip(c.Probability, 0, 1)
		g.Amount += stats.NonNegative(c.HistoricalAmount)
		if c.Risk >= segment.RiskAlto {
			g.HighRisk++
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	for i := range out {
		out[i].AvgProbability /= float64(out[i].Customers)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Customers != out[j].Customers {
			return out[i].Customers > out[j].Customers
		}
		return out[i].Key < out[j].Key
	})
	return out, true
}
