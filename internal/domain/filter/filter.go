// Package filter narrows the customer snapshot with AND-composed predicates.
//
// Apply is total: it never fails, unusable parameters are skipped with a
// warning and an empty match yields an empty slice. Every predicate is a
// pass-through when its parameter is unset. Two predicates are
// order-sensitive by construction and always run last: the actionable
// filter, whose percentiles are computed over whatever survived the other
// predicates, and top-N.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/stats"
	"github.com/okian/churnlens/internal/domain/types"
)

// ActionableQuantile is the percentile a customer must exceed, on both
// probability and amount, to count as actionable.
const ActionableQuantile = 0.75

// Set is one combination of filter parameters. The zero value matches every
// customer.
type Set struct {
	// IDText is free-form, comma separated user IDs as typed by a person.
	IDText string `json:"id_text,omitempty"`
	// IDs are already-parsed user IDs; they are merged with IDText.
	IDs            []string               `json:"ids,omitempty"`
	Risks          []segment.RiskTier     `json:"risks,omitempty"`
	Segments       []segment.ValueSegment `json:"segments,omitempty"`
	Probability    *types.Range           `json:"probability,omitempty"`
	Days           *types.Range           `json:"days,omitempty"`
	Amount         *types.Range           `json:"amount,omitempty"`
	Genders        []string               `json:"genders,omitempty"`
	ActionableOnly bool                   `json:"actionable_only,omitempty"`
	TopN           int                    `json:"top_n,omitempty"`
}

// Result is the filtered view plus any non-fatal notes about skipped input.
type Result struct {
	Customers []model.Customer `json:"customers"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// Apply filters customers by s and normalizes the rows that survive. The
// input slice is never modified.
func Apply(customers []model.Customer, s Set) Result {
	var res Result

	ids, invalid := ParseIDs(s.IDText)
	for _, id := range s.IDs {
		if c, ok := canonicalID(id); ok {
			ids = append(ids, c)
		} else {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("ignored invalid user ids: %s", strings.Join(invalid, ", ")))
	}
	idSet := toSet(ids)

	genders := make(map[string]struct{}, len(s.Genders))
	for _, g := range s.Genders {
		if g = normalizeLabel(g); g != "" {
			genders[g] = struct{}{}
		}
	}
	if len(genders) > 0 && !hasGender(customers) {
		res.Warnings = append(res.Warnings, "gender filter ignored: no gender data")
		genders = nil
	}

	risks := make(map[segment.RiskTier]struct{}, len(s.Risks))
	for _, r := range s.Risks {
		risks[r] = struct{}{}
	}
	segs := make(map[segment.ValueSegment]struct{}, len(s.Segments))
	for _, v := range s.Segments {
		segs[v] = struct{}{}
	}

	out := make([]model.Customer, 0, len(customers))
	for _, c := range customers {
		if len(idSet) > 0 {
			cid, _ := canonicalID(c.UserID)
			if _, ok := idSet[cid]; !ok {
				continue
			}
		}
		if len(risks) > 0 {
			if _, ok := risks[c.Risk]; !ok {
				continue
			}
		}
		if len(segs) > 0 {
			if _, ok := segs[c.Segment]; !ok {
				continue
			}
		}
		if !s.Probability.Contains(c.Probability) || !s.Days.Contains(c.DaysInactive) || !s.Amount.Contains(c.HistoricalAmount) {
			continue
		}
		if len(genders) > 0 {
			if _, ok := genders[normalizeLabel(c.Gender)]; !ok {
				continue
			}
		}
		out = append(out, c)
	}

	if s.ActionableOnly {
		out = Actionable(out)
	}
	if s.TopN > 0 && s.TopN < len(out) {
		out = TopN(out, s.TopN)
	}
	for i := range out {
		out[i] = Normalize(out[i])
	}
	res.Customers = out
	return res
}

// Normalize fills an unknown risk tier with Bajo, clips probability to
// [0,1] and clips amount and days to non-negative values. Apply runs it on
// the survivors only, so predicates see the snapshot values as stored.
func Normalize(c model.Customer) model.Customer {
	if !c.Risk.Valid() {
		c.Risk = segment.RiskBajo
	}
	c.Probability = stats.Clip(c.Probability, 0, 1)
	c.HistoricalAmount = stats.NonNegative(c.HistoricalAmount)
	c.DaysInactive = stats.NonNegative(c.DaysInactive)
	return c
}

// Actionable keeps Alto and Crítico customers whose probability and amount
// are both strictly above the 75th percentile of the given set.
func Actionable(customers []model.Customer) []model.Customer {
	if len(customers) == 0 {
		return []model.Customer{}
	}
	probs := make([]float64, len(customers))
	amounts := make([]float64, len(customers))
	for i, c := range customers {
		probs[i] = c.Probability
		amounts[i] = c.HistoricalAmount
	}
	pq := stats.Quantile(probs, ActionableQuantile)
	aq := stats.Quantile(amounts, ActionableQuantile)

	out := make([]model.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Risk >= segment.RiskAlto && c.Probability > pq && c.HistoricalAmount > aq {
			out = append(out, c)
		}
	}
	return out
}

// TopN returns the n most likely churners, by probability descending and
// user ID ascending. The input is not reordered.
func TopN(customers []model.Customer, n int) []model.Customer {
	out := make([]model.Customer, len(customers))
	copy(out, customers)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return model.LessUserID(out[i].UserID, out[j].UserID)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ParseIDs splits comma separated user IDs. Tokens that are not all digits
// are returned in invalid; blank tokens are dropped silently. Leading zeros
// are not significant.
func ParseIDs(text string) (ids, invalid []string) {
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if c, ok := canonicalID(tok); ok {
			ids = append(ids, c)
		} else {
			invalid = append(invalid, tok)
		}
	}
	return ids, invalid
}

func canonicalID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s, false
		}
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(n, 10), true
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return s, true
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hasGender(customers []model.Customer) bool {
	for _, c := range customers {
		if strings.TrimSpace(c.Gender) != "" {
			return true
		}
	}
	return false
}
