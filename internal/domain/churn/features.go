package churn

import (
	"sort"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/stats"
)

// Well-known input columns with special handling.
const (
	ColSatisfaction = "cc_csats_mean"
	ColHasContact   = "has_cc_contact"
	ColAvgGapDays   = "avg_gap_days"
	ColRecencyDays  = "recency_days"
	ColDaysInactive = "dias_sin_transacciones"
)

// PrepareFeatures turns a raw table into the feature matrix described by
// schema. Columns are encoded and reordered to the schema's exact order;
// declared features that are still missing after encoding are zero.
//
// Steps:
//   - has_cc_contact is 1 where cc_csats_mean is present, and missing
//     satisfaction scores become 0.
//   - missing avg_gap_days values take the column median.
//   - categorical base columns are one-hot encoded as "<col>_<value>" over
//     their sorted distinct values, dropping the first.
//   - any other missing numeric cell is 0.
func PrepareFeatures(t *model.Table, schema *Schema) [][]float64 {
	n := t.Len()
	cols := make(map[string][]float64)

	categorical := make(map[string]bool, len(schema.CategoricalColumns))
	for _, c := range schema.CategoricalColumns {
		if t.Has(c) {
			categorical[c] = true
		}
	}

	if t.Has(ColSatisfaction) {
		has := make([]float64, n)
		for i := 0; i < n; i++ {
			if _, ok := t.Float(i, ColSatisfaction); ok {
				has[i] = 1
			}
		}
		cols[ColHasContact] = has
	}

	gapMedian := 0.0
	if t.Has(ColAvgGapDays) {
		var present []float64
		for i := 0; i < n; i++ {
			if v, ok := t.Float(i, ColAvgGapDays); ok {
				present = append(present, v)
			}
		}
		gapMedian = stats.Median(present)
	}

	for _, c := range t.Columns {
		if categorical[c] {
			continue
		}
		if _, done := cols[c]; done {
			continue
		}
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			v, ok := t.Float(i, c)
			if !ok && c == ColAvgGapDays {
				v = gapMedian
			}
			vals[i] = v
		}
		cols[c] = vals
	}

	for c := range categorical {
		for name, vals := range oneHot(t, c) {
			cols[name] = vals
		}
	}

	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, len(schema.Features))
	}
	for j, f := range schema.Features {
		vals, ok := cols[f]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			X[i][j] = vals[i]
		}
	}
	return X
}

// oneHot encodes column c with drop-first semantics. Null cells encode as
// all zeros.
func oneHot(t *model.Table, c string) map[string][]float64 {
	n := t.Len()
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		v := t.Cell(i, c)
		if !model.IsNull(v) {
			seen[canonicalCategory(v)] = true
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	out := make(map[string][]float64)
	if len(levels) < 2 {
		return out
	}
	for _, lvl := range levels[1:] {
		out[c+"_"+lvl] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		v := t.Cell(i, c)
		if model.IsNull(v) {
			continue
		}
		if col, ok := out[c+"_"+canonicalCategory(v)]; ok {
			col[i] = 1
		}
	}
	return out
}

// canonicalCategory normalizes boolean spellings so "true", "TRUE" and
// "True" all encode to the "True" level used at training time.
func canonicalCategory(v string) string {
	switch v {
	case "true", "TRUE":
		return "True"
	case "false", "FALSE":
		return "False"
	}
	return v
}
