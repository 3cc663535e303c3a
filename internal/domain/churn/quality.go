package churn

import (
	"fmt"

	"github.com/okian/churnlens/internal/domain/model"
)

// Quality check defaults.
const (
	DefaultMinRecords          = 10
	DefaultInactivityThreshold = 42.0
)

// DefaultCriticalFeatures must all be present for ML scoring to run. Tenure
// is checked as tenure_months, the column the base table and the model
// schema carry; there is no tenure_days column to require.
var DefaultCriticalFeatures = []string{"tx_count", "recency_days", "amount_sum", "tenure_months"}

// QualityOptions parameterize ValidateDataQuality.
type QualityOptions struct {
	CriticalFeatures    []string
	MinRecords          int
	InactivityThreshold float64
}

// DefaultQualityOptions returns the standard thresholds.
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{
		CriticalFeatures:    DefaultCriticalFeatures,
		MinRecords:          DefaultMinRecords,
		InactivityThreshold: DefaultInactivityThreshold,
	}
}

// QualityReport is the outcome of a data quality check.
type QualityReport struct {
	IsValid      bool     `json:"is_valid"`
	Issues       []string `json:"issues"`
	Warnings     []string `json:"warnings"`
	TotalRecords int      `json:"total_records"`
}

// ValidateDataQuality checks that t is fit for ML scoring. Missing critical
// columns and too few rows invalidate the input. Null ratios and rows that
// are already past the inactivity threshold only produce warnings.
func ValidateDataQuality(t *model.Table, opts QualityOptions) QualityReport {
	if opts.MinRecords <= 0 {
		opts.MinRecords = DefaultMinRecords
	}
	if opts.InactivityThreshold <= 0 {
		opts.InactivityThreshold = DefaultInactivityThreshold
	}
	if opts.CriticalFeatures == nil {
		opts.CriticalFeatures = DefaultCriticalFeatures
	}

	n := t.Len()
	r := QualityReport{Issues: []string{}, Warnings: []string{}, TotalRecords: n}

	if t.Has(ColRecencyDays) && n > 0 {
		churned := 0
		for i := 0; i < n; i++ {
			if v, ok := t.Float(i, ColRecencyDays); ok && v >= opts.InactivityThreshold {
				churned++
			}
		}
		if churned > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%d users (%.1f%%) are already churned (recency_days>=%g) and should be excluded before scoring",
				churned, float64(churned)/float64(n)*100, opts.InactivityThreshold))
		}
	}

	for _, f := range opts.CriticalFeatures {
		if !t.Has(f) {
			r.Issues = append(r.Issues, fmt.Sprintf("critical column %q is missing", f))
			continue
		}
		missing := 0
		for i := 0; i < n; i++ {
			if _, ok := t.Float(i, f); !ok {
				missing++
			}
		}
		if missing > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %d null values (%.1f%%)", f, missing, float64(missing)/float64(n)*100))
		}
	}

	if n < opts.MinRecords {
		r.Issues = append(r.Issues, fmt.Sprintf("too few records for reliable scoring: %d", n))
	}

	r.IsValid = len(r.Issues) == 0
	return r
}
