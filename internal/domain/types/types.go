// Package types contains common types used across the application
package types

import (
	"fmt"
	"math"
)

// Range is a closed numeric interval. A nil bound is unbounded on that side.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Between returns the closed interval [lo, hi].
func Between(lo, hi float64) *Range {
	return &Range{Min: &lo, Max: &hi}
}

// AtLeast returns [lo, +inf).
func AtLeast(lo float64) *Range {
	return &Range{Min: &lo}
}

// AtMost returns (-inf, hi].
func AtMost(hi float64) *Range {
	return &Range{Max: &hi}
}

// Contains reports whether x lies in r. A nil range contains everything;
// NaN is never contained in a bounded range.
func (r *Range) Contains(x float64) bool {
	if r == nil {
		return true
	}
	if math.IsNaN(x) {
		return r.Min == nil && r.Max == nil
	}
	if r.Min != nil && x < *r.Min {
		return false
	}
	if r.Max != nil && x > *r.Max {
		return false
	}
	return true
}

// Empty reports whether r imposes no bound.
func (r *Range) Empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// String renders r canonically; it is used in cache keys.
func (r *Range) String() string {
	if r.Empty() {
		return "*"
	}
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
	}
	return "[" + lo + "," + hi + "]"
}
