package model

import (
	"math"
	"strconv"
	"strings"
)

// Table is a column-named view over raw CSV cells. It is used where the set
// of columns is open-ended, such as the feature input of the churn model.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a Table and indexes its header.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether column exists in the header.
func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	if t.index == nil {
		t.reindex()
	}
	_, ok := t.index[column]
	return ok
}

// Cell returns the raw value at (row, column), or "" when absent.
func (t *Table) Cell(row int, column string) string {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return ""
	}
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[column]
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Float parses the cell at (row, column). The second result is false for
// missing columns and null-like cells.
func (t *Table) Float(row int, column string) (float64, bool) {
	return ParseFloat(t.Cell(row, column))
}

// Select returns a new Table containing only the given rows, in order.
func (t *Table) Select(rows []int) *Table {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r >= 0 && r < len(t.Rows) {
			out = append(out, t.Rows[r])
		}
	}
	return NewTable(t.Columns, out)
}

// IsNull reports whether a raw cell represents a missing value.
func IsNull(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none", "na", "n/a", "<na>", "nat":
		return true
	}
	return false
}

// ParseFloat parses a numeric cell, treating null-like values, NaN and
// infinities as missing. Booleans parse as 0/1.
func ParseFloat(s string) (float64, bool) {
	if IsNull(s) {
		return 0, false
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LessUserID orders user IDs numerically when both are integers, so "9"
// sorts before "10". Numeric IDs sort before non-numeric ones, which fall
// back to plain string order.
func LessUserID(a, b string) bool {
	x, errA := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
	y, errB := strconv.ParseUint(strings.TrimSpace(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		if x != y {
			return x < y
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// ParseBool parses truthy cells: true/false, 1/0, yes/no, si/sí.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "1.0", "yes", "si", "sí", "t", "y":
		return true, true
	case "false", "0", "0.0", "no", "f", "n":
		return false, true
	}
	return false, false
}
