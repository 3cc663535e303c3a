package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
)

// Filter narrows a ranked agent list. Zero values disable each predicate.
type Filter struct {
	// AgentID restricts to one agent. Non-numeric input is ignored with a warning.
	AgentID    string
	MinWinRate *float64
	MaxWinRate *float64
	// Limit keeps the first N agents after filtering; 0 keeps all.
	Limit int
}

// Apply filters ranked agents, preserving order and ranks. It never fails;
// unusable parameters are reported as warnings and skipped.
func (f Filter) Apply(agents []model.Agent) ([]model.Agent, []string) {
	var warnings []string
	wantID := ""
	if id := strings.TrimSpace(f.AgentID); id != "" {
		if _, err := strconv.Atoi(id); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid agent id %q; showing all agents", id))
		} else {
			wantID = id
		}
	}

	out := make([]model.Agent, 0, len(agents))
	for _, a := range agents {
		if wantID != "" && !sameNumericID(a.AgentID, wantID) {
			continue
		}
		if f.MinWinRate != nil && a.WinRate < *f.MinWinRate {
			continue
		}
		if f.MaxWinRate != nil && a.WinRate > *f.MaxWinRate {
			continue
		}
		out = append(out, a)
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, warnings
}

// sameNumericID compares IDs numerically when both parse, so "007" matches "7".
func sameNumericID(a, b string) bool {
	if a == b {
		return true
	}
	x, err1 := strconv.Atoi(strings.TrimSpace(a))
	y, err2 := strconv.Atoi(strings.TrimSpace(b))
	return err1 == nil && err2 == nil && x == y
}
