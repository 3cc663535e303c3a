package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/churnlens/internal/domain/segment"
)

// Dataset is one fully derived, immutable load of the input tables. It is
// replaced as a whole on reload and never modified after construction.
type Dataset struct {
	ID       uuid.UUID `json:"id"`
	LoadedAt time.Time `json:"loaded_at"`

	Churn        []ChurnRecord `json:"-"`
	Calls        []CallRecord  `json:"-"`
	Base         []BaseRecord  `json:"-"`
	Transactions []Transaction `json:"-"`

	// Monthly is ordered by month ascending.
	Monthly []MonthlyAggregate `json:"monthly"`
	// Customers is the latest-month snapshot, ordered by user ID.
	Customers []Customer `json:"-"`
	// Agents is ranked, best first.
	Agents []Agent `json:"-"`

	LatestMonth time.Time          `json:"latest_month"`
	Thresholds  segment.Thresholds `json:"thresholds"`
	ScorerName  string             `json:"scorer"`
	HasGender   bool               `json:"has_gender"`
	HasState    bool               `json:"has_state"`
	Warnings    []string           `json:"warnings,omitempty"`
}
