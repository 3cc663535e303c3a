// Package repository holds the published dataset snapshot and serves
// point lookups over it.
package repository

import (
	"context"

	"github.com/okian/churnlens/internal/domain/model"
)

// Store provides read access to the current dataset and atomic replacement.
type Store interface {
	// Publish replaces the current dataset. Readers observe either the old
	// or the new dataset, never a mix.
	Publish(ctx context.Context, ds *model.Dataset) error

	// Current returns the published dataset, or ErrNoSnapshot before the
	// first publish.
	Current(ctx context.Context) (*model.Dataset, error)

	// Rank returns one ranked agent. Returns ErrNotFound if the agent is unknown.
	Rank(ctx context.Context, agentID string) (model.Agent, error)

	// TopN returns the best n agents in rank order.
	TopN(ctx context.Context, n int) ([]model.Agent, error)

	// Customer returns one customer from the latest-month snapshot.
	// Returns ErrNotFound if the customer is unknown.
	Customer(ctx context.Context, userID string) (model.Customer, error)

	// Count returns the number of customers in the current snapshot.
	Count(ctx context.Context) int
}
