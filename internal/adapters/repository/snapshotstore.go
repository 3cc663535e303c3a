package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/pkg/metrics"
)

// snapshot pairs a dataset with the lookup indexes built for it.
type snapshot struct {
	dataset       *model.Dataset
	agentIndex    map[string]int
	customerIndex map[string]int
}

// SnapshotStore publishes datasets behind an atomic pointer. Publishing
// builds the indexes first and swaps afterwards, so lookups never need a lock.
type SnapshotStore struct {
	metricsUpdateInterval time.Duration
	hooks                 []PublishHook

	current atomic.Pointer[snapshot]

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates an empty store and starts its metrics updater,
// which stops with ctx or Close.
func NewSnapshotStore(ctx context.Context, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		metricsUpdateInterval: metrics.RefreshInterval(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *SnapshotStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SnapshotStore) Publish(ctx context.Context, ds *model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ds == nil {
		return ErrNilDataset
	}
	snap := &snapshot{
		dataset:       ds,
		agentIndex:    make(map[string]int, len(ds.Agents)),
		customerIndex: make(map[string]int, len(ds.Customers)),
	}
	for i, a := range ds.Agents {
		snap.agentIndex[canonicalKey(a.AgentID)] = i
	}
	for i, c := range ds.Customers {
		snap.customerIndex[canonicalKey(c.UserID)] = i
	}
	s.current.Store(snap)

	metrics.RecordSnapshotPublished(ds.LoadedAt)
	s.updateMetrics()
	for _, fn := range s.hooks {
		fn(ctx, ds)
	}
	return nil
}

func (s *SnapshotStore) Current(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap.dataset, nil
}

func (s *SnapshotStore) Rank(ctx context.Context, agentID string) (model.Agent, error) {
	start := time.Now()
	defer observe(start)
	if err := ctx.Err(); err != nil {
		return model.Agent{}, err
	}
	snap := s.current.Load()
	if snap == nil {
		return model.Agent{}, ErrNoSnapshot
	}
	i, ok := snap.agentIndex[canonicalKey(agentID)]
	if !ok {
		return model.Agent{}, fmt.Errorf("%w: agent %q", ErrNotFound, agentID)
	}
	return snap.dataset.Agents[i], nil
}

func (s *SnapshotStore) TopN(ctx context.Context, n int) ([]model.Agent, error) {
	start := time.Now()
	defer observe(start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrInvalidLimit
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	agents := snap.dataset.Agents
	if n == 0 || n > len(agents) {
		n = len(agents)
	}
	out := make([]model.Agent, n)
	copy(out, agents[:n])
	return out, nil
}

func (s *SnapshotStore) Customer(ctx context.Context, userID string) (model.Customer, error) {
	start := time.Now()
	defer observe(start)
	if err := ctx.Err(); err != nil {
		return model.Customer{}, err
	}
	snap := s.current.Load()
	if snap == nil {
		return model.Customer{}, ErrNoSnapshot
	}
	i, ok := snap.customerIndex[canonicalKey(userID)]
	if !ok {
		return model.Customer{}, fmt.Errorf("%w: customer %q", ErrNotFound, userID)
	}
	return snap.dataset.Customers[i], nil
}

func (s *SnapshotStore) Count(ctx context.Context) int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.dataset.Customers)
}

// startMetricsUpdater starts a background goroutine that refreshes snapshot gauges.
func (s *SnapshotStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *SnapshotStore) updateMetrics() {
	snap := s.current.Load()
	if snap == nil {
		return
	}
	ds := snap.dataset
	metrics.UpdateCustomersTotal(len(ds.Customers))
	metrics.UpdateAgentsTotal(len(ds.Agents))
	metrics.UpdateDatasetWarnings(len(ds.Warnings))
	metrics.UpdateDatasetRows("churn", len(ds.Churn))
	metrics.UpdateDatasetRows("calls", len(ds.Calls))
	metrics.UpdateDatasetRows("base", len(ds.Base))
	metrics.UpdateDatasetRows("transactions", len(ds.Transactions))
}

func observe(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// canonicalKey makes numeric IDs match regardless of leading zeros.
func canonicalKey(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return id
}
