// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/churnlens/internal/adapters/cache"
	"github.com/okian/churnlens/internal/adapters/csvio"
	"github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/churn"
	"github.com/okian/churnlens/internal/domain/filter"
	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/priority"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/pkg/logger"
	"github.com/okian/churnlens/pkg/metrics"
)

const cacheKindCustomers = "customers"

// Service implements the API dependencies for the churn analytics system.
type Service struct {
	mu sync.RWMutex
	// reloadMu serializes loads so two reloads never race to publish.
	reloadMu sync.Mutex

	// Core components
	store     *repository.SnapshotStore
	customers cache.Cache[CustomersResult]

	// Configuration
	sources        Sources
	loadOpts       LoadOptions
	mlThreshold    float64
	cacheSize      int
	reloadInterval time.Duration
	maxExportRows  int

	// State
	started    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
	reloads    atomic.Int64
	lastReload atomic.Pointer[reloadStatus]

	// Logging
	logger logger.Logger
}

type reloadStatus struct {
	At  time.Time
	Err error
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		loadOpts:      DefaultLoadOptions(),
		mlThreshold:   0.5,
		cacheSize:     cache.DefaultMaxSize,
		maxExportRows: 100_000,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the initial load and publishes it. A load failure is
// returned and leaves the service stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting churn analytics service...")

	s.customers = cache.New[CustomersResult](cache.WithMaxSize(s.cacheSize))
	store := repository.NewSnapshotStore(ctx, repository.WithPublishHook(s.onPublish))

	if err := s.loadAndPublish(ctx, store); err != nil {
		_ = store.Close()
		return err
	}
	s.store = store
	s.stopCh = make(chan struct{})

	if s.reloadInterval > 0 {
		s.startReloadLoop(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "churn analytics service started",
		logger.Int("cacheSize", s.cacheSize),
		logger.Duration("reloadInterval", s.reloadInterval),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping churn analytics service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	// The reload loop takes no lock on s.mu, so waiting here is safe.
	s.wg.Wait()
	if s.store != nil {
		_ = s.store.Close()
	}
	s.customers.Purge()
	s.logger.Info(context.Background(), "churn analytics service stopped")
}

// Reload rebuilds the dataset from the sources and swaps it in. On failure
// the previous snapshot stays published.
func (s *Service) Reload(ctx context.Context) error {
	store, err := s.currentStore()
	if err != nil {
		return err
	}
	return s.loadAndPublish(ctx, store)
}

func (s *Service) loadAndPublish(ctx context.Context, store *repository.SnapshotStore) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ctx = logger.ContextWith(ctx, logger.String("loadId", uuid.NewString()))
	opts := s.loadOpts
	opts.Logger = s.logger
	ds, err := LoadDataset(ctx, s.sources, opts)
	s.lastReload.Store(&reloadStatus{At: time.Now().UTC(), Err: err})
	if err != nil {
		s.logger.Error(ctx, "dataset load failed", logger.Error(err))
		metrics.RecordErrorByComponent("loader", "load")
		return err
	}
	if err := store.Publish(ctx, ds); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}
	s.reloads.Add(1)
	return nil
}

// onPublish drops the results computed from the previous snapshot.
func (s *Service) onPublish(ctx context.Context, ds *model.Dataset) {
	s.customers.Purge()
	s.logger.Info(ctx, "dataset published",
		logger.String("datasetId", ds.ID.String()),
		logger.Int("customers", len(ds.Customers)),
		logger.Int("agents", len(ds.Agents)),
		logger.Int("warnings", len(ds.Warnings)),
		logger.String("scorer", ds.ScorerName),
	)
}

func (s *Service) startReloadLoop(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.reloadInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.loadAndPublish(ctx, s.store); err != nil {
					s.logger.Warn(ctx, "periodic reload failed, keeping the previous dataset", logger.Error(err))
				}
			}
		}
	}()
}

func (s *Service) currentStore() (*repository.SnapshotStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Dataset returns the published dataset.
func (s *Service) Dataset(ctx context.Context) (*model.Dataset, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	return store.Current(ctx)
}

// Overview returns the headline KPIs over the filtered history.
func (s *Service) Overview(ctx context.Context, f HistoryFilter) (Overview, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(ds, f, s.loadOpts.Ranking), nil
}

// History returns the monthly aggregates over the filtered churn rows.
func (s *Service) History(ctx context.Context, f HistoryFilter) (HistoryResult, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	return History(ds, f), nil
}

// Forecast projects the monthly churn rate of the published dataset.
func (s *Service) Forecast(ctx context.Context, p forecast.Params) (forecast.Result, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return forecast.Result{}, err
	}
	start := time.Now()
	res, err := forecast.Project(ds.Monthly, p)
	if err != nil {
		return forecast.Result{}, err
	}
	metrics.RecordForecast(string(p.Scenario), float64(time.Since(start).Microseconds())/1000)
	return res, nil
}

// CustomersResult is one filtered, prioritized view of the snapshot.
type CustomersResult struct {
	Customers []model.Customer `json:"customers"`
	Total     int              `json:"total"`
	Summary   filter.Summary   `json:"summary"`
	Matrix    []filter.Cell    `json:"risk_segment_matrix"`
	ByGender  []filter.Group   `json:"by_gender,omitempty"`
	ByState   []filter.Group   `json:"by_state,omitempty"`
	// Predicted counts customers at or above the model threshold.
	Predicted int      `json:"predicted_churners"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Customers filters the snapshot and orders the match as a priority queue.
// Priority is rescored against the filtered view. Results are cached per
// snapshot and filter.
func (s *Service) Customers(ctx context.Context, set filter.Set) (CustomersResult, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return CustomersResult{}, err
	}
	key := cache.Key{Snapshot: ds.ID, Kind: cacheKindCustomers, Hash: set.Key()}
	return s.customers.GetOrCompute(ctx, key, func() (CustomersResult, error) {
		start := time.Now()
		defer func() {
			metrics.RecordFilterLatency(float64(time.Since(start).Microseconds()) / 1000)
		}()
		return s.buildCustomers(ds, set), nil
	})
}

func (s *Service) buildCustomers(ds *model.Dataset, set filter.Set) CustomersResult {
	res := filter.Apply(ds.Customers, set)
	queue := priority.Queue(res.Customers, s.loadOpts.Weights)

	probs := make([]float64, len(queue))
	for i, c := range queue {
		probs[i] = c.Probability
	}
	predicted := 0
	for _, label := range churn.Predict(probs, s.mlThreshold) {
		predicted += label
	}

	out := CustomersResult{
		Customers: queue,
		Total:     len(queue),
		Summary:   filter.Summarize(queue),
		Matrix:    filter.RiskSegmentMatrix(queue),
		Predicted: predicted,
		Warnings:  res.Warnings,
	}
	if g, ok := filter.ByGender(queue); ok {
		out.ByGender = g
	}
	if st, ok := filter.ByState(queue); ok {
		out.ByState = st
	}
	return out
}

// Customer returns one customer of the snapshot.
func (s *Service) Customer(ctx context.Context, userID string) (model.Customer, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Customer{}, err
	}
	return store.Customer(ctx, userID)
}

// AgentsResult is the ranked team after filtering.
type AgentsResult struct {
	Agents   []model.Agent     `json:"agents"`
	Team     ranking.TeamStats `json:"team"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Agents returns the ranked team filtered by f. Team statistics cover the
// whole team.
func (s *Service) Agents(ctx context.Context, f ranking.Filter) (AgentsResult, error) {
	store, err := s.currentStore()
	if err != nil {
		return AgentsResult{}, err
	}
	all, err := store.TopN(ctx, 0)
	if err != nil {
		return AgentsResult{}, err
	}
	agents, warnings := f.Apply(all)
	for _, w := range warnings {
		s.logger.Warn(ctx, "agent filter skipped", logger.String("reason", w))
	}
	return AgentsResult{
		Agents:   agents,
		Team:     ranking.Summarize(all, s.loadOpts.Ranking),
		Warnings: warnings,
	}, nil
}

// AgentRank returns one ranked agent.
func (s *Service) AgentRank(ctx context.Context, agentID string) (model.Agent, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Agent{}, err
	}
	return store.Rank(ctx, agentID)
}

// ExportCustomers writes the filtered priority queue as CSV, capped at the
// configured row limit. It returns the number of rows written.
func (s *Service) ExportCustomers(ctx context.Context, w io.Writer, set filter.Set) (int, error) {
	res, err := s.Customers(ctx, set)
	if err != nil {
		return 0, err
	}
	rows := res.Customers
	if len(rows) > s.maxExportRows {
		s.logger.Warn(ctx, "customer export truncated",
			logger.Int("rows", len(rows)),
			logger.Int("limit", s.maxExportRows),
		)
		rows = rows[:s.maxExportRows]
	}
	if err := csvio.WriteCustomers(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ExportAgents writes the filtered ranking as CSV.
func (s *Service) ExportAgents(ctx context.Context, w io.Writer, f ranking.Filter) (int, error) {
	res, err := s.Agents(ctx, f)
	if err != nil {
		return 0, err
	}
	rows := res.Agents
	if len(rows) > s.maxExportRows {
		rows = rows[:s.maxExportRows]
	}
	if err := csvio.WriteAgents(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Reasons returns the most frequent contact reasons.
func (s *Service) Reasons(ctx context.Context, limit int) ([]Reason, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return TopReasons(ds, limit), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"cacheSize":      s.cacheSize,
		"reloadInterval": s.reloadInterval.String(),
		"reloads":        s.reloads.Load(),
	}
	if st := s.lastReload.Load(); st != nil {
		stats["lastReloadAt"] = st.At
		if st.Err != nil {
			stats["lastReloadError"] = st.Err.Error()
		}
	}

	if s.started {
		if ds, err := s.store.Current(ctx); err == nil {
			stats["datasetId"] = ds.ID.String()
			stats["loadedAt"] = ds.LoadedAt
			stats["latestMonth"] = ds.LatestMonth
			stats["months"] = len(ds.Monthly)
			stats["totalCustomers"] = len(ds.Customers)
			stats["totalAgents"] = len(ds.Agents)
			stats["scorer"] = ds.ScorerName
			stats["warnings"] = ds.Warnings
			stats["cachedQueries"] = s.customers.Size()
		}
	}
	return stats
}
