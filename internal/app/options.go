package service

import (
	"time"

	"github.com/okian/churnlens/internal/config"
	"github.com/okian/churnlens/internal/domain/priority"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSources sets the input tables.
func WithSources(src Sources) Option {
	return func(s *Service) {
		s.sources = src
	}
}

// WithLoadOptions sets the thresholds and weights used on every load.
func WithLoadOptions(opts LoadOptions) Option {
	return func(s *Service) {
		s.loadOpts = opts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheSize bounds the filtered-customer cache. Zero disables it.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithReloadInterval re-reads the inputs periodically. Zero disables it.
func WithReloadInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.reloadInterval = d
		}
	}
}

// WithMaxExportRows caps the rows written by the CSV exports.
func WithMaxExportRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxExportRows = n
		}
	}
}

// WithConfig applies every setting carried by cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.sources = Sources{
			Calls:        cfg.CallsCSV,
			Agents:       cfg.AgentsCSV,
			Churn:        cfg.ChurnCSV,
			Base:         cfg.BaseCSV,
			Transactions: cfg.TransactionsCSV,
			ModelDir:     cfg.ModelDir,
		}
		s.loadOpts = LoadOptions{
			InactivityThreshold: float64(cfg.InactivityThresholdDays),
			ActivityBoundary:    float64(cfg.ActivityBoundaryDays),
			MinRecords:          cfg.MinRecords,
			Weights: priority.Weights{
				Probability: cfg.PriorityWeightProbability,
				Amount:      cfg.PriorityWeightAmount,
				Days:        cfg.PriorityWeightDays,
			},
			Ranking: ranking.Options{
				Confidence:        cfg.BayesianConfidence,
				DefaultGlobalRate: cfg.DefaultGlobalRate,
			},
		}
		s.mlThreshold = cfg.MLThreshold
		s.cacheSize = cfg.QueryCacheSize
		s.reloadInterval = time.Duration(cfg.ReloadIntervalSec) * time.Second
		s.maxExportRows = cfg.MaxExportRows
	}
}
