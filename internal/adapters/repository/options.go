package repository

import (
	"context"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
)

// Option configures a SnapshotStore.
type Option func(*SnapshotStore)

// PublishHook runs after a dataset became current.
type PublishHook func(ctx context.Context, ds *model.Dataset)

// WithMetricsUpdateInterval sets how often the snapshot gauges are refreshed.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SnapshotStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithPublishHook registers fn to run, in registration order, after each
// successful Publish. Hooks run on the publishing goroutine.
func WithPublishHook(fn PublishHook) Option {
	return func(s *SnapshotStore) {
		if fn != nil {
			s.hooks = append(s.hooks, fn)
		}
	}
}
