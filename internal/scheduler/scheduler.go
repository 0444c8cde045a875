// Package scheduler re-evaluates index definitions on an interval so their
// values are exported as metrics without waiting for an API request.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/lox/metaculusindex/internal/config"
	"github.com/lox/metaculusindex/internal/index"
	"github.com/lox/metaculusindex/internal/metrics"
)

type Scheduler struct {
	fetchers func(domain string) index.Fetcher
	indices  *config.File
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(fetchers func(domain string) index.Fetcher, indices *config.File, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		fetchers: fetchers,
		indices:  indices,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run evaluates every index immediately and then once per interval until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.RefreshAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: shutting down")
			return
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll evaluates each defined index in turn and returns the values by name.
func (s *Scheduler) RefreshAll(ctx context.Context) map[string]float64 {
	values := make(map[string]float64, len(s.indices.Indices))
	for _, def := range s.indices.Indices {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		ix := index.NewBuilder(s.fetchers(def.Domain), s.logger).Build(ctx, def.Name, def.Members())
		v := ix.ValueBefore(s.now())

		metrics.IndexValue.WithLabelValues(def.Name).Set(v)
		values[def.Name] = v
		s.logger.Info("index refreshed", "index", def.Name, "value", v,
			"members", len(ix.Questions), "defined", len(def.Questions), "took", time.Since(start))
	}
	return values
}
