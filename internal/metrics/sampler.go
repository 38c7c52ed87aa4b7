package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/model"
)

// minSampleInterval keeps a misconfigured interval from flooding logs.
const minSampleInterval = 500 * time.Millisecond

// StatsLogger periodically logs a crawl progress line. It reads the
// shared Counters and, when a store is provided, the frontier backlog.
type StatsLogger struct {
	counters *Counters
	store    frontier.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewStatsLogger creates a StatsLogger. store may be nil; the backlog
// field is then omitted from the log line.
func NewStatsLogger(counters *Counters, store frontier.Store, logger *slog.Logger, interval time.Duration) *StatsLogger {
	if interval < minSampleInterval {
		interval = minSampleInterval
	}
	return &StatsLogger{
		counters: counters,
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// Run logs progress until ctx is canceled. It is meant to be started
// in its own goroutine alongside the worker pool.
func (s *StatsLogger) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log(ctx)
		}
	}
}

// log emits one progress line.
func (s *StatsLogger) log(ctx context.Context) {
	t := s.counters.Snapshot()

	args := []any{
		slog.Int64("pages", t.Pages),
		slog.Int64("errors", t.Errors),
		slog.Int64("skipped", t.Skipped),
		slog.String("downloaded", fmt.Sprintf("%.2fMB", float64(t.Bytes)/(1024*1024))),
		slog.Duration("avg_fetch", t.AvgFetch),
		slog.String("pages_per_sec", fmt.Sprintf("%.2f", t.PagesPerSec)),
	}
	if s.store != nil {
		if counts, err := s.store.CountByState(ctx); err == nil {
			args = append(args, slog.Int("pending", counts[model.StatePending]))
		}
	}

	s.logger.InfoContext(ctx, "Crawl progress", args...)
}
