package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/engine"
)

// HealthRunner is the slice of the health service the scheduler needs.
type HealthRunner interface {
	CheckSilently(ctx context.Context) engine.AggregateHealth
}

// Scheduler periodically triggers a silent check run. Per-resource TTLs, not
// the tick interval, govern how often any single probe actually executes; the
// tick only has to be at least as frequent as the shortest TTL.
type Scheduler struct {
	runner   HealthRunner
	interval time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a Scheduler. Pass nil logger to use the default logger.
func New(runner HealthRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background loop. It is non-blocking; the first run
// happens immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Wait blocks until the background loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	agg := s.runner.CheckSilently(ctx)

	var degraded int
	for _, r := range agg.Results {
		if r.Status == check.StatusWarning || r.Status == check.StatusError {
			degraded++
		}
	}
	s.logger.Info("scheduled check run complete",
		"status", agg.Status,
		"resources", len(agg.Results),
		"degraded", degraded,
	)
}
