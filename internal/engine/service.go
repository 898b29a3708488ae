package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/notify"
)

// AggregateHealth is the overall system status plus one result per
// definition, in declaration order. Derived fresh on every invocation,
// never persisted.
type AggregateHealth struct {
	Status  check.Status   `json:"status"`
	Results []check.Result `json:"results"`
}

// Service orchestrates checking all resources and forwards detected issues
// to the delivery collaborator.
type Service struct {
	resources []config.Resource
	byName    map[string]config.Resource
	checker   *Checker
	notifier  *notify.Notifier
	deliverer notify.Deliverer
	logger    *slog.Logger
}

// NewService wires the checker's fresh-result hook to notification
// evaluation. deliverer may be nil, in which case events are only logged.
// Pass nil logger to use the default logger.
func NewService(resources []config.Resource, checker *Checker, notifier *notify.Notifier, deliverer notify.Deliverer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]config.Resource, len(resources))
	for _, res := range resources {
		byName[res.Name] = res
	}
	s := &Service{
		resources: resources,
		byName:    byName,
		checker:   checker,
		notifier:  notifier,
		deliverer: deliverer,
		logger:    logger,
	}
	checker.SetOnFresh(s.handleFresh)
	return s
}

// Resources returns the loaded definitions in declaration order.
func (s *Service) Resources() []config.Resource {
	return s.resources
}

// CheckAll checks every resource and returns the full aggregate for display.
func (s *Service) CheckAll(ctx context.Context) AggregateHealth {
	return s.runChecks(ctx)
}

// CheckSilently runs the identical checks as CheckAll. It exists for the
// scheduled background run, whose caller discards the payload and only cares
// that notification evaluation happened.
func (s *Service) CheckSilently(ctx context.Context) AggregateHealth {
	return s.runChecks(ctx)
}

// CheckOne checks a single resource by name, or ErrNotFound.
func (s *Service) CheckOne(ctx context.Context, name string) (check.Result, error) {
	res, ok := s.byName[name]
	if !ok {
		return check.Result{}, ErrNotFound
	}
	return s.checker.Check(ctx, res), nil
}

// Refresh re-executes the check for name regardless of the cached result,
// or ErrNotFound. The cached entry is overwritten rather than deleted so
// the fresh result is still diffed against the real previous status.
func (s *Service) Refresh(ctx context.Context, name string) (check.Result, error) {
	res, ok := s.byName[name]
	if !ok {
		return check.Result{}, ErrNotFound
	}
	return s.checker.Refresh(ctx, res), nil
}

// runChecks is the shared core of both execution modes. Resources are
// independent, so checks run concurrently; results keep definition order.
func (s *Service) runChecks(ctx context.Context) AggregateHealth {
	results := make([]check.Result, len(s.resources))
	var wg sync.WaitGroup
	for i, res := range s.resources {
		wg.Add(1)
		go func(i int, res config.Resource) {
			defer wg.Done()
			results[i] = s.checker.Check(ctx, res)
		}(i, res)
	}
	wg.Wait()

	return AggregateHealth{
		Status:  Aggregate(results),
		Results: results,
	}
}

// Aggregate returns the worst status among non-skipped results. An
// all-skipped (or empty) set is vacuously healthy.
func Aggregate(results []check.Result) check.Status {
	overall := check.StatusHealthy
	for _, r := range results {
		if r.Status == check.StatusSkipped {
			continue
		}
		if r.Status.Worse(overall) {
			overall = r.Status
		}
	}
	return overall
}

func (s *Service) handleFresh(ctx context.Context, res config.Resource, prev *check.Result, cur check.Result) {
	event := s.notifier.Evaluate(prev, cur, res)
	if event == nil {
		return
	}

	s.logger.Info("health issue detected",
		"resource", event.ResourceName,
		"previous", event.PreviousStatus,
		"current", event.NewStatus,
		"message", cur.Message,
	)

	if s.deliverer == nil {
		return
	}
	if err := s.deliverer.Deliver(ctx, *event); err != nil {
		s.logger.Error("delivering notification", "resource", event.ResourceName, "error", err)
	}
}
