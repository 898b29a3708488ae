// Package engine runs resource checks: it resolves check types, enforces
// timeouts, debounces through the result cache, and aggregates overall
// health. A misbehaving check never crashes a run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazz-dev/resmon/internal/cache"
	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/metrics"
)

// ErrNotFound is returned when a resource name is not defined.
var ErrNotFound = errors.New("resource not found")

const defaultTimeout = 5 * time.Second

// FreshFunc is invoked after a freshly executed (non-cached) result has been
// stored, with the previous recorded result if one exists. Cached hits never
// trigger it, which is what debounces notification evaluation.
type FreshFunc func(ctx context.Context, res config.Resource, prev *check.Result, cur check.Result)

// Checker executes the check for a single resource definition.
type Checker struct {
	registry *check.Registry
	cache    cache.Cache
	logger   *slog.Logger
	onFresh  FreshFunc
}

// NewChecker creates a Checker. Pass nil logger to use the default logger.
func NewChecker(registry *check.Registry, c cache.Cache, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		registry: registry,
		cache:    c,
		logger:   logger,
	}
}

// SetOnFresh sets the callback invoked for each freshly executed result.
func (c *Checker) SetOnFresh(fn FreshFunc) {
	c.onFresh = fn
}

// Check runs the check for res and returns a normalized result. It never
// returns an error: execution failures, timeouts, and unknown check types
// all surface as error-status results.
func (c *Checker) Check(ctx context.Context, res config.Resource) check.Result {
	if !res.Enabled {
		return skippedResult(res.Name)
	}

	if entry, err := c.cache.Get(ctx, res.Name); err == nil {
		metrics.CacheHits.Inc()
		return entry.Result
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("cache read failed", "resource", res.Name, "error", err)
	}
	metrics.CacheMisses.Inc()

	return c.fresh(ctx, res)
}

// Refresh executes the check for res unconditionally, bypassing any cached
// result. The previous entry stays in place until the fresh result
// overwrites it, so transition detection keeps its baseline: a stably
// failing resource does not re-notify on a forced refresh.
func (c *Checker) Refresh(ctx context.Context, res config.Resource) check.Result {
	if !res.Enabled {
		return skippedResult(res.Name)
	}
	return c.fresh(ctx, res)
}

func skippedResult(name string) check.Result {
	return check.Result{
		ResourceName: name,
		Status:       check.StatusSkipped,
		Message:      "resource is disabled",
		CheckedAt:    time.Now(),
	}
}

// fresh executes the check, records the result, and runs the fresh-result
// hook. A run abandoned because the caller went away is returned without
// being cached or evaluated: caller cancellation says nothing about the
// resource, and caching it would make a healthy resource read as failed
// for a full TTL.
func (c *Checker) fresh(ctx context.Context, res config.Resource) check.Result {
	result, cancelled := c.execute(ctx, res)
	if cancelled {
		c.logger.Debug("check abandoned by caller", "resource", res.Name)
		return result
	}

	// Fetch the previous result before overwriting it; an expired entry is
	// still the transition baseline.
	var prev *check.Result
	if entry, err := c.cache.Last(ctx, res.Name); err == nil {
		p := entry.Result
		prev = &p
	}

	if err := c.cache.Put(ctx, res.Name, result, res.TTL.Duration); err != nil {
		c.logger.Warn("cache write failed", "resource", res.Name, "error", err)
	}

	metrics.ChecksTotal.WithLabelValues(res.Name, string(result.Status)).Inc()
	metrics.CheckDuration.WithLabelValues(res.Name).Observe(result.Duration.Seconds())

	if c.onFresh != nil {
		c.onFresh(ctx, res, prev, result)
	}
	return result
}

type outcome struct {
	report check.Report
	err    error
}

// execute resolves and runs the check function under the resource timeout.
// A probe that outlives its deadline is abandoned, not killed; it keeps
// running in its goroutine and its late result is discarded. cancelled is
// true when the caller's own context ended the run, as opposed to the
// per-check deadline: that result describes the caller, not the resource.
func (c *Checker) execute(ctx context.Context, res config.Resource) (result check.Result, cancelled bool) {
	start := time.Now()
	result = check.Result{
		ResourceName: res.Name,
		CheckedAt:    start,
	}

	fn, ok := c.registry.Resolve(res.Type)
	if !ok {
		result.Status = check.StatusError
		result.Message = fmt.Sprintf("unknown check type %q", res.Type)
		return result, false
	}

	timeout := res.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		report, err := fn(cctx, res.Params)
		done <- outcome{report: report, err: err}
	}()

	select {
	case o := <-done:
		result.Duration = time.Since(start)
		switch {
		case o.err != nil:
			result.Status = check.StatusError
			result.Message = o.err.Error()
			cancelled = errors.Is(o.err, context.Canceled) && ctx.Err() != nil
		case !o.report.Status.Valid() || o.report.Status == check.StatusSkipped:
			result.Status = check.StatusError
			result.Message = fmt.Sprintf("check reported invalid status %q", o.report.Status)
		default:
			result.Status = o.report.Status
			result.Message = o.report.Message
			result.Meta = o.report.Meta
		}
	case <-cctx.Done():
		result.Duration = time.Since(start)
		result.Status = check.StatusError
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			result.Message = "check timed out"
		} else {
			result.Message = "check cancelled"
			cancelled = true
		}
	}
	return result, cancelled
}
