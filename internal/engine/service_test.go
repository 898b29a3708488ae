package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/resmon/internal/cache"
	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/engine"
	"github.com/hazz-dev/resmon/internal/notify"
)

// recordingDeliverer captures every delivered event for inspection.
type recordingDeliverer struct {
	mu     sync.Mutex
	events []notify.IssueEvent
}

func (d *recordingDeliverer) Deliver(ctx context.Context, event notify.IssueEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDeliverer) Events() []notify.IssueEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.IssueEvent(nil), d.events...)
}

// scriptedFunc returns a check that plays back its statuses one check at a
// time, sticking on the last one.
func scriptedFunc(statuses ...check.Status) check.Func {
	var mu sync.Mutex
	var call int
	return func(ctx context.Context, params check.Params) (check.Report, error) {
		mu.Lock()
		defer mu.Unlock()
		status := statuses[call]
		if call < len(statuses)-1 {
			call++
		}
		return check.Report{Status: status, Message: "scripted"}, nil
	}
}

func newService(t *testing.T, registry *check.Registry, resources []config.Resource) (*engine.Service, *recordingDeliverer) {
	t.Helper()
	deliverer := &recordingDeliverer{}
	checker := engine.NewChecker(registry, cache.NewMemory(), nil)
	svc := engine.NewService(resources, checker, notify.New(nil), deliverer, nil)
	return svc, deliverer
}

func TestService_CheckAllKeepsDeclarationOrder(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("ok", scriptedFunc(check.StatusHealthy))
	registry.Register("bad", scriptedFunc(check.StatusError))

	resources := []config.Resource{
		makeResource("alpha", func(r *config.Resource) { r.Type = "ok" }),
		makeResource("beta", func(r *config.Resource) { r.Type = "bad" }),
		makeResource("gamma", func(r *config.Resource) { r.Type = "ok" }),
	}
	svc, _ := newService(t, registry, resources)

	agg := svc.CheckAll(context.Background())

	require.Len(t, agg.Results, 3)
	assert.Equal(t, "alpha", agg.Results[0].ResourceName)
	assert.Equal(t, "beta", agg.Results[1].ResourceName)
	assert.Equal(t, "gamma", agg.Results[2].ResourceName)
	assert.Equal(t, check.StatusError, agg.Status)
}

func TestService_OneFailureDoesNotBlockOthers(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("ok", scriptedFunc(check.StatusHealthy))

	resources := []config.Resource{
		makeResource("good", func(r *config.Resource) { r.Type = "ok" }),
		makeResource("broken", func(r *config.Resource) { r.Type = "missing" }),
	}
	svc, _ := newService(t, registry, resources)

	agg := svc.CheckAll(context.Background())

	require.Len(t, agg.Results, 2)
	assert.Equal(t, check.StatusHealthy, agg.Results[0].Status)
	assert.Equal(t, check.StatusError, agg.Results[1].Status)
	assert.Contains(t, agg.Results[1].Message, "unknown check type")
}

func TestService_AllDisabledIsHealthy(t *testing.T) {
	registry := check.NewRegistry()
	resources := []config.Resource{
		makeResource("a", func(r *config.Resource) { r.Enabled = false }),
		makeResource("b", func(r *config.Resource) { r.Enabled = false }),
	}
	svc, _ := newService(t, registry, resources)

	agg := svc.CheckAll(context.Background())

	assert.Equal(t, check.StatusHealthy, agg.Status)
	for _, r := range agg.Results {
		assert.Equal(t, check.StatusSkipped, r.Status)
	}
}

func TestService_CheckOneUnknownResource(t *testing.T) {
	svc, _ := newService(t, check.NewRegistry(), nil)

	_, err := svc.CheckOne(context.Background(), "ghost")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = svc.Refresh(context.Background(), "ghost")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestService_RefreshBypassesCache(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("flaky", scriptedFunc(check.StatusHealthy, check.StatusError))

	resources := []config.Resource{
		makeResource("svc", func(r *config.Resource) { r.Type = "flaky" }),
	}
	svc, _ := newService(t, registry, resources)

	first, err := svc.CheckOne(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, check.StatusHealthy, first.Status)

	// Well within TTL, so a plain check would return the cached result.
	second, err := svc.Refresh(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, check.StatusError, second.Status)
}

func TestService_RefreshStableFailureDoesNotReNotify(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("bad", scriptedFunc(check.StatusError))

	resources := []config.Resource{
		makeResource("svc", func(r *config.Resource) { r.Type = "bad" }),
	}
	svc, deliverer := newService(t, registry, resources)

	first, err := svc.CheckOne(context.Background(), "svc")
	require.NoError(t, err)
	require.Equal(t, check.StatusError, first.Status)

	_, err = svc.Refresh(context.Background(), "svc")
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), "svc")
	require.NoError(t, err)

	// The failure is stable: only the initial healthy->error transition
	// notifies, and its previous status is the real baseline.
	events := deliverer.Events()
	require.Len(t, events, 1)
	assert.Equal(t, check.StatusHealthy, events[0].PreviousStatus)
	assert.Equal(t, check.StatusError, events[0].NewStatus)
}

func TestService_TransitionsFireAtChangePoints(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("flaky", scriptedFunc(
		check.StatusHealthy,
		check.StatusError,
		check.StatusError,
		check.StatusHealthy,
	))

	resources := []config.Resource{
		makeResource("svc", func(r *config.Resource) {
			r.Type = "flaky"
			r.TTL = config.Duration{Duration: time.Nanosecond}
			r.NotifyOn = []check.Status{check.StatusWarning, check.StatusError, check.StatusHealthy}
		}),
	}
	svc, deliverer := newService(t, registry, resources)

	for i := 0; i < 4; i++ {
		svc.CheckAll(context.Background())
	}

	// Exactly two events, at the two status-change points; the repeated
	// error is a stable state, not a transition.
	events := deliverer.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "svc", events[0].ResourceName)
	assert.Equal(t, check.StatusHealthy, events[0].PreviousStatus)
	assert.Equal(t, check.StatusError, events[0].NewStatus)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, check.StatusError, events[1].PreviousStatus)
	assert.Equal(t, check.StatusHealthy, events[1].NewStatus)
}

func TestService_RecoverySuppressedByDefaultThreshold(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("flaky", scriptedFunc(
		check.StatusHealthy,
		check.StatusError,
		check.StatusError,
		check.StatusHealthy,
	))

	resources := []config.Resource{
		makeResource("svc", func(r *config.Resource) {
			r.Type = "flaky"
			r.TTL = config.Duration{Duration: time.Nanosecond}
		}),
	}
	svc, deliverer := newService(t, registry, resources)

	for i := 0; i < 4; i++ {
		svc.CheckAll(context.Background())
	}

	events := deliverer.Events()
	require.Len(t, events, 1)
	assert.Equal(t, check.StatusError, events[0].NewStatus)
}

func TestService_RecoveryNotifiesWhenOptedIn(t *testing.T) {
	registry := check.NewRegistry()
	registry.Register("flaky", scriptedFunc(
		check.StatusError,
		check.StatusHealthy,
	))

	resources := []config.Resource{
		makeResource("svc", func(r *config.Resource) {
			r.Type = "flaky"
			r.TTL = config.Duration{Duration: time.Nanosecond}
			r.NotifyOn = []check.Status{check.StatusWarning, check.StatusError, check.StatusHealthy}
		}),
	}
	svc, deliverer := newService(t, registry, resources)

	svc.CheckAll(context.Background())
	svc.CheckAll(context.Background())

	events := deliverer.Events()
	require.Len(t, events, 2)
	assert.Equal(t, check.StatusError, events[0].NewStatus)
	assert.Equal(t, check.StatusHealthy, events[1].NewStatus)
	assert.Equal(t, check.StatusError, events[1].PreviousStatus)
}

func TestAggregate(t *testing.T) {
	res := func(status check.Status) check.Result {
		return check.Result{Status: status}
	}

	tests := []struct {
		name    string
		results []check.Result
		want    check.Status
	}{
		{"empty", nil, check.StatusHealthy},
		{"all healthy", []check.Result{res(check.StatusHealthy), res(check.StatusHealthy)}, check.StatusHealthy},
		{"warning wins over healthy", []check.Result{res(check.StatusHealthy), res(check.StatusWarning)}, check.StatusWarning},
		{"error wins over warning", []check.Result{res(check.StatusWarning), res(check.StatusError)}, check.StatusError},
		{"skipped ignored", []check.Result{res(check.StatusSkipped), res(check.StatusHealthy)}, check.StatusHealthy},
		{"all skipped", []check.Result{res(check.StatusSkipped), res(check.StatusSkipped)}, check.StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Aggregate(tt.results))
		})
	}
}
