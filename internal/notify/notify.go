// Package notify detects status transitions and hands them to a delivery
// collaborator. Detection ends at producing the event; delivery reliability
// is the Deliverer's concern.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/metrics"
)

// IssueEvent describes a resource's transition into (or out of) a degraded
// state. It carries enough data for delivery without further lookups.
type IssueEvent struct {
	ID             string       `json:"id"`
	ResourceName   string       `json:"resource"`
	PreviousStatus check.Status `json:"previous_status"`
	NewStatus      check.Status `json:"new_status"`
	Result         check.Result `json:"result"`
}

// Deliverer sends an issue event somewhere operators will see it.
type Deliverer interface {
	Deliver(ctx context.Context, event IssueEvent) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, event IssueEvent) error

func (f DelivererFunc) Deliver(ctx context.Context, event IssueEvent) error {
	return f(ctx, event)
}

// Notifier compares fresh results against previous ones and emits events on
// status transitions within the configured threshold.
type Notifier struct {
	logger *slog.Logger
}

// New creates a Notifier. Pass nil logger to use the default logger.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Evaluate returns an event iff the status changed and the new status is
// within res's notification threshold. A nil previous result is treated as
// previously healthy, so the very first observed failure still notifies.
// Unchanged statuses never fire, and repeated checks served from cache never
// reach this code at all.
func (n *Notifier) Evaluate(prev *check.Result, cur check.Result, res config.Resource) *IssueEvent {
	prevStatus := check.StatusHealthy
	if prev != nil {
		prevStatus = prev.Status
	}

	if prevStatus == cur.Status {
		return nil
	}

	if !res.ShouldNotify(cur.Status) {
		n.logger.Debug("transition outside notification threshold",
			"resource", cur.ResourceName,
			"previous", prevStatus,
			"current", cur.Status,
		)
		return nil
	}

	metrics.NotificationsTotal.WithLabelValues(cur.ResourceName).Inc()
	return &IssueEvent{
		ID:             uuid.NewString(),
		ResourceName:   cur.ResourceName,
		PreviousStatus: prevStatus,
		NewStatus:      cur.Status,
		Result:         cur,
	}
}
