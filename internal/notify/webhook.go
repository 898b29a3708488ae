package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/resmon/internal/check"
)

// WebhookDeliverer POSTs issue events to a configured URL. A per-resource
// cooldown suppresses floods when a resource flaps faster than operators
// can react.
type WebhookDeliverer struct {
	url      string
	cooldown time.Duration
	client   *http.Client
	lastSent map[string]time.Time
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewWebhook creates a webhook deliverer. Pass nil logger to use the
// default logger.
func NewWebhook(url string, cooldown time.Duration, logger *slog.Logger) *WebhookDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDeliverer{
		url:      url,
		cooldown: cooldown,
		client:   &http.Client{Timeout: 10 * time.Second},
		lastSent: make(map[string]time.Time),
		logger:   logger,
	}
}

type webhookPayload struct {
	EventID        string       `json:"event_id"`
	Resource       string       `json:"resource"`
	Status         check.Status `json:"status"`
	PreviousStatus check.Status `json:"previous_status"`
	Message        string       `json:"message"`
	DurationMs     int64        `json:"duration_ms"`
	CheckedAt      string       `json:"checked_at"`
	Source         string       `json:"source"`
}

// Deliver sends the event unless this resource alerted within the cooldown.
func (w *WebhookDeliverer) Deliver(ctx context.Context, event IssueEvent) error {
	w.mu.Lock()
	last, exists := w.lastSent[event.ResourceName]
	if exists && time.Since(last) < w.cooldown {
		w.mu.Unlock()
		w.logger.Info("notification suppressed by cooldown", "resource", event.ResourceName)
		return nil
	}
	w.lastSent[event.ResourceName] = time.Now()
	w.mu.Unlock()

	payload := webhookPayload{
		EventID:        event.ID,
		Resource:       event.ResourceName,
		Status:         event.NewStatus,
		PreviousStatus: event.PreviousStatus,
		Message:        event.Result.Message,
		DurationMs:     event.Result.Duration.Milliseconds(),
		CheckedAt:      event.Result.CheckedAt.UTC().Format(time.RFC3339),
		Source:         "resmon",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
