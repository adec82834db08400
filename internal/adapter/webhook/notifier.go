// Package webhook delivers order-status-change notifications to an external
// HTTP endpoint, with a circuit breaker guarding against a misbehaving
// receiver.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/events"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Config contains webhook notifier configuration.
type Config struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold uint32
	CircuitTimeout   time.Duration
}

// Notifier posts order status changes to a configured endpoint. It
// implements events.Handler and is registered on the event bus only when a
// URL is configured.
type Notifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewNotifier creates a new webhook notifier.
func NewNotifier(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	circuitTimeout := cfg.CircuitTimeout
	if circuitTimeout <= 0 {
		circuitTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "order-status-webhook",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     circuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}

	return &Notifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		metrics: m,
		logger:  logger,
	}
}

// Handles reports the event types this notifier consumes.
func (n *Notifier) Handles() []string {
	return []string{events.OrderStatusChangedType}
}

// Handle delivers one event. Delivery failures are reported to the breaker
// and surfaced to the bus; the originating transition has already committed.
func (n *Notifier) Handle(event events.Event) error {
	change, ok := event.(*events.OrderStatusChangedEvent)
	if !ok {
		return nil
	}

	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.deliver(change)
	})
	if err != nil {
		n.countDelivery("failed")
		n.logger.Warn("webhook delivery failed",
			zap.Uint64("order_id", change.OrderID),
			zap.String("to_status", change.ToStatusKey),
			zap.Error(err),
		)
		return err
	}

	n.countDelivery("delivered")
	return nil
}

func (n *Notifier) deliver(change *events.OrderStatusChangedEvent) error {
	payload, err := json.Marshal(map[string]any{
		"event":           change.EventType(),
		"event_id":        change.EventID().String(),
		"order_id":        change.OrderID,
		"from_status_key": change.FromStatusKey,
		"to_status_key":   change.ToStatusKey,
		"to_status_label": change.ToStatusLabel,
		"changed_by":      change.ChangedBy.String(),
		"occurred_at":     change.OccurredAt().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) countDelivery(status string) {
	if n.metrics == nil {
		return
	}
	n.metrics.WebhookDeliveries.WithLabelValues(status).Inc()
}
