package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pscheid92/reciyap-relay/internal/adapter/metrics"
	"github.com/pscheid92/reciyap-relay/internal/domain"
)

const (
	evictReason    = "delivery failed"
	shutdownReason = "server shutting down"
)

type connectionRegistry interface {
	Get(userID string) (domain.Connection, bool)
	Snapshot() []domain.Entry
	Release(userID string, conn domain.Connection) bool
	Drain() []domain.Entry
}

// DeliveryResult is the outcome of a targeted send.
type DeliveryResult string

const (
	Delivered    DeliveryResult = "delivered"
	NotConnected DeliveryResult = "not_connected"
	Failed       DeliveryResult = "failed"
)

// Report summarizes one broadcast pass.
type Report struct {
	Attempted int      `json:"attempted"`
	Delivered int      `json:"delivered"`
	Evicted   []string `json:"evicted"`
}

// Broadcaster delivers payloads to connections held by the registry.
type Broadcaster struct {
	registry connectionRegistry
	metrics  *metrics.RelayMetrics
}

func NewBroadcaster(registry connectionRegistry, m *metrics.RelayMetrics) *Broadcaster {
	return &Broadcaster{registry: registry, metrics: m}
}

// BroadcastAll sends body to every registered connection. A failure on one
// recipient never stops the pass; failed recipients are evicted afterwards.
// The only error is a payload that cannot be serialized, in which case
// nothing was sent.
func (b *Broadcaster) BroadcastAll(ctx context.Context, body any) (Report, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Report{}, fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	entries := b.registry.Snapshot()
	report := Report{Attempted: len(entries), Evicted: []string{}}
	b.metrics.BroadcastFanout.Observe(float64(len(entries)))
	slog.DebugContext(ctx, "Broadcasting", "recipients", len(entries), "bytes", len(data))

	var failed []domain.Entry
	for _, entry := range entries {
		if b.deliver(ctx, entry, data) {
			report.Delivered++
		} else {
			failed = append(failed, entry)
		}
	}

	for _, entry := range failed {
		if b.evict(ctx, entry) {
			report.Evicted = append(report.Evicted, entry.UserID)
		}
	}

	return report, nil
}

// SendDirect sends body to a single user. A user that is not connected is
// not an error.
func (b *Broadcaster) SendDirect(ctx context.Context, userID string, body any) (DeliveryResult, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Failed, fmt.Errorf("failed to marshal direct payload: %w", err)
	}

	conn, ok := b.registry.Get(userID)
	if !ok {
		slog.DebugContext(ctx, "Direct recipient not connected", "recipient_id", userID)
		return NotConnected, nil
	}

	entry := domain.Entry{UserID: userID, Conn: conn}
	if b.deliver(ctx, entry, data) {
		return Delivered, nil
	}
	b.evict(ctx, entry)
	return Failed, nil
}

// Shutdown deregisters every connection and closes it with a close frame.
// It returns the number of connections closed.
func (b *Broadcaster) Shutdown(ctx context.Context) int {
	entries := b.registry.Drain()
	slog.InfoContext(ctx, "Closing all connections", "connections", len(entries))

	done := make(chan struct{}, len(entries))
	for _, entry := range entries {
		go func() {
			_ = entry.Conn.Close(shutdownReason)
			done <- struct{}{}
		}()
	}

	for range entries {
		select {
		case <-done:
		case <-ctx.Done():
			slog.WarnContext(ctx, "Shutdown deadline reached before all connections closed")
			return len(entries)
		}
	}
	return len(entries)
}

func (b *Broadcaster) deliver(ctx context.Context, entry domain.Entry, data []byte) bool {
	if err := entry.Conn.Send(data); err != nil {
		b.metrics.Deliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.WarnContext(ctx, "Delivery failed", "recipient_id", entry.UserID, "connection_id", entry.Conn.ID(), "error", err)
		return false
	}
	b.metrics.Deliveries.WithLabelValues(metrics.OutcomeDelivered).Inc()
	slog.DebugContext(ctx, "Delivered", "recipient_id", entry.UserID, "connection_id", entry.Conn.ID())
	return true
}

// evict deregisters the entry if it still holds the failed handle and closes
// the handle in the background. Closing makes the owning receive loop exit.
func (b *Broadcaster) evict(ctx context.Context, entry domain.Entry) bool {
	released := b.registry.Release(entry.UserID, entry.Conn)
	if released {
		b.metrics.Evictions.Inc()
		slog.InfoContext(ctx, "Evicted connection after failed delivery", "recipient_id", entry.UserID, "connection_id", entry.Conn.ID())
	}
	go func() { _ = entry.Conn.Close(evictReason) }()
	return released
}
