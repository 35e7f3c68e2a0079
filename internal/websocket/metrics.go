package websocket

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments of the hub. A nil *Metrics
// records nothing.
type Metrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messageBytes       metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewMetrics creates the hub instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		errs []error
		err  error
	)

	m.connectionsTotal, err = meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"))
	errs = append(errs, err)
	m.connectionsActive, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"))
	errs = append(errs, err)
	m.connectionDuration, err = meter.Float64Histogram("websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.messagesSent, err = meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("Events delivered to clients, by type"))
	errs = append(errs, err)
	m.messageBytes, err = meter.Int64Counter("websocket_message_bytes_total",
		metric.WithDescription("Total bytes of delivered events"), metric.WithUnit("By"))
	errs = append(errs, err)
	m.droppedMessages, err = meter.Int64Counter("websocket_dropped_messages_total",
		metric.WithDescription("Events dropped because a client buffer was full"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) recordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *Metrics) recordDisconnection(ctx context.Context, d time.Duration, reason string) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) recordDelivery(ctx context.Context, messageType string, delivered int, size int) {
	if m == nil || delivered == 0 {
		return
	}
	attrs := metric.WithAttributes(attribute.String("message_type", messageType))
	m.messagesSent.Add(ctx, int64(delivered), attrs)
	m.messageBytes.Add(ctx, int64(delivered*size), attrs)
}

func (m *Metrics) recordDropped(ctx context.Context, messageType string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}
