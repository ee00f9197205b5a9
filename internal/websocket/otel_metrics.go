package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HubMetrics records websocket activity. A nil *HubMetrics records nothing.
type HubMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messageBytes       metric.Int64Counter
	broadcasts         metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewHubMetrics registers the websocket instruments on meter
func NewHubMetrics(meter metric.Meter) (*HubMetrics, error) {
	var (
		m   HubMetrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
		}
	}

	counter(&m.connectionsTotal, "websocket_connections", "Total number of WebSocket connections")
	counter(&m.messagesSent, "websocket_messages_sent", "Messages written to WebSocket clients")
	counter(&m.messageBytes, "websocket_message_bytes", "Bytes written to WebSocket clients")
	counter(&m.broadcasts, "websocket_broadcasts", "Events fanned out by the hub")
	counter(&m.droppedMessages, "websocket_dropped_messages", "Messages dropped for slow clients")
	if err != nil {
		return nil, err
	}

	if m.connectionsActive, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections")); err != nil {
		return nil, err
	}
	if m.connectionDuration, err = meter.Float64Histogram("websocket_connection_duration",
		metric.WithDescription("WebSocket connection lifetime in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *HubMetrics) recordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *HubMetrics) recordDisconnection(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds())
}

func (m *HubMetrics) recordMessageSent(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.messagesSent.Add(ctx, 1)
	m.messageBytes.Add(ctx, int64(size))
}

func (m *HubMetrics) recordBroadcast(ctx context.Context, eventType string, dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
	if dropped > 0 {
		m.droppedMessages.Add(ctx, int64(dropped))
	}
}
