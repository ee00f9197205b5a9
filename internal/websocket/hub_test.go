package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"plotpilot/internal/config"
	"plotpilot/internal/infrastructure"
	"plotpilot/internal/shared/testutil"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	metrics, err := NewHubMetrics(metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	hub := NewHub(logger, config.Default().WebSocket, metrics)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegisterSendsConnectionMessage(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub, NewMockConnection(), "session-1", "trace-1")

	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, "trace-1", msg.TraceID)
	assert.Equal(t, "connected", msg.Data.(map[string]interface{})["status"])
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionClientCount("session-1"))
}

func TestHubPublishRoutesBySession(t *testing.T) {
	hub := newTestHub(t)
	a1 := NewClient(hub, NewMockConnection(), "a", "")
	a2 := NewClient(hub, NewMockConnection(), "a", "")
	b := NewClient(hub, NewMockConnection(), "b", "")
	for _, c := range []*Client{a1, a2, b} {
		hub.Register(c)
		receive(t, c)
	}

	ctx := infrastructure.WithTraceID(context.Background(), "req-9")
	hub.Publish(ctx, "a", EventCleaned, map[string]int{"rows": 4})

	for _, c := range []*Client{a1, a2} {
		msg := receive(t, c)
		assert.Equal(t, EventCleaned, msg.Type)
		assert.Equal(t, "a", msg.SessionID)
		assert.Equal(t, "req-9", msg.TraceID)
		assert.Equal(t, float64(4), msg.Data.(map[string]interface{})["rows"])
	}
	assertNoMessage(t, b)

	hub.Publish(context.Background(), "", EventExpired, nil)
	for _, c := range []*Client{a1, a2, b} {
		assert.Equal(t, EventExpired, receive(t, c).Type)
	}
}

func TestHubUnregister(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub, NewMockConnection(), "s", "")
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.SessionClientCount("s"))
	_, ok := <-client.send
	assert.False(t, ok)

	// Unregistering twice is harmless
	hub.Unregister(client)
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := newTestHub(t)
	slow := NewClient(hub, NewMockConnection(), "s", "")
	hub.Register(slow)

	// The connection message already sits in the buffer; fill the rest
	for i := 0; i < sendBufferSize; i++ {
		hub.Publish(context.Background(), "s", EventChart, i)
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), hub.Stats().MessagesDropped)
}

func TestHubStopClosesClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, config.WebSocketConfig{}, nil)
	hub.Start()
	hub.Start()

	client := NewClient(hub, NewMockConnection(), "s", "")
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)

	// Publishing after stop is dropped silently
	assert.NotPanics(t, func() { hub.Publish(context.Background(), "s", EventDeleted, nil) })
}

func TestHubStats(t *testing.T) {
	hub := newTestHub(t)
	c1 := NewClient(hub, NewMockConnection(), "a", "")
	c2 := NewClient(hub, NewMockConnection(), "b", "")
	hub.Register(c1)
	hub.Register(c2)
	receive(t, c1)
	receive(t, c2)

	hub.Publish(context.Background(), "a", EventUploaded, nil)
	receive(t, c1)

	require.Eventually(t, func() bool { return hub.Stats().MessagesSent == 1 }, time.Second, 5*time.Millisecond)
	stats := hub.Stats()
	assert.Equal(t, 2, stats.ActiveClients)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, int64(2), stats.TotalConnections)
}

func TestNewHubDefaultsTimings(t *testing.T) {
	hub := NewHub(nil, config.WebSocketConfig{PingPeriod: time.Minute, PongWait: 30 * time.Second}, nil)
	assert.Equal(t, 30*time.Second, hub.cfg.PongWait)
	assert.Equal(t, 27*time.Second, hub.cfg.PingPeriod)
}
