package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plotpilot/internal/infrastructure"
	"plotpilot/internal/shared/testutil"
	ws "plotpilot/internal/websocket"
)

type MockHubStats struct {
	mock.Mock
}

func (m *MockHubStats) Stats() ws.HubStats {
	return m.Called().Get(0).(ws.HubStats)
}

type MockRuntimeStats struct {
	mock.Mock
}

func (m *MockRuntimeStats) Stats() infrastructure.SystemStats {
	return m.Called().Get(0).(infrastructure.SystemStats)
}

func TestHealthService_HealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", "", "", nil, nil, logger)

	status := hs.HealthCheck(context.Background())

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		hub        bool
		exportsDir func(t *testing.T) string
		want       string
	}{
		{
			name:       "all ready",
			hub:        true,
			exportsDir: func(t *testing.T) string { return t.TempDir() },
			want:       "ready",
		},
		{
			name:       "streaming only",
			hub:        true,
			exportsDir: func(t *testing.T) string { return "" },
			want:       "ready",
		},
		{
			name:       "no hub",
			exportsDir: func(t *testing.T) string { return "" },
			want:       "not_ready",
		},
		{
			name:       "missing exports dir",
			hub:        true,
			exportsDir: func(t *testing.T) string { return t.TempDir() + "/absent" },
			want:       "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			var hub HubStatsProvider
			if tt.hub {
				m := &MockHubStats{}
				m.On("Stats").Return(ws.HubStats{ActiveClients: 2})
				hub = m
			}
			hs := NewHealthService("1.0.0", "", tt.exportsDir(t), hub, nil, logger)

			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.want, status.Status)
			assert.Contains(t, status.Services, "websocket")
			assert.Contains(t, status.Services, "exports")
		})
	}
}

func TestHealthService_SystemStats(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	hub := &MockHubStats{}
	hub.On("Stats").Return(ws.HubStats{ActiveClients: 3, ActiveSessions: 2, MessagesSent: 10})
	rt := &MockRuntimeStats{}
	rt.On("Stats").Return(infrastructure.SystemStats{Goroutines: 12, HeapAllocBytes: 4096, ActiveSessions: 5})

	hs := NewHealthService("1.0.0", "2024-01-02", "", hub, rt, logger)
	stats := hs.SystemStats(context.Background())

	assert.Equal(t, int64(5), stats.ActiveDatasets)
	assert.Equal(t, int64(12), stats.Goroutines)
	assert.Equal(t, int64(4096), stats.HeapAllocBytes)
	assert.Equal(t, 3, stats.WebSocketClients)
	assert.Equal(t, int64(10), stats.WebSocket.MessagesSent)
	assert.NotEmpty(t, stats.GoVersion)
	hub.AssertExpectations(t)
	rt.AssertExpectations(t)
}

func TestHealthService_Version(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	hs := NewHealthService("1.0.0", "2024-01-02", "", nil, nil, logger)
	v := hs.Version()
	assert.Equal(t, "1.0.0", v["version"])
	assert.Equal(t, "2024-01-02", v["build_time"])

	hs = NewHealthService("1.0.0", "", "", nil, nil, logger)
	assert.NotContains(t, hs.Version(), "build_time")
}

func TestHealthService_GetDetailedHealth(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("1.0.0", "", "", nil, nil, logger)

	detailed := hs.GetDetailedHealth(context.Background())

	for _, key := range []string{"health", "readiness", "liveness", "stats"} {
		assert.Contains(t, detailed, key)
	}
}
