package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"plotpilot/internal/infrastructure"
	ws "plotpilot/internal/websocket"
)

// HubStatsProvider reports the event hub counters
type HubStatsProvider interface {
	Stats() ws.HubStats
}

// RuntimeStatsProvider reports process statistics
type RuntimeStatsProvider interface {
	Stats() infrastructure.SystemStats
}

// HealthService provides health check functionality
type HealthService struct {
	version    string
	buildTime  string
	exportsDir string
	hub        HubStatsProvider
	runtime    RuntimeStatsProvider
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64     `json:"uptime_seconds"`
	ActiveDatasets   int64       `json:"active_datasets"`
	Goroutines       int64       `json:"goroutines"`
	HeapAllocBytes   int64       `json:"heap_alloc_bytes"`
	WebSocketClients int         `json:"websocket_clients"`
	WebSocket        ws.HubStats `json:"websocket"`
	GoVersion        string      `json:"go_version"`
	OS               string      `json:"os"`
	Arch             string      `json:"arch"`
}

// NewHealthService creates a health service. hub and rt may be nil.
func NewHealthService(version, buildTime, exportsDir string, hub HubStatsProvider, rt RuntimeStatsProvider, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:    version,
		buildTime:  buildTime,
		exportsDir: exportsDir,
		hub:        hub,
		runtime:    rt,
		startTime:  time.Now(),
		logger:     logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"websocket": hs.checkWebSocketHealth(),
			"exports":   hs.checkExportsHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats returns process, dataset and websocket statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Goroutines:    int64(runtime.NumGoroutine()),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.runtime != nil {
		rt := hs.runtime.Stats()
		stats.ActiveDatasets = rt.ActiveSessions
		stats.Goroutines = rt.Goroutines
		stats.HeapAllocBytes = rt.HeapAllocBytes
	}
	if hs.hub != nil {
		stats.WebSocket = hs.hub.Stats()
		stats.WebSocketClients = stats.WebSocket.ActiveClients
	}
	return stats
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "WebSocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.Stats().ActiveClients),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkExportsHealth checks that server-side exports can be written
func (hs *HealthService) checkExportsHealth() ServiceHealth {
	if hs.exportsDir == "" {
		return ServiceHealth{Status: "ready", Message: "Exports are streamed only"}
	}
	info, err := os.Stat(hs.exportsDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Exports directory unavailable: %v", err),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Exports path is not a directory: %s", hs.exportsDir),
		}
	}
	return ServiceHealth{Status: "ready", Message: "Exports directory is available"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
	}
}
