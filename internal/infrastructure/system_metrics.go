package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics publishes process gauges that are read at collection time
type RuntimeMetrics struct {
	registration   metric.Registration
	start          time.Time
	activeSessions func() int
}

// SystemStats is a point-in-time view of the process, served by the health endpoint
type SystemStats struct {
	Goroutines     int64   `json:"goroutines"`
	HeapAllocBytes int64   `json:"heap_alloc_bytes"`
	GCCount        uint32  `json:"gc_count"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	ActiveSessions int64   `json:"active_sessions"`
}

// NewRuntimeMetrics registers observable gauges for goroutines, heap, uptime
// and the number of live sessions reported by activeSessions
func NewRuntimeMetrics(meter metric.Meter, activeSessions func() int) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, err
	}
	heap, err := meter.Int64ObservableGauge("system_memory_heap_alloc",
		metric.WithDescription("Heap bytes allocated and in use"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge("system_uptime",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	sessions, err := meter.Int64ObservableGauge("plotpilot_active_sessions",
		metric.WithDescription("Datasets currently held in memory"))
	if err != nil {
		return nil, err
	}

	rm := &RuntimeMetrics{start: time.Now(), activeSessions: activeSessions}
	rm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := rm.Stats()
		o.ObserveInt64(goroutines, stats.Goroutines)
		o.ObserveInt64(heap, stats.HeapAllocBytes)
		o.ObserveFloat64(uptime, stats.UptimeSeconds)
		o.ObserveInt64(sessions, stats.ActiveSessions)
		return nil
	}, goroutines, heap, uptime, sessions)
	if err != nil {
		return nil, err
	}
	return rm, nil
}


// Stop unregisters the gauge callback
func (rm *RuntimeMetrics) Stop() error {
	if rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}

// Stats returns the current values without going through the meter
func (rm *RuntimeMetrics) Stats() SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := SystemStats{
		Goroutines:     int64(runtime.NumGoroutine()),
		HeapAllocBytes: int64(mem.HeapAlloc),
		GCCount:        mem.NumGC,
		UptimeSeconds:  time.Since(rm.start).Seconds(),
	}
	if rm.activeSessions != nil {
		stats.ActiveSessions = int64(rm.activeSessions())
	}
	return stats
}
