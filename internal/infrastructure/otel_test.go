package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"plotpilot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.TelemetryConfig
		wantTracing bool
		wantMetrics bool
		wantErr     bool
	}{
		{
			name:        "defaults",
			cfg:         config.Default().Telemetry,
			wantTracing: true,
			wantMetrics: true,
		},
		{
			name: "everything disabled",
			cfg:  config.TelemetryConfig{TraceExporter: "none"},
		},
		{
			name:        "stdout exporter",
			cfg:         config.TelemetryConfig{TraceExporter: "stdout", EnableTracing: true, SampleRatio: 1},
			wantTracing: true,
		},
		{
			name:    "unknown exporter",
			cfg:     config.TelemetryConfig{TraceExporter: "zipkin", EnableTracing: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, discardLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
		})
	}
}

func TestBusinessMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(config.Default().Telemetry, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordCleaningMetrics(ctx, metrics, "fill", 3, 1, 20*time.Millisecond, nil)
	RecordCleaningMetrics(ctx, metrics, "drop", 0, 0, time.Millisecond, errors.New("boom"))
	metrics.ChartsGenerated.Add(ctx, 1)
	RecordOperationError(ctx, metrics, "clean", errors.New("boom"))

	body := scrape(t, providers.PrometheusHTTP)
	assert.Contains(t, body, "plotpilot_cleaning_runs")
	assert.Contains(t, body, `missing_value_policy="fill"`)
	assert.Contains(t, body, `status="failure"`)
	assert.Contains(t, body, "plotpilot_rows_removed")
	assert.Contains(t, body, "plotpilot_charts_generated")
	assert.Contains(t, body, `operation="clean"`)
}

func TestBusinessMetricsNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCleaningMetrics(context.Background(), nil, "fill", 1, 1, time.Second, nil)
		RecordOperationError(context.Background(), nil, "clean", errors.New("x"))
	})
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	providers, err := InitializeOTel(config.TelemetryConfig{
		TraceExporter: "none",
		EnableTracing: true,
		SampleRatio:   1,
	}, discardLogger(), recorder)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "dataset.clean")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	SetSpanAttributes(ctx, map[string]interface{}{"rows": 5, "policy": "fill", "ratio": 0.5, "ok": true})
	AddSpanEvent(ctx, "step.done", map[string]interface{}{"step": "duplicates", "removed": int64(2)})
	RecordError(ctx, errors.New("bad column"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "dataset.clean", got.Name())
	assert.Len(t, got.Attributes(), 4)
	assert.Equal(t, codes.Error, got.Status().Code)
	require.Len(t, got.Events(), 2) // step.done and the recorded exception
	assert.Equal(t, "step.done", got.Events()[0].Name)

	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestRuntimeMetrics(t *testing.T) {
	providers, err := InitializeOTel(config.Default().Telemetry, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	rm, err := NewRuntimeMetrics(providers.Meter, func() int { return 3 })
	require.NoError(t, err)

	stats := rm.Stats()
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapAllocBytes)
	assert.Equal(t, int64(3), stats.ActiveSessions)

	body := scrape(t, providers.PrometheusHTTP)
	assert.Regexp(t, `plotpilot_active_sessions(\{[^}]*\})? 3`, body)
	assert.Contains(t, body, "system_goroutines")

	assert.NoError(t, rm.Stop())
}
