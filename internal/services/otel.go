package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"plotpilot/internal/infrastructure"
)

// TracerName is the instrumentation scope of dataset operation spans
const TracerName = "plotpilot.dataset"

// DatasetTracer wraps dataset operations in spans and records their business metrics
type DatasetTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewDatasetTracer creates a tracer on the global provider. metrics may be nil.
func NewDatasetTracer(metrics *infrastructure.BusinessMetrics) *DatasetTracer {
	return &DatasetTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// NewDatasetTracerWith uses an explicit tracer
func NewDatasetTracerWith(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *DatasetTracer {
	return &DatasetTracer{tracer: tracer, metrics: metrics}
}

// start opens the span of one operation on one dataset
func (dt *DatasetTracer) start(ctx context.Context, operation, datasetID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("dataset.operation", operation),
		attribute.String("dataset.id", datasetID),
	}, attrs...)
	return dt.tracer.Start(ctx, "dataset."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// end closes span, recording err on it and in the error counter
func (dt *DatasetTracer) end(ctx context.Context, span trace.Span, operation string, err error) {
	if err != nil {
		infrastructure.RecordOperationError(ctx, dt.metrics, operation, err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (dt *DatasetTracer) recordUpload(ctx context.Context, format string, rows, columns int) {
	if dt.metrics == nil {
		return
	}
	dt.metrics.DatasetsUploaded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
	))
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("dataset.rows", rows),
		attribute.Int("dataset.columns", columns),
	)
}

func (dt *DatasetTracer) recordCleaning(ctx context.Context, policy string, rowsRemoved, columnsRemoved int, d time.Duration, err error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("cleaning.missing_value_policy", policy),
		attribute.Int("cleaning.rows_removed", rowsRemoved),
		attribute.Int("cleaning.columns_removed", columnsRemoved),
	)
	infrastructure.RecordCleaningMetrics(ctx, dt.metrics, policy, rowsRemoved, columnsRemoved, d, err)
}

func (dt *DatasetTracer) recordChart(ctx context.Context, kind string) {
	if dt.metrics == nil {
		return
	}
	dt.metrics.ChartsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("chart_kind", kind)))
}

func (dt *DatasetTracer) recordExport(ctx context.Context, format string) {
	if dt.metrics == nil {
		return
	}
	dt.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}
