package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"plotpilot/internal/dataprocessing"
	apierrors "plotpilot/internal/errors"
	"plotpilot/internal/exporter"
	"plotpilot/internal/infrastructure"
	"plotpilot/internal/session"
	"plotpilot/internal/shared/testutil"
	ws "plotpilot/internal/websocket"
	"plotpilot/pkg/contracts/domain"
)

type serviceFixture struct {
	svc    *DatasetService
	store  *session.MemoryStore
	events *MockEventPublisher
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *testutil.BufferedSlogHandler
}

func newServiceFixture(t *testing.T, maxSessions int) *serviceFixture {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	events := &MockEventPublisher{}
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	store := session.NewMemoryStore(time.Hour, maxSessions, logger)
	svc := NewDatasetService(
		store,
		dataprocessing.NewLoader(logger, dataprocessing.DefaultOptions()),
		dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()),
		exporter.NewTableWriter(logger),
		events,
		NewDatasetTracerWith(tp.Tracer("test"), metrics),
		DatasetOptions{PreviewRows: 3},
		logger,
	)
	return &serviceFixture{svc: svc, store: store, events: events, spans: spans, reader: reader, logs: logs}
}

func (f *serviceFixture) upload(t *testing.T) *DatasetView {
	t.Helper()
	view, err := f.svc.Upload(context.Background(), "sales.csv", strings.NewReader(testutil.SalesCSV))
	require.NoError(t, err)
	return view
}

func (f *serviceFixture) spanNames() []string {
	var names []string
	for _, s := range f.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func (f *serviceFixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestDatasetService_Upload(t *testing.T) {
	f := newServiceFixture(t, 0)

	view := f.upload(t)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "sales.csv", view.Name)
	assert.Equal(t, Shape{Rows: 5, Columns: 6}, view.Original)
	assert.Nil(t, view.Cleaned)
	assert.Equal(t, "original", view.Active)
	assert.Len(t, view.Profile, 6)
	assert.Empty(t, view.Log)

	assert.Equal(t, []string{ws.EventUploaded}, f.events.EventTypes())
	assert.Contains(t, f.spanNames(), "dataset.upload")
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_datasets_uploaded"))
	assert.True(t, f.logs.ContainsMessage("dataset uploaded"))
}

func TestDatasetService_UploadErrors(t *testing.T) {
	tests := []struct {
		name        string
		maxSessions int
		file        string
		body        string
		wantIs      error
		wantApp     apierrors.ErrorType
	}{
		{
			name:    "unsupported extension",
			file:    "notes.txt",
			body:    "a,b\n1,2\n",
			wantIs:  dataprocessing.ErrUnsupportedFormat,
			wantApp: apierrors.ErrTypeUnsupported,
		},
		{
			name:    "empty csv",
			file:    "empty.csv",
			body:    "",
			wantIs:  dataprocessing.ErrEmptyFile,
			wantApp: apierrors.ErrTypeParsing,
		},
		{
			name:        "store full",
			maxSessions: 1,
			file:        "sales.csv",
			body:        testutil.SalesCSV,
			wantIs:      ErrTooManySessions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, tt.maxSessions)
			if tt.maxSessions > 0 {
				f.upload(t)
			}

			_, err := f.svc.Upload(context.Background(), tt.file, strings.NewReader(tt.body))

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.wantApp != "" {
				var appErr *apierrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.wantApp, appErr.Type)
			}
			assert.Equal(t, int64(1), f.counter(t, "plotpilot_operation_errors"))
		})
	}
}

func TestDatasetService_Clean(t *testing.T) {
	f := newServiceFixture(t, 0)
	uploaded := f.upload(t)

	view, err := f.svc.Clean(context.Background(), uploaded.ID, domain.DefaultCleaningConfig())
	require.NoError(t, err)

	assert.Equal(t, "cleaned", view.Active)
	require.NotNil(t, view.Cleaned)
	assert.Equal(t, Shape{Rows: 4, Columns: 5}, *view.Cleaned)
	assert.Equal(t, Shape{Rows: 5, Columns: 6}, view.Original, "the upload is kept unchanged")
	assert.Contains(t, view.Log.Lines(), "Removed 1 duplicate rows.")
	require.NotNil(t, view.Config)
	assert.Equal(t, domain.MissingFill, view.Config.MissingValuePolicy)

	assert.Equal(t, []string{ws.EventUploaded, ws.EventCleaned}, f.events.EventTypes())
	assert.Contains(t, f.spanNames(), "dataset.clean")
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_cleaning_runs"))
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_rows_removed"))
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_columns_removed"))

	testutil.AssertLogContains(t, f.logs, slog.LevelInfo, "dataset cleaned")
	assert.NotEmpty(t, f.logs.GetRecordsByLevel(slog.LevelDebug), "each action is logged at debug")
}

func TestDatasetService_CleanStartsFromOriginal(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID
	ctx := context.Background()

	dropCfg := domain.DefaultCleaningConfig()
	dropCfg.MissingValuePolicy = domain.MissingDrop
	first, err := f.svc.Clean(ctx, id, dropCfg)
	require.NoError(t, err)

	second, err := f.svc.Clean(ctx, id, domain.DefaultCleaningConfig())
	require.NoError(t, err)

	assert.Less(t, first.Cleaned.Rows, second.Cleaned.Rows)
	assert.Equal(t, 4, second.Cleaned.Rows)
}

func TestDatasetService_CleanErrors(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID

	_, err := f.svc.Clean(context.Background(), id, domain.CleaningConfig{MissingValuePolicy: "guess"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_cleaning_runs"))

	_, err = f.svc.Clean(context.Background(), "missing", domain.DefaultCleaningConfig())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_cleaning_runs"), "no run without a session")
}

func TestDatasetService_RevertAndSelect(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID
	ctx := context.Background()

	_, err := f.svc.Revert(ctx, id)
	assert.ErrorIs(t, err, ErrNoCleanedTable)

	_, err = f.svc.SelectTable(ctx, id, true)
	assert.ErrorIs(t, err, ErrNoCleanedTable)

	_, err = f.svc.Clean(ctx, id, domain.DefaultCleaningConfig())
	require.NoError(t, err)

	view, err := f.svc.SelectTable(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, "original", view.Active)
	assert.NotNil(t, view.Cleaned, "selecting the original keeps the cleaned table")
	assert.Equal(t, Shape{Rows: 5, Columns: 6}, view.Shape())

	view, err = f.svc.SelectTable(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, "cleaned", view.Active)

	view, err = f.svc.Revert(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", view.Active)
	assert.Nil(t, view.Cleaned)
	assert.Nil(t, view.Config)
	assert.Empty(t, view.Log)

	assert.Equal(t, []string{
		ws.EventUploaded, ws.EventCleaned, ws.EventSelected, ws.EventSelected, ws.EventReverted,
	}, f.events.EventTypes())
}

func TestDatasetService_Summary(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID
	ctx := context.Background()

	summary, err := f.svc.Summary(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", summary.Table)
	assert.Equal(t, 5, summary.Rows)
	assert.Len(t, summary.Preview.Rows, 3, "configured preview length")

	_, err = f.svc.Clean(ctx, id, domain.DefaultCleaningConfig())
	require.NoError(t, err)

	summary, err = f.svc.Summary(ctx, id, 10)
	require.NoError(t, err)
	assert.Equal(t, "cleaned", summary.Table)
	assert.Equal(t, 4, summary.Rows)
	assert.Len(t, summary.Preview.Rows, 4)
	assert.Len(t, summary.Datetime, 1, "order_date is a datetime after cleaning")
}

func TestDatasetService_Charts(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID
	ctx := context.Background()

	_, err := f.svc.Clean(ctx, id, domain.DefaultCleaningConfig())
	require.NoError(t, err)

	options, err := f.svc.ChartOptions(ctx, id, domain.ChartLine)
	require.NoError(t, err)
	require.NotEmpty(t, options)
	assert.Contains(t, options[0].Columns, "order_date")

	_, err = f.svc.ChartOptions(ctx, id, "sankey")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.GenerateChart(ctx, id, domain.ChartSpec{})
	assert.ErrorIs(t, err, ErrNoChartSelected)

	line := domain.ChartSpec{
		Kind:    domain.ChartLine,
		Columns: map[domain.ChartRole]string{domain.RoleX: "order_date", domain.RoleY: "units"},
	}
	view, err := f.svc.SelectChart(ctx, id, line)
	require.NoError(t, err)
	require.NotNil(t, view.Chart)
	assert.Equal(t, domain.ChartLine, view.Chart.Kind)

	result, err := f.svc.GenerateChart(ctx, id, domain.ChartSpec{})
	require.NoError(t, err)
	assert.Equal(t, domain.ChartLine, result.Kind)
	assert.Equal(t, "cleaned", result.Table)
	assert.Equal(t, "Trend of units over order_date", result.Figure.Title())
	assert.Contains(t, result.Code, "px.line")
	assert.Equal(t, int64(1), f.counter(t, "plotpilot_charts_generated"))

	// order_date is text in the upload, so the line chart no longer fits
	view, err = f.svc.Revert(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, view.Chart)
	assert.True(t, f.logs.ContainsMessage("chart selection cleared"))

	_, err = f.svc.SelectChart(ctx, id, line)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bar := domain.ChartSpec{
		Kind:    domain.ChartBar,
		Columns: map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"},
	}
	_, err = f.svc.SelectChart(ctx, id, bar)
	require.NoError(t, err)
	view, err = f.svc.ClearChart(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, view.Chart)
}

func TestDatasetService_Export(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		clean        bool
		wantFilename string
		wantType     string
	}{
		{name: "original csv", format: "csv", wantFilename: "sales.csv", wantType: "text/csv; charset=utf-8"},
		{name: "cleaned csv", format: "", clean: true, wantFilename: "sales_cleaned.csv", wantType: "text/csv; charset=utf-8"},
		{
			name:         "cleaned excel",
			format:       "xlsx",
			clean:        true,
			wantFilename: "sales_cleaned.xlsx",
			wantType:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, 0)
			id := f.upload(t).ID
			ctx := context.Background()
			if tt.clean {
				_, err := f.svc.Clean(ctx, id, domain.DefaultCleaningConfig())
				require.NoError(t, err)
			}

			var buf bytes.Buffer
			result, err := f.svc.Export(ctx, id, tt.format, &buf)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFilename, result.Filename)
			assert.Equal(t, tt.wantType, result.ContentType)
			assert.NotZero(t, buf.Len())
			assert.Equal(t, int64(1), f.counter(t, "plotpilot_exports"))
			assert.Contains(t, f.events.EventTypes(), ws.EventExported)

			if result.Format == exporter.FormatCSV {
				records, err := csv.NewReader(&buf).ReadAll()
				require.NoError(t, err)
				assert.Len(t, records, result.Rows+1)
			}
		})
	}
}

func TestDatasetService_ExportErrors(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID

	var buf bytes.Buffer
	_, err := f.svc.Export(context.Background(), id, "parquet", &buf)
	assert.ErrorIs(t, err, ErrUnsupportedExport)

	_, err = f.svc.Export(context.Background(), "missing", "csv", &buf)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, buf.Len())
}

func TestDatasetService_Delete(t *testing.T) {
	f := newServiceFixture(t, 0)
	id := f.upload(t).ID
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, id))
	assert.Zero(t, f.svc.ActiveSessions())

	_, err := f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, id), ErrSessionNotFound)
	assert.Equal(t, []string{ws.EventUploaded, ws.EventDeleted}, f.events.EventTypes())
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		source string
		table  string
		format exporter.Format
		want   string
	}{
		{"sales.csv", "original", exporter.FormatCSV, "sales.csv"},
		{"sales.csv", "cleaned", exporter.FormatExcel, "sales_cleaned.xlsx"},
		{"dir/report.v2.xlsx", "cleaned", exporter.FormatCSV, "report.v2_cleaned.csv"},
		{"", "original", exporter.FormatCSV, "dataset.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, exportFilename(tt.source, tt.table, tt.format))
		})
	}
}
