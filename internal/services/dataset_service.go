package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"plotpilot/internal/charts"
	"plotpilot/internal/cleaning"
	"plotpilot/internal/dataprocessing"
	"plotpilot/internal/exporter"
	"plotpilot/internal/session"
	ws "plotpilot/internal/websocket"
	"plotpilot/pkg/contracts/domain"
)

// EventPublisher pushes dataset events to the subscribers of a session
type EventPublisher interface {
	Publish(ctx context.Context, sessionID, eventType string, data interface{})
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, string, interface{}) {}

// DatasetOptions tunes a DatasetService
type DatasetOptions struct {
	// Cleaning is the recipe used when a request leaves a field unset
	Cleaning domain.CleaningConfig
	// PreviewRows is the preview length when a summary request gives none
	PreviewRows int
	// Sheet names the worksheet written by Excel exports
	Sheet string
}

// DatasetService runs every user-facing operation on an uploaded dataset:
// loading, cleaning, table selection, statistics, charts and export
type DatasetService struct {
	store      *session.MemoryStore
	loader     *dataprocessing.Loader
	summarizer *dataprocessing.Summarizer
	tables     *exporter.TableWriter
	events     EventPublisher
	tracer     *DatasetTracer
	options    DatasetOptions
	logger     *slog.Logger
	now        func() time.Time
}

// NewDatasetService wires the service. A nil publisher drops events, a nil
// tracer uses the global provider without business metrics.
func NewDatasetService(
	store *session.MemoryStore,
	loader *dataprocessing.Loader,
	summarizer *dataprocessing.Summarizer,
	tables *exporter.TableWriter,
	events EventPublisher,
	tracer *DatasetTracer,
	options DatasetOptions,
	logger *slog.Logger,
) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = discardPublisher{}
	}
	if tracer == nil {
		tracer = NewDatasetTracer(nil)
	}
	if options.PreviewRows <= 0 {
		options.PreviewRows = 5
	}
	if !options.Cleaning.MissingValuePolicy.Valid() {
		options.Cleaning = domain.DefaultCleaningConfig()
	}
	return &DatasetService{
		store:      store,
		loader:     loader,
		summarizer: summarizer,
		tables:     tables,
		events:     events,
		tracer:     tracer,
		options:    options,
		logger:     logger.With(slog.String("component", "dataset_service")),
		now:        time.Now,
	}
}

// DefaultCleaningConfig returns the recipe used for unset request fields
func (s *DatasetService) DefaultCleaningConfig() domain.CleaningConfig {
	return s.options.Cleaning
}

// Upload reads a CSV or Excel file and opens a session on it
func (s *DatasetService) Upload(ctx context.Context, name string, r io.Reader) (view *DatasetView, err error) {
	ctx, span := s.tracer.start(ctx, "upload", "", attribute.String("dataset.file", name))
	defer func() { s.tracer.end(ctx, span, "upload", err) }()

	table, err := s.loader.Load(ctx, name, r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	sess, err := s.store.Create(name, table)
	if err != nil {
		return nil, s.storeError(err)
	}
	span.SetAttributes(attribute.String("dataset.id", sess.ID))
	s.tracer.recordUpload(ctx, strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."), table.RowCount(), table.ColumnCount())

	s.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", sess.ID),
		slog.String("file", name),
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", table.ColumnCount()))

	view = NewDatasetView(sess)
	s.events.Publish(ctx, sess.ID, ws.EventUploaded, view.Shape())
	return view, nil
}

// Get returns the current state of a dataset
func (s *DatasetService) Get(ctx context.Context, id string) (*DatasetView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return NewDatasetView(sess), nil
}

// Delete drops a dataset and everything derived from it
func (s *DatasetService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.start(ctx, "delete", id)
	defer func() { s.tracer.end(ctx, span, "delete", err) }()

	if err := s.store.Delete(id); err != nil {
		return s.storeError(err)
	}
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	s.events.Publish(ctx, id, ws.EventDeleted, nil)
	return nil
}

// Clean runs the cleaning pipeline on the original table and selects the
// result. Cleaning always starts from the upload, so repeated runs with
// different recipes do not compound.
func (s *DatasetService) Clean(ctx context.Context, id string, cfg domain.CleaningConfig) (view *DatasetView, err error) {
	policy := string(cfg.MissingValuePolicy)
	ctx, span := s.tracer.start(ctx, "clean", id, attribute.String("cleaning.missing_value_policy", policy))
	defer func() { s.tracer.end(ctx, span, "clean", err) }()

	var (
		log                         domain.ActionLog
		rowsRemoved, columnsRemoved int
		elapsed                     time.Duration
		ran                         bool
	)
	sess, err := s.store.Update(id, func(sess *session.Session) error {
		started := s.now()
		cleaned, actions, err := cleaning.Clean(sess.Original, cfg)
		elapsed = s.now().Sub(started)
		ran = true
		if err != nil {
			return err
		}

		log = actions
		rowsRemoved = sess.Original.RowCount() - cleaned.RowCount()
		columnsRemoved = sess.Original.ColumnCount() - cleaned.ColumnCount()

		config := cfg
		sess.Cleaned = cleaned
		sess.Log = actions
		sess.Config = &config
		sess.UseCleaned = true
		s.dropStaleChart(ctx, sess)
		return nil
	})
	if ran {
		s.tracer.recordCleaning(ctx, policy, rowsRemoved, columnsRemoved, elapsed, err)
	}
	if err != nil {
		if errors.Is(err, cleaning.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, s.storeError(err)
	}

	for _, entry := range log {
		s.logger.DebugContext(ctx, entry.Message,
			slog.String("dataset_id", id),
			slog.String("step", string(entry.Step)),
			slog.String("level", string(entry.Level)))
	}
	s.logger.InfoContext(ctx, "dataset cleaned",
		slog.String("dataset_id", id),
		slog.String("missing_value_policy", policy),
		slog.Int("rows_removed", rowsRemoved),
		slog.Int("columns_removed", columnsRemoved),
		slog.Int("log_entries", len(log)),
		slog.Int("warnings", len(log.Warnings())),
		slog.Duration("duration", elapsed))

	view = NewDatasetView(sess)
	s.events.Publish(ctx, id, ws.EventCleaned, map[string]interface{}{
		"rows":            sess.Cleaned.RowCount(),
		"columns":         sess.Cleaned.ColumnCount(),
		"rows_removed":    rowsRemoved,
		"columns_removed": columnsRemoved,
		"log":             log,
	})
	return view, nil
}

// Revert discards the cleaned table and its log and selects the original
func (s *DatasetService) Revert(ctx context.Context, id string) (view *DatasetView, err error) {
	ctx, span := s.tracer.start(ctx, "revert", id)
	defer func() { s.tracer.end(ctx, span, "revert", err) }()

	sess, err := s.store.Update(id, func(sess *session.Session) error {
		if !sess.HasCleaned() {
			return ErrNoCleanedTable
		}
		sess.Cleaned = nil
		sess.Log = nil
		sess.Config = nil
		sess.UseCleaned = false
		s.dropStaleChart(ctx, sess)
		return nil
	})
	if err != nil {
		return nil, s.storeError(err)
	}

	s.logger.InfoContext(ctx, "dataset reverted", slog.String("dataset_id", id))
	view = NewDatasetView(sess)
	s.events.Publish(ctx, id, ws.EventReverted, view.Shape())
	return view, nil
}

// SelectTable chooses whether statistics, charts and exports use the cleaned
// table or the original one
func (s *DatasetService) SelectTable(ctx context.Context, id string, useCleaned bool) (view *DatasetView, err error) {
	ctx, span := s.tracer.start(ctx, "select_table", id, attribute.Bool("dataset.use_cleaned", useCleaned))
	defer func() { s.tracer.end(ctx, span, "select_table", err) }()

	sess, err := s.store.Update(id, func(sess *session.Session) error {
		if useCleaned && !sess.HasCleaned() {
			return ErrNoCleanedTable
		}
		sess.UseCleaned = useCleaned
		s.dropStaleChart(ctx, sess)
		return nil
	})
	if err != nil {
		return nil, s.storeError(err)
	}

	s.logger.InfoContext(ctx, "active table selected",
		slog.String("dataset_id", id),
		slog.String("table", sess.ActiveName()))
	view = NewDatasetView(sess)
	s.events.Publish(ctx, id, ws.EventSelected, view.Shape())
	return view, nil
}

// Summary computes the statistics view of the active table. previewRows <= 0
// uses the configured default.
func (s *DatasetService) Summary(ctx context.Context, id string, previewRows int) (result *SummaryResult, err error) {
	ctx, span := s.tracer.start(ctx, "summary", id)
	defer func() { s.tracer.end(ctx, span, "summary", err) }()

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if previewRows <= 0 {
		previewRows = s.options.PreviewRows
	}

	summary, err := s.summarizer.Summarize(ctx, sess.Active(), previewRows)
	if err != nil {
		return nil, fmt.Errorf("summarize dataset %s: %w", id, err)
	}
	return &SummaryResult{Table: sess.ActiveName(), Summary: summary}, nil
}

// ChartCatalog lists every chart kind with its bindings
func (s *DatasetService) ChartCatalog() []charts.Definition {
	return charts.Catalog()
}

// ChartOptions lists, per binding of kind, the active table's eligible columns
func (s *DatasetService) ChartOptions(ctx context.Context, id string, kind domain.ChartKind) ([]charts.RoleOptions, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	options, err := charts.Options(sess.Active(), kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return options, nil
}

// SelectChart validates spec against the active table and remembers it
func (s *DatasetService) SelectChart(ctx context.Context, id string, spec domain.ChartSpec) (view *DatasetView, err error) {
	ctx, span := s.tracer.start(ctx, "select_chart", id, attribute.String("chart.kind", string(spec.Kind)))
	defer func() { s.tracer.end(ctx, span, "select_chart", err) }()

	sess, err := s.store.Update(id, func(sess *session.Session) error {
		if err := charts.Validate(sess.Active(), spec); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		normalized := charts.Normalize(spec)
		sess.Chart = &normalized
		return nil
	})
	if err != nil {
		return nil, s.storeError(err)
	}
	return NewDatasetView(sess), nil
}

// ClearChart forgets the chart selection
func (s *DatasetService) ClearChart(ctx context.Context, id string) (*DatasetView, error) {
	sess, err := s.store.Update(id, func(sess *session.Session) error {
		sess.Chart = nil
		return nil
	})
	if err != nil {
		return nil, s.storeError(err)
	}
	return NewDatasetView(sess), nil
}

// GenerateChart builds the figure and the plotly-express code for spec on the
// active table. A spec without a kind uses the stored selection.
func (s *DatasetService) GenerateChart(ctx context.Context, id string, spec domain.ChartSpec) (result *ChartResult, err error) {
	ctx, span := s.tracer.start(ctx, "generate_chart", id)
	defer func() { s.tracer.end(ctx, span, "generate_chart", err) }()

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if spec.Kind == "" {
		if sess.Chart == nil {
			return nil, ErrNoChartSelected
		}
		spec = *sess.Chart
	}
	span.SetAttributes(attribute.String("chart.kind", string(spec.Kind)))

	figure, err := charts.BuildFigure(sess.Active(), spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	code, err := charts.RenderCode(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.tracer.recordChart(ctx, string(spec.Kind))

	s.logger.InfoContext(ctx, "chart generated",
		slog.String("dataset_id", id),
		slog.String("kind", string(spec.Kind)),
		slog.String("table", sess.ActiveName()),
		slog.Int("traces", len(figure.Data)))
	s.events.Publish(ctx, id, ws.EventChart, map[string]interface{}{
		"kind":  spec.Kind,
		"title": figure.Title(),
	})

	return &ChartResult{
		Kind:   spec.Kind,
		Table:  sess.ActiveName(),
		Spec:   charts.Normalize(spec),
		Figure: figure,
		Code:   code,
	}, nil
}

// Export writes the active table to w in the named format ("csv" or "xlsx")
func (s *DatasetService) Export(ctx context.Context, id, format string, w io.Writer) (result *ExportResult, err error) {
	ctx, span := s.tracer.start(ctx, "export", id, attribute.String("export.format", format))
	defer func() { s.tracer.end(ctx, span, "export", err) }()

	f, err := exporter.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, format)
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	table := sess.Active()
	opts := exporter.TableOptions{Sheet: s.options.Sheet}
	if err := s.tables.Write(w, table, f, opts); err != nil {
		return nil, fmt.Errorf("export dataset %s: %w", id, err)
	}
	s.tracer.recordExport(ctx, string(f))

	result = &ExportResult{
		Filename:    exportFilename(sess.Name, sess.ActiveName(), f),
		ContentType: f.ContentType(),
		Format:      f,
		Table:       sess.ActiveName(),
		Rows:        table.RowCount(),
		Columns:     table.ColumnCount(),
	}
	s.logger.InfoContext(ctx, "dataset exported",
		slog.String("dataset_id", id),
		slog.String("format", string(f)),
		slog.String("table", result.Table),
		slog.Int("rows", result.Rows))
	s.events.Publish(ctx, id, ws.EventExported, map[string]interface{}{
		"format":   f,
		"filename": result.Filename,
	})
	return result, nil
}

// ActiveSessions returns the number of open datasets
func (s *DatasetService) ActiveSessions() int {
	return s.store.Len()
}

func (s *DatasetService) session(id string) (*session.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return sess, nil
}

// storeError maps store errors to service errors and passes others through
func (s *DatasetService) storeError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	case errors.Is(err, session.ErrStoreFull):
		return fmt.Errorf("%w: %w", ErrTooManySessions, err)
	default:
		return err
	}
}

// dropStaleChart clears a chart selection that no longer fits the active table
func (s *DatasetService) dropStaleChart(ctx context.Context, sess *session.Session) {
	if sess.Chart == nil {
		return
	}
	if err := charts.Validate(sess.Active(), *sess.Chart); err != nil {
		s.logger.InfoContext(ctx, "chart selection cleared",
			slog.String("dataset_id", sess.ID),
			slog.String("kind", string(sess.Chart.Kind)),
			slog.String("reason", err.Error()))
		sess.Chart = nil
	}
}

// exportFilename names a download after the uploaded file and the exported table
func exportFilename(source, table string, f exporter.Format) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" || stem == "." {
		stem = "dataset"
	}
	if table == "cleaned" {
		stem += "_cleaned"
	}
	return stem + f.Extension()
}
