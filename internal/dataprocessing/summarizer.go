package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"plotpilot/internal/stats"
	"plotpilot/pkg/contracts/domain"
)

// Summarizer builds the statistics view shown next to a table
type Summarizer struct {
	logger      *slog.Logger
	previewRows int
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	PreviewRows int // Rows included in the preview when the caller passes 0
}

// DefaultSummarizerConfig returns the default summarizer configuration
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{PreviewRows: 5}
}

// NewSummarizer creates a summarizer. A nil logger falls back to slog.Default().
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PreviewRows <= 0 {
		config.PreviewRows = DefaultSummarizerConfig().PreviewRows
	}
	return &Summarizer{
		logger:      logger.With(slog.String("component", "summarizer")),
		previewRows: config.PreviewRows,
	}
}

// Summarize computes the statistics view of table. previewRows <= 0 uses the
// configured default. Numeric summaries are computed concurrently.
func (s *Summarizer) Summarize(ctx context.Context, table *domain.Table, previewRows int) (*Summary, error) {
	if previewRows <= 0 {
		previewRows = s.previewRows
	}

	profile := table.Profile()
	summary := &Summary{
		Rows:        table.RowCount(),
		Columns:     table.ColumnCount(),
		Profile:     profile,
		Numeric:     []NumericSummary{},
		Categorical: []CategoricalSummary{},
		Datetime:    []DatetimeSummary{},
		Preview:     preview(table, previewRows),
	}

	var numericCols []*domain.Column
	for i, col := range table.Columns() {
		summary.MissingTotal += profile[i].Missing
		switch profile[i].Kind {
		case domain.KindNumeric:
			numericCols = append(numericCols, col)
		case domain.KindText:
			summary.Categorical = append(summary.Categorical, categoricalSummary(col))
		case domain.KindDatetime:
			summary.Datetime = append(summary.Datetime, datetimeSummary(col))
		}
	}

	numeric := make([]NumericSummary, len(numericCols))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range numericCols {
		i, col := i, col
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			numeric[i] = numericSummary(col)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	summary.Numeric = numeric
	summary.Correlation = Correlations(table)

	s.logger.DebugContext(ctx, "summary computed",
		slog.Int("rows", summary.Rows),
		slog.Int("columns", summary.Columns),
		slog.Int("numeric_columns", len(numeric)))

	return summary, nil
}

func numericSummary(col *domain.Column) NumericSummary {
	xs := stats.Sorted(col.Floats())
	if len(xs) == 0 {
		return NumericSummary{Column: col.Name}
	}
	mean, std := stats.MeanStdDev(xs)
	out := NumericSummary{
		Column: col.Name,
		Count:  len(xs),
		Mean:   mean,
		Min:    xs[0],
		Q1:     stats.Quantile(xs, 0.25),
		Median: stats.Quantile(xs, 0.5),
		Q3:     stats.Quantile(xs, 0.75),
		Max:    xs[len(xs)-1],
	}
	if !math.IsNaN(std) {
		out.Std = &std
	}
	return out
}

func categoricalSummary(col *domain.Column) CategoricalSummary {
	keys := make([]string, 0, col.Len())
	for _, v := range col.Values {
		if !v.IsMissing() {
			keys = append(keys, v.String())
		}
	}
	top, freq, _ := stats.ModeString(keys)
	return CategoricalSummary{
		Column: col.Name,
		Count:  len(keys),
		Unique: col.Distinct(),
		Top:    top,
		Freq:   freq,
	}
}

func datetimeSummary(col *domain.Column) DatetimeSummary {
	out := DatetimeSummary{Column: col.Name}
	var lo, hi time.Time
	for _, v := range col.Values {
		if !v.IsTime() {
			continue
		}
		t := v.Time()
		if out.Count == 0 || t.Before(lo) {
			lo = t
		}
		if out.Count == 0 || t.After(hi) {
			hi = t
		}
		out.Count++
	}
	out.Min, out.Max = lo, hi
	return out
}

func preview(table *domain.Table, n int) Preview {
	if n > table.RowCount() {
		n = table.RowCount()
	}
	rows := make([][]domain.Value, n)
	for i := 0; i < n; i++ {
		rows[i] = table.Row(i)
	}
	return Preview{Columns: table.ColumnNames(), Rows: rows}
}
