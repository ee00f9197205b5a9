package dataprocessing

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotpilot/internal/shared/testutil"
	"plotpilot/pkg/contracts/domain"
)

func TestNewSummarizer(t *testing.T) {
	tests := []struct {
		name        string
		logger      *slog.Logger
		config      SummarizerConfig
		wantPreview int
	}{
		{
			name:        "default config",
			logger:      slog.Default(),
			config:      DefaultSummarizerConfig(),
			wantPreview: 5,
		},
		{
			name:        "custom preview size",
			logger:      slog.Default(),
			config:      SummarizerConfig{PreviewRows: 20},
			wantPreview: 20,
		},
		{
			name:        "non-positive preview falls back",
			logger:      slog.Default(),
			config:      SummarizerConfig{PreviewRows: -1},
			wantPreview: 5,
		},
		{
			name:        "nil logger uses default",
			logger:      nil,
			config:      DefaultSummarizerConfig(),
			wantPreview: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(tt.logger, tt.config)
			require.NotNil(t, s)
			assert.NotNil(t, s.logger)
			assert.Equal(t, tt.wantPreview, s.previewRows)
		})
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	table := testutil.CleanSalesTable(t)

	summary, err := NewSummarizer(logger, DefaultSummarizerConfig()).Summarize(context.Background(), table, 0)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Rows)
	assert.Equal(t, 5, summary.Columns)
	assert.Equal(t, 0, summary.MissingTotal)
	require.Len(t, summary.Profile, 5)
	assert.Equal(t, domain.KindDatetime, summary.Profile[4].Kind)

	require.Len(t, summary.Numeric, 2)
	units := summary.Numeric[0]
	assert.Equal(t, "units", units.Column)
	assert.Equal(t, 6, units.Count)
	assert.InDelta(t, 41.0/6, units.Mean, 1e-9)
	assert.Equal(t, 3.0, units.Min)
	assert.Equal(t, 12.0, units.Max)
	assert.InDelta(t, 4.25, units.Q1, 1e-9)
	assert.InDelta(t, 6.0, units.Median, 1e-9)
	assert.InDelta(t, 9.25, units.Q3, 1e-9)
	require.NotNil(t, units.Std)

	require.Len(t, summary.Categorical, 2)
	region := summary.Categorical[0]
	assert.Equal(t, "region", region.Column)
	assert.Equal(t, 6, region.Count)
	assert.Equal(t, 4, region.Unique)
	assert.Equal(t, "North", region.Top, "ties go to the lexically smallest value")
	assert.Equal(t, 2, region.Freq)

	require.Len(t, summary.Datetime, 1)
	dates := summary.Datetime[0]
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), dates.Min)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), dates.Max)

	require.NotNil(t, summary.Correlation)
	assert.Equal(t, []string{"units", "price"}, summary.Correlation.Columns)
	assert.InDelta(t, 1.0, summary.Correlation.Values[0][0], 1e-9)

	assert.Len(t, summary.Preview.Rows, 5)
	assert.Equal(t, table.ColumnNames(), summary.Preview.Columns)
}

func TestSummarizer_PreviewSize(t *testing.T) {
	table := testutil.CleanSalesTable(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	summary, err := s.Summarize(context.Background(), table, 100)
	require.NoError(t, err)
	assert.Len(t, summary.Preview.Rows, table.RowCount())

	summary, err = s.Summarize(context.Background(), table, 2)
	require.NoError(t, err)
	assert.Len(t, summary.Preview.Rows, 2)
}

func TestSummarizer_MissingAndDegenerateColumns(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.NumericColumn("single", 4, testutil.NaN, testutil.NaN),
		testutil.NumericColumn("empty", testutil.NaN, testutil.NaN, testutil.NaN),
		testutil.TextColumn("label", "a", "", "a"),
	)

	summary, err := NewSummarizer(nil, DefaultSummarizerConfig()).Summarize(context.Background(), table, 0)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.MissingTotal)
	assert.Equal(t, domain.KindMissing, summary.Profile[1].Kind)

	require.Len(t, summary.Numeric, 1, "all-missing columns have no numeric summary")
	single := summary.Numeric[0]
	assert.Equal(t, 1, single.Count)
	assert.Nil(t, single.Std)

	require.NotNil(t, summary.Correlation)
	assert.True(t, math.IsNaN(summary.Correlation.Values[0][0]))

	data, err := json.Marshal(summary)
	require.NoError(t, err, "NaN statistics must not break JSON encoding")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	corr := decoded["correlation"].(map[string]interface{})
	assert.Equal(t, []interface{}{[]interface{}{nil}}, corr["values"])
}

func TestSummarizer_NoNumericColumns(t *testing.T) {
	table := testutil.NewTable(t, testutil.TextColumn("a", "x", "y"))

	summary, err := NewSummarizer(nil, DefaultSummarizerConfig()).Summarize(context.Background(), table, 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Numeric)
	assert.Nil(t, summary.Correlation)
}

func TestSummarizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSummarizer(nil, DefaultSummarizerConfig()).Summarize(ctx, testutil.CleanSalesTable(t), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorrelations(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.NumericColumn("x", 1, 2, 3, 4),
		testutil.NumericColumn("y", 2, 4, 6, testutil.NaN),
		testutil.NumericColumn("z", 4, 3, 2, 1),
	)

	m := Correlations(table)
	require.NotNil(t, m)
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9, "pairwise-complete rows")
	assert.InDelta(t, -1.0, m.Values[0][2], 1e-9)
	assert.Equal(t, m.Values[1][2], m.Values[2][1])
}
