package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"plotpilot/pkg/contracts/domain"
)

// SalesCSV is a small messy dataset: a duplicate row, padded text,
// missing cells, an all-empty column and an ISO date column.
const SalesCSV = `region,product,units,price,order_date,notes
North , Widget,10,2.5,2024-01-05,
south,gadget,,4.0,2024-01-06,
North , Widget,10,2.5,2024-01-05,
East,Widget,7,,2024-01-09,
west,Gizmo,3,9.75,,
`

// NumericColumn builds a numeric column; NaN cells are missing
func NumericColumn(name string, xs ...float64) *domain.Column {
	values := make([]domain.Value, len(xs))
	for i, x := range xs {
		values[i] = domain.Number(x)
	}
	return domain.NewColumn(name, domain.KindNumeric, values)
}

// TextColumn builds a text column; empty strings are missing
func TextColumn(name string, ss ...string) *domain.Column {
	values := make([]domain.Value, len(ss))
	for i, s := range ss {
		if s == "" {
			values[i] = domain.Missing()
			continue
		}
		values[i] = domain.Text(s)
	}
	return domain.NewColumn(name, domain.KindText, values)
}

// DatetimeColumn builds a datetime column from YYYY-MM-DD strings; empty strings are missing
func DatetimeColumn(t *testing.T, name string, dates ...string) *domain.Column {
	t.Helper()
	values := make([]domain.Value, len(dates))
	for i, d := range dates {
		if d == "" {
			values[i] = domain.Missing()
			continue
		}
		parsed, err := time.Parse(domain.DateLayout, d)
		require.NoError(t, err)
		values[i] = domain.Time(parsed)
	}
	return domain.NewColumn(name, domain.KindDatetime, values)
}

// NewTable builds a table and fails the test if it is malformed
func NewTable(t *testing.T, columns ...*domain.Column) *domain.Table {
	t.Helper()
	table := domain.NewTable(columns...)
	require.NoError(t, table.Validate())
	return table
}

// CleanSalesTable is a typed, gap-free table suitable for charts and exports
func CleanSalesTable(t *testing.T) *domain.Table {
	t.Helper()
	return NewTable(t,
		TextColumn("region", "North", "South", "East", "West", "North", "South"),
		TextColumn("product", "Widget", "Gadget", "Widget", "Gizmo", "Gizmo", "Widget"),
		NumericColumn("units", 10, 4, 7, 3, 12, 5),
		NumericColumn("price", 2.5, 4, 2.5, 9.75, 9.75, 2.5),
		DatetimeColumn(t, "order_date", "2024-01-05", "2024-01-06", "2024-01-09", "2024-01-10", "2024-01-12", "2024-01-15"),
	)
}

// NaN is a shorthand for a missing numeric cell
var NaN = math.NaN()
