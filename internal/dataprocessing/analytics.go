package dataprocessing

import (
	"encoding/json"
	"math"

	"plotpilot/internal/stats"
	"plotpilot/pkg/contracts/domain"
)

// CorrelationMatrix holds pairwise Pearson correlations of the numeric columns.
// Undefined coefficients (constant columns, fewer than two shared rows) are NaN
// and render as null in JSON.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// Correlations computes the correlation matrix of the table's numeric columns
// using pairwise-complete rows. It returns nil when there is no numeric column.
func Correlations(table *domain.Table) *CorrelationMatrix {
	names := table.ColumnsOfKind(domain.KindNumeric)
	if len(names) == 0 {
		return nil
	}

	columns := make([]*domain.Column, len(names))
	for i, name := range names {
		columns[i] = table.Column(name)
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			r := pairwiseCorrelation(columns[i], columns[j])
			values[i][j], values[j][i] = r, r
		}
	}
	return &CorrelationMatrix{Columns: names, Values: values}
}

func pairwiseCorrelation(a, b *domain.Column) float64 {
	x := make([]float64, 0, a.Len())
	y := make([]float64, 0, a.Len())
	for i := range a.Values {
		if a.Values[i].IsNumber() && b.Values[i].IsNumber() {
			x = append(x, a.Values[i].Float())
			y = append(y, b.Values[i].Float())
		}
	}
	return stats.Correlation(x, y)
}

// Nullable returns the coefficients with undefined entries as nil
func (m *CorrelationMatrix) Nullable() [][]*float64 {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			values[i][j] = &v
		}
	}
	return values
}

// MarshalJSON writes undefined coefficients as null
func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, m.Nullable()})
}
