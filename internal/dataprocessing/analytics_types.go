package dataprocessing

import (
	"time"

	"plotpilot/pkg/contracts/domain"
)

// Summary is the statistics view of a table
type Summary struct {
	Rows         int                    `json:"rows"`
	Columns      int                    `json:"columns"`
	MissingTotal int                    `json:"missing_total"`
	Profile      []domain.ColumnProfile `json:"profile"`
	Numeric      []NumericSummary       `json:"numeric"`
	Categorical  []CategoricalSummary   `json:"categorical"`
	Datetime     []DatetimeSummary      `json:"datetime"`
	Correlation  *CorrelationMatrix     `json:"correlation,omitempty"`
	Preview      Preview                `json:"preview"`
}

// NumericSummary holds the describe()-style statistics of a numeric column.
// Std is nil when fewer than two values are present.
type NumericSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	Std    *float64 `json:"std"`
	Min    float64  `json:"min"`
	Q1     float64  `json:"25%"`
	Median float64  `json:"50%"`
	Q3     float64  `json:"75%"`
	Max    float64  `json:"max"`
}

// CategoricalSummary holds the count, cardinality and most frequent value of a text column
type CategoricalSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}

// DatetimeSummary holds the range of a datetime column
type DatetimeSummary struct {
	Column string    `json:"column"`
	Count  int       `json:"count"`
	Min    time.Time `json:"min"`
	Max    time.Time `json:"max"`
}

// Preview is the head of a table, ready for JSON rendering
type Preview struct {
	Columns []string         `json:"columns"`
	Rows    [][]domain.Value `json:"rows"`
}
