package services

import (
	"time"

	"plotpilot/internal/charts"
	"plotpilot/internal/dataprocessing"
	"plotpilot/internal/exporter"
	"plotpilot/internal/session"
	"plotpilot/pkg/contracts/domain"
)

// Shape is the size of a table
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

func shapeOf(t *domain.Table) Shape {
	return Shape{Rows: t.RowCount(), Columns: t.ColumnCount()}
}

// DatasetView is what clients see of a session
type DatasetView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Original Shape  `json:"original"`
	Cleaned  *Shape `json:"cleaned,omitempty"`

	// Active is "original" or "cleaned"; Profile describes the active table
	Active  string                 `json:"active"`
	Profile []domain.ColumnProfile `json:"profile"`

	Log      domain.ActionLog       `json:"log"`
	Warnings domain.ActionLog       `json:"warnings"`
	Config   *domain.CleaningConfig `json:"config,omitempty"`
	Chart    *domain.ChartSpec      `json:"chart,omitempty"`
}

// NewDatasetView builds the client view of sess
func NewDatasetView(sess *session.Session) *DatasetView {
	v := &DatasetView{
		ID:        sess.ID,
		Name:      sess.Name,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Original:  shapeOf(sess.Original),
		Active:    sess.ActiveName(),
		Profile:   sess.Active().Profile(),
		Log:       sess.Log,
		Warnings:  sess.Log.Warnings(),
		Config:    sess.Config,
		Chart:     sess.Chart,
	}
	if v.Log == nil {
		v.Log = domain.ActionLog{}
	}
	if v.Warnings == nil {
		v.Warnings = domain.ActionLog{}
	}
	if sess.HasCleaned() {
		shape := shapeOf(sess.Cleaned)
		v.Cleaned = &shape
	}
	return v
}

// Shape returns the shape of the active table
func (v *DatasetView) Shape() Shape {
	if v.Active == "cleaned" && v.Cleaned != nil {
		return *v.Cleaned
	}
	return v.Original
}

// SummaryResult is the statistics view of the active table
type SummaryResult struct {
	Table string `json:"table"`
	*dataprocessing.Summary
}

// ChartResult is a rendered chart and the code that reproduces it
type ChartResult struct {
	Kind   domain.ChartKind `json:"kind"`
	Table  string           `json:"table"`
	Spec   domain.ChartSpec `json:"spec"`
	Figure *charts.Figure   `json:"figure"`
	Code   string           `json:"code"`
}

// ExportResult describes a written export
type ExportResult struct {
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Format      exporter.Format `json:"format"`
	Table       string          `json:"table"`
	Rows        int             `json:"rows"`
	Columns     int             `json:"columns"`
}
