package http

import (
	"context"
	"io"

	"plotpilot/internal/charts"
	"plotpilot/internal/services"
	"plotpilot/pkg/contracts/domain"
)

// DatasetServiceInterface defines the dataset operations the handlers call
type DatasetServiceInterface interface {
	DefaultCleaningConfig() domain.CleaningConfig
	Upload(ctx context.Context, name string, r io.Reader) (*services.DatasetView, error)
	Get(ctx context.Context, id string) (*services.DatasetView, error)
	Delete(ctx context.Context, id string) error
	Clean(ctx context.Context, id string, cfg domain.CleaningConfig) (*services.DatasetView, error)
	Revert(ctx context.Context, id string) (*services.DatasetView, error)
	SelectTable(ctx context.Context, id string, useCleaned bool) (*services.DatasetView, error)
	Summary(ctx context.Context, id string, previewRows int) (*services.SummaryResult, error)
	ChartCatalog() []charts.Definition
	ChartOptions(ctx context.Context, id string, kind domain.ChartKind) ([]charts.RoleOptions, error)
	SelectChart(ctx context.Context, id string, spec domain.ChartSpec) (*services.DatasetView, error)
	ClearChart(ctx context.Context, id string) (*services.DatasetView, error)
	GenerateChart(ctx context.Context, id string, spec domain.ChartSpec) (*services.ChartResult, error)
	Export(ctx context.Context, id, format string, w io.Writer) (*services.ExportResult, error)
}
