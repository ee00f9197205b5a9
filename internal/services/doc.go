// Package services implements the business logic layer of PlotPilot. It sits
// between the HTTP handlers and the pure packages (dataprocessing, cleaning,
// charts, exporter) and owns the session state that ties them together.
//
// # Dataset service
//
// DatasetService runs one operation per call on a dataset session:
//
//	svc := services.NewDatasetService(store, loader, summarizer, tables, hub, tracer, opts, logger)
//	view, err := svc.Upload(ctx, "sales.csv", file)
//	view, err = svc.Clean(ctx, view.ID, domain.DefaultCleaningConfig())
//	chart, err := svc.GenerateChart(ctx, view.ID, spec)
//
// Every mutating operation goes through session.MemoryStore.Update, so two
// cleaning runs on one dataset never interleave while different datasets
// proceed in parallel. Cleaning always starts from the uploaded table.
//
// Each operation runs in an OpenTelemetry span named "dataset.<operation>",
// records business metrics, and publishes a websocket event to the
// subscribers of the session.
//
// # Error Handling
//
// Services return errors wrapping the sentinels in errors.go; handlers map
// them to RFC 7807 responses with errors.Is:
//
//	- ErrSessionNotFound for unknown or expired datasets
//	- ErrNoCleanedTable when the cleaned table is required but absent
//	- ErrInvalidInput for cleaning recipes and chart specs the data cannot satisfy
//	- ErrUnsupportedExport for unknown export formats
//
// Loader failures pass through as *errors.AppError values.
//
// # Health
//
// HealthService serves liveness, readiness and process statistics.
package services
