package services

import "errors"

// Service errors
var (
	// ErrSessionNotFound is returned when a dataset session does not exist or has expired
	ErrSessionNotFound = errors.New("dataset session not found")

	// ErrNoCleanedTable is returned when an operation needs a cleaned table that was never produced
	ErrNoCleanedTable = errors.New("dataset has no cleaned table")

	// ErrInvalidInput is returned for requests the data or the chart catalogue cannot satisfy
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedExport is returned for an unknown export format
	ErrUnsupportedExport = errors.New("unsupported export format")

	// ErrNoChartSelected is returned when a chart is requested without a spec or a stored selection
	ErrNoChartSelected = errors.New("no chart selected")

	// ErrTooManySessions is returned when the session store is at capacity
	ErrTooManySessions = errors.New("too many active datasets")
)
