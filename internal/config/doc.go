// Package config loads the PlotPilot configuration.
//
// # Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. A YAML file: $PLOTPILOT_CONFIG_FILE, else config.yaml or configs/config.yaml
//	3. PLOTPILOT_* environment variables
//
// Environment variables follow the struct layout, for example:
//
//	PLOTPILOT_SERVER_PORT=8080
//	PLOTPILOT_UPLOAD_MAX_ROWS=50000
//	PLOTPILOT_SESSION_TTL=30m
//	PLOTPILOT_CLEANING_MISSING_VALUES=drop
//	PLOTPILOT_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Paths
//
// PathsConfig.Resolve turns the configured directories into absolute paths,
// relative to the executable unless paths.base_dir is set:
//
//	paths, err := cfg.Paths.Resolve()
//	out := paths.GetExportPath("sales.csv", ".csv", time.Now())
//
// # Validation
//
// Load validates ranges and enumerations and lower-cases the logging output
// and trace exporter names, so consumers can switch on them directly.
package config
