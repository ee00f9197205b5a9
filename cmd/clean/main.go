// Command clean runs the cleaning pipeline on a CSV or Excel file without the
// web server and writes the cleaned table plus its action log to the exports
// directory.
//
//	clean -in sales.xlsx -missing drop -drop-empty -format csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"plotpilot/internal/cleaning"
	"plotpilot/internal/config"
	"plotpilot/internal/dataprocessing"
	"plotpilot/internal/exporter"
	"plotpilot/internal/infrastructure"
	"plotpilot/pkg/contracts/domain"
)

// options are the parsed command line flags
type options struct {
	in       string
	out      string
	format   string
	sheet    string
	writeLog bool
	cleaning domain.CleaningConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "clean:", err)
		os.Exit(1)
	}
}

// loadConfig returns the file/environment configuration, or the defaults when
// it cannot be loaded
func loadConfig(stderr io.Writer) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "clean: using default configuration: %v\n", err)
		return config.Default()
	}
	return cfg
}

// parseFlags reads args with defaults taken from cfg
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	defaults, err := cfg.Cleaning.Domain()
	if err != nil {
		defaults = domain.DefaultCleaningConfig()
	}

	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.in, "in", "", "input file (.csv or .xlsx)")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to the configured exports directory)")
	fs.StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	fs.StringVar(&opts.sheet, "sheet", cfg.Upload.Sheet, "Excel sheet to read (first sheet when empty)")
	fs.BoolVar(&opts.writeLog, "log", true, "write the action log next to the cleaned table")
	missing := fs.String("missing", string(defaults.MissingValuePolicy), "missing values: fill, drop or leave")
	fs.BoolVar(&opts.cleaning.NormalizeTextCase, "lowercase", defaults.NormalizeTextCase, "lowercase text before title-casing")
	fs.BoolVar(&opts.cleaning.DropEmptyColumns, "drop-empty", defaults.DropEmptyColumns, "drop columns that are entirely missing")
	fs.BoolVar(&opts.cleaning.RemoveOutliers, "outliers", defaults.RemoveOutliers, "remove rows outside 1.5 IQR instead of flagging them")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.in == "" && fs.NArg() > 0 {
		opts.in = fs.Arg(0)
	}
	if opts.in == "" {
		fs.Usage()
		return nil, errors.New("an input file is required")
	}

	policy, err := domain.ParseMissingValuePolicy(*missing)
	if err != nil {
		return nil, err
	}
	opts.cleaning.MissingValuePolicy = policy
	return opts, nil
}

// run cleans one file and prints the written paths to stdout
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := loadConfig(stderr)
	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger = infrastructure.WithComponent(logger, "clean")
	ctx = infrastructure.EnsureTraceID(ctx)

	format, err := exporter.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}
	if opts.out != "" {
		if paths.ExportsDir, err = filepath.Abs(opts.out); err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
	}

	loaderOpts := dataprocessing.DefaultOptions()
	loaderOpts.MaxRows = cfg.Upload.MaxRows
	loaderOpts.MaxColumns = cfg.Upload.MaxColumns
	loaderOpts.Sheet = opts.sheet
	loader := dataprocessing.NewLoader(logger, loaderOpts)

	file, err := os.Open(opts.in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	table, err := loader.Load(ctx, filepath.Base(opts.in), file)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.in, err)
	}

	cleaned, log, err := cleaning.Clean(table, opts.cleaning)
	if err != nil {
		return fmt.Errorf("cleaning failed: %w", err)
	}

	logger.InfoContext(ctx, "dataset cleaned",
		slog.String("input", opts.in),
		slog.String("missing_values", string(opts.cleaning.MissingValuePolicy)),
		slog.Int("rows_before", table.RowCount()),
		slog.Int("rows_after", cleaned.RowCount()),
		slog.Int("columns_before", table.ColumnCount()),
		slog.Int("columns_after", cleaned.ColumnCount()),
		slog.Int("warnings", len(log.Warnings())))

	writer := exporter.NewCSVWriter(paths, logger)
	tablePath, err := writer.WriteTableFile(ctx, opts.in, cleaned, format, exporter.TableOptions{
		BOMPrefix: format == exporter.FormatCSV,
	})
	if err != nil {
		return fmt.Errorf("failed to write cleaned table: %w", err)
	}
	fmt.Fprintln(stdout, tablePath)

	if opts.writeLog {
		logPath := strings.TrimSuffix(tablePath, filepath.Ext(tablePath)) + "_log.csv"
		if err := writer.WriteActionLog(logPath, log); err != nil {
			return fmt.Errorf("failed to write action log: %w", err)
		}
		fmt.Fprintln(stdout, logPath)
	}

	for _, w := range log.Warnings() {
		fmt.Fprintln(stderr, "warning:", w.Message)
	}
	return nil
}
