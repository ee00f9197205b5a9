package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"plotpilot/internal/config"
	apierrors "plotpilot/internal/errors"
	"plotpilot/pkg/contracts/domain"
)

// CSVWriter writes export files into the configured exports directory
type CSVWriter struct {
	paths  *config.Paths
	tables *TableWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewCSVWriter creates a new file writer rooted at paths.ExportsDir
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:  paths,
		tables: NewTableWriter(logger),
		logger: logger.With(slog.String("component", "csv_writer")),
		now:    time.Now,
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes raw records to a CSV file. Relative paths resolve into the exports directory.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("writing csv file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := w.openFile(fullPath, flags)
	if err != nil {
		return err
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTableFile exports table next to the other exports, naming the file
// after sourceName, and returns the written path
func (w *CSVWriter) WriteTableFile(ctx context.Context, sourceName string, table *domain.Table, format Format, opts TableOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath := w.paths.GetExportPath(sourceName, format.Extension(), w.now())

	file, err := w.openFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return "", err
	}

	if err := w.tables.Write(file, table, format, opts); err != nil {
		file.Close()
		_ = os.Remove(fullPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", apierrors.NewStorageError("failed to close export file", err).WithContext("path", fullPath)
	}

	w.logger.InfoContext(ctx, "table exported",
		slog.String("path", fullPath),
		slog.String("format", string(format)),
		slog.Int("rows", table.RowCount()))
	return fullPath, nil
}

// WriteActionLog writes a cleaning action log as step, level, message records
func (w *CSVWriter) WriteActionLog(filePath string, log domain.ActionLog) error {
	records := make([][]string, 0, len(log))
	for _, entry := range log {
		records = append(records, []string{string(entry.Step), string(entry.Level), entry.Message})
	}
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   []string{"step", "level", "message"},
		Records:   records,
		BOMPrefix: true,
	})
}

func (w *CSVWriter) openFile(fullPath string, flags int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), config.ExportDirMode); err != nil {
		return nil, apierrors.NewStorageError("failed to create export directory", err).WithContext("path", filepath.Dir(fullPath))
	}
	file, err := os.OpenFile(fullPath, flags, config.ExportFileMode)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open export file", err).WithContext("path", fullPath)
	}
	return file, nil
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(w.paths.ExportsDir, filePath)
}
