package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/xuri/excelize/v2"

	"plotpilot/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for export formats other than csv and xlsx
var ErrUnsupportedFormat = errors.New("unsupported export format")

// DefaultSheet names the worksheet of Excel exports
const DefaultSheet = "Cleaned Data"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableOptions configures table serialization
type TableOptions struct {
	BOMPrefix bool   // Add UTF-8 BOM for Excel compatibility (CSV only)
	Sheet     string // Worksheet name (Excel only); DefaultSheet when empty
}

// TableWriter serializes tables as they are displayed: numbers in shortest
// form, datetimes date-only at midnight, missing cells empty
type TableWriter struct {
	logger *slog.Logger
}

// NewTableWriter creates a table writer. A nil logger falls back to slog.Default().
func NewTableWriter(logger *slog.Logger) *TableWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableWriter{logger: logger.With(slog.String("component", "table_writer"))}
}

// Write dispatches on format
func (tw *TableWriter) Write(w io.Writer, table *domain.Table, format Format, opts TableOptions) error {
	switch format {
	case FormatCSV:
		return tw.WriteCSV(w, table, opts)
	case FormatExcel:
		return tw.WriteExcel(w, table, opts.Sheet)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes the header row followed by one record per table row
func (tw *TableWriter) WriteCSV(w io.Writer, table *domain.Table, opts TableOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(table.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	columns := table.Columns()
	record := make([]string, len(columns))
	for i := 0; i < table.RowCount(); i++ {
		for j, col := range columns {
			record[j] = col.Values[i].String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	tw.logger.Debug("csv written",
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", table.ColumnCount()),
		slog.Bool("bom", opts.BOMPrefix))
	return nil
}

// WriteExcel writes a single-sheet workbook. Numbers stay numeric, datetimes
// are stored as Excel dates and missing cells are left blank.
func (tw *TableWriter) WriteExcel(w io.Writer, table *domain.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("invalid sheet name %q: %w", sheet, err)
	}

	header := table.ColumnNames()
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for j, col := range table.Columns() {
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, excelValue(v)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	tw.logger.Debug("excel written",
		slog.String("sheet", sheet),
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", table.ColumnCount()))
	return nil
}

func excelValue(v domain.Value) interface{} {
	switch {
	case v.IsNumber():
		if math.IsInf(v.Float(), 0) {
			return v.String()
		}
		return v.Float()
	case v.IsTime():
		return v.Time()
	default:
		return v.Str()
	}
}
