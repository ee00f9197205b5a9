package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "plotpilot/internal/errors"
	"plotpilot/pkg/contracts/domain"
)

// Loader errors. They are wrapped in an *apierrors.AppError carrying context.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file has no header row")
	ErrTableTooLarge     = errors.New("table exceeds the configured size limits")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads uploaded CSV and Excel files into tables
type Loader struct {
	logger  *slog.Logger
	options LoaderOptions
	builder *tableBuilder
}

// NewLoader creates a loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger, options LoaderOptions) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if options.NAValues == nil {
		options.NAValues = DefaultNAValues
	}
	return &Loader{
		logger:  logger.With(slog.String("component", "loader")),
		options: options,
		builder: newTableBuilder(options.NAValues),
	}
}

// SupportedExtensions lists the file extensions Load accepts
func SupportedExtensions() []string {
	return []string{".csv", ".xlsx"}
}

// Load dispatches on the file name's extension
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (*domain.Table, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return l.LoadCSV(ctx, r)
	case ".xlsx":
		return l.LoadExcel(ctx, r, l.options.Sheet)
	default:
		return nil, apierrors.NewUnsupportedError(
			fmt.Sprintf("cannot read %q: only .csv and .xlsx files are supported", name), ErrUnsupportedFormat).
			WithContext("extension", ext)
	}
}

// LoadCSV reads a comma-separated file whose first record is the header
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (*domain.Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apierrors.NewParsingError("csv file is empty", ErrEmptyFile)
	}
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read csv header", err)
	}
	if err := l.checkColumns(len(header)); err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierrors.NewParsingError("failed to read csv record", err).
				WithContext("row", len(rows)+2)
		}
		rows = append(rows, record)
		if err := l.checkRows(len(rows)); err != nil {
			return nil, err
		}
		if err := l.checkColumns(len(record)); err != nil {
			return nil, err
		}
	}

	table := l.builder.build(header, rows)
	l.logger.InfoContext(ctx, "csv table loaded",
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", table.ColumnCount()))
	return table, nil
}

// LoadExcel reads an .xlsx workbook. The first non-empty row of the sheet is
// the header; an empty sheet name selects the first sheet.
func (l *Loader) LoadExcel(ctx context.Context, r io.Reader, sheet string) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apierrors.NewParsingError("workbook has no sheets", ErrEmptyFile)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read sheet", err).WithContext("sheet", sheet)
	}

	headerRow := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow == -1 {
		return nil, apierrors.NewParsingError("sheet has no header row", ErrEmptyFile).WithContext("sheet", sheet)
	}

	header := rows[headerRow]
	data := rows[headerRow+1:]
	if err := l.checkRows(len(data)); err != nil {
		return nil, err
	}
	if err := l.checkColumns(len(header)); err != nil {
		return nil, err
	}
	for _, row := range data {
		if err := l.checkColumns(len(row)); err != nil {
			return nil, err
		}
	}

	table := l.builder.build(header, data)
	l.logger.InfoContext(ctx, "excel table loaded",
		slog.String("sheet", sheet),
		slog.Int("header_row", headerRow+1),
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", table.ColumnCount()))
	return table, nil
}

func (l *Loader) checkRows(n int) error {
	if l.options.MaxRows > 0 && n > l.options.MaxRows {
		return apierrors.NewTooLargeError(
			fmt.Sprintf("table has more than %d rows", l.options.MaxRows), ErrTableTooLarge)
	}
	return nil
}

func (l *Loader) checkColumns(n int) error {
	if l.options.MaxColumns > 0 && n > l.options.MaxColumns {
		return apierrors.NewTooLargeError(
			fmt.Sprintf("table has more than %d columns", l.options.MaxColumns), ErrTableTooLarge)
	}
	return nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
