// Package exporter writes tables to CSV and Excel.
//
// TableWriter serializes a table to any io.Writer, the way cells are shown
// to the user: numbers in their shortest form, datetimes as 2006-01-02 (or
// 2006-01-02 15:04:05 when they carry a time of day) and missing cells empty.
// CSV output can carry a UTF-8 BOM so Excel detects the encoding.
//
// CSVWriter writes files under the configured exports directory:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	path, err := w.WriteTableFile(ctx, "sales.csv", table, exporter.FormatCSV, exporter.TableOptions{})
package exporter
