// Package dataprocessing turns uploaded files into tables and tables into
// the statistics view shown to the user.
//
// # Loading
//
// Loader reads CSV and Excel (.xlsx) files:
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.DefaultOptions())
//	table, err := loader.Load(ctx, "sales.csv", file)
//
// The first row is the header. Blank header cells become "Unnamed: i" and
// repeated names get ".1", ".2" suffixes. Empty cells and the usual NA
// markers are read as missing. A column whose every non-missing cell is a
// finite number is loaded as numeric; everything else is text.
//
// Loader errors are *errors.AppError values wrapping ErrUnsupportedFormat,
// ErrEmptyFile or ErrTableTooLarge, so callers can test them with errors.Is.
//
// # Statistics
//
// Summarizer computes the row and column counts, the per-column kind profile,
// describe()-style numeric summaries, categorical and datetime summaries, a
// correlation matrix and a preview of the first rows:
//
//	summary, err := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()).
//	    Summarize(ctx, table, 10)
package dataprocessing
