package dataprocessing

// LoaderOptions configures table ingestion
type LoaderOptions struct {
	// MaxRows rejects tables with more data rows; 0 means no limit
	MaxRows int

	// MaxColumns rejects tables with more columns; 0 means no limit
	MaxColumns int

	// Sheet selects the Excel sheet; the first sheet when empty
	Sheet string

	// NAValues are the cell strings read as missing, compared after trimming
	NAValues []string
}

// DefaultNAValues mirrors the markers spreadsheet tools write for empty cells
var DefaultNAValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<NA>"}

// DefaultOptions returns default loader options
func DefaultOptions() LoaderOptions {
	return LoaderOptions{
		MaxRows:    100000,
		MaxColumns: 500,
		NAValues:   DefaultNAValues,
	}
}
