package domain

import (
	"errors"
	"fmt"
)

// ColumnKind is the declared kind of a column
type ColumnKind string

const (
	KindNumeric  ColumnKind = "numeric"
	KindText     ColumnKind = "text"
	KindDatetime ColumnKind = "datetime"
	KindMissing  ColumnKind = "missing" // derived only: every value is missing
)

// Structural table errors
var (
	ErrNoColumns       = errors.New("table has no columns")
	ErrRaggedTable     = errors.New("columns have different lengths")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrUnnamedColumn   = errors.New("column name is empty")
)

// Column is a named, homogeneously-kinded sequence of cells
type Column struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Values []Value    `json:"values"`
}

// NewColumn creates a column. Kind must be numeric, text or datetime.
func NewColumn(name string, kind ColumnKind, values []Value) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Values)
}

// DeclaredKind returns KindMissing when every cell is missing, otherwise the storage kind
func (c *Column) DeclaredKind() ColumnKind {
	for _, v := range c.Values {
		if !v.IsMissing() {
			return c.Kind
		}
	}
	return KindMissing
}

// MissingCount returns the number of missing cells
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// AllMissing reports whether the column holds no data at all
func (c *Column) AllMissing() bool {
	return c.MissingCount() == len(c.Values)
}

// Floats returns the non-missing numeric cells in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.IsNumber() {
			out = append(out, v.Float())
		}
	}
	return out
}

// Distinct returns the number of distinct non-missing values
func (c *Column) Distinct() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		seen[v.Key()] = struct{}{}
	}
	return len(seen)
}

// Clone returns a deep copy
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Table is an ordered list of equally long columns
type Table struct {
	columns []*Column
}

// ColumnProfile is the per-column declared-kind tag shared by statistics and charts
type ColumnProfile struct {
	Name    string     `json:"name"`
	Kind    ColumnKind `json:"kind"`
	Missing int        `json:"missing"`
	Unique  int        `json:"unique"`
}

// NewTable creates a table from the given columns. The columns are not copied.
func NewTable(columns ...*Column) *Table {
	return &Table{columns: columns}
}

// Validate checks the structural invariants: at least one column, unique
// non-empty names, equal lengths.
func (t *Table) Validate() error {
	if t == nil || len(t.columns) == 0 {
		return ErrNoColumns
	}
	seen := make(map[string]struct{}, len(t.columns))
	rows := t.columns[0].Len()
	for i, col := range t.columns {
		if col == nil || col.Name == "" {
			return fmt.Errorf("column %d: %w", i, ErrUnnamedColumn)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = struct{}{}
		if col.Len() != rows {
			return fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedTable, col.Name, col.Len(), rows)
		}
	}
	return nil
}

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Column returns the named column or nil
func (t *Table) Column(name string) *Column {
	for _, col := range t.columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// Row returns the cells of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, col := range t.columns {
		row[j] = col.Values[i]
	}
	return row
}

// RowHasMissing reports whether any cell of row i is missing
func (t *Table) RowHasMissing(i int) bool {
	for _, col := range t.columns {
		if col.Values[i].IsMissing() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	columns := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		columns[i] = col.Clone()
	}
	return &Table{columns: columns}
}

// KeepRows keeps the rows whose mask entry is true and returns how many were removed
func (t *Table) KeepRows(keep []bool) int {
	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	for _, col := range t.columns {
		kept := make([]Value, 0, len(keep)-removed)
		for i, v := range col.Values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		col.Values = kept
	}
	return removed
}

// DropColumns removes the named columns, preserving the order of the rest
func (t *Table) DropColumns(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := t.columns[:0]
	for _, col := range t.columns {
		if _, ok := drop[col.Name]; !ok {
			kept = append(kept, col)
		}
	}
	t.columns = kept
}

// ColumnsOfKind returns, in table order, the names of the columns whose declared kind is one of kinds
func (t *Table) ColumnsOfKind(kinds ...ColumnKind) []string {
	var names []string
	for _, col := range t.columns {
		declared := col.DeclaredKind()
		for _, k := range kinds {
			if declared == k {
				names = append(names, col.Name)
				break
			}
		}
	}
	return names
}

// Profile computes the declared kind of every column once
func (t *Table) Profile() []ColumnProfile {
	profile := make([]ColumnProfile, len(t.columns))
	for i, col := range t.columns {
		profile[i] = ColumnProfile{
			Name:    col.Name,
			Kind:    col.DeclaredKind(),
			Missing: col.MissingCount(),
			Unique:  col.Distinct(),
		}
	}
	return profile
}
