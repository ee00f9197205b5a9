package charts

import (
	"errors"
	"fmt"

	"plotpilot/pkg/contracts/domain"
)

// MaxRadarCategories is the largest number of distinct categories a radar chart compares
const MaxRadarCategories = 10

// ErrInvalidSpec is wrapped by every chart validation error
var ErrInvalidSpec = errors.New("invalid chart spec")

// Validation errors
var (
	ErrUnknownKind        = fmt.Errorf("%w: unknown chart kind", ErrInvalidSpec)
	ErrUnknownRole        = fmt.Errorf("%w: role not used by this chart", ErrInvalidSpec)
	ErrMissingColumn      = fmt.Errorf("%w: required column not selected", ErrInvalidSpec)
	ErrUnknownColumn      = fmt.Errorf("%w: column not in table", ErrInvalidSpec)
	ErrIncompatibleColumn = fmt.Errorf("%w: column kind not accepted", ErrInvalidSpec)
	ErrNoMetrics          = fmt.Errorf("%w: select at least one numeric variable", ErrInvalidSpec)
	ErrTooManyCategories  = fmt.Errorf("%w: radar charts compare at most %d categories", ErrInvalidSpec, MaxRadarCategories)
	ErrNoNumericColumns   = fmt.Errorf("%w: table has no numeric columns", ErrInvalidSpec)
)

// Normalize drops unbound optional roles (empty or NoneOption) so that a
// spec holds only real column bindings
func Normalize(spec domain.ChartSpec) domain.ChartSpec {
	out := domain.ChartSpec{Kind: spec.Kind, Columns: make(map[domain.ChartRole]string, len(spec.Columns))}
	for role, col := range spec.Columns {
		if col == "" || col == NoneOption {
			continue
		}
		out.Columns[role] = col
	}
	if len(spec.Metrics) > 0 {
		out.Metrics = append([]string(nil), spec.Metrics...)
	}
	return out
}

// checkBindings validates a spec against the catalogue alone
func checkBindings(spec domain.ChartSpec) (Definition, error) {
	def, ok := Lookup(spec.Kind)
	if !ok {
		return def, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	for role := range spec.Columns {
		b, ok := def.Binding(role)
		if !ok || b.Multi {
			return def, fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}
	for _, b := range def.Bindings {
		if b.Multi {
			if len(spec.Metrics) == 0 {
				return def, ErrNoMetrics
			}
			continue
		}
		if !b.Optional && spec.Column(b.Role) == "" {
			return def, fmt.Errorf("%w: %s", ErrMissingColumn, b.Role)
		}
	}
	return def, nil
}

// Validate checks that spec binds every required role to an existing column of
// an accepted kind. Radar charts also need at most MaxRadarCategories
// categories; heatmaps need a numeric column.
func Validate(table *domain.Table, spec domain.ChartSpec) error {
	spec = Normalize(spec)
	def, err := checkBindings(spec)
	if err != nil {
		return err
	}

	check := func(b Binding, name string) error {
		col := table.Column(name)
		if col == nil {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if kind := col.DeclaredKind(); !b.AcceptsKind(kind) {
			return fmt.Errorf("%w: %q is %s, %s expects %v", ErrIncompatibleColumn, name, kind, b.Role, b.Accepts)
		}
		return nil
	}

	for _, b := range def.Bindings {
		if b.Multi {
			for _, name := range spec.Metrics {
				if err := check(b, name); err != nil {
					return err
				}
			}
			continue
		}
		if name := spec.Column(b.Role); name != "" {
			if err := check(b, name); err != nil {
				return err
			}
		}
	}

	switch spec.Kind {
	case domain.ChartRadar:
		if n := categoryCount(table.Column(spec.Column(domain.RoleCategory))); n > MaxRadarCategories {
			return fmt.Errorf("%w (found %d)", ErrTooManyCategories, n)
		}
	case domain.ChartHeatmap:
		if len(table.ColumnsOfKind(domain.KindNumeric)) == 0 {
			return ErrNoNumericColumns
		}
	}
	return nil
}

// categoryCount counts distinct values, with missing counted as one category
func categoryCount(col *domain.Column) int {
	n := col.Distinct()
	if col.MissingCount() > 0 {
		n++
	}
	return n
}
