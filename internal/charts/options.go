package charts

import (
	"fmt"

	"plotpilot/pkg/contracts/domain"
)

// NoneOption is the leading choice of an optional role; selecting it leaves the role unbound
const NoneOption = "None"

// RoleOptions lists the columns eligible for one binding
type RoleOptions struct {
	Role     domain.ChartRole `json:"role"`
	Label    string           `json:"label"`
	Optional bool             `json:"optional,omitempty"`
	Multi    bool             `json:"multi,omitempty"`
	Columns  []string         `json:"columns"`
}

// Options computes, per binding of kind, the table columns whose declared
// kind the binding accepts, in table order
func Options(table *domain.Table, kind domain.ChartKind) ([]RoleOptions, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	profile := table.Profile()
	out := make([]RoleOptions, 0, len(def.Bindings))
	for _, b := range def.Bindings {
		opts := RoleOptions{
			Role:     b.Role,
			Label:    b.Label,
			Optional: b.Optional,
			Multi:    b.Multi,
			Columns:  []string{},
		}
		if b.Optional {
			opts.Columns = append(opts.Columns, NoneOption)
		}
		for _, p := range profile {
			if b.AcceptsKind(p.Kind) {
				opts.Columns = append(opts.Columns, p.Name)
			}
		}
		out = append(out, opts)
	}
	return out, nil
}
