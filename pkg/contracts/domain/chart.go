package domain

// ChartKind identifies one of the supported chart types
type ChartKind string

const (
	ChartScatter   ChartKind = "scatter"
	ChartLine      ChartKind = "line"
	ChartBar       ChartKind = "bar"
	ChartHistogram ChartKind = "histogram"
	ChartBox       ChartKind = "box"
	ChartViolin    ChartKind = "violin"
	ChartCount     ChartKind = "count"
	ChartHeatmap   ChartKind = "heatmap"
	ChartBubble    ChartKind = "bubble"
	ChartPie       ChartKind = "pie"
	ChartDot       ChartKind = "dot"
	ChartRadar     ChartKind = "radar"
)

// ChartRole is the slot a column is bound to in a chart
type ChartRole string

const (
	RoleX        ChartRole = "x"
	RoleY        ChartRole = "y"
	RoleColor    ChartRole = "color"
	RoleSize     ChartRole = "size"
	RoleNames    ChartRole = "names"
	RoleValues   ChartRole = "values"
	RoleCategory ChartRole = "category"
	RoleMetrics  ChartRole = "metrics"
)

// ChartSpec is a declarative chart request: a kind plus column bindings.
// Single-valued roles live in Columns, the multi-valued radar metrics in Metrics.
type ChartSpec struct {
	Kind    ChartKind            `json:"kind" validate:"required"`
	Columns map[ChartRole]string `json:"columns,omitempty"`
	Metrics []string             `json:"metrics,omitempty"`
}

// Column returns the column bound to role, or "" when the role is unbound
func (s ChartSpec) Column(role ChartRole) string {
	if s.Columns == nil {
		return ""
	}
	return s.Columns[role]
}

// Clone returns a copy that shares no maps or slices with s
func (s ChartSpec) Clone() ChartSpec {
	c := ChartSpec{Kind: s.Kind}
	if s.Columns != nil {
		c.Columns = make(map[ChartRole]string, len(s.Columns))
		for role, col := range s.Columns {
			c.Columns[role] = col
		}
	}
	if s.Metrics != nil {
		c.Metrics = append([]string(nil), s.Metrics...)
	}
	return c
}
