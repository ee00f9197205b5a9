package charts

import "plotpilot/pkg/contracts/domain"

// Binding describes one column slot of a chart
type Binding struct {
	Role     domain.ChartRole    `json:"role"`
	Label    string              `json:"label"`
	Accepts  []domain.ColumnKind `json:"accepts"`
	Optional bool                `json:"optional,omitempty"`
	Multi    bool                `json:"multi,omitempty"`
}

// Definition is a catalogue entry: display name, help text and bindings in UI order
type Definition struct {
	Kind     domain.ChartKind `json:"kind"`
	Name     string           `json:"name"`
	Info     string           `json:"info,omitempty"`
	Bindings []Binding        `json:"bindings"`
}

// Binding returns the binding for role
func (d Definition) Binding(role domain.ChartRole) (Binding, bool) {
	for _, b := range d.Bindings {
		if b.Role == role {
			return b, true
		}
	}
	return Binding{}, false
}

// AcceptsKind reports whether a column of the given declared kind may fill b
func (b Binding) AcceptsKind(kind domain.ColumnKind) bool {
	for _, k := range b.Accepts {
		if k == kind {
			return true
		}
	}
	return false
}

var (
	numeric     = []domain.ColumnKind{domain.KindNumeric}
	categorical = []domain.ColumnKind{domain.KindText}
	temporal    = []domain.ColumnKind{domain.KindNumeric, domain.KindDatetime}
)

func colorBinding(label string) Binding {
	return Binding{Role: domain.RoleColor, Label: label, Accepts: categorical, Optional: true}
}

var catalog = []Definition{
	{
		Kind: domain.ChartScatter,
		Name: "Scatter Plot",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (numeric)", Accepts: numeric},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: numeric},
			colorBinding("Color by (optional)"),
		},
	},
	{
		Kind: domain.ChartLine,
		Name: "Line Plot",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (time or numeric)", Accepts: temporal},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: temporal},
			colorBinding("Break lines by (optional)"),
		},
	},
	{
		Kind: domain.ChartBar,
		Name: "Bar Chart",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (categorical)", Accepts: categorical},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: numeric},
		},
	},
	{
		Kind: domain.ChartHistogram,
		Name: "Histogram",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select a column (numeric)", Accepts: numeric},
		},
	},
	{
		Kind: domain.ChartBox,
		Name: "Box Plot",
		Info: "A box plot shows the distribution of data. Hover over it to see the median, quartiles, and outliers.",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (categorical)", Accepts: categorical},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: numeric},
		},
	},
	{
		Kind: domain.ChartViolin,
		Name: "Violin Plot",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (categorical)", Accepts: categorical},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: numeric},
		},
	},
	{
		Kind: domain.ChartCount,
		Name: "Count Plot",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select a column to count (categorical)", Accepts: categorical},
		},
	},
	{
		Kind:     domain.ChartHeatmap,
		Name:     "Heatmap",
		Info:     "The heatmap shows the correlation between all numeric columns in your dataset.",
		Bindings: []Binding{},
	},
	{
		Kind: domain.ChartBubble,
		Name: "Bubble Chart",
		Info: "A bubble chart is a scatter plot where the size of the bubble represents a third numeric variable.",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the X-axis (numeric)", Accepts: numeric},
			{Role: domain.RoleY, Label: "Select the Y-axis (numeric)", Accepts: numeric},
			{Role: domain.RoleSize, Label: "Select the Size variable (numeric)", Accepts: numeric},
			colorBinding("Color by (optional)"),
		},
	},
	{
		Kind: domain.ChartPie,
		Name: "Pie Chart",
		Bindings: []Binding{
			{Role: domain.RoleNames, Label: "Select the column for labels (categorical)", Accepts: categorical},
			{Role: domain.RoleValues, Label: "Select the column for values (numeric)", Accepts: numeric},
		},
	},
	{
		Kind: domain.ChartDot,
		Name: "Dot Plot",
		Info: "A dot plot is a clean alternative to a bar chart for comparing values across categories.",
		Bindings: []Binding{
			{Role: domain.RoleX, Label: "Select the numeric axis", Accepts: numeric},
			{Role: domain.RoleY, Label: "Select the category axis", Accepts: categorical},
			colorBinding("Color by (optional)"),
		},
	},
	{
		Kind: domain.ChartRadar,
		Name: "Radar Chart",
		Info: "A radar chart compares multiple numeric variables for one or more categories.",
		Bindings: []Binding{
			{Role: domain.RoleCategory, Label: "Select the main category to compare", Accepts: categorical},
			{Role: domain.RoleMetrics, Label: "Select the numeric variables to display", Accepts: numeric, Multi: true},
		},
	},
}

// Catalog returns every chart definition in display order
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition of kind
func Lookup(kind domain.ChartKind) (Definition, bool) {
	for _, d := range catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}
