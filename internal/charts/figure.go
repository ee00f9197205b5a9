package charts

import (
	"fmt"

	"plotpilot/internal/dataprocessing"
	"plotpilot/pkg/contracts/domain"
)

// Trace is one plotly trace
type Trace map[string]interface{}

// Figure is a plotly-compatible figure description
type Figure struct {
	Data   []Trace                `json:"data"`
	Layout map[string]interface{} `json:"layout"`
}

// Title returns the layout title text
func (f *Figure) Title() string {
	title, _ := f.Layout["title"].(map[string]interface{})
	text, _ := title["text"].(string)
	return text
}

func newFigure(title string) *Figure {
	return &Figure{
		Data:   []Trace{},
		Layout: map[string]interface{}{"title": map[string]interface{}{"text": title}},
	}
}

func (f *Figure) axisTitles(x, y string) {
	if x != "" {
		f.Layout["xaxis"] = map[string]interface{}{"title": map[string]interface{}{"text": x}}
	}
	if y != "" {
		f.Layout["yaxis"] = map[string]interface{}{"title": map[string]interface{}{"text": y}}
	}
}

type builder func(table *domain.Table, spec domain.ChartSpec) *Figure

var builders = map[domain.ChartKind]builder{
	domain.ChartScatter:   buildScatter,
	domain.ChartLine:      buildLine,
	domain.ChartBar:       buildBar,
	domain.ChartHistogram: buildHistogram,
	domain.ChartBox:       buildBox,
	domain.ChartViolin:    buildViolin,
	domain.ChartCount:     buildCount,
	domain.ChartHeatmap:   buildHeatmap,
	domain.ChartBubble:    buildBubble,
	domain.ChartPie:       buildPie,
	domain.ChartDot:       buildDot,
	domain.ChartRadar:     buildRadar,
}

// BuildFigure validates spec against table and builds the figure
func BuildFigure(table *domain.Table, spec domain.ChartSpec) (*Figure, error) {
	if err := Validate(table, spec); err != nil {
		return nil, err
	}
	spec = Normalize(spec)
	build, ok := builders[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	return build(table, spec), nil
}

// group is a category label and the rows holding it
type group struct {
	label string
	rows  []int
}

// groupRows splits the rows by the value of col in order of first
// appearance. Rows where col is missing are skipped. A nil col yields one
// unnamed group with every row.
func groupRows(col *domain.Column, n int) []group {
	if col == nil {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return []group{{rows: rows}}
	}
	index := make(map[string]int)
	var groups []group
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.Key()
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, group{label: v.String()})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	return groups
}

func values(col *domain.Column, rows []int) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		out[i] = col.Values[r].Interface()
	}
	return out
}

func present(col *domain.Column) []interface{} {
	out := make([]interface{}, 0, col.Len())
	for _, v := range col.Values {
		if !v.IsMissing() {
			out = append(out, v.Interface())
		}
	}
	return out
}

func column(table *domain.Table, spec domain.ChartSpec, role domain.ChartRole) *domain.Column {
	name := spec.Column(role)
	if name == "" {
		return nil
	}
	return table.Column(name)
}

func scatterTraces(table *domain.Table, spec domain.ChartSpec, mode string) []Trace {
	x := column(table, spec, domain.RoleX)
	y := column(table, spec, domain.RoleY)
	color := column(table, spec, domain.RoleColor)

	var traces []Trace
	for _, g := range groupRows(color, table.RowCount()) {
		tr := Trace{
			"type": "scatter",
			"mode": mode,
			"x":    values(x, g.rows),
			"y":    values(y, g.rows),
		}
		if color != nil {
			tr["name"] = g.label
			tr["legendgroup"] = g.label
		}
		traces = append(traces, tr)
	}
	return traces
}

func buildScatter(table *domain.Table, spec domain.ChartSpec) *Figure {
	x, y := spec.Column(domain.RoleX), spec.Column(domain.RoleY)
	fig := newFigure(fmt.Sprintf("%s vs. %s", x, y))
	fig.Data = append(fig.Data, scatterTraces(table, spec, "markers")...)
	fig.axisTitles(x, y)
	return fig
}

func buildLine(table *domain.Table, spec domain.ChartSpec) *Figure {
	x, y := spec.Column(domain.RoleX), spec.Column(domain.RoleY)
	fig := newFigure(fmt.Sprintf("Trend of %s over %s", y, x))
	fig.Data = append(fig.Data, scatterTraces(table, spec, "lines")...)
	fig.axisTitles(x, y)
	return fig
}

func buildBubble(table *domain.Table, spec domain.ChartSpec) *Figure {
	x, y, size := spec.Column(domain.RoleX), spec.Column(domain.RoleY), spec.Column(domain.RoleSize)
	fig := newFigure(fmt.Sprintf("%s vs. %s, Sized by %s", x, y, size))

	sizeCol := table.Column(size)
	maxSize := 0.0
	for _, f := range sizeCol.Floats() {
		if f > maxSize {
			maxSize = f
		}
	}
	sizeRef := 1.0
	if maxSize > 0 {
		// Largest bubble is 20px across, marker area proportional to the value.
		sizeRef = 2 * maxSize / (20 * 20)
	}

	traces := scatterTraces(table, spec, "markers")
	groups := groupRows(column(table, spec, domain.RoleColor), table.RowCount())
	for i, tr := range traces {
		tr["marker"] = map[string]interface{}{
			"size":     values(sizeCol, groups[i].rows),
			"sizemode": "area",
			"sizeref":  sizeRef,
		}
	}
	fig.Data = append(fig.Data, traces...)
	fig.axisTitles(x, y)
	return fig
}

func buildDot(table *domain.Table, spec domain.ChartSpec) *Figure {
	x, y := spec.Column(domain.RoleX), spec.Column(domain.RoleY)
	fig := newFigure(fmt.Sprintf("%s by %s", x, y))
	traces := scatterTraces(table, spec, "markers")
	for _, tr := range traces {
		tr["marker"] = map[string]interface{}{"size": 12}
	}
	fig.Data = append(fig.Data, traces...)
	fig.axisTitles(x, y)
	return fig
}

func buildBar(table *domain.Table, spec domain.ChartSpec) *Figure {
	x, y := spec.Column(domain.RoleX), spec.Column(domain.RoleY)
	fig := newFigure(fmt.Sprintf("Average %s by %s", y, x))

	ycol := table.Column(y)
	for _, g := range groupRows(table.Column(x), table.RowCount()) {
		var sum float64
		var n int
		for _, r := range g.rows {
			if v := ycol.Values[r]; v.IsNumber() {
				sum += v.Float()
				n++
			}
		}
		var avg interface{}
		if n > 0 {
			avg = sum / float64(n)
		}
		fig.Data = append(fig.Data, Trace{
			"type": "bar",
			"name": g.label,
			"x":    []interface{}{g.label},
			"y":    []interface{}{avg},
		})
	}
	fig.axisTitles(x, "Average of "+y)
	return fig
}

func buildHistogram(table *domain.Table, spec domain.ChartSpec) *Figure {
	x := spec.Column(domain.RoleX)
	fig := newFigure("Distribution of " + x)
	xs := present(table.Column(x))
	fig.Data = append(fig.Data,
		Trace{"type": "histogram", "name": x, "x": xs},
		Trace{"type": "box", "name": x, "x": xs, "yaxis": "y2", "showlegend": false},
	)
	fig.Layout["yaxis"] = map[string]interface{}{"domain": []float64{0, 0.8}, "title": map[string]interface{}{"text": "count"}}
	fig.Layout["yaxis2"] = map[string]interface{}{"domain": []float64{0.82, 1}, "anchor": "x", "showticklabels": false}
	fig.Layout["xaxis"] = map[string]interface{}{"title": map[string]interface{}{"text": x}}
	return fig
}

func distribution(table *domain.Table, spec domain.ChartSpec, traceType string) *Figure {
	x, y := spec.Column(domain.RoleX), spec.Column(domain.RoleY)
	fig := newFigure(fmt.Sprintf("Distribution of %s by %s", y, x))
	ycol := table.Column(y)
	for _, g := range groupRows(table.Column(x), table.RowCount()) {
		tr := Trace{"type": traceType, "name": g.label, "y": values(ycol, g.rows)}
		if traceType == "violin" {
			tr["box"] = map[string]interface{}{"visible": true}
		}
		fig.Data = append(fig.Data, tr)
	}
	fig.axisTitles(x, y)
	return fig
}

func buildBox(table *domain.Table, spec domain.ChartSpec) *Figure {
	return distribution(table, spec, "box")
}

func buildViolin(table *domain.Table, spec domain.ChartSpec) *Figure {
	return distribution(table, spec, "violin")
}

func buildCount(table *domain.Table, spec domain.ChartSpec) *Figure {
	x := spec.Column(domain.RoleX)
	fig := newFigure("Count of " + x)
	for _, g := range groupRows(table.Column(x), table.RowCount()) {
		fig.Data = append(fig.Data, Trace{
			"type": "bar",
			"name": g.label,
			"x":    []interface{}{g.label},
			"y":    []interface{}{len(g.rows)},
		})
	}
	fig.axisTitles(x, "Count")
	return fig
}

func buildHeatmap(table *domain.Table, _ domain.ChartSpec) *Figure {
	fig := newFigure("Correlation Heatmap of Numeric Variables")
	m := dataprocessing.Correlations(table)
	fig.Data = append(fig.Data, Trace{
		"type":         "heatmap",
		"x":            m.Columns,
		"y":            m.Columns,
		"z":            m.Nullable(),
		"zmin":         -1,
		"zmax":         1,
		"texttemplate": "%{z}",
	})
	fig.Layout["yaxis"] = map[string]interface{}{"autorange": "reversed"}
	return fig
}

func buildPie(table *domain.Table, spec domain.ChartSpec) *Figure {
	names, vals := spec.Column(domain.RoleNames), spec.Column(domain.RoleValues)
	fig := newFigure(fmt.Sprintf("Proportion of %s by %s", vals, names))

	vcol := table.Column(vals)
	labels := []interface{}{}
	sums := []interface{}{}
	for _, g := range groupRows(table.Column(names), table.RowCount()) {
		var sum float64
		for _, r := range g.rows {
			if v := vcol.Values[r]; v.IsNumber() {
				sum += v.Float()
			}
		}
		labels = append(labels, g.label)
		sums = append(sums, sum)
	}
	fig.Data = append(fig.Data, Trace{"type": "pie", "labels": labels, "values": sums})
	return fig
}

func buildRadar(table *domain.Table, spec domain.ChartSpec) *Figure {
	category := spec.Column(domain.RoleCategory)
	fig := newFigure("Comparison of Metrics for " + category)

	metrics := make([]*domain.Column, len(spec.Metrics))
	for i, name := range spec.Metrics {
		metrics[i] = table.Column(name)
	}
	for _, g := range groupRows(table.Column(category), table.RowCount()) {
		r := make([]interface{}, 0, len(g.rows)*len(metrics))
		theta := make([]interface{}, 0, cap(r))
		for i, m := range metrics {
			for _, row := range g.rows {
				r = append(r, m.Values[row].Interface())
				theta = append(theta, spec.Metrics[i])
			}
		}
		fig.Data = append(fig.Data, Trace{
			"type":  "scatterpolar",
			"r":     r,
			"theta": theta,
			"mode":  "lines+markers",
			"name":  g.label,
			"fill":  "toself",
		})
	}
	fig.Layout["polar"] = map[string]interface{}{
		"radialaxis": map[string]interface{}{"visible": true},
	}
	return fig
}
