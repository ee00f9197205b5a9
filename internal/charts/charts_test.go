package charts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotpilot/internal/shared/testutil"
	"plotpilot/pkg/contracts/domain"
)

func spec(kind domain.ChartKind, cols map[domain.ChartRole]string, metrics ...string) domain.ChartSpec {
	return domain.ChartSpec{Kind: kind, Columns: cols, Metrics: metrics}
}

func TestCatalog(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 12)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		_, ok := Lookup(d.Kind)
		assert.True(t, ok, d.Kind)
	}
	assert.Equal(t, []string{
		"Scatter Plot", "Line Plot", "Bar Chart", "Histogram", "Box Plot", "Violin Plot",
		"Count Plot", "Heatmap", "Bubble Chart", "Pie Chart", "Dot Plot", "Radar Chart",
	}, names)

	_, ok := Lookup("sankey")
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	table := testutil.CleanSalesTable(t)

	tests := []struct {
		name string
		kind domain.ChartKind
		want map[domain.ChartRole][]string
	}{
		{
			name: "scatter offers numeric axes and an optional color",
			kind: domain.ChartScatter,
			want: map[domain.ChartRole][]string{
				domain.RoleX:     {"units", "price"},
				domain.RoleY:     {"units", "price"},
				domain.RoleColor: {NoneOption, "region", "product"},
			},
		},
		{
			name: "line accepts datetime axes",
			kind: domain.ChartLine,
			want: map[domain.ChartRole][]string{
				domain.RoleX:     {"units", "price", "order_date"},
				domain.RoleY:     {"units", "price", "order_date"},
				domain.RoleColor: {NoneOption, "region", "product"},
			},
		},
		{
			name: "pie",
			kind: domain.ChartPie,
			want: map[domain.ChartRole][]string{
				domain.RoleNames:  {"region", "product"},
				domain.RoleValues: {"units", "price"},
			},
		},
		{
			name: "heatmap has no bindings",
			kind: domain.ChartHeatmap,
			want: map[domain.ChartRole][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Options(table, tt.kind)
			require.NoError(t, err)
			require.Len(t, opts, len(tt.want))
			for _, o := range opts {
				assert.Equal(t, tt.want[o.Role], o.Columns, o.Role)
			}
		})
	}
}

func TestOptions_SkipsAllMissingColumns(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.NumericColumn("a", 1, 2),
		testutil.NumericColumn("gone", testutil.NaN, testutil.NaN),
	)

	opts, err := Options(table, domain.ChartHistogram)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, opts[0].Columns)

	_, err = Options(table, "sankey")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestValidate(t *testing.T) {
	table := testutil.CleanSalesTable(t)

	tests := []struct {
		name    string
		spec    domain.ChartSpec
		wantErr error
	}{
		{
			name: "valid scatter without color",
			spec: spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "price"}),
		},
		{
			name: "none option leaves color unbound",
			spec: spec(domain.ChartScatter, map[domain.ChartRole]string{
				domain.RoleX: "units", domain.RoleY: "price", domain.RoleColor: NoneOption,
			}),
		},
		{
			name:    "unknown kind",
			spec:    spec("sankey", nil),
			wantErr: ErrUnknownKind,
		},
		{
			name:    "missing required role",
			spec:    spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "units"}),
			wantErr: ErrMissingColumn,
		},
		{
			name:    "role the chart does not use",
			spec:    spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleSize: "price"}),
			wantErr: ErrUnknownRole,
		},
		{
			name:    "column not in table",
			spec:    spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "revenue"}),
			wantErr: ErrUnknownColumn,
		},
		{
			name:    "text column on a numeric axis",
			spec:    spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "region"}),
			wantErr: ErrIncompatibleColumn,
		},
		{
			name:    "datetime axis only for line charts",
			spec:    spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "order_date", domain.RoleY: "units"}),
			wantErr: ErrIncompatibleColumn,
		},
		{
			name: "datetime axis on a line chart",
			spec: spec(domain.ChartLine, map[domain.ChartRole]string{domain.RoleX: "order_date", domain.RoleY: "units"}),
		},
		{
			name:    "radar without metrics",
			spec:    spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "region"}),
			wantErr: ErrNoMetrics,
		},
		{
			name:    "radar with a text metric",
			spec:    spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "region"}, "units", "product"),
			wantErr: ErrIncompatibleColumn,
		},
		{
			name: "valid radar",
			spec: spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "region"}, "units", "price"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(table, tt.spec)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestValidate_RadarCategoryLimit(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	scores := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	radar := spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "label"}, "score")

	table := testutil.NewTable(t,
		testutil.TextColumn("label", labels...),
		testutil.NumericColumn("score", scores...),
	)
	assert.NoError(t, Validate(table, radar), "ten categories are allowed")

	table = testutil.NewTable(t,
		testutil.TextColumn("label", append(labels, "")...),
		testutil.NumericColumn("score", append(scores, 11)...),
	)
	assert.ErrorIs(t, Validate(table, radar), ErrTooManyCategories, "missing counts as a category")
}

func TestValidate_HeatmapNeedsNumericColumns(t *testing.T) {
	table := testutil.NewTable(t, testutil.TextColumn("a", "x", "y"))
	assert.ErrorIs(t, Validate(table, spec(domain.ChartHeatmap, nil)), ErrNoNumericColumns)
}

func TestBuildFigure_Titles(t *testing.T) {
	table := testutil.CleanSalesTable(t)

	tests := []struct {
		spec      domain.ChartSpec
		wantTitle string
		wantType  string
	}{
		{spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "price"}), "units vs. price", "scatter"},
		{spec(domain.ChartLine, map[domain.ChartRole]string{domain.RoleX: "order_date", domain.RoleY: "units"}), "Trend of units over order_date", "scatter"},
		{spec(domain.ChartBar, map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"}), "Average units by region", "bar"},
		{spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "price"}), "Distribution of price", "histogram"},
		{spec(domain.ChartBox, map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"}), "Distribution of units by region", "box"},
		{spec(domain.ChartViolin, map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"}), "Distribution of units by region", "violin"},
		{spec(domain.ChartCount, map[domain.ChartRole]string{domain.RoleX: "product"}), "Count of product", "bar"},
		{spec(domain.ChartHeatmap, nil), "Correlation Heatmap of Numeric Variables", "heatmap"},
		{spec(domain.ChartBubble, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "price", domain.RoleSize: "units"}), "units vs. price, Sized by units", "scatter"},
		{spec(domain.ChartPie, map[domain.ChartRole]string{domain.RoleNames: "region", domain.RoleValues: "units"}), "Proportion of units by region", "pie"},
		{spec(domain.ChartDot, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "region"}), "units by region", "scatter"},
		{spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "region"}, "units", "price"), "Comparison of Metrics for region", "scatterpolar"},
	}

	for _, tt := range tests {
		t.Run(string(tt.spec.Kind), func(t *testing.T) {
			fig, err := BuildFigure(table, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, fig.Title())
			require.NotEmpty(t, fig.Data)
			assert.Equal(t, tt.wantType, fig.Data[0]["type"])

			_, err = json.Marshal(fig)
			assert.NoError(t, err)
		})
	}
}

func TestBuildFigure_Invalid(t *testing.T) {
	_, err := BuildFigure(testutil.CleanSalesTable(t), spec(domain.ChartPie, nil))
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestBuildFigure_ScatterGroupsByColor(t *testing.T) {
	table := testutil.CleanSalesTable(t)

	fig, err := BuildFigure(table, spec(domain.ChartScatter, map[domain.ChartRole]string{
		domain.RoleX: "units", domain.RoleY: "price", domain.RoleColor: "region",
	}))
	require.NoError(t, err)

	require.Len(t, fig.Data, 4)
	assert.Equal(t, "North", fig.Data[0]["name"])
	assert.Equal(t, []interface{}{10.0, 12.0}, fig.Data[0]["x"])
	assert.Equal(t, []interface{}{2.5, 9.75}, fig.Data[0]["y"])
	assert.Equal(t, "West", fig.Data[3]["name"])
}

func TestBuildFigure_BarAverages(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.TextColumn("team", "a", "b", "a", "", "b"),
		testutil.NumericColumn("score", 1, 10, 3, 100, testutil.NaN),
	)

	fig, err := BuildFigure(table, spec(domain.ChartBar, map[domain.ChartRole]string{domain.RoleX: "team", domain.RoleY: "score"}))
	require.NoError(t, err)

	require.Len(t, fig.Data, 2, "rows with a missing category are skipped")
	assert.Equal(t, []interface{}{2.0}, fig.Data[0]["y"])
	assert.Equal(t, []interface{}{10.0}, fig.Data[1]["y"])
}

func TestBuildFigure_PieSumsByLabel(t *testing.T) {
	table := testutil.CleanSalesTable(t)

	fig, err := BuildFigure(table, spec(domain.ChartPie, map[domain.ChartRole]string{domain.RoleNames: "region", domain.RoleValues: "units"}))
	require.NoError(t, err)

	require.Len(t, fig.Data, 1)
	assert.Equal(t, []interface{}{"North", "South", "East", "West"}, fig.Data[0]["labels"])
	assert.Equal(t, []interface{}{22.0, 9.0, 7.0, 3.0}, fig.Data[0]["values"])
}

func TestBuildFigure_RadarMeltsMetrics(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.TextColumn("team", "a", "b", "a"),
		testutil.NumericColumn("speed", 1, 2, 3),
		testutil.NumericColumn("power", 4, 5, 6),
	)

	fig, err := BuildFigure(table, spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "team"}, "speed", "power"))
	require.NoError(t, err)

	require.Len(t, fig.Data, 2)
	assert.Equal(t, []interface{}{1.0, 3.0, 4.0, 6.0}, fig.Data[0]["r"])
	assert.Equal(t, []interface{}{"speed", "speed", "power", "power"}, fig.Data[0]["theta"])
	assert.Equal(t, "toself", fig.Data[0]["fill"])
}

func TestBuildFigure_HeatmapNullsUndefinedCoefficients(t *testing.T) {
	table := testutil.NewTable(t,
		testutil.NumericColumn("a", 1, 2, 3),
		testutil.NumericColumn("flat", 5, 5, 5),
	)

	fig, err := BuildFigure(table, spec(domain.ChartHeatmap, nil))
	require.NoError(t, err)

	data, err := json.Marshal(fig)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"z":[[1,null],[null,null]]`)
}

func TestRenderCode(t *testing.T) {
	tests := []struct {
		name string
		spec domain.ChartSpec
		want string
	}{
		{
			name: "scatter without color",
			spec: spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "price", domain.RoleColor: NoneOption}),
			want: "fig = px.scatter(df, x='units', y='price', color=None)\nfig.show()",
		},
		{
			name: "line with color",
			spec: spec(domain.ChartLine, map[domain.ChartRole]string{domain.RoleX: "order_date", domain.RoleY: "units", domain.RoleColor: "region"}),
			want: "fig = px.line(df, x='order_date', y='units', color='region')\nfig.show()",
		},
		{
			name: "bar",
			spec: spec(domain.ChartBar, map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"}),
			want: "fig = px.histogram(df, x='region', y='units', color='region', histfunc='avg')\nfig.show()",
		},
		{
			name: "histogram",
			spec: spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "price"}),
			want: "fig = px.histogram(df, x='price', title='Distribution of price', marginal='box')\nfig.show()",
		},
		{
			name: "violin",
			spec: spec(domain.ChartViolin, map[domain.ChartRole]string{domain.RoleX: "region", domain.RoleY: "units"}),
			want: "fig = px.violin(df, x='region', y='units', color='region', box=True)\nfig.show()",
		},
		{
			name: "count",
			spec: spec(domain.ChartCount, map[domain.ChartRole]string{domain.RoleX: "product"}),
			want: "fig = px.histogram(df, x='product', title='Count of product', color='product')\nfig.show()",
		},
		{
			name: "heatmap",
			spec: spec(domain.ChartHeatmap, nil),
			want: "numeric_df = df.select_dtypes(include=np.number)\ncorr_matrix = numeric_df.corr()\nfig = px.imshow(corr_matrix, text_auto=True)\nfig.show()",
		},
		{
			name: "bubble",
			spec: spec(domain.ChartBubble, map[domain.ChartRole]string{domain.RoleX: "units", domain.RoleY: "price", domain.RoleSize: "units"}),
			want: "fig = px.scatter(df, x='units', y='price', size='units', color=None)\nfig.show()",
		},
		{
			name: "pie",
			spec: spec(domain.ChartPie, map[domain.ChartRole]string{domain.RoleNames: "region", domain.RoleValues: "units"}),
			want: "fig = px.pie(df, names='region', values='units')\nfig.show()",
		},
		{
			name: "column names are quoted like python repr",
			spec: spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "owner's age"}),
			want: "fig = px.histogram(df, x=\"owner's age\", title=\"Distribution of owner's age\", marginal='box')\nfig.show()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderCode(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderCode_Radar(t *testing.T) {
	code, err := RenderCode(spec(domain.ChartRadar, map[domain.ChartRole]string{domain.RoleCategory: "team"}, "speed", "power"))
	require.NoError(t, err)

	assert.Contains(t, code, "id_vars = ['team']\nvalue_vars = ['speed', 'power']\n")
	assert.Contains(t, code, "for cat in melted_df['team'].unique():")
	assert.Contains(t, code, "fill='toself'")
}

func TestRenderCode_NeedsOnlyTheSpec(t *testing.T) {
	_, err := RenderCode(spec(domain.ChartScatter, map[domain.ChartRole]string{domain.RoleX: "units"}))
	assert.ErrorIs(t, err, ErrMissingColumn)

	code, err := RenderCode(spec(domain.ChartHistogram, map[domain.ChartRole]string{domain.RoleX: "not in any table"}))
	require.NoError(t, err)
	assert.Contains(t, code, "'not in any table'")
}

func TestPyRepr(t *testing.T) {
	tests := map[string]string{
		"plain":      "'plain'",
		`it's`:       `"it's"`,
		`both ' "`:   `'both \' "'`,
		`back\slash`: `'back\\slash'`,
		"tab\there":  `'tab\there'`,
	}
	for in, want := range tests {
		assert.Equal(t, want, pyRepr(in), in)
	}
}
