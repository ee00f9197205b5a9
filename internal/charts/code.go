package charts

import (
	"fmt"
	"strings"
	"text/template"

	"plotpilot/pkg/contracts/domain"
)

// codeTemplates render a chart spec as the equivalent plotly-express call
var codeTemplates = map[domain.ChartKind]string{
	domain.ChartScatter: `fig = px.scatter(df, x={{py .X}}, y={{py .Y}}, color={{pyOpt .Color}})
fig.show()`,
	domain.ChartLine: `fig = px.line(df, x={{py .X}}, y={{py .Y}}, color={{pyOpt .Color}})
fig.show()`,
	domain.ChartBar: `fig = px.histogram(df, x={{py .X}}, y={{py .Y}}, color={{py .X}}, histfunc='avg')
fig.show()`,
	domain.ChartHistogram: `fig = px.histogram(df, x={{py .X}}, title={{py (printf "Distribution of %s" .X)}}, marginal='box')
fig.show()`,
	domain.ChartBox: `fig = px.box(df, x={{py .X}}, y={{py .Y}}, color={{py .X}})
fig.show()`,
	domain.ChartViolin: `fig = px.violin(df, x={{py .X}}, y={{py .Y}}, color={{py .X}}, box=True)
fig.show()`,
	domain.ChartCount: `fig = px.histogram(df, x={{py .X}}, title={{py (printf "Count of %s" .X)}}, color={{py .X}})
fig.show()`,
	domain.ChartHeatmap: `numeric_df = df.select_dtypes(include=np.number)
corr_matrix = numeric_df.corr()
fig = px.imshow(corr_matrix, text_auto=True)
fig.show()`,
	domain.ChartBubble: `fig = px.scatter(df, x={{py .X}}, y={{py .Y}}, size={{py .Size}}, color={{pyOpt .Color}})
fig.show()`,
	domain.ChartPie: `fig = px.pie(df, names={{py .Names}}, values={{py .Values}})
fig.show()`,
	domain.ChartDot: `fig = px.scatter(df, x={{py .X}}, y={{py .Y}}, color={{pyOpt .Color}})
fig.show()`,
	domain.ChartRadar: `import plotly.graph_objects as go
# Radar charts often require reshaping the data from wide to long format
id_vars = [{{py .Category}}]
value_vars = {{pyList .Metrics}}
melted_df = pd.melt(df, id_vars=id_vars, value_vars=value_vars, var_name='Metric', value_name='Value')

fig = go.Figure()
for cat in melted_df[{{py .Category}}].unique():
    subset = melted_df[melted_df[{{py .Category}}] == cat]
    fig.add_trace(go.Scatterpolar(
        r=subset["Value"],
        theta=subset["Metric"],
        mode='lines+markers',
        name=str(cat),
        fill='toself'
    ))
fig.show()`,
}

var codeFuncs = template.FuncMap{
	"py":     pyRepr,
	"pyOpt":  pyOptional,
	"pyList": pyList,
}

var compiledCode = func() map[domain.ChartKind]*template.Template {
	out := make(map[domain.ChartKind]*template.Template, len(codeTemplates))
	for kind, src := range codeTemplates {
		out[kind] = template.Must(template.New(string(kind)).Funcs(codeFuncs).Parse(src))
	}
	return out
}()

type codeData struct {
	X, Y, Color, Size, Names, Values, Category string
	Metrics                                    []string
}

// RenderCode renders the plotly-express source that reproduces spec. It
// needs only the spec, not the table the figure was built from.
func RenderCode(spec domain.ChartSpec) (string, error) {
	spec = Normalize(spec)
	if _, err := checkBindings(spec); err != nil {
		return "", err
	}
	tmpl, ok := compiledCode[spec.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	data := codeData{
		X:        spec.Column(domain.RoleX),
		Y:        spec.Column(domain.RoleY),
		Color:    spec.Column(domain.RoleColor),
		Size:     spec.Column(domain.RoleSize),
		Names:    spec.Column(domain.RoleNames),
		Values:   spec.Column(domain.RoleValues),
		Category: spec.Column(domain.RoleCategory),
		Metrics:  spec.Metrics,
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s code: %w", spec.Kind, err)
	}
	return b.String(), nil
}

// pyRepr quotes s as a Python string literal the way repr() does
func pyRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// pyOptional renders an unbound role as None
func pyOptional(s string) string {
	if s == "" {
		return "None"
	}
	return pyRepr(s)
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyRepr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
