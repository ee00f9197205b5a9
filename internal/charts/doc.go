// Package charts maps a table and a declarative ChartSpec to a chart.
//
// Catalog lists the twelve chart kinds and, per kind, the column roles it
// binds and the declared column kinds each role accepts. Options filters a
// table's columns for those roles using the table profile, so chart code
// never inspects raw cell values to decide what a column is.
//
// BuildFigure returns plotly-compatible JSON for the browser. RenderCode
// turns the same spec into the equivalent plotly-express source; it only
// sees the spec, which keeps the code shown to the user independent of how
// the figure was produced.
package charts
