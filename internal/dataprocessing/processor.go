package dataprocessing

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"plotpilot/pkg/contracts/domain"
)

// tableBuilder turns a header plus raw string rows into typed columns
type tableBuilder struct {
	na map[string]struct{}
}

func newTableBuilder(naValues []string) *tableBuilder {
	na := make(map[string]struct{}, len(naValues))
	for _, v := range naValues {
		na[strings.TrimSpace(v)] = struct{}{}
	}
	return &tableBuilder{na: na}
}

// build creates one column per header entry. Short rows are padded with
// missing cells; the header grows when a row is longer than it.
func (b *tableBuilder) build(header []string, rows [][]string) *domain.Table {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	names := normalizeHeader(header, width)

	columns := make([]*domain.Column, width)
	raw := make([]string, len(rows))
	present := make([]bool, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			present[i] = j < len(row)
			if present[i] {
				raw[i] = row[j]
			} else {
				raw[i] = ""
			}
		}
		columns[j] = b.inferColumn(names[j], raw, present)
	}
	return domain.NewTable(columns...)
}

// inferColumn makes the column numeric when every non-missing cell is a
// finite number, otherwise text. All-missing columns are text.
func (b *tableBuilder) inferColumn(name string, raw []string, present []bool) *domain.Column {
	values := make([]domain.Value, len(raw))
	numbers := make([]domain.Value, len(raw))
	numeric := true
	seen := false

	for i, s := range raw {
		if !present[i] || b.isMissing(s) {
			values[i] = domain.Missing()
			numbers[i] = domain.Missing()
			continue
		}
		seen = true
		values[i] = domain.Text(s)
		if !numeric {
			continue
		}
		f, err := cast.ToFloat64E(strings.TrimSpace(s))
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		numbers[i] = domain.Number(f)
	}

	if seen && numeric {
		return domain.NewColumn(name, domain.KindNumeric, numbers)
	}
	return domain.NewColumn(name, domain.KindText, values)
}

func (b *tableBuilder) isMissing(s string) bool {
	_, ok := b.na[strings.TrimSpace(s)]
	return ok
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeated
// names with ".1", ".2" in order of appearance.
func normalizeHeader(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]struct{}, width)
	counts := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for {
			if _, taken := used[name]; !taken {
				break
			}
			counts[base]++
			name = fmt.Sprintf("%s.%d", base, counts[base])
		}
		used[name] = struct{}{}
		names[i] = name
	}
	return names
}
