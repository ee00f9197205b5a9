package cleaning

import (
	"math"
	"strings"

	"plotpilot/internal/stats"
	"plotpilot/pkg/contracts/domain"
)

const unknownPlaceholder = "Unknown"

// zScoreLimit is the distance from the mean, in sample standard deviations,
// beyond which a value is reported as a potential outlier
const zScoreLimit = 3.0

// iqrFactor scales the interquartile range into the outlier fence
const iqrFactor = 1.5

func (p *pipeline) removeDuplicates() {
	rows := p.table.RowCount()
	keep := make([]bool, rows)
	seen := make(map[string]struct{}, rows)
	var key strings.Builder
	for i := 0; i < rows; i++ {
		key.Reset()
		for _, v := range p.table.Row(i) {
			key.WriteString(v.Key())
			key.WriteByte(0x1f)
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep[i] = true
	}
	if removed := p.table.KeepRows(keep); removed > 0 {
		p.log.Add(domain.StepDuplicates, domain.LogAction, "Removed %d duplicate rows.", removed)
	}
}

func (p *pipeline) normalizeText() {
	changed := false
	for _, col := range p.table.Columns() {
		if col.Kind != domain.KindText {
			continue
		}
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			s := strings.TrimSpace(v.String())
			if p.cfg.NormalizeTextCase {
				s = strings.ToLower(s)
			}
			next := domain.Text(s)
			if !next.Equal(v) {
				col.Values[i] = next
				changed = true
			}
		}
	}
	if !changed {
		return
	}
	if p.cfg.NormalizeTextCase {
		p.log.Add(domain.StepText, domain.LogAction, "Trimmed whitespace and converted text columns to lowercase.")
		return
	}
	p.log.Add(domain.StepText, domain.LogAction, "Trimmed whitespace in text columns.")
}

func (p *pipeline) dropEmptyColumns() {
	var empty []string
	for _, col := range p.table.Columns() {
		if col.AllMissing() {
			empty = append(empty, col.Name)
		}
	}
	if len(empty) == 0 {
		return
	}
	p.table.DropColumns(empty...)
	p.log.Add(domain.StepEmptyColumns, domain.LogAction, "Dropped empty columns: %s.", strings.Join(empty, ", "))
}

func (p *pipeline) fillMissing() {
	for _, col := range p.table.Columns() {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}

		switch {
		case missing == col.Len():
			fill(col, domain.Text(unknownPlaceholder))
			col.Kind = domain.KindText
			p.log.Add(domain.StepMissing, domain.LogAction,
				"Filled %d missing values in '%s' with '%s'.", missing, col.Name, unknownPlaceholder)
		case col.Kind == domain.KindNumeric:
			median := stats.Median(col.Floats())
			fill(col, domain.Number(median))
			p.log.Add(domain.StepMissing, domain.LogAction,
				"Filled %d missing values in '%s' with median (%.2f).", missing, col.Name, median)
		default:
			mode := columnMode(col)
			fill(col, mode)
			p.log.Add(domain.StepMissing, domain.LogAction,
				"Filled %d missing values in '%s' with mode ('%s').", missing, col.Name, mode.String())
		}
	}
}

func (p *pipeline) dropMissingRows() {
	rows := p.table.RowCount()
	keep := make([]bool, rows)
	for i := 0; i < rows; i++ {
		keep[i] = !p.table.RowHasMissing(i)
	}
	if removed := p.table.KeepRows(keep); removed > 0 {
		p.log.Add(domain.StepMissing, domain.LogAction, "Dropped %d rows with missing values.", removed)
	}
}

func (p *pipeline) leaveMissing() {
	total := 0
	for _, col := range p.table.Columns() {
		total += col.MissingCount()
	}
	if total > 0 {
		p.log.Add(domain.StepMissing, domain.LogNote, "Left %d missing values as-is.", total)
	}
}

func (p *pipeline) coerceNumeric() {
	for _, name := range p.originalText {
		col := p.table.Column(name)
		if col == nil || col.Kind != domain.KindText || col.AllMissing() {
			continue
		}

		numbers := make([]domain.Value, col.Len())
		numeric := true
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			f, ok := parseNumber(v.String())
			if !ok {
				numeric = false
				break
			}
			numbers[i] = domain.Number(f)
		}

		if numeric {
			col.Values = numbers
			col.Kind = domain.KindNumeric
			p.log.Add(domain.StepNumeric, domain.LogAction, "Converted '%s' to numeric.", name)
			continue
		}

		for i, v := range col.Values {
			if !v.IsMissing() {
				col.Values[i] = domain.Text(strings.TrimSpace(v.String()))
			}
		}
		p.log.Add(domain.StepNumeric, domain.LogNote, "Kept '%s' as text.", name)
	}
}

func (p *pipeline) titleCase() {
	for _, col := range p.table.Columns() {
		if col.Kind != domain.KindText {
			continue
		}
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			col.Values[i] = domain.Text(p.title.String(v.String()))
		}
	}
}

func (p *pipeline) inferDatetimes() {
	for _, col := range p.table.Columns() {
		if col.Kind != domain.KindText || !looksTemporal(col.Name) {
			continue
		}

		parsed := 0
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			t, ok := parseDatetime(v.String())
			if !ok {
				col.Values[i] = domain.Missing()
				continue
			}
			col.Values[i] = domain.Time(t)
			parsed++
		}
		col.Kind = domain.KindDatetime
		if parsed > 0 {
			p.log.Add(domain.StepDatetime, domain.LogAction, "Converted '%s' to datetime.", col.Name)
		}
	}
}

func (p *pipeline) pruneColumns() {
	var drop []string
	for _, col := range p.table.Columns() {
		if col.Distinct() < 2 {
			drop = append(drop, col.Name)
		}
	}
	p.table.DropColumns(drop...)
}

func (p *pipeline) removeOutliers() {
	numeric := p.table.ColumnsOfKind(domain.KindNumeric)
	if len(numeric) == 0 {
		return
	}

	total := 0
	for _, name := range numeric {
		col := p.table.Column(name)
		xs := col.Floats()
		if len(xs) == 0 {
			continue
		}
		q1, q3 := stats.Quartiles(xs)
		iqr := q3 - q1
		lower, upper := q1-iqrFactor*iqr, q3+iqrFactor*iqr

		keep := make([]bool, col.Len())
		for i, v := range col.Values {
			keep[i] = v.IsMissing() || (v.Float() >= lower && v.Float() <= upper)
		}
		if removed := p.table.KeepRows(keep); removed > 0 {
			total += removed
			p.log.Add(domain.StepOutliers, domain.LogAction, "Removed %d outliers from '%s'.", removed, name)
		}
	}
	if total == 0 {
		p.log.Add(domain.StepOutliers, domain.LogNote, "No outliers found.")
	}
}

func (p *pipeline) flagOutliers() {
	for _, name := range p.table.ColumnsOfKind(domain.KindNumeric) {
		xs := p.table.Column(name).Floats()
		mean, std := stats.MeanStdDev(xs)
		if math.IsNaN(std) || std == 0 {
			continue
		}
		count := 0
		for _, x := range xs {
			if math.Abs(x-mean) > zScoreLimit*std {
				count++
			}
		}
		if count > 0 {
			p.log.Add(domain.StepOutliers, domain.LogWarning,
				"Column '%s' has %d potential outliers (more than 3 standard deviations from the mean).", name, count)
		}
	}
}

// looksTemporal reports whether a column name suggests date or time content
func looksTemporal(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "date") || strings.Contains(lower, "time") || strings.Contains(lower, "day")
}

func fill(col *domain.Column, v domain.Value) {
	for i := range col.Values {
		if col.Values[i].IsMissing() {
			col.Values[i] = v
		}
	}
}

// columnMode returns the most frequent non-missing value, ties going to the smallest
func columnMode(col *domain.Column) domain.Value {
	byKey := make(map[string]domain.Value)
	keys := make([]string, 0, col.Len())
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		k := v.Key()
		byKey[k] = v
		keys = append(keys, k)
	}
	mode, _, _ := stats.Mode(keys, func(a, b string) bool { return byKey[a].Less(byKey[b]) })
	return byKey[mode]
}
