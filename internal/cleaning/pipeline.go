package cleaning

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"plotpilot/pkg/contracts/domain"
)

// Clean applies the cleaning recipe to a copy of table and returns the
// cleaned table with the ordered action log. The input is never modified.
func Clean(table *domain.Table, cfg domain.CleaningConfig) (*domain.Table, domain.ActionLog, error) {
	if table == nil {
		return nil, nil, invalidInput("table is nil", nil)
	}
	if err := table.Validate(); err != nil {
		return nil, nil, invalidInput("malformed table", err)
	}
	if !cfg.MissingValuePolicy.Valid() {
		return nil, nil, invalidInput("unknown missing value policy "+string(cfg.MissingValuePolicy), nil)
	}

	p := newPipeline(table.Clone(), cfg)
	p.run()
	return p.table, p.log, nil
}

// pipeline carries the working copy through the steps of one Clean call
type pipeline struct {
	table *domain.Table
	cfg   domain.CleaningConfig
	log   domain.ActionLog

	// columns that were text before text normalization began
	originalText []string

	// cases.Caser is stateful and not safe for concurrent use
	title cases.Caser
}

func newPipeline(table *domain.Table, cfg domain.CleaningConfig) *pipeline {
	var text []string
	for _, col := range table.Columns() {
		if col.Kind == domain.KindText {
			text = append(text, col.Name)
		}
	}
	return &pipeline{
		table:        table,
		cfg:          cfg,
		originalText: text,
		title:        cases.Title(language.Und),
	}
}

func (p *pipeline) run() {
	p.removeDuplicates()
	p.normalizeText()
	if p.cfg.DropEmptyColumns {
		p.dropEmptyColumns()
	}
	switch p.cfg.MissingValuePolicy {
	case domain.MissingFill:
		p.fillMissing()
	case domain.MissingDrop:
		p.dropMissingRows()
	case domain.MissingLeave:
		p.leaveMissing()
	}
	p.coerceNumeric()
	p.titleCase()
	p.inferDatetimes()
	p.pruneColumns()
	if p.cfg.RemoveOutliers {
		p.removeOutliers()
	} else {
		p.flagOutliers()
	}
}
