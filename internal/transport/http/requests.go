package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"plotpilot/pkg/contracts/domain"
)

// Table names accepted by PUT /active
const (
	TableOriginal = "original"
	TableCleaned  = "cleaned"
)

// CleanRequest is the body of POST /clean. Unset fields take the server default.
type CleanRequest struct {
	MissingValuePolicy string `json:"missing_value_policy,omitempty" validate:"omitempty,missingpolicy"`
	DropEmptyColumns   *bool  `json:"drop_empty_columns,omitempty"`
	NormalizeTextCase  *bool  `json:"normalize_text_case,omitempty"`
	RemoveOutliers     *bool  `json:"remove_outliers,omitempty"`
}

// Bind implements render.Binder
func (c *CleanRequest) Bind(r *http.Request) error {
	c.MissingValuePolicy = strings.ToLower(strings.TrimSpace(c.MissingValuePolicy))
	return nil
}

// Config overlays the request on defaults
func (c *CleanRequest) Config(defaults domain.CleaningConfig) domain.CleaningConfig {
	cfg := defaults
	if c.MissingValuePolicy != "" {
		cfg.MissingValuePolicy = domain.MissingValuePolicy(c.MissingValuePolicy)
	}
	if c.DropEmptyColumns != nil {
		cfg.DropEmptyColumns = *c.DropEmptyColumns
	}
	if c.NormalizeTextCase != nil {
		cfg.NormalizeTextCase = *c.NormalizeTextCase
	}
	if c.RemoveOutliers != nil {
		cfg.RemoveOutliers = *c.RemoveOutliers
	}
	return cfg
}

// SelectTableRequest is the body of PUT /active
type SelectTableRequest struct {
	Table string `json:"table" validate:"required,oneof=original cleaned"`
}

// Bind implements render.Binder
func (s *SelectTableRequest) Bind(r *http.Request) error {
	s.Table = strings.ToLower(strings.TrimSpace(s.Table))
	if s.Table == "raw" {
		s.Table = TableOriginal
	}
	return nil
}

// ChartRequest is the body of chart generation and selection requests
type ChartRequest struct {
	Kind    domain.ChartKind            `json:"kind,omitempty" validate:"omitempty,chartkind"`
	Columns map[domain.ChartRole]string `json:"columns,omitempty"`
	Metrics []string                    `json:"metrics,omitempty" validate:"omitempty,dive,required"`
}

// Bind implements render.Binder
func (c *ChartRequest) Bind(r *http.Request) error {
	c.Kind = domain.ChartKind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	for role, col := range c.Columns {
		if strings.TrimSpace(col) == "" {
			delete(c.Columns, role)
		}
	}
	return nil
}

// Spec converts the request to a chart spec
func (c *ChartRequest) Spec() domain.ChartSpec {
	return domain.ChartSpec{Kind: c.Kind, Columns: c.Columns, Metrics: c.Metrics}
}

// bindOptional decodes a JSON body that may be empty, then runs the binder
func bindOptional(r *http.Request, v render.Binder) error {
	if r.Body != nil && r.Body != http.NoBody {
		if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return v.Bind(r)
}
