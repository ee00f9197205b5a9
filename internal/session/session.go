package session

import (
	"time"

	"plotpilot/pkg/contracts/domain"
)

// Session is one user's workspace: the uploaded table, the result of the
// last cleaning run and the current chart selection. Tables are never
// mutated once stored; operations replace them.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Original *domain.Table          `json:"-"`
	Cleaned  *domain.Table          `json:"-"`
	Log      domain.ActionLog       `json:"log"`
	Config   *domain.CleaningConfig `json:"config,omitempty"`

	UseCleaned bool              `json:"use_cleaned"`
	Chart      *domain.ChartSpec `json:"chart,omitempty"`
}

// Active returns the cleaned table when it is selected and present, otherwise the original
func (s *Session) Active() *domain.Table {
	if s.UseCleaned && s.Cleaned != nil {
		return s.Cleaned
	}
	return s.Original
}

// HasCleaned reports whether a cleaning run has produced a table
func (s *Session) HasCleaned() bool {
	return s.Cleaned != nil
}

// ActiveName names the table Active returns, "cleaned" or "original"
func (s *Session) ActiveName() string {
	if s.UseCleaned && s.Cleaned != nil {
		return "cleaned"
	}
	return "original"
}

// clone copies the session header and slices; tables are shared
func (s *Session) clone() *Session {
	c := *s
	c.Log = append(domain.ActionLog(nil), s.Log...)
	if s.Config != nil {
		cfg := *s.Config
		c.Config = &cfg
	}
	if s.Chart != nil {
		spec := s.Chart.Clone()
		c.Chart = &spec
	}
	return &c
}
