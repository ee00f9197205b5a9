package domain

import (
	"fmt"
	"strings"
)

// MissingValuePolicy selects how the cleaning pipeline treats missing cells
type MissingValuePolicy string

const (
	MissingFill  MissingValuePolicy = "fill"  // Median for numeric, mode otherwise
	MissingDrop  MissingValuePolicy = "drop"  // Remove every row with a missing cell
	MissingLeave MissingValuePolicy = "leave" // Leave missing cells as they are
)

// Valid reports whether p is one of the known policies
func (p MissingValuePolicy) Valid() bool {
	switch p {
	case MissingFill, MissingDrop, MissingLeave:
		return true
	}
	return false
}

// ParseMissingValuePolicy accepts a policy name in any letter case
func ParseMissingValuePolicy(s string) (MissingValuePolicy, error) {
	p := MissingValuePolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown missing value policy %q", s)
	}
	return p, nil
}

// CleaningConfig holds the user-chosen switches of a cleaning run
type CleaningConfig struct {
	MissingValuePolicy MissingValuePolicy `json:"missing_value_policy" yaml:"missing_value_policy" validate:"required,oneof=fill drop leave"`
	DropEmptyColumns   bool               `json:"drop_empty_columns" yaml:"drop_empty_columns"`
	NormalizeTextCase  bool               `json:"normalize_text_case" yaml:"normalize_text_case"`
	RemoveOutliers     bool               `json:"remove_outliers" yaml:"remove_outliers"`
}

// DefaultCleaningConfig returns the configuration offered before the user changes anything
func DefaultCleaningConfig() CleaningConfig {
	return CleaningConfig{
		MissingValuePolicy: MissingFill,
		DropEmptyColumns:   true,
	}
}

// CleaningStep names a pipeline stage in the action log
type CleaningStep string

const (
	StepDuplicates   CleaningStep = "duplicates"
	StepText         CleaningStep = "text_normalization"
	StepEmptyColumns CleaningStep = "empty_columns"
	StepMissing      CleaningStep = "missing_values"
	StepNumeric      CleaningStep = "numeric_coercion"
	StepTitleCase    CleaningStep = "title_case"
	StepDatetime     CleaningStep = "datetime_inference"
	StepPrune        CleaningStep = "prune"
	StepOutliers     CleaningStep = "outliers"
)

// LogLevel classifies an action log entry
type LogLevel string

const (
	LogAction  LogLevel = "action"  // The table changed
	LogNote    LogLevel = "note"    // Observation only, nothing changed
	LogWarning LogLevel = "warning" // Diagnostic the user should look at
)

// ActionEntry is one human-readable line of the action log
type ActionEntry struct {
	Step    CleaningStep `json:"step"`
	Level   LogLevel     `json:"level"`
	Message string       `json:"message"`
}

// ActionLog is the ordered record of what a cleaning run did
type ActionLog []ActionEntry

// Add appends an entry
func (l *ActionLog) Add(step CleaningStep, level LogLevel, format string, args ...interface{}) {
	*l = append(*l, ActionEntry{Step: step, Level: level, Message: fmt.Sprintf(format, args...)})
}

// Lines returns the messages in order
func (l ActionLog) Lines() []string {
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = e.Message
	}
	return lines
}

// Actions returns only the entries that recorded a change to the table
func (l ActionLog) Actions() ActionLog {
	return l.filter(LogAction)
}

// Warnings returns only the warning entries
func (l ActionLog) Warnings() ActionLog {
	return l.filter(LogWarning)
}

func (l ActionLog) filter(level LogLevel) ActionLog {
	var out ActionLog
	for _, e := range l {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
