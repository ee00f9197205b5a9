package cleaning

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Layouts tried after cast's own list
var extraDateLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"January 2 2006",
	"2 January 2006",
}

// parseNumber reads a trimmed string as a finite float
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDatetime reads a string as a datetime. Title casing may have turned
// the RFC 3339 separators to lower case, so an upper-cased retry follows.
func parseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, candidate := range []string{s, strings.ToUpper(s)} {
		if t, err := cast.ToTimeE(candidate); err == nil && !t.IsZero() {
			return t, true
		}
		for _, layout := range extraDateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
