package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ValueKind identifies what a single cell holds
type ValueKind uint8

const (
	ValueMissing ValueKind = iota
	ValueNumber
	ValueText
	ValueTime
)

// Display layouts used when a datetime cell is rendered as text
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Value is a single table cell: a number, a piece of text, a datetime or missing.
// The zero Value is missing.
type Value struct {
	kind ValueKind
	num  float64
	text string
	t    time.Time
}

// Number returns a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: ValueNumber, num: f}
}

// Text returns a text cell
func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

// Time returns a datetime cell normalized to UTC. The zero time is stored as missing.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: ValueTime, t: t.UTC()}
}

// Missing returns the missing marker
func Missing() Value {
	return Value{}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsMissing() bool { return v.kind == ValueMissing }
func (v Value) IsNumber() bool  { return v.kind == ValueNumber }
func (v Value) IsText() bool    { return v.kind == ValueText }
func (v Value) IsTime() bool    { return v.kind == ValueTime }

// Float returns the numeric payload, or NaN for non-numeric cells
func (v Value) Float() float64 {
	if v.kind != ValueNumber {
		return math.NaN()
	}
	return v.num
}

// Str returns the text payload, or "" for non-text cells
func (v Value) Str() string {
	if v.kind != ValueText {
		return ""
	}
	return v.text
}

// Time returns the datetime payload, or the zero time for non-datetime cells
func (v Value) Time() time.Time {
	if v.kind != ValueTime {
		return time.Time{}
	}
	return v.t
}

// String renders the cell the way it is displayed and exported.
// Missing cells render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueText:
		return v.text
	case ValueTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(DateLayout)
		}
		return v.t.Format(DateTimeLayout)
	default:
		return ""
	}
}

// Key returns a kind-tagged canonical form. Two cells are equal exactly when
// their keys are equal; all missing cells share one key.
func (v Value) Key() string {
	switch v.kind {
	case ValueNumber:
		if v.num == 0 {
			return "n:0" // -0 == 0
		}
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueText:
		return "s:" + v.text
	case ValueTime:
		return "t:" + v.t.Format(time.RFC3339Nano)
	default:
		return "\x00"
	}
}

// Equal reports whether two cells hold the same kind and payload
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

// Less orders cells of the same kind by payload; across kinds it orders by kind
func (v Value) Less(o Value) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	switch v.kind {
	case ValueNumber:
		return v.num < o.num
	case ValueText:
		return v.text < o.text
	case ValueTime:
		return v.t.Before(o.t)
	default:
		return false
	}
}

// Interface returns a JSON-ready representation: nil, float64, string, or an RFC 3339 string
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueNumber:
		if math.IsInf(v.num, 0) {
			return v.String()
		}
		return v.num
	case ValueText:
		return v.text
	case ValueTime:
		return v.t.Format(time.RFC3339)
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
