package table

import (
	"strconv"
	"time"
)

// Kind tags the concrete type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// DateLayout is the display layout for date values.
const DateLayout = "2006-01-02"

// Value is a single tagged cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Date wraps a calendar date.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Kind reports which payload v carries.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Time returns the date payload, or the zero time for other kinds.
func (v Value) Time() time.Time { return v.t }

// Int returns the integer payload, truncating floats.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	}
	return 0
}

// Float returns the numeric payload and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// String renders the value for display and for filter matching.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	}
	return ""
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDate:
		return v.t.Equal(o.t)
	}
	return true
}
