package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"

	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// Rule names the coercion applied to a column.
type Rule string

const (
	RuleNone           Rule = "none"
	RuleIntSeparators  Rule = "int-strip-separators"
	RuleFloat          Rule = "float"
	RuleDateYYYYMMDD   Rule = "date-yyyymmdd"
	RuleDateAny        Rule = "date-any"
	RulePercent        Rule = "percent-strip"
	RuleCompositeLabel Rule = "composite-label"
	RuleCompositeCode  Rule = "composite-code"
)

// separators are removed before numeric parsing: thousands commas and
// invisible characters that leak out of spreadsheet exports.
var separators = strings.NewReplacer(
	",", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

func cleanNumber(s string) string {
	s = separators.Replace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isZeroToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "-", "nan":
		return true
	}
	return false
}

// CoerceInt cleans a separator-formatted integer. Empty strings, lone
// dashes and NaN tokens are zero, and so is anything else that does not
// parse: the dashboards chart zero for unreadable counts.
func CoerceInt(s string) int64 {
	s = cleanNumber(s)
	if isZeroToken(s) {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CoerceFloat cleans a separator-formatted decimal. Unparseable values
// report false.
func CoerceFloat(s string) (float64, bool) {
	s = cleanNumber(s)
	if isZeroToken(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoercePercent parses values like "70%" or " 72.5 % ".
func CoercePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var eightDigits = regexp.MustCompile(`^\d{8}$`)

// ParseYYYYMMDD parses a fixed-width numeric date. Anything else is not a date.
func ParseYYYYMMDD(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !eightDigits.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAnyDate accepts the layouts dateparse understands, in UTC.
func ParseAnyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := ParseYYYYMMDD(s); ok {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func intValue(v table.Value) table.Value {
	switch v.Kind() {
	case table.KindInt:
		return v
	case table.KindFloat:
		return table.Int(v.Int())
	case table.KindNull:
		return table.Int(0)
	}
	return table.Int(CoerceInt(v.String()))
}

func floatValue(v table.Value) table.Value {
	if f, ok := v.Float(); ok {
		return table.Float(f)
	}
	if f, ok := CoerceFloat(v.String()); ok {
		return table.Float(f)
	}
	return table.Null()
}

func percentValue(v table.Value) table.Value {
	if f, ok := v.Float(); ok {
		return table.Float(f)
	}
	if f, ok := CoercePercent(v.String()); ok {
		return table.Float(f)
	}
	return table.Null()
}

func fixedDateValue(v table.Value) table.Value {
	if v.Kind() == table.KindDate {
		return v
	}
	if t, ok := ParseYYYYMMDD(v.String()); ok {
		return table.Date(t)
	}
	return table.Null()
}

func anyDateValue(v table.Value) table.Value {
	if v.Kind() == table.KindDate {
		return v
	}
	if t, ok := ParseAnyDate(v.String()); ok {
		return table.Date(t)
	}
	return table.Null()
}

func mapValues(vals []table.Value, fn func(table.Value) table.Value) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = fn(v)
	}
	return out
}
