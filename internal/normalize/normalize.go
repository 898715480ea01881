// Package normalize trims and renames columns, recognizes semantic column
// families by name and value patterns, and coerces them into typed columns.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// ErrMissingRequiredColumn matches every *MissingRequiredColumnError.
var ErrMissingRequiredColumn = errors.New("missing required column")

// ErrNoRecognizedAgeColumns means no column name carries an age bucket.
var ErrNoRecognizedAgeColumns = errors.New("no age-bucket columns recognized")

// ErrNoRecognizedMeasureColumns means no numeric measure column was found.
var ErrNoRecognizedMeasureColumns = errors.New("no numeric measure columns recognized")

// MissingRequiredColumnError names a structurally required column.
type MissingRequiredColumnError struct {
	Name      string
	Available []string
}

func (e *MissingRequiredColumnError) Error() string {
	if len(e.Available) > 0 {
		return fmt.Sprintf("missing required column %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("missing required column %q", e.Name)
}

func (e *MissingRequiredColumnError) Is(target error) bool { return target == ErrMissingRequiredColumn }

// CompositeRule splits "LABEL (CODE)" values of Column into two columns.
type CompositeRule struct {
	Column string
	// LabelName and CodeName default to Column+"_label" and Column+"_code".
	LabelName string
	CodeName  string
	// KeepOriginalAs renames the untouched source column when set.
	KeepOriginalAs string
}

// Options declares which columns to coerce and how to detect the rest.
type Options struct {
	// Required columns, named after trimming and renaming.
	Required []string
	// Rename maps trimmed names to display names.
	Rename    map[string]string
	Composite []CompositeRule
	// Numeric columns hold integers with thousands separators.
	Numeric []string
	// Floats hold decimal measures.
	Floats []string
	// Dates hold YYYYMMDD values; FreeDates any layout dateparse accepts.
	Dates     []string
	FreeDates []string
	Percent   []string

	// DetectAges finds "<N><AgeUnit>" and "<N><AgeUnit> <OlderToken>" columns.
	DetectAges bool
	AgeUnit    string
	OlderToken string
	// DetectDates treats untyped columns named like dates as dates.
	DetectDates bool
	// DetectMeasures treats untyped columns whose values all parse as
	// numbers as measures.
	DetectMeasures bool

	RequireAges     bool
	RequireMeasures bool

	Logger *zap.Logger
}

// DefaultOptions detects Korean age buckets ("N세", "N세 이상"), dates and
// measures.
func DefaultOptions() Options {
	return Options{
		DetectAges:     true,
		AgeUnit:        "세",
		OlderToken:     "이상",
		DetectDates:    true,
		DetectMeasures: true,
	}
}

// ColumnSpec describes one recognized column. Specs are derived once per
// load and never change afterwards.
type ColumnSpec struct {
	Name   string
	Source string
	Role   table.Role
	Rule   Rule
}

// AgeBucket is one age column. OrOlder marks the open-ended top bucket.
type AgeBucket struct {
	Age     int
	Column  string
	OrOlder bool
}

// Label renders the bucket for an x axis: "42" or "100+".
func (b AgeBucket) Label() string {
	if b.OrOlder {
		return strconv.Itoa(b.Age) + "+"
	}
	return strconv.Itoa(b.Age)
}

// Result is a normalized table plus what was recognized in it.
type Result struct {
	Table *table.Table
	Specs []ColumnSpec
	// Ages is in chart order: ascending, open-ended buckets last.
	Ages []AgeBucket
}

// ByRole returns the specs with the given role; empty when none.
func (r *Result) ByRole(role table.Role) []ColumnSpec {
	var out []ColumnSpec
	for _, s := range r.Specs {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// Spec returns the ColumnSpec for a column name.
func (r *Result) Spec(name string) (ColumnSpec, bool) {
	for _, s := range r.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return ColumnSpec{}, false
}

// CleanName normalizes a header: embedded newlines become spaces, runs of
// whitespace collapse to one and the result is trimmed.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize returns a new normalized table; raw is not modified.
func Normalize(raw *table.Table, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cols := renameColumns(raw, opt.Rename)
	w := newWork(cols)

	for _, name := range opt.Required {
		if _, ok := w.get(name); !ok {
			return nil, &MissingRequiredColumnError{Name: name, Available: w.names()}
		}
	}

	for _, rule := range opt.Composite {
		if err := w.splitComposite(rule); err != nil {
			return nil, err
		}
	}

	var ages []AgeBucket
	if opt.DetectAges {
		ages = ExtractAgeColumns(w.names(), opt.AgeUnit, opt.OlderToken)
		for _, b := range ages {
			w.coerce(b.Column, table.RoleNumeric, RuleIntSeparators, intValue)
		}
	}

	for _, name := range opt.Numeric {
		w.coerce(name, table.RoleNumeric, RuleIntSeparators, intValue)
	}
	for _, name := range opt.Floats {
		w.coerce(name, table.RoleNumeric, RuleFloat, floatValue)
	}
	for _, name := range opt.Dates {
		w.coerce(name, table.RoleDate, RuleDateYYYYMMDD, fixedDateValue)
	}
	for _, name := range opt.FreeDates {
		w.coerce(name, table.RoleDate, RuleDateAny, anyDateValue)
	}
	for _, name := range opt.Percent {
		w.coerce(name, table.RolePercent, RulePercent, percentValue)
	}
	if opt.DetectDates {
		w.detectDates()
	}
	if opt.DetectMeasures {
		w.detectMeasures()
	}

	t := table.Empty()
	for _, c := range w.cols {
		if err := t.AddColumn(c); err != nil {
			return nil, fmt.Errorf("assemble table: %w", err)
		}
	}
	res := &Result{Table: t, Ages: ages}
	for _, c := range w.cols {
		if s, ok := w.specs[c.Name]; ok {
			res.Specs = append(res.Specs, s)
			log.Debug("recognized column", zap.String("column", s.Name), zap.String("role", s.Role.String()), zap.String("rule", string(s.Rule)))
		}
	}

	if opt.RequireAges && len(ages) == 0 {
		return res, ErrNoRecognizedAgeColumns
	}
	if opt.RequireMeasures && len(res.ByRole(table.RoleNumeric)) == 0 {
		return res, ErrNoRecognizedMeasureColumns
	}
	return res, nil
}

func renameColumns(raw *table.Table, rename map[string]string) []*table.Column {
	src := raw.Columns()
	names := make([]string, len(src))
	for i, c := range src {
		n := CleanName(c.Name)
		if to, ok := rename[n]; ok && to != "" {
			n = to
		}
		names[i] = n
	}
	names = table.UniqueNames(names)
	out := make([]*table.Column, len(src))
	for i, c := range src {
		out[i] = &table.Column{Name: names[i], Role: c.Role, Values: append([]table.Value(nil), c.Values...)}
	}
	return out
}

// work is the mutable column set while normalizing.
type work struct {
	cols  []*table.Column
	specs map[string]ColumnSpec
}

func newWork(cols []*table.Column) *work {
	return &work{cols: cols, specs: map[string]ColumnSpec{}}
}

func (w *work) get(name string) (*table.Column, bool) {
	for _, c := range w.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (w *work) names() []string {
	out := make([]string, len(w.cols))
	for i, c := range w.cols {
		out[i] = c.Name
	}
	return out
}

func (w *work) typed(name string) bool {
	_, ok := w.specs[name]
	return ok
}

// coerce applies fn to a present, not yet typed column. Absent optional
// columns are skipped.
func (w *work) coerce(name string, role table.Role, rule Rule, fn func(table.Value) table.Value) {
	c, ok := w.get(name)
	if !ok || w.typed(name) {
		return
	}
	c.Values = mapValues(c.Values, fn)
	c.Role = role
	w.specs[name] = ColumnSpec{Name: name, Source: name, Role: role, Rule: rule}
}

var compositePattern = regexp.MustCompile(`^(.+?)\s*\((\d+)\)\s*$`)

// SplitComposite splits every value as "LABEL (CODE)". When any value does
// not match, labels are the original values and codes are empty.
func SplitComposite(vals []table.Value) (labels, codes []table.Value, split bool) {
	labels = make([]table.Value, len(vals))
	codes = make([]table.Value, len(vals))
	matches := make([][]string, len(vals))
	split = len(vals) > 0
	for i, v := range vals {
		m := compositePattern.FindStringSubmatch(v.String())
		if m == nil {
			split = false
			break
		}
		matches[i] = m
	}
	for i, v := range vals {
		if split {
			labels[i] = table.Text(matches[i][1])
			codes[i] = table.Text(matches[i][2])
		} else {
			labels[i] = table.Text(v.String())
			codes[i] = table.Text("")
		}
	}
	return labels, codes, split
}

func (w *work) splitComposite(rule CompositeRule) error {
	c, ok := w.get(rule.Column)
	if !ok {
		return nil
	}
	labelName := rule.LabelName
	if labelName == "" {
		labelName = rule.Column + "_label"
	}
	codeName := rule.CodeName
	if codeName == "" {
		codeName = rule.Column + "_code"
	}
	source := c.Name
	if rule.KeepOriginalAs != "" {
		if _, taken := w.get(rule.KeepOriginalAs); taken {
			return fmt.Errorf("composite %q: column %q already exists", rule.Column, rule.KeepOriginalAs)
		}
		c.Name = rule.KeepOriginalAs
	}
	for _, n := range []string{labelName, codeName} {
		if _, taken := w.get(n); taken {
			return fmt.Errorf("composite %q: column %q already exists", rule.Column, n)
		}
	}
	labels, codes, _ := SplitComposite(c.Values)
	w.cols = append(w.cols,
		&table.Column{Name: labelName, Role: table.RoleIdentifier, Values: labels},
		&table.Column{Name: codeName, Role: table.RoleCode, Values: codes},
	)
	w.specs[labelName] = ColumnSpec{Name: labelName, Source: source, Role: table.RoleIdentifier, Rule: RuleCompositeLabel}
	w.specs[codeName] = ColumnSpec{Name: codeName, Source: source, Role: table.RoleCode, Rule: RuleCompositeCode}
	return nil
}

var dateNameTokens = []string{"date", "일자", "날짜"}

func (w *work) detectDates() {
	for _, c := range w.cols {
		if w.typed(c.Name) || c.Role != table.RoleText {
			continue
		}
		lower := strings.ToLower(c.Name)
		named := false
		for _, tok := range dateNameTokens {
			if strings.Contains(lower, tok) {
				named = true
				break
			}
		}
		if !named {
			continue
		}
		fixed := true
		for _, v := range c.Values {
			s := strings.TrimSpace(v.String())
			if s != "" && !eightDigits.MatchString(s) {
				fixed = false
				break
			}
		}
		if fixed {
			w.coerce(c.Name, table.RoleDate, RuleDateYYYYMMDD, fixedDateValue)
		} else {
			w.coerce(c.Name, table.RoleDate, RuleDateAny, anyDateValue)
		}
	}
}

func (w *work) detectMeasures() {
	for _, c := range w.cols {
		if w.typed(c.Name) || c.Role != table.RoleText {
			continue
		}
		seen, integral := 0, true
		numeric := true
		for _, v := range c.Values {
			s := cleanNumber(v.String())
			if isZeroToken(s) {
				continue
			}
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				seen++
				continue
			}
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				seen++
				integral = false
				continue
			}
			numeric = false
			break
		}
		if !numeric || seen == 0 {
			continue
		}
		if integral {
			w.coerce(c.Name, table.RoleNumeric, RuleIntSeparators, intValue)
		} else {
			w.coerce(c.Name, table.RoleNumeric, RuleFloat, floatValue)
		}
	}
}

// ExtractAgeColumns finds age-bucket columns. A name matches
// "<N><unit><spaces><older>" as an open-ended bucket or "<N><unit>" as a
// bounded one. Buckets sort ascending by age and every open-ended bucket
// sorts after all bounded ones.
func ExtractAgeColumns(names []string, unit, older string) []AgeBucket {
	if unit == "" {
		unit = "세"
	}
	if older == "" {
		older = "이상"
	}
	openRe := regexp.MustCompile(`(\d{1,3})` + regexp.QuoteMeta(unit) + `\s*` + regexp.QuoteMeta(older))
	boundedRe := regexp.MustCompile(`(\d{1,3})` + regexp.QuoteMeta(unit))

	var out []AgeBucket
	for _, n := range names {
		if m := openRe.FindStringSubmatch(n); m != nil {
			age, _ := strconv.Atoi(m[1])
			out = append(out, AgeBucket{Age: age, Column: n, OrOlder: true})
			continue
		}
		if m := boundedRe.FindStringSubmatch(n); m != nil {
			age, _ := strconv.Atoi(m[1])
			out = append(out, AgeBucket{Age: age, Column: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrOlder != out[j].OrOlder {
			return !out[i].OrOlder
		}
		return out[i].Age < out[j].Age
	})
	return out
}
