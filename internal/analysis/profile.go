// Package analysis profiles a normalized data set into a compact report.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// Options controls profiling.
type Options struct {
	// Name labels the report, usually the source file name.
	Name string
	// Encoding is the encoding the source decoded under, if known.
	Encoding string
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Kinds reported per column.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
)

// Report is a markdown-friendly analysis of a normalized data set.
type Report struct {
	Name      string
	Encoding  string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Ages      []AgeSummary
	Samples   [][]string
	Warnings  []string
	Corr      []PairCorr
	Groups    []GroupResult
}

// ColumnSummary captures the recognized role and statistics per column.
type ColumnSummary struct {
	Name string
	// Source is the raw header the column came from.
	Source  string
	Kind    string
	Role    table.Role
	Rule    normalize.Rule
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Date span
	First time.Time
	Last  time.Time
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// AgeSummary totals one age bucket over every processed row.
type AgeSummary struct {
	Label  string
	Column string
	Total  float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
	N    int
}

const maxTopValues = 8

// Profile summarizes res. The table is read, never modified.
func Profile(res *normalize.Result, opt Options) (*Report, error) {
	if res == nil || res.Table == nil {
		return nil, fmt.Errorf("profile: no table")
	}
	t := res.Table
	rep := &Report{Name: opt.Name, Encoding: opt.Encoding, Rows: t.Len()}
	rep.Processed = rep.Rows
	if opt.MaxRows > 0 && rep.Processed > opt.MaxRows {
		rep.Processed = opt.MaxRows
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}

	var numeric []*table.Column
	for _, c := range t.Columns() {
		s := ColumnSummary{Name: c.Name, Source: c.Name, Role: c.Role}
		if cs, ok := res.Spec(c.Name); ok {
			s.Source = cs.Source
			s.Rule = cs.Rule
		}
		vals := c.Values[:rep.Processed]
		switch c.Role {
		case table.RoleNumeric, table.RolePercent:
			summarizeNumeric(&s, vals, opt.Outliers, thr)
			if c.Role == table.RolePercent {
				s.Unit = "%"
			}
			numeric = append(numeric, c)
		case table.RoleDate:
			summarizeDates(&s, vals)
			if s.Missing > 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %d values did not parse as dates", c.Name, s.Missing))
			}
		default:
			summarizeText(&s, vals)
		}
		rep.Cols = append(rep.Cols, s)
	}

	for _, b := range res.Ages {
		c, ok := t.Column(b.Column)
		if !ok {
			continue
		}
		var total float64
		for _, v := range c.Values[:rep.Processed] {
			f, _ := v.Float()
			total += f
		}
		rep.Ages = append(rep.Ages, AgeSummary{Label: b.Label(), Column: b.Column, Total: total})
	}

	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = correlations(numeric, rep.Processed)
	}

	if len(opt.GroupBy) > 0 {
		groups, warnings := groupBy(t, opt.GroupBy, numeric, rep.Processed)
		rep.Groups = groups
		rep.Warnings = append(rep.Warnings, warnings...)
	}

	_, records := t.Records()
	for i := 0; i < len(records) && i < sampleRows && i < rep.Processed; i++ {
		rep.Samples = append(rep.Samples, records[i])
	}
	return rep, nil
}

func summarizeNumeric(s *ColumnSummary, vals []table.Value, outliers bool, thr float64) {
	s.Kind = KindNumeric
	w := newWelford()
	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		x, ok := v.Float()
		if !ok {
			s.Missing++
			continue
		}
		s.NonNull++
		w.add(x)
		xs = append(xs, x)
	}
	if w.n == 0 {
		return
	}
	s.Min, s.Max, s.Mean, s.Std = w.min, w.max, w.mean, w.std()
	if !outliers || len(xs) < 8 {
		return
	}
	median, mad := medianMAD(xs)
	s.OutlierThreshold = thr
	if mad == 0 {
		return
	}
	for _, v := range xs {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		if az > s.OutliersMaxAbsZ {
			s.OutliersMaxAbsZ = az
		}
	}
}

func summarizeDates(s *ColumnSummary, vals []table.Value) {
	s.Kind = KindDatetime
	for _, v := range vals {
		if v.Kind() != table.KindDate {
			s.Missing++
			continue
		}
		s.NonNull++
		at := v.Time()
		if s.First.IsZero() || at.Before(s.First) {
			s.First = at
		}
		if s.Last.IsZero() || at.After(s.Last) {
			s.Last = at
		}
	}
}

func summarizeText(s *ColumnSummary, vals []table.Value) {
	cats := map[string]int{}
	short := true
	for _, v := range vals {
		str := strings.TrimSpace(v.String())
		if v.IsNull() || str == "" {
			s.Missing++
			continue
		}
		s.NonNull++
		if len(str) > 64 {
			short = false
		}
		cats[str]++
		if len(s.ExampleTexts) < 3 {
			s.ExampleTexts = append(s.ExampleTexts, str)
		}
	}
	s.Unique = len(cats)
	if s.NonNull == 0 || !short || (s.Unique > 20 && s.Unique*2 > s.NonNull) {
		s.Kind = KindText
		return
	}
	s.Kind = KindCategorical
	s.ExampleTexts = nil
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > maxTopValues {
		tops = tops[:maxTopValues]
	}
	s.TopValues = tops
}

func correlations(cols []*table.Column, rows int) []PairCorr {
	xs := make([][]float64, len(cols))
	present := make([][]bool, len(cols))
	for i, c := range cols {
		xs[i] = make([]float64, rows)
		present[i] = make([]bool, rows)
		for r := 0; r < rows; r++ {
			xs[i][r], present[i][r] = c.Values[r].Float()
		}
	}
	both := make([]bool, rows)
	var out []PairCorr
	for a := 0; a < len(cols); a++ {
		for b := a + 1; b < len(cols); b++ {
			for r := range both {
				both[r] = present[a][r] && present[b][r]
			}
			r, n := pearson(xs[a], xs[b], both)
			if n < 2 || math.IsNaN(r) {
				continue
			}
			out = append(out, PairCorr{A: cols[a].Name, B: cols[b].Name, R: r, N: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].R) > math.Abs(out[j].R) })
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// PeakAge returns the bucket with the largest total, if any.
func (r *Report) PeakAge() (AgeSummary, bool) {
	if len(r.Ages) == 0 {
		return AgeSummary{}, false
	}
	best := r.Ages[0]
	for _, a := range r.Ages[1:] {
		if a.Total > best.Total {
			best = a
		}
	}
	return best, true
}
