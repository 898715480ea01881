// Package present filters, aggregates, ranks and colors a normalized table
// into the rows a dashboard displays.
package present

import (
	"errors"
	"sort"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// ErrEmptyFilterResult reports a selection that matched no rows. It is a
// valid state; callers warn and let the user broaden the selection.
var ErrEmptyFilterResult = errors.New("no rows match the selection")

// Criterion selects rows whose column renders to Value. Date columns also
// match their YYYYMMDD form.
type Criterion struct {
	Column string
	Value  string
}

// Selection is a conjunction of criteria.
type Selection []Criterion

// Query describes one dashboard view.
type Query struct {
	Filter Selection
	// GroupBy sums Measure per distinct value. Empty keeps one row per
	// source row, keyed by Label.
	GroupBy  string
	Label    string
	Measure  string
	TopK     int
	SortDesc bool
	Smooth   bool
	Colors   *Palette
}

// Row is one displayed bar or point.
type Row struct {
	Rank     int
	Key      table.Value
	Measure  float64
	Smoothed float64
	Color    string
	// Source holds the input row indices folded into this row.
	Source []int
}

// View is the ordered result of Select.
type View struct {
	Rows          []Row
	KeyColumn     string
	MeasureColumn string
	Smoothed      bool
	integral      bool
}

// Len returns the number of rows.
func (v *View) Len() int { return len(v.Rows) }

// Select runs q against t. t is never modified.
func Select(t *table.Table, q Query) (*View, error) {
	view := &View{KeyColumn: q.GroupBy, MeasureColumn: q.Measure}
	if view.KeyColumn == "" {
		view.KeyColumn = q.Label
	}
	measure, err := column(t, q.Measure)
	if err != nil {
		return view, err
	}
	view.integral = integral(measure)

	rows, err := filter(t, q.Filter)
	if err != nil {
		return view, err
	}
	if len(rows) == 0 {
		return view, ErrEmptyFilterResult
	}

	if q.GroupBy != "" {
		key, err := column(t, q.GroupBy)
		if err != nil {
			return view, err
		}
		view.Rows = aggregate(rows, key, measure)
	} else {
		var key *table.Column
		if q.Label != "" {
			if key, err = column(t, q.Label); err != nil {
				return view, err
			}
		}
		view.Rows = make([]Row, len(rows))
		for i, r := range rows {
			m, _ := measure.Values[r].Float()
			k := table.Int(int64(r))
			if key != nil {
				k = key.Values[r]
			}
			view.Rows[i] = Row{Key: k, Measure: m, Source: []int{r}}
		}
	}

	if q.SortDesc {
		sort.SliceStable(view.Rows, func(i, j int) bool { return view.Rows[i].Measure > view.Rows[j].Measure })
	}
	if q.TopK > 0 && len(view.Rows) > q.TopK {
		view.Rows = view.Rows[:q.TopK]
	}
	finish(view, q.Colors, q.Smooth)
	return view, nil
}

// AgeSeries builds one row per age bucket, in bucket order, for the region
// whose idColumn value equals label.
func AgeSeries(res *normalize.Result, idColumn, label string, smooth bool) (*View, error) {
	view := &View{KeyColumn: "연령", MeasureColumn: "인구수", integral: true}
	id, err := column(res.Table, idColumn)
	if err != nil {
		return view, err
	}
	row := -1
	for i, v := range id.Values {
		if v.String() == label {
			row = i
			break
		}
	}
	if row < 0 {
		return view, ErrEmptyFilterResult
	}
	for _, b := range res.Ages {
		c, ok := res.Table.Column(b.Column)
		if !ok {
			continue
		}
		m, _ := c.Values[row].Float()
		if b.OrOlder {
			view.Rows = append(view.Rows, Row{Key: table.Text(b.Label()), Measure: m, Source: []int{row}})
			continue
		}
		view.Rows = append(view.Rows, Row{Key: table.Int(int64(b.Age)), Measure: m, Source: []int{row}})
	}
	if len(view.Rows) == 0 {
		return view, ErrEmptyFilterResult
	}
	finish(view, nil, smooth)
	return view, nil
}

func finish(view *View, p *Palette, smooth bool) {
	var colors []string
	if p != nil {
		colors = p.Assign(len(view.Rows))
	}
	for i := range view.Rows {
		view.Rows[i].Rank = i + 1
		view.Rows[i].Smoothed = view.Rows[i].Measure
		if colors != nil {
			view.Rows[i].Color = colors[i]
		}
	}
	if smooth && len(view.Rows) >= 3 {
		m := make([]float64, len(view.Rows))
		for i, r := range view.Rows {
			m[i] = r.Measure
		}
		for i, s := range MovingAverage(m, 3) {
			view.Rows[i].Smoothed = s
		}
		view.Smoothed = true
	}
}

// MovingAverage returns the centered moving average of xs. The window
// shrinks at the edges so every input has an output.
func MovingAverage(xs []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(xs))
	for i := range xs {
		lo, hi := max(0, i-half), min(len(xs)-1, i+half)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += xs[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

func column(t *table.Table, name string) (*table.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, &normalize.MissingRequiredColumnError{Name: name, Available: t.Names()}
	}
	return c, nil
}

func filter(t *table.Table, sel Selection) ([]int, error) {
	cols := make([]*table.Column, len(sel))
	for i, c := range sel {
		col, err := column(t, c.Column)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	var rows []int
	for r := 0; r < t.Len(); r++ {
		ok := true
		for i, c := range sel {
			if !matches(cols[i].Values[r], c.Value) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func matches(v table.Value, want string) bool {
	if v.String() == want {
		return true
	}
	return v.Kind() == table.KindDate && v.Time().Format("20060102") == want
}

type groupKey struct {
	null bool
	kind table.Kind
	s    string
}

func aggregate(rows []int, key, measure *table.Column) []Row {
	index := map[groupKey]int{}
	var out []Row
	for _, r := range rows {
		k := key.Values[r]
		gk := groupKey{null: k.IsNull(), kind: k.Kind(), s: k.String()}
		i, ok := index[gk]
		if !ok {
			i = len(out)
			index[gk] = i
			out = append(out, Row{Key: k})
		}
		m, _ := measure.Values[r].Float()
		out[i].Measure += m
		out[i].Source = append(out[i].Source, r)
	}
	return out
}

func integral(c *table.Column) bool {
	for _, v := range c.Values {
		if v.Kind() == table.KindFloat {
			return false
		}
	}
	return true
}

// Table renders the view as key, measure, optional smoothed, rank and color
// columns.
func (v *View) Table() *table.Table {
	n := len(v.Rows)
	keys := make([]table.Value, n)
	measures := make([]table.Value, n)
	smoothed := make([]table.Value, n)
	ranks := make([]table.Value, n)
	colors := make([]table.Value, n)
	for i, r := range v.Rows {
		keys[i] = r.Key
		if v.integral {
			measures[i] = table.Int(int64(r.Measure))
		} else {
			measures[i] = table.Float(r.Measure)
		}
		smoothed[i] = table.Float(r.Smoothed)
		ranks[i] = table.Int(int64(r.Rank))
		colors[i] = table.Text(r.Color)
	}
	keyName := v.KeyColumn
	if keyName == "" {
		keyName = "row"
	}
	cols := []*table.Column{
		{Name: keyName, Role: table.RoleIdentifier, Values: keys},
		{Name: v.MeasureColumn, Role: table.RoleNumeric, Values: measures},
	}
	if v.Smoothed {
		cols = append(cols, &table.Column{Name: v.MeasureColumn + "_smoothed", Role: table.RoleNumeric, Values: smoothed})
	}
	cols = append(cols,
		&table.Column{Name: "rank", Role: table.RoleNumeric, Values: ranks},
		&table.Column{Name: "color", Role: table.RoleText, Values: colors},
	)
	out := table.Empty()
	for _, c := range cols {
		// names are distinct unless the key and measure collide
		if err := out.AddColumn(c); errors.Is(err, table.ErrDuplicateColumn) {
			c.Name += ".1"
			_ = out.AddColumn(c)
		}
	}
	return out
}
