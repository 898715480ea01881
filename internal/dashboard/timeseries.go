package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/dashcsv-cli/internal/export"
	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// peakColor marks every point holding the series maximum.
const peakColor = "#ff4136"

const extremesK = 5

func init() {
	register(Definition{
		Name:      "timeseries",
		Title:     "시계열 요약",
		Files:     []string{"Frozen_Dessert_Production.csv", "timeseries.csv"},
		Sample:    embedded("timeseries.csv"),
		Normalize: timeseriesOptions,
		Build:     buildTimeseries,
	})
}

func timeseriesOptions(header []string) normalize.Options {
	opt := normalize.DefaultOptions()
	opt.DetectAges = false
	opt.RequireMeasures = true
	if col := dateColumn(header); col != "" {
		opt.FreeDates = []string{col}
	}
	return opt
}

// dateColumn is the first column named like a date, else the first column.
func dateColumn(header []string) string {
	for _, h := range header {
		if strings.Contains(strings.ToLower(h), "date") {
			return h
		}
	}
	if len(header) > 0 {
		return header[0]
	}
	return ""
}

func buildTimeseries(d *Loaded, p Params, _ Env) (*Output, error) {
	res := d.Result
	dates := res.ByRole(table.RoleDate)
	if len(dates) == 0 {
		return nil, &normalize.MissingRequiredColumnError{Name: "date", Available: res.Table.Names()}
	}
	dateCol := dates[0].Name
	measures := res.ByRole(table.RoleNumeric)
	if len(measures) == 0 {
		return nil, normalize.ErrNoRecognizedMeasureColumns
	}
	valueCol := measures[0].Name

	t := byDate(res.Table, dateCol)
	out := &Output{
		Title:   fmt.Sprintf("%s over Time", valueCol),
		Choices: map[string][]string{},
		Params:  p,
	}

	view, err := present.Select(t, present.Query{Label: dateCol, Measure: valueCol, Smooth: p.Smooth})
	out.View = view
	out.Table = view.Table()
	if err != nil {
		return out, err
	}
	sum, err := export.Summarize(t, dateCol, valueCol)
	if err != nil {
		return out, err
	}
	out.Summary = sum
	markPeaks(view, sum.Max)
	out.Table = view.Table()

	top, err := present.Select(t, present.Query{Label: dateCol, Measure: valueCol, SortDesc: true, TopK: extremesK})
	if err != nil {
		return out, err
	}
	out.Extra = append(out.Extra, Section{Title: fmt.Sprintf("상위 %d 시점", top.Len()), Table: top.Table()})
	out.Extra = append(out.Extra, Section{Title: fmt.Sprintf("하위 %d 시점", extremesK), Table: bottom(view, extremesK).Table()})

	out.Notes = append(out.Notes,
		fmt.Sprintf("날짜 칼럼: %s, 값 칼럼: %s", dateCol, valueCol),
		fmt.Sprintf("기간: %s ~ %s (%d days)", sum.StartDate.Format(table.DateLayout), sum.EndDate.Format(table.DateLayout), sum.Days()),
		fmt.Sprintf("최고값: %.4g (시점: %s)", sum.Max, sum.PeakDate.Format(table.DateLayout)),
	)
	if pct, ok := sum.ChangePct(); ok {
		out.Notes = append(out.Notes, fmt.Sprintf("시작 값: %.4g, 최근 값: %.4g, 전체 변화: %.4g (%.2f%%, %s)",
			sum.First, sum.Latest, sum.Latest-sum.First, pct, sum.Trend()))
	}
	return out, nil
}

// byDate returns t stably ordered by dateCol with null dates last.
func byDate(t *table.Table, dateCol string) *table.Table {
	c, _ := t.Column(dateCol)
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := c.Values[rows[i]], c.Values[rows[j]]
		if a.IsNull() || b.IsNull() {
			return !a.IsNull() && b.IsNull()
		}
		return a.Time().Before(b.Time())
	})
	return t.Take(rows)
}

func markPeaks(v *present.View, maxValue float64) {
	for i := range v.Rows {
		if v.Rows[i].Measure == maxValue {
			v.Rows[i].Color = peakColor
		}
	}
}

// bottom returns the k smallest rows of v in ascending order, ties in
// original order.
func bottom(v *present.View, k int) *present.View {
	rows := append([]present.Row(nil), v.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Measure < rows[j].Measure })
	if len(rows) > k {
		rows = rows[:k]
	}
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Color = ""
	}
	return &present.View{Rows: rows, KeyColumn: v.KeyColumn, MeasureColumn: v.MeasureColumn}
}
