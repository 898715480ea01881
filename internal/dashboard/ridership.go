package dashboard

import (
	"fmt"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

const (
	rideDate    = "사용일자"
	rideLine    = "노선명"
	rideStation = "역명"
	rideOn      = "승차총승객수"
	rideOff     = "하차총승객수"
	rideTotal   = "승하차합"
)

func init() {
	register(Definition{
		Name:      "ridership",
		Title:     "지하철 승하차 상위 역",
		Files:     []string{"ridership.csv", "subway.csv"},
		Sample:    embedded("ridership.csv"),
		Normalize: ridershipOptions,
		Build:     buildRidership,
	})
}

func ridershipOptions([]string) normalize.Options {
	opt := normalize.DefaultOptions()
	opt.DetectAges = false
	opt.Required = []string{rideDate, rideLine, rideStation, rideOn, rideOff}
	opt.Dates = []string{rideDate}
	opt.Numeric = []string{rideOn, rideOff}
	return opt
}

// withRideTotal returns a copy of t with the boarding plus alighting column.
func withRideTotal(t *table.Table) (*table.Table, error) {
	on, _ := t.Column(rideOn)
	off, _ := t.Column(rideOff)
	sum := make([]table.Value, t.Len())
	for i := range sum {
		sum[i] = table.Int(on.Values[i].Int() + off.Values[i].Int())
	}
	out := t.Clone()
	if c, ok := out.Column(rideTotal); ok {
		c.Values, c.Role = sum, table.RoleNumeric
		return out, nil
	}
	if err := out.AddColumn(&table.Column{Name: rideTotal, Role: table.RoleNumeric, Values: sum}); err != nil {
		return nil, err
	}
	return out, nil
}

func buildRidership(d *Loaded, p Params, env Env) (*Output, error) {
	t, err := withRideTotal(d.Result.Table)
	if err != nil {
		return nil, err
	}
	dates := sortedDistinct(t, rideDate)
	lines := sortedDistinct(t, rideLine)
	date, line := pick(p.Date, dates), pick(p.Line, lines)
	k := env.TopK
	if k <= 0 {
		k = 10
	}

	out := &Output{Choices: map[string][]string{"date": dates, "line": lines}, Params: p}
	out.Params.Date, out.Params.Line, out.Params.TopK = date, line, k

	palette := env.Palette
	view, err := present.Select(t, present.Query{
		Filter:   present.Selection{{Column: rideDate, Value: date}, {Column: rideLine, Value: line}},
		GroupBy:  rideStation,
		Measure:  rideTotal,
		SortDesc: true,
		TopK:     k,
		Colors:   &palette,
	})
	out.View = view
	out.Table = view.Table()
	out.Title = fmt.Sprintf("%s — %s 기준 상위 %d개 역 (승차+하차 합)", date, line, view.Len())
	if err != nil {
		return out, err
	}
	return out, nil
}
