package dashboard

import (
	"fmt"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

const (
	cacaoLocation = "Location"
	cacaoBar      = "Origin_Bar_Name"
	cacaoRating   = "Rating"
	cacaoPercent  = "Cocoa_Percent"
	// cacaoTopK bounds the bars shown for one country.
	cacaoTopK = 50
)

func init() {
	register(Definition{
		Name:      "cacao",
		Title:     "전 세계 초콜릿 풍미 분석",
		Files:     []string{"flavors_of_cacao.csv"},
		Sample:    embedded("cacao.csv"),
		Normalize: cacaoOptions,
		Build:     buildCacao,
	})
}

func cacaoOptions([]string) normalize.Options {
	opt := normalize.DefaultOptions()
	opt.DetectAges = false
	opt.Rename = map[string]string{
		"Company (Maker-if known)":         "Company",
		"Specific Bean Origin or Bar Name": cacaoBar,
		"Company Location":                 cacaoLocation,
		"Cocoa Percent":                    cacaoPercent,
	}
	opt.Required = []string{cacaoLocation, cacaoBar, cacaoRating}
	opt.Percent = []string{cacaoPercent}
	opt.Floats = []string{cacaoRating}
	opt.Numeric = []string{"REF", "Review Date"}
	return opt
}

func buildCacao(d *Loaded, p Params, env Env) (*Output, error) {
	t := d.Result.Table
	locations := sortedDistinct(t, cacaoLocation)
	loc := pick(p.Location, locations)
	k := p.TopK
	if k <= 0 {
		k = cacaoTopK
	}
	out := &Output{
		Title:   fmt.Sprintf("%s - 초콜릿 별 평점 현황", loc),
		Choices: map[string][]string{"location": locations},
		Params:  p,
	}
	out.Params.Location, out.Params.TopK = loc, k

	if avgR, n := mean(t, cacaoRating, nil); n > 0 {
		avgC, _ := mean(t, cacaoPercent, nil)
		out.Notes = append(out.Notes, fmt.Sprintf("총 리뷰 수: %d개 | 평균 평점: %.2f점 | 평균 카카오 함량: %.1f%%", t.Len(), avgR, avgC))
	}

	palette := env.Palette
	view, err := present.Select(t, present.Query{
		Filter:   present.Selection{{Column: cacaoLocation, Value: loc}},
		Label:    cacaoBar,
		Measure:  cacaoRating,
		SortDesc: true,
		TopK:     k,
		Colors:   &palette,
	})
	out.View = view
	if err != nil {
		out.Table = view.Table()
		return out, err
	}
	out.Table = t.Take(sourceRows(view))

	matched, _ := present.Select(t, present.Query{
		Filter:  present.Selection{{Column: cacaoLocation, Value: loc}},
		Measure: cacaoRating,
	})
	avg, n := mean(t, cacaoRating, sourceRows(matched))
	best := 0.0
	for _, r := range matched.Rows {
		best = max(best, r.Measure)
	}
	out.Notes = append(out.Notes, fmt.Sprintf("%s: 등록된 초콜릿 %d개 | 평균 평점 %.2f점 | 최고 평점 %s점",
		loc, n, avg, table.Float(best).String()))
	return out, nil
}

// mean averages the numeric values of a column over rows, or every row when
// rows is nil.
func mean(t *table.Table, name string, rows []int) (float64, int) {
	c, ok := t.Column(name)
	if !ok {
		return 0, 0
	}
	if rows == nil {
		rows = make([]int, t.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	var sum float64
	n := 0
	for _, r := range rows {
		if f, ok := c.Values[r].Float(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// sourceRows lists the input rows behind a view in display order.
func sourceRows(v *present.View) []int {
	var rows []int
	for _, r := range v.Rows {
		rows = append(rows, r.Source...)
	}
	return rows
}
