package dashboard

import (
	"fmt"
	"regexp"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

const (
	bakeryName    = "업소명"
	bakeryAddress = "소재지(도로명)"
	bakeryAsOf    = "데이터기준일자"
	bakeryRegion  = "지역"
	bakeryCount   = "제과점수"
)

// townPattern captures the town after the city name in a road address.
var townPattern = regexp.MustCompile(`서귀포시\s(.+?)[\s,]`)

func init() {
	register(Definition{
		Name:      "bakery",
		Title:     "제주 서귀포 제과점 현황",
		Files:     []string{"제주특별자치도_서귀포시_제과점현황_20250401.csv", "bakery.csv"},
		Sample:    embedded("bakery.csv"),
		Normalize: bakeryOptions,
		Build:     buildBakery,
	})
}

func bakeryOptions([]string) normalize.Options {
	opt := normalize.DefaultOptions()
	opt.DetectAges = false
	opt.Required = []string{bakeryName, bakeryAddress}
	return opt
}

// Town extracts the town from an address; false when the pattern misses.
func Town(address string) (string, bool) {
	m := townPattern.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// withRegions returns a copy of t with region and per-shop count columns.
func withRegions(t *table.Table) (*table.Table, error) {
	addr, _ := t.Column(bakeryAddress)
	regions := make([]table.Value, t.Len())
	ones := make([]table.Value, t.Len())
	for i, v := range addr.Values {
		regions[i] = table.Null()
		if town, ok := Town(v.String()); ok {
			regions[i] = table.Text(town)
		}
		ones[i] = table.Int(1)
	}
	out := t.Clone()
	for _, c := range []*table.Column{
		{Name: bakeryRegion, Role: table.RoleText, Values: regions},
		{Name: bakeryCount, Role: table.RoleNumeric, Values: ones},
	} {
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildBakery(d *Loaded, p Params, env Env) (*Output, error) {
	t, err := withRegions(d.Result.Table)
	if err != nil {
		return nil, err
	}
	regions := sortedDistinct(t, bakeryRegion)
	region := pick(p.Region, regions)
	out := &Output{
		Title:   fmt.Sprintf("%s 지역 제과점 분포", region),
		Choices: map[string][]string{"region": regions},
		Params:  p,
	}
	out.Params.Region = region
	if asOf, ok := t.Column(bakeryAsOf); ok && t.Len() > 0 {
		out.Notes = append(out.Notes, "데이터 기준일: "+asOf.Values[0].String())
	}

	palette := env.Palette
	counts, err := present.Select(t, present.Query{
		GroupBy:  bakeryRegion,
		Measure:  bakeryCount,
		SortDesc: true,
		Colors:   &palette,
	})
	if err != nil {
		return out, err
	}
	out.View = counts

	shops, err := present.Select(t, present.Query{
		Filter:  present.Selection{{Column: bakeryRegion, Value: region}},
		Label:   bakeryName,
		Measure: bakeryCount,
	})
	if err != nil {
		out.Table = table.Empty()
		return out, err
	}
	list, err := project(t.Take(sourceRows(shops)), bakeryName, bakeryAddress)
	if err != nil {
		return out, err
	}
	out.Table = list
	out.Notes = append(out.Notes, fmt.Sprintf("%s 지역 제과점 수: %d개", region, list.Len()))
	out.Extra = append(out.Extra, Section{Title: "지역별 제과점 수", Table: counts.Table()})
	return out, nil
}

// project returns a table holding only the named columns of t.
func project(t *table.Table, names ...string) (*table.Table, error) {
	out := table.Empty()
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, &normalize.MissingRequiredColumnError{Name: n, Available: t.Names()}
		}
		if err := out.AddColumn(&table.Column{Name: c.Name, Role: c.Role, Values: c.Values}); err != nil {
			return nil, err
		}
	}
	return out, nil
}
