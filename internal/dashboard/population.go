package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

const (
	regionColumn      = "행정구역"
	regionLabelColumn = "행정구역명"
	regionCodeColumn  = "행정구역코드"
	totalSuffix       = "총인구수"
	// populationTopK is the number of regions in the top-total section.
	populationTopK = 5
)

func init() {
	register(Definition{
		Name:      "population",
		Title:     "서울시 연령별 인구",
		Files:     []string{"population.csv"},
		Sample:    source.SyntheticPopulation,
		Normalize: populationOptions,
		Build:     buildPopulation,
	})
}

func populationOptions(header []string) normalize.Options {
	opt := normalize.DefaultOptions()
	opt.Required = []string{regionColumn}
	opt.Composite = []normalize.CompositeRule{{
		Column:         regionColumn,
		LabelName:      regionLabelColumn,
		CodeName:       regionCodeColumn,
		KeepOriginalAs: regionColumn + "_원본",
	}}
	if total := totalColumn(header); total != "" {
		opt.Numeric = append(opt.Numeric, total)
	}
	opt.RequireAges = true
	return opt
}

// totalColumn returns the first column named like "..._총인구수".
func totalColumn(names []string) string {
	for _, n := range names {
		if strings.HasSuffix(n, totalSuffix) {
			return n
		}
	}
	return ""
}

func buildPopulation(d *Loaded, p Params, env Env) (*Output, error) {
	res := d.Result
	regions := res.Table.Distinct(regionLabelColumn)
	region := pick(p.Region, regions)
	out := &Output{
		Title:   fmt.Sprintf("%s — 연령별 인구수", region),
		Choices: map[string][]string{"region": regions},
		Params:  p,
	}
	out.Params.Region = region

	view, err := present.AgeSeries(res, regionLabelColumn, region, p.Smooth)
	out.View = view
	out.Table = view.Table()
	if err != nil {
		return out, err
	}
	if peak, ok := peakRow(view); ok {
		out.Notes = append(out.Notes, fmt.Sprintf("최다 연령: %s세 (%s명)", peak.Key.String(), utils.Thousands(int64(peak.Measure))))
	}
	out.Notes = append(out.Notes, fmt.Sprintf("데이터 행 개수: %d | 연령 칼럼 수: %d", res.Table.Len(), len(res.Ages)))

	top, err := TopTotal(res, populationTopK)
	switch {
	case err == nil:
		out.Extra = append(out.Extra, Section{Title: fmt.Sprintf("총인구수 상위 %d개 지역", top.Len()), Table: top.Table()})
	case errors.Is(err, errNoTotal):
		env.Logger.Debug("no total population column", zap.Strings("columns", res.Table.Names()))
	default:
		return out, err
	}
	return out, nil
}

var errNoTotal = errors.New("no total population column")

// TopTotal ranks regions by the total population column.
func TopTotal(res *normalize.Result, k int) (*present.View, error) {
	total := totalColumn(res.Table.Names())
	if total == "" {
		return nil, errNoTotal
	}
	return present.Select(res.Table, present.Query{
		Label:    regionLabelColumn,
		Measure:  total,
		SortDesc: true,
		TopK:     k,
	})
}

func peakRow(v *present.View) (present.Row, bool) {
	if v == nil || len(v.Rows) == 0 {
		return present.Row{}, false
	}
	best := v.Rows[0]
	for _, r := range v.Rows[1:] {
		if r.Measure > best.Measure {
			best = r
		}
	}
	return best, true
}
