package dashboard

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// Map zoom bounds handed to the map renderer untouched.
const (
	MinZoom     = 11
	MaxZoom     = 15
	DefaultZoom = 12
)

// SeoulCenter is the map's initial center (lat, lon).
var SeoulCenter = [2]float64{37.5665, 126.9780}

// mbtiOrder is the selection order of the sixteen types.
var mbtiOrder = []string{
	"ISTJ", "ISFJ", "INFJ", "INTJ",
	"ISTP", "ISFP", "INFP", "INTP",
	"ESTP", "ESFP", "ENFP", "ENTP",
	"ESTJ", "ESFJ", "ENFJ", "ENTJ",
}

func init() {
	register(Definition{
		Name:      "attractions",
		Title:     "Top 10 Seoul Attractions — Popular with Foreign Visitors",
		Sample:    embedded("attractions.csv"),
		Builtin:   true,
		Normalize: builtinOptions,
		Build:     buildAttractions,
	})
	register(Definition{
		Name:      "mbti",
		Title:     "MBTI로 똑똑하게 진로 고르기",
		Sample:    embedded("mbti.csv"),
		Builtin:   true,
		Normalize: builtinOptions,
		Build:     buildMBTI,
	})
}

func builtinOptions([]string) normalize.Options {
	return normalize.Options{Numeric: []string{"rank"}, Floats: []string{"lat", "lon"}}
}

// ClampZoom bounds z to the slider range; zero selects the default.
func ClampZoom(z int) int {
	switch {
	case z == 0:
		return DefaultZoom
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

func buildAttractions(d *Loaded, p Params, _ Env) (*Output, error) {
	t := d.Result.Table
	out := &Output{Table: t, Choices: map[string][]string{}, Params: p}
	out.Params.Zoom = ClampZoom(p.Zoom)
	if t.Len() == 0 {
		return out, present.ErrEmptyFilterResult
	}
	out.Notes = append(out.Notes,
		fmt.Sprintf("Map center: %.4f, %.4f | start zoom: %d", SeoulCenter[0], SeoulCenter[1], out.Params.Zoom),
		"Coordinates are representative points for each area.",
	)
	return out, nil
}

func buildMBTI(d *Loaded, p Params, _ Env) (*Output, error) {
	t := d.Result.Table
	typ := strings.ToUpper(strings.TrimSpace(p.Type))
	if typ == "" {
		typ = mbtiOrder[0]
	}
	out := &Output{
		Title:   fmt.Sprintf("%s 유형 추천 결과", typ),
		Choices: map[string][]string{"type": choicesInOrder(t, "type", mbtiOrder)},
		Params:  p,
	}
	out.Params.Type = typ

	view, err := present.Select(t, present.Query{
		Filter:  present.Selection{{Column: "type", Value: typ}},
		Label:   "career",
		Measure: "rank",
	})
	if err != nil {
		out.Table = table.Empty()
		return out, err
	}
	out.View = view
	careers, err := project(t.Take(sourceRows(view)), "rank", "career", "dept", "personality")
	if err != nil {
		return out, err
	}
	out.Table = careers
	return out, nil
}

// choicesInOrder lists the distinct values of a column, known values first
// in the given order and any others after them.
func choicesInOrder(t *table.Table, name string, order []string) []string {
	seen := map[string]bool{}
	for _, v := range t.Distinct(name) {
		seen[v] = true
	}
	var out []string
	for _, v := range order {
		if seen[v] {
			out = append(out, v)
			delete(seen, v)
		}
	}
	for _, v := range t.Distinct(name) {
		if seen[v] {
			out = append(out, v)
		}
	}
	return out
}
