package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// maxGroups bounds the groups kept in a report, largest first.
const maxGroups = 20

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// groupBy aggregates numeric columns per distinct combination of the named
// columns over the first rows rows. Unknown names are skipped; when none of
// the names exist it returns nil and a warning.
func groupBy(t *table.Table, names []string, numeric []*table.Column, rows int) ([]GroupResult, []string) {
	var keys []*table.Column
	var warnings []string
	for _, name := range names {
		c, ok := t.Column(strings.TrimSpace(name))
		if !ok {
			warnings = append(warnings, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		keys = append(keys, c)
	}
	if len(keys) == 0 {
		return nil, warnings
	}

	type acc struct {
		size int
		w    map[string]*welford
	}
	groups := map[string]*acc{}
	var order []string
	parts := make([]string, len(keys))
	for r := 0; r < rows; r++ {
		for i, c := range keys {
			parts[i] = fmt.Sprintf("%s=%s", c.Name, safeVal(c.Values[r].String()))
		}
		k := strings.Join(parts, " | ")
		g, ok := groups[k]
		if !ok {
			g = &acc{w: map[string]*welford{}}
			groups[k] = g
			order = append(order, k)
		}
		g.size++
		for _, c := range numeric {
			x, ok := c.Values[r].Float()
			if !ok {
				continue
			}
			w, ok := g.w[c.Name]
			if !ok {
				nw := newWelford()
				w = &nw
				g.w[c.Name] = w
			}
			w.add(x)
		}
	}

	out := make([]GroupResult, 0, len(order))
	for _, k := range order {
		g := groups[k]
		gr := GroupResult{Key: k, Size: g.size, Metrics: map[string]NumSummary{}}
		for name, w := range g.w {
			gr.Metrics[name] = NumSummary{Count: w.n, Min: w.min, Max: w.max, Mean: w.mean}
		}
		out = append(out, gr)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	if len(out) > maxGroups {
		warnings = append(warnings, fmt.Sprintf("showing %d of %d groups", maxGroups, len(out)))
		out = out[:maxGroups]
	}
	return out, warnings
}
