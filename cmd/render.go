package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/dashcsv-cli/internal/dashboard"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

// cellLimit bounds a rendered cell, in runes.
const cellLimit = 48

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func renderOutput(w io.Writer, out *dashboard.Output) {
	fmt.Fprintln(w, titleStyle.Render(out.Title))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("source: %s (%s, %s) | run %s", out.Source, out.Origin, out.Encoding, out.RunID)))
	renderChoices(w, out.Choices)
	fmt.Fprintln(w)
	renderTable(w, "", out.Table)
	if out.Summary != nil {
		fmt.Fprintln(w)
		renderTable(w, "요약", out.Summary.Table())
	}
	for _, s := range out.Extra {
		fmt.Fprintln(w)
		renderTable(w, s.Title, s.Table)
	}
	if len(out.Notes) > 0 {
		fmt.Fprintln(w)
		for _, n := range out.Notes {
			fmt.Fprintf(w, "• %s\n", n)
		}
	}
}

func renderChoices(w io.Writer, choices map[string][]string) {
	names := make([]string, 0, len(choices))
	for k := range choices {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s: %s", k, utils.Truncate(strings.Join(choices[k], ", "), 120))))
	}
}

// renderTable writes t as aligned columns. Rows of a table with a "color"
// column get a swatch in that color.
func renderTable(w io.Writer, title string, t *table.Table) {
	if t == nil {
		return
	}
	if title != "" {
		fmt.Fprintln(w, titleStyle.Render(title))
	}
	header, records := t.Records()
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no rows)"))
		return
	}
	colorAt := -1
	for i, h := range header {
		if h == "color" {
			colorAt = i
		}
	}

	cells := make([][]string, len(records))
	for r, rec := range records {
		cells[r] = make([]string, len(rec))
		for c, v := range rec {
			cells[r][c] = utils.Truncate(strings.ReplaceAll(v, "\n", " "), cellLimit)
		}
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for r := range cells {
		for c, v := range cells[r] {
			if c == colorAt {
				v = "■ " + v
			}
			widths[c] = max(widths[c], lipgloss.Width(v))
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	sep := mutedStyle.Render("|")
	var sb strings.Builder
	for i, h := range header {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")
	for i := range header {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(mutedStyle.Render(strings.Repeat("-", widths[i])))
	}
	sb.WriteString("\n")
	for _, row := range cells {
		for c, v := range row {
			if c > 0 {
				sb.WriteString(sep)
			}
			style := cellStyle.Width(widths[c])
			if c == colorAt {
				sb.WriteString(style.Render(swatch(v) + " " + v))
				continue
			}
			sb.WriteString(style.Render(v))
		}
		sb.WriteString("\n")
	}
	fmt.Fprint(w, sb.String())
}

func swatch(color string) string {
	hex, ok := present.TerminalHex(color)
	if !ok {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
