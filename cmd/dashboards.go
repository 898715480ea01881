package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dashcsv-cli/internal/cache"
	"github.com/KaramelBytes/dashcsv-cli/internal/dashboard"
	"github.com/KaramelBytes/dashcsv-cli/internal/export"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

var (
	dashFile        string
	dashSample      bool
	dashOutput      string
	dashSummaryOut  string
	dashWatch       bool
	dashJSON        bool
	dashEncodings   []string
	dashParams      dashboard.Params
	dashDelimiter   string
	dashFallbackDir string
)

// paramFlags lists the selection flags each dashboard understands.
var paramFlags = map[string][]string{
	"population":  {"region", "smooth", "show-points", "log-scale"},
	"ridership":   {"date", "line", "top-k"},
	"timeseries":  {"smooth", "show-points", "log-scale"},
	"cacao":       {"location", "top-k"},
	"bakery":      {"region"},
	"attractions": {"zoom"},
	"mbti":        {"type"},
}

func newRunner(encodings []string) *dashboard.Runner {
	c := settings()
	if len(encodings) == 0 {
		encodings = c.Encodings
	}
	return dashboard.NewRunner(logger, encodings, c.Palette(), c.TopK)
}

func newDashboardCmd(def dashboard.Definition) *cobra.Command {
	c := &cobra.Command{
		Use:   def.Name,
		Short: def.Title,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, def)
		},
	}
	if len(def.Files) > 0 {
		c.Long = fmt.Sprintf("%s\n\nWithout --file, looks for %s in the working directory and the fallback directory.",
			def.Title, strings.Join(def.Files, ", "))
	}
	f := c.Flags()
	f.StringVarP(&dashFile, "file", "f", "", "CSV file to load ('-' reads standard input)")
	f.BoolVar(&dashSample, "sample", false, "allow the built-in sample when no file is found")
	f.StringVarP(&dashOutput, "output", "o", "", "write the current view as UTF-8 (BOM) CSV")
	f.BoolVarP(&dashWatch, "watch", "w", false, "re-render when the source file changes")
	f.BoolVar(&dashJSON, "json", false, "print the view as JSON instead of tables")
	f.StringSliceVar(&dashEncodings, "encodings", nil, "encodings to try in order (overrides config)")
	f.StringVar(&dashDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	f.StringVar(&dashFallbackDir, "fallback-dir", "", "directory searched for the default file (overrides config)")
	for _, name := range paramFlags[def.Name] {
		switch name {
		case "region":
			f.StringVar(&dashParams.Region, "region", "", "region to show (default: first)")
		case "date":
			f.StringVar(&dashParams.Date, "date", "", "date as YYYYMMDD or YYYY-MM-DD (default: first)")
		case "line":
			f.StringVar(&dashParams.Line, "line", "", "line name, e.g. 2호선 (default: first)")
		case "location":
			f.StringVar(&dashParams.Location, "location", "", "company location (default: first)")
		case "type":
			f.StringVar(&dashParams.Type, "type", "", "MBTI type, e.g. INTJ")
		case "smooth":
			f.BoolVar(&dashParams.Smooth, "smooth", false, "apply a centered 3-point moving average")
		case "show-points":
			f.BoolVar(&dashParams.ShowPoints, "show-points", true, "mark each data point on the line")
		case "log-scale":
			f.BoolVar(&dashParams.LogScale, "log-scale", false, "use a logarithmic y axis")
		case "zoom":
			f.IntVar(&dashParams.Zoom, "zoom", dashboard.DefaultZoom, fmt.Sprintf("map start zoom (%d-%d)", dashboard.MinZoom, dashboard.MaxZoom))
		case "top-k":
			f.IntVar(&dashParams.TopK, "top-k", 0, "rows to keep (overrides config)")
		}
	}
	if def.Name == "timeseries" {
		f.StringVar(&dashSummaryOut, "summary-output", "", "write the one-row summary as UTF-8 (BOM) CSV")
	}
	return c
}

func runDashboard(cmd *cobra.Command, def dashboard.Definition) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	delim, err := parseDelimiter(dashDelimiter)
	if err != nil {
		return err
	}
	r := newRunner(dashEncodings)
	r.Delimiter = delim
	in := dashboard.Input{File: utils.ExpandHome(dashFile), Sample: dashSample, FallbackDir: settings().FallbackDir}
	if dashFallbackDir != "" {
		in.FallbackDir = utils.ExpandHome(dashFallbackDir)
	}
	if err := readStdin(cmd, &in); err != nil {
		return err
	}

	show := func() error {
		out, err := r.Run(ctx, def, in, dashParams)
		if errors.Is(err, present.ErrEmptyFilterResult) {
			warnEmpty(cmd, out)
			return nil
		}
		if err != nil {
			return err
		}
		return emit(cmd, out)
	}
	if err := show(); err != nil {
		return err
	}
	if !dashWatch {
		return nil
	}

	raw, err := r.Resolve(def, in)
	if err != nil {
		return err
	}
	if raw.Origin != source.OriginPath {
		return fmt.Errorf("--watch needs a file source, got %s", raw.Origin)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Watching %s (Ctrl+C to stop)\n", raw.Path)
	w := cache.Watcher{
		Path:     raw.Path,
		Debounce: time.Duration(settings().WatchDebounceMs) * time.Millisecond,
		Logger:   logger,
	}
	return r.Cache.Watch(ctx, w, func() {
		logger.Info("source changed", zap.String("path", raw.Path))
		if err := show(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", err)
		}
	})
}

// readStdin replaces a "-" file with the bytes read from standard input.
func readStdin(cmd *cobra.Command, in *dashboard.Input) error {
	if in.File != "-" {
		return nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if b == nil {
		b = []byte{}
	}
	in.Upload, in.UploadName, in.File = b, "stdin.csv", ""
	return nil
}

func warnEmpty(cmd *cobra.Command, out *dashboard.Output) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "⚠ Warning: %v\n", present.ErrEmptyFilterResult)
	if out == nil {
		return
	}
	names := make([]string, 0, len(out.Choices))
	for k := range out.Choices {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "  available %s: %s\n", k, utils.Truncate(strings.Join(out.Choices[k], ", "), 160))
	}
}

func emit(cmd *cobra.Command, out *dashboard.Output) error {
	w := cmd.OutOrStdout()
	if dashJSON {
		b, err := utils.PrettyJSON(jsonView(out))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	} else {
		renderOutput(w, out)
	}
	if dashOutput != "" {
		p := utils.ExpandHome(dashOutput)
		if err := export.WriteFile(p, out.Table); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Wrote %d rows to %s\n", out.Table.Len(), p)
	}
	if dashSummaryOut != "" {
		if out.Summary == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no summary for this view")
			return nil
		}
		p := utils.ExpandHome(dashSummaryOut)
		if err := export.WriteFile(p, out.Summary.Table()); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Wrote summary to %s\n", p)
	}
	return nil
}

type jsonSection struct {
	Title string              `json:"title"`
	Rows  []map[string]string `json:"rows"`
}

type jsonOutput struct {
	RunID     string              `json:"run_id"`
	Dashboard string              `json:"dashboard"`
	Title     string              `json:"title"`
	Source    string              `json:"source"`
	Origin    string              `json:"origin"`
	Encoding  string              `json:"encoding"`
	Params    dashboard.Params    `json:"params"`
	Choices   map[string][]string `json:"choices,omitempty"`
	Rows      []map[string]string `json:"rows"`
	Extra     []jsonSection       `json:"extra,omitempty"`
	Summary   map[string]string   `json:"summary,omitempty"`
	Notes     []string            `json:"notes,omitempty"`
}

func jsonView(out *dashboard.Output) jsonOutput {
	j := jsonOutput{
		RunID:     out.RunID,
		Dashboard: out.Dashboard,
		Title:     out.Title,
		Source:    out.Source,
		Origin:    out.Origin.String(),
		Encoding:  out.Encoding,
		Params:    out.Params,
		Choices:   out.Choices,
		Rows:      rowMaps(out.Table),
		Notes:     out.Notes,
	}
	for _, s := range out.Extra {
		j.Extra = append(j.Extra, jsonSection{Title: s.Title, Rows: rowMaps(s.Table)})
	}
	if out.Summary != nil {
		if rows := rowMaps(out.Summary.Table()); len(rows) == 1 {
			j.Summary = rows[0]
		}
	}
	return j
}

func rowMaps(t *table.Table) []map[string]string {
	if t == nil {
		return nil
	}
	header, records := t.Records()
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		m := make(map[string]string, len(header))
		for c, h := range header {
			m[h] = rec[c]
		}
		out[i] = m
	}
	return out
}

func init() {
	for _, name := range dashboard.Names() {
		def, err := dashboard.Lookup(name)
		if err != nil {
			continue
		}
		rootCmd.AddCommand(newDashboardCmd(def))
	}
}
