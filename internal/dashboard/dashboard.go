// Package dashboard wires sources, parsing, normalization and presentation
// into the named dashboards the CLI exposes.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dashcsv-cli/internal/cache"
	"github.com/KaramelBytes/dashcsv-cli/internal/export"
	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/parser"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// ErrUnknownDashboard is returned by Lookup.
var ErrUnknownDashboard = errors.New("unknown dashboard")

// Params are the user's selections. Each dashboard reads the fields it
// understands; empty selections fall back to the first available choice.
type Params struct {
	Region   string `json:"region,omitempty"`
	Date     string `json:"date,omitempty"`
	Line     string `json:"line,omitempty"`
	Location string `json:"location,omitempty"`
	Type     string `json:"type,omitempty"`
	Smooth   bool   `json:"smooth"`

	// ShowPoints and LogScale are chart toggles passed through to the renderer.
	ShowPoints bool `json:"show_points"`
	LogScale   bool `json:"log_scale"`

	Zoom int `json:"zoom,omitempty"`
	TopK int `json:"top_k,omitempty"`
}

// Loaded is a parsed and normalized source, the unit the cache stores.
type Loaded struct {
	Source   *source.Raw
	Encoding string
	Attempts []parser.Attempt
	Result   *normalize.Result
}

// Section is a secondary titled table.
type Section struct {
	Title string
	Table *table.Table
}

// Output is what one dashboard run produces.
type Output struct {
	RunID     string
	Dashboard string
	Title     string
	Source    string
	Origin    source.Origin
	Encoding  string
	// View holds ranked, colored rows for bar and line dashboards.
	View *present.View
	// Table is the primary table shown and exported.
	Table   *table.Table
	Extra   []Section
	Summary *export.Summary
	// Choices lists the selectable values per parameter name.
	Choices map[string][]string
	Notes   []string
	Params  Params
}

// Env carries run-wide settings into Build.
type Env struct {
	Palette present.Palette
	TopK    int
	Logger  *zap.Logger
}

// Definition describes one dashboard.
type Definition struct {
	Name  string
	Title string
	// Files are default file names searched in the working directory and
	// the fallback directory.
	Files []string
	// Sample backs --sample; Builtin dashboards always use it.
	Sample  func() []byte
	Builtin bool
	// Normalize returns options for the cleaned header names.
	Normalize func(header []string) normalize.Options
	Build     func(d *Loaded, p Params, env Env) (*Output, error)
}

// Input selects the source for a run.
type Input struct {
	// Upload wins over every other input when non-nil.
	Upload      []byte
	UploadName  string
	File        string
	Sample      bool
	FallbackDir string
}

// Runner executes dashboards, memoizing loads per source identity.
type Runner struct {
	Logger    *zap.Logger
	Encodings []string
	Palette   present.Palette
	TopK      int
	// Delimiter overrides delimiter sniffing when non-zero.
	Delimiter rune
	Cache     *cache.Cache[*Loaded]
}

// NewRunner returns a runner with its own cache.
func NewRunner(log *zap.Logger, encodings []string, palette present.Palette, topK int) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Logger: log, Encodings: encodings, Palette: palette, TopK: topK, Cache: cache.New[*Loaded]()}
}

// Resolve picks the source for def. An explicit file must be readable.
func (r *Runner) Resolve(def Definition, in Input) (*source.Raw, error) {
	if in.Upload != nil {
		return source.Resolve(source.Request{Uploaded: in.Upload, UploadName: in.UploadName})
	}
	if in.File != "" {
		return source.ReadPath(in.File)
	}
	req := source.Request{AllowSynthetic: in.Sample || def.Builtin, Synthetic: def.Sample}
	// built-in data sets only read a file when one is named
	if !def.Builtin {
		for _, f := range def.Files {
			req.FallbackPaths = append(req.FallbackPaths, f)
			if in.FallbackDir != "" {
				req.FallbackPaths = append(req.FallbackPaths, filepath.Join(in.FallbackDir, f))
			}
		}
	}
	raw, err := source.Resolve(req)
	if err != nil {
		return nil, err
	}
	if raw.Origin == source.OriginSynthetic {
		raw.Name = def.Name + ".csv"
	}
	return raw, nil
}

// Load parses and normalizes raw for def, reusing a cached result for the
// same source identity.
func (r *Runner) Load(def Definition, raw *source.Raw) (*Loaded, error) {
	key := raw.Identity() + "#" + def.Name
	return r.Cache.Get(key, func() (*Loaded, error) {
		start := time.Now()
		t, pres, err := parser.Parse(raw, r.Encodings, parser.Options{Delimiter: r.Delimiter, Logger: r.Logger})
		if err != nil {
			return nil, err
		}
		header := make([]string, 0, t.Width())
		for _, n := range t.Names() {
			header = append(header, normalize.CleanName(n))
		}
		opt := normalize.DefaultOptions()
		if def.Normalize != nil {
			opt = def.Normalize(header)
		}
		opt.Logger = r.Logger
		res, err := normalize.Normalize(t, opt)
		if err != nil {
			return nil, err
		}
		r.Logger.Info("loaded source",
			zap.String("dashboard", def.Name),
			zap.String("source", raw.Name),
			zap.String("encoding", pres.Encoding),
			zap.Int("rows", res.Table.Len()),
			zap.Duration("took", time.Since(start)))
		return &Loaded{Source: raw, Encoding: pres.Encoding, Attempts: pres.Attempts, Result: res}, nil
	})
}

// Run resolves, loads and builds def. On ErrEmptyFilterResult the returned
// output still carries the available choices.
func (r *Runner) Run(ctx context.Context, def Definition, in Input, p Params) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := r.Logger.With(zap.String("run_id", runID), zap.String("dashboard", def.Name))

	raw, err := r.Resolve(def, in)
	if err != nil {
		return nil, err
	}
	d, err := r.Load(def, raw)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := Env{Palette: r.Palette, TopK: r.TopK, Logger: log}
	if p.TopK > 0 {
		env.TopK = p.TopK
	}
	out, err := def.Build(d, p, env)
	if out != nil {
		out.RunID = runID
		out.Dashboard = def.Name
		out.Source = raw.Name
		out.Origin = raw.Origin
		out.Encoding = d.Encoding
		if out.Title == "" {
			out.Title = def.Title
		}
	}
	if err != nil {
		log.Debug("build failed", zap.Error(err))
		return out, err
	}
	log.Debug("built dashboard", zap.Int("rows", out.Table.Len()), zap.Any("stats", r.Cache.Stats()))
	return out, nil
}

var registry = map[string]Definition{}

func register(d Definition) { registry[d.Name] = d }

// Lookup returns the named dashboard.
func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownDashboard, name)
	}
	return d, nil
}

// Names lists registered dashboards in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// pick returns want if it is among choices, the first choice when want is
// empty, and want unchanged otherwise so the filter reports no rows.
func pick(want string, choices []string) string {
	if want != "" || len(choices) == 0 {
		return want
	}
	return choices[0]
}

// sortedDistinct returns the distinct non-empty display values of a column.
func sortedDistinct(t *table.Table, name string) []string {
	var out []string
	for _, v := range t.Distinct(name) {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
