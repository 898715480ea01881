package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dashcsv-cli/internal/analysis"
	"github.com/KaramelBytes/dashcsv-cli/internal/dashboard"
	"github.com/KaramelBytes/dashcsv-cli/internal/normalize"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

var (
	anaOutputPath string
	anaDelimiter  string
	anaSample     bool
	anaEncodings  []string
	anaProfile    profileFlags
)

// analyzeDef profiles any CSV; a "행정구역" column is split as LABEL (CODE).
var analyzeDef = dashboard.Definition{
	Name:   "analyze",
	Sample: source.SyntheticPopulation,
	Normalize: func(header []string) normalize.Options {
		opt := normalize.DefaultOptions()
		for _, h := range header {
			if h == "행정구역" {
				opt.Composite = []normalize.CompositeRule{{Column: h, LabelName: "행정구역명", CodeName: "행정구역코드"}}
			}
		}
		return opt
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Profile a CSV/TSV and produce a concise Markdown summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := dashboard.Input{Sample: anaSample}
		if len(args) == 1 {
			in.File = utils.ExpandHome(args[0])
		}
		if in.File == "" && !in.Sample {
			return errors.New("analyze needs a file or --sample")
		}
		if err := readStdin(cmd, &in); err != nil {
			return err
		}
		delim, err := parseDelimiter(anaDelimiter)
		if err != nil {
			return err
		}
		r := newRunner(anaEncodings)
		r.Delimiter = delim

		raw, err := r.Resolve(analyzeDef, in)
		if err != nil {
			return err
		}
		md, err := profile(r, raw, anaProfile)
		if err != nil {
			return err
		}

		if anaOutputPath != "" {
			p := utils.ExpandHome(anaOutputPath)
			if err := utils.SafeWriteFile(p, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", p)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

// profileFlags are the report knobs shared by analyze and analyze-batch.
type profileFlags struct {
	sampleRows int
	maxRows    int
	corr       bool
	outliers   bool
	outlierThr float64
	groupBy    []string
}

func bindProfileFlags(c *cobra.Command, f *profileFlags) {
	c.Flags().IntVar(&f.sampleRows, "sample-rows", 5, "number of sample rows to include")
	c.Flags().IntVar(&f.maxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	c.Flags().BoolVar(&f.corr, "correlations", false, "compute Pearson correlations among numeric columns")
	c.Flags().BoolVar(&f.outliers, "outliers", true, "compute robust outlier counts (MAD)")
	c.Flags().Float64Var(&f.outlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	c.Flags().StringSliceVar(&f.groupBy, "group-by", nil, "summarize numeric columns per value of these columns")
}

// profile loads raw through r and renders its Markdown report.
func profile(r *dashboard.Runner, raw *source.Raw, f profileFlags) (string, error) {
	d, err := r.Load(analyzeDef, raw)
	if err != nil {
		return "", err
	}
	opt := analysis.DefaultOptions()
	opt.Name = raw.Name
	opt.Encoding = d.Encoding
	if f.sampleRows >= 0 {
		opt.SampleRows = f.sampleRows
	}
	if f.maxRows >= 0 {
		opt.MaxRows = f.maxRows
	}
	opt.Correlations = f.corr
	opt.Outliers = f.outliers
	if f.outlierThr > 0 {
		opt.OutlierThreshold = f.outlierThr
	}
	opt.GroupBy = f.groupBy
	rep, err := analysis.Profile(d.Result, opt)
	if err != nil {
		return "", err
	}
	return rep.Markdown(), nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().BoolVar(&anaSample, "sample", false, "profile the built-in population sample")
	analyzeCmd.Flags().StringSliceVar(&anaEncodings, "encodings", nil, "encodings to try in order (overrides config)")
	bindProfileFlags(analyzeCmd, &anaProfile)
}
