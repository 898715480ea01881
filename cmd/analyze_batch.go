package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dashcsv-cli/internal/dashboard"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

var (
	abOutputDir string
	abDelimiter string
	abEncodings []string
	abProfile   profileFlags
	abQuiet     bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Profile multiple CSV/TSV files with progress, writing one summary per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		delim, err := parseDelimiter(abDelimiter)
		if err != nil {
			return err
		}
		r := newRunner(abEncodings)
		r.Delimiter = delim

		out := cmd.OutOrStdout()
		outDir := ""
		if abOutputDir != "" {
			outDir = utils.ExpandHome(abOutputDir)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
		}
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			raw, err := r.Resolve(analyzeDef, dashboard.Input{File: path})
			if err != nil {
				return err
			}
			md, err := profile(r, raw, abProfile)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if outDir == "" {
				fmt.Fprintln(out, md)
				continue
			}
			dest := summaryPath(outDir, path)
			if !abQuiet && dest != filepath.Join(outDir, summaryBase(path)+".summary.md") {
				fmt.Fprintf(out, "⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(dest))
			}
			if err := utils.SafeWriteFile(dest, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", dest)
			}
		}
		if !abQuiet {
			fmt.Fprintf(out, "✓ Analyzed %d file(s)\n", total)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		arg = utils.ExpandHome(arg)
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func summaryBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// summaryPath returns dir/<base>.summary.md, or the first free <base>__N
// variant when that file already exists.
func summaryPath(dir, path string) string {
	base := summaryBase(path)
	dest := filepath.Join(dir, base+".summary.md")
	for n := 2; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", base, n))
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "directory for <name>.summary.md files (default: print to stdout)")
	analyzeBatchCmd.Flags().StringVar(&abDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeBatchCmd.Flags().StringSliceVar(&abEncodings, "encodings", nil, "encodings to try in order (overrides config)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress output")
	bindProfileFlags(analyzeBatchCmd, &abProfile)
}
