package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/dashcsv-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set dashcsv configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "encodings: %s\n", strings.Join(c.Encodings, ","))
		fmt.Fprintf(out, "fallback_dir: %s\n", c.FallbackDir)
		fmt.Fprintf(out, "top_k: %d\n", c.TopK)
		fmt.Fprintf(out, "highlight_color: %s\n", c.HighlightColor)
		fmt.Fprintf(out, "gradient_base: %s\n", c.GradientBase)
		fmt.Fprintf(out, "gradient_alpha_high: %.3f\n", c.GradientAlphaHigh)
		fmt.Fprintf(out, "gradient_alpha_low: %.3f\n", c.GradientAlphaLow)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "watch_debounce_ms: %d\n", c.WatchDebounceMs)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
