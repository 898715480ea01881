package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dashcsv-cli/internal/parser"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
)

// Global configuration structure.
type Global struct {
	// Encodings are tried in order when decoding a source.
	Encodings []string `mapstructure:"encodings" yaml:"encodings"`
	// FallbackDir is searched for a dashboard's default file when --file is not given.
	FallbackDir string `mapstructure:"fallback_dir" yaml:"fallback_dir"`
	TopK        int    `mapstructure:"top_k" yaml:"top_k"`

	// Bar palette
	HighlightColor    string  `mapstructure:"highlight_color" yaml:"highlight_color"`
	GradientBase      string  `mapstructure:"gradient_base" yaml:"gradient_base"`
	GradientAlphaHigh float64 `mapstructure:"gradient_alpha_high" yaml:"gradient_alpha_high"`
	GradientAlphaLow  float64 `mapstructure:"gradient_alpha_low" yaml:"gradient_alpha_low"`

	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	WatchDebounceMs int    `mapstructure:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// Keys lists the settable configuration keys.
var Keys = []string{
	"encodings", "fallback_dir", "top_k",
	"highlight_color", "gradient_base", "gradient_alpha_high", "gradient_alpha_low",
	"log_level", "watch_debounce_ms",
}

// Palette returns the configured bar palette.
func (c *Global) Palette() present.Palette {
	return present.Palette{
		Highlight: c.HighlightColor,
		Base:      c.GradientBase,
		AlphaHigh: c.GradientAlphaHigh,
		AlphaLow:  c.GradientAlphaLow,
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Global) Validate() error {
	for _, e := range c.Encodings {
		if _, err := parser.Lookup(e); err != nil {
			return err
		}
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be >= 0, got %d", c.TopK)
	}
	if c.WatchDebounceMs < 0 {
		return fmt.Errorf("watch_debounce_ms must be >= 0, got %d", c.WatchDebounceMs)
	}
	return c.Palette().Validate()
}

// Set assigns a key from its string form, as given on the command line.
func (c *Global) Set(key, value string) error {
	switch key {
	case "encodings":
		var encs []string
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				encs = append(encs, e)
			}
		}
		c.Encodings = encs
	case "fallback_dir":
		c.FallbackDir = value
	case "top_k":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("top_k: %w", err)
		}
		c.TopK = n
	case "highlight_color":
		c.HighlightColor = value
	case "gradient_base":
		c.GradientBase = value
	case "gradient_alpha_high", "gradient_alpha_low":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "gradient_alpha_high" {
			c.GradientAlphaHigh = f
		} else {
			c.GradientAlphaLow = f
		}
	case "log_level":
		c.LogLevel = value
	case "watch_debounce_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("watch_debounce_ms: %w", err)
		}
		c.WatchDebounceMs = n
	default:
		known := append([]string(nil), Keys...)
		sort.Strings(known)
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(known, ", "))
	}
	return c.Validate()
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	p := present.DefaultPalette()
	return &Global{
		Encodings:         append([]string(nil), parser.DefaultEncodings...),
		FallbackDir:       "/mnt/data",
		TopK:              10,
		HighlightColor:    p.Highlight,
		GradientBase:      p.Base,
		GradientAlphaHigh: p.AlphaHigh,
		GradientAlphaLow:  p.AlphaLow,
		LogLevel:          "warn",
		WatchDebounceMs:   200,
	}
}

// DefaultPath returns ~/.dashcsv/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dashcsv", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dashcsv/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHCSV")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("encodings", d.Encodings)
	v.SetDefault("fallback_dir", d.FallbackDir)
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("highlight_color", d.HighlightColor)
	v.SetDefault("gradient_base", d.GradientBase)
	v.SetDefault("gradient_alpha_high", d.GradientAlphaHigh)
	v.SetDefault("gradient_alpha_low", d.GradientAlphaLow)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("watch_debounce_ms", d.WatchDebounceMs)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			if _, statErr := os.Stat(cfgFile); statErr == nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// DASHCSV_ENCODINGS arrives as one comma-separated string
	if len(c.Encodings) == 1 && strings.Contains(c.Encodings[0], ",") {
		if err := c.Set("encodings", c.Encodings[0]); err != nil {
			return nil, err
		}
	}
	if len(c.Encodings) == 0 {
		c.Encodings = append([]string(nil), parser.DefaultEncodings...)
	}
	return &c, nil
}
