// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package config loads and saves the runtime
// configuration and effect presets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gviegas/postfx/input"
	"github.com/gviegas/postfx/internal/logging"
)

// EnvPrefix prefixes the environment variables that
// override configuration keys (e.g., POSTFX_DEPTH_SCORE_BIAS).
const EnvPrefix = "POSTFX"

// Config is the runtime configuration.
type Config struct {
	EffectSearchPaths       []string `mapstructure:"effect_search_paths"`
	TextureSearchPaths      []string `mapstructure:"texture_search_paths"`
	EffectPattern           string   `mapstructure:"effect_pattern"`
	PreprocessorDefinitions []string `mapstructure:"preprocessor_definitions"`
	PresetFiles             []string `mapstructure:"preset_files"`
	// CurrentPreset indexes PresetFiles; -1 means none.
	CurrentPreset   int            `mapstructure:"current_preset"`
	PerformanceMode bool           `mapstructure:"performance_mode"`
	EffectsKey      input.Shortcut `mapstructure:"effects_key"`
	ScreenshotKey   input.Shortcut `mapstructure:"screenshot_key"`
	ScreenshotPath  string         `mapstructure:"screenshot_path"`
	// ScreenshotFormat is either "png" or "bmp".
	ScreenshotFormat string `mapstructure:"screenshot_format"`
	Depth            Depth  `mapstructure:"depth"`
	// AliasBackBuffer lets effects render directly to a
	// single-sampled, linear back buffer instead of an
	// intermediate copy. It is on by default.
	AliasBackBuffer bool `mapstructure:"alias_back_buffer"`
}

// Depth configures depth-source selection.
type Depth struct {
	ScoreBias    float32 `mapstructure:"score_bias"`
	TrimInterval int     `mapstructure:"trim_interval"`
	// SelectInterval is the number of presents between
	// detections.
	SelectInterval int `mapstructure:"select_interval"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		EffectSearchPaths:  []string{"."},
		TextureSearchPaths: []string{"."},
		EffectPattern:      "*.fx",
		PreprocessorDefinitions: []string{
			"DEPTH_LINEARIZATION_FAR_PLANE=1000.0",
			"DEPTH_INPUT_IS_UPSIDE_DOWN=0",
			"DEPTH_INPUT_IS_REVERSED=0",
			"DEPTH_INPUT_IS_LOGARITHMIC=0",
		},
		CurrentPreset:      -1,
		ScreenshotKey:      input.Shortcut{Key: input.KeySnapshot},
		ScreenshotPath:     ".",
		ScreenshotFormat:   "png",
		Depth: Depth{
			ScoreBias:      1.2,
			TrimInterval:   1000,
			SelectInterval: 1,
		},
		AliasBackBuffer: true,
	}
}

// ErrFormat means that the configuration is invalid.
var ErrFormat = errors.New("config: invalid configuration")

// values returns the configuration as viper keys.
func (c *Config) values() map[string]any {
	return map[string]any{
		"effect_search_paths":      c.EffectSearchPaths,
		"texture_search_paths":     c.TextureSearchPaths,
		"effect_pattern":           c.EffectPattern,
		"preprocessor_definitions": c.PreprocessorDefinitions,
		"preset_files":             c.PresetFiles,
		"current_preset":           c.CurrentPreset,
		"performance_mode":         c.PerformanceMode,
		"effects_key":              c.EffectsKey.String(),
		"screenshot_key":           c.ScreenshotKey.String(),
		"screenshot_path":          c.ScreenshotPath,
		"screenshot_format":        c.ScreenshotFormat,
		"depth.score_bias":         c.Depth.ScoreBias,
		"depth.trim_interval":      c.Depth.TrimInterval,
		"depth.select_interval":    c.Depth.SelectInterval,
		"alias_back_buffer":        c.AliasBackBuffer,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, x := range Default().values() {
		v.SetDefault(k, x)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path. The format
// (INI, TOML or YAML) is chosen by extension. A missing
// file yields the default configuration. Environment
// variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			logging.L().Info("configuration file not found, using defaults", zap.String("path", path))
		} else if sub := v.Sub("default"); sub != nil {
			// INI keys outside of any section.
			if err := v.MergeConfigMap(sub.AllSettings()); err != nil {
				return nil, err
			}
		}
	}
	var c Config
	if err := v.Unmarshal(&c, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.ScreenshotFormat {
	case "png", "bmp":
	default:
		return fmt.Errorf("%w: screenshot format %q", ErrFormat, c.ScreenshotFormat)
	}
	if c.Depth.TrimInterval <= 0 || c.Depth.SelectInterval <= 0 {
		return fmt.Errorf("%w: depth intervals must be positive", ErrFormat)
	}
	if c.CurrentPreset >= len(c.PresetFiles) {
		c.CurrentPreset = -1
	}
	return nil
}

// Save writes c to path, in the format given by the
// path's extension.
func (c *Config) Save(path string) error {
	v := viper.New()
	ini := strings.EqualFold(filepath.Ext(path), ".ini")
	for k, x := range c.values() {
		if s, ok := x.([]string); ok {
			if len(s) == 0 {
				continue
			}
			if ini {
				x = strings.Join(s, ",")
			}
		}
		v.Set(k, x)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(path)
}

// PresetPath returns the path of the current preset,
// or the empty string if there is none.
func (c *Config) PresetPath() string {
	if c.CurrentPreset < 0 || c.CurrentPreset >= len(c.PresetFiles) {
		return ""
	}
	return c.PresetFiles[c.CurrentPreset]
}

var (
	shortcutType = reflect.TypeOf(input.Shortcut{})
	stringsType  = reflect.TypeOf([]string(nil))
)

// decodeHook converts shortcuts written either as a
// string ("Ctrl+F2") or as [keycode, ctrl, shift, alt],
// and comma-separated lists (as written to INI files).
func decodeHook(from, to reflect.Type, data any) (any, error) {
	switch to {
	case shortcutType:
		switch d := data.(type) {
		case string:
			sc, ok := input.ParseShortcut(d)
			if !ok {
				return nil, fmt.Errorf("invalid shortcut %q", d)
			}
			return sc, nil
		case []any:
			return shortcutFrom(d)
		case int, int64, float64:
			return shortcutFrom([]any{d})
		}
	case stringsType:
		if s, ok := data.(string); ok {
			if strings.TrimSpace(s) == "" {
				return []string{}, nil
			}
			parts := strings.Split(s, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts, nil
		}
	}
	return data, nil
}

func shortcutFrom(s []any) (input.Shortcut, error) {
	var n [4]int
	if len(s) == 0 || len(s) > len(n) {
		return input.Shortcut{}, fmt.Errorf("invalid shortcut %v", s)
	}
	for i, x := range s {
		switch x := x.(type) {
		case int:
			n[i] = x
		case int64:
			n[i] = int(x)
		case float64:
			n[i] = int(x)
		case bool:
			if x {
				n[i] = 1
			}
		case string:
			k, err := strconv.Atoi(strings.TrimSpace(x))
			if err != nil {
				return input.Shortcut{}, fmt.Errorf("invalid shortcut %v", s)
			}
			n[i] = k
		default:
			return input.Shortcut{}, fmt.Errorf("invalid shortcut %v", s)
		}
	}
	if n[0] < 0 || n[0] >= input.KeyCount {
		return input.Shortcut{}, fmt.Errorf("invalid shortcut %v", s)
	}
	return input.Shortcut{Key: n[0], Ctrl: n[1] != 0, Shift: n[2] != 0, Alt: n[3] != 0}, nil
}
