// Package config loads the settings of the lighting engine and its tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. OXY_LIGHTING_SHADOWS=false.
const EnvPrefix = "OXY"

// Config holds the complete configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Lighting LightingConfig `mapstructure:"lighting" yaml:"lighting"`
	Effects  EffectsConfig  `mapstructure:"effects" yaml:"effects"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Bench    BenchConfig    `mapstructure:"bench" yaml:"bench"`
}

// EngineConfig holds the frame driver settings.
type EngineConfig struct {
	TickRate   float64 `mapstructure:"tick_rate" yaml:"tick_rate"`
	FrameLimit float64 `mapstructure:"frame_limit" yaml:"frame_limit"` // 0 = uncapped
	Profiling  bool    `mapstructure:"profiling" yaml:"profiling"`
}

// LightingConfig holds the forward lighting settings.
type LightingConfig struct {
	Shadows         bool `mapstructure:"shadows" yaml:"shadows"`
	ShadowAtlasSize int  `mapstructure:"shadow_atlas_size" yaml:"shadow_atlas_size"`
	LayoutCacheSize int  `mapstructure:"layout_cache_size" yaml:"layout_cache_size"`

	// GPU binds resource groups and shadow atlases on a headless WebGPU device instead of
	// CPU memory. SoftwareGPU requests the fallback adapter.
	GPU         bool `mapstructure:"gpu" yaml:"gpu"`
	SoftwareGPU bool `mapstructure:"software_gpu" yaml:"software_gpu"`
}

// EffectsConfig holds the effect system and dynamic compiler settings.
type EffectsConfig struct {
	EarlyCacheSize     int           `mapstructure:"early_cache_size" yaml:"early_cache_size"`
	WatchSources       bool          `mapstructure:"watch_sources" yaml:"watch_sources"`
	AsyncCompilation   bool          `mapstructure:"async_compilation" yaml:"async_compilation"`
	ErrorRetryInterval time.Duration `mapstructure:"error_retry_interval" yaml:"error_retry_interval"`
	RecordPath         string        `mapstructure:"record_path" yaml:"record_path"` // empty disables recording
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// BenchConfig describes the scene built by the lightbench tool.
type BenchConfig struct {
	Frames         int  `mapstructure:"frames" yaml:"frames"`
	Views          int  `mapstructure:"views" yaml:"views"`
	Meshes         int  `mapstructure:"meshes" yaml:"meshes"`
	PointLights    int  `mapstructure:"point_lights" yaml:"point_lights"`
	SpotLights     int  `mapstructure:"spot_lights" yaml:"spot_lights"`
	ShadowedLights int  `mapstructure:"shadowed_lights" yaml:"shadowed_lights"`
	Sun            bool `mapstructure:"sun" yaml:"sun"`
	Width          int  `mapstructure:"width" yaml:"width"`
	Height         int  `mapstructure:"height" yaml:"height"`
}

// DefaultConfig returns a new configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate: 60,
		},
		Lighting: LightingConfig{
			Shadows:         true,
			ShadowAtlasSize: 4096,
			LayoutCacheSize: 64,
		},
		Effects: EffectsConfig{
			EarlyCacheSize:     256,
			ErrorRetryInterval: time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Bench: BenchConfig{
			Frames:         120,
			Views:          1,
			Meshes:         64,
			PointLights:    16,
			SpotLights:     4,
			ShadowedLights: 2,
			Sun:            true,
			Width:          1280,
			Height:         720,
		},
	}
}

// Load reads the configuration from path, or from config.yaml in the working directory and
// $HOME/.config/oxy-lighting when path is empty. A missing file keeps the defaults; OXY_
// environment variables override both.
//
// Parameters:
//   - path: the config file, or "" to search the default locations
//
// Returns:
//   - *Config: the loaded configuration
//   - error: an error if the file exists but cannot be read or decoded
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/oxy-lighting")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	out, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Lighting.ShadowAtlasSize <= 0 {
		return fmt.Errorf("invalid shadow atlas size %d", c.Lighting.ShadowAtlasSize)
	}
	if c.Engine.FrameLimit < 0 {
		return fmt.Errorf("invalid frame limit %v", c.Engine.FrameLimit)
	}
	if c.Bench.Width <= 0 || c.Bench.Height <= 0 {
		return fmt.Errorf("invalid bench viewport %dx%d", c.Bench.Width, c.Bench.Height)
	}
	return nil
}

// Logger builds the root logger described by the log section.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.Log.Console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("engine.tick_rate", d.Engine.TickRate)
	v.SetDefault("engine.frame_limit", d.Engine.FrameLimit)
	v.SetDefault("engine.profiling", d.Engine.Profiling)
	v.SetDefault("lighting.shadows", d.Lighting.Shadows)
	v.SetDefault("lighting.shadow_atlas_size", d.Lighting.ShadowAtlasSize)
	v.SetDefault("lighting.layout_cache_size", d.Lighting.LayoutCacheSize)
	v.SetDefault("lighting.gpu", d.Lighting.GPU)
	v.SetDefault("lighting.software_gpu", d.Lighting.SoftwareGPU)
	v.SetDefault("effects.early_cache_size", d.Effects.EarlyCacheSize)
	v.SetDefault("effects.watch_sources", d.Effects.WatchSources)
	v.SetDefault("effects.async_compilation", d.Effects.AsyncCompilation)
	v.SetDefault("effects.error_retry_interval", d.Effects.ErrorRetryInterval)
	v.SetDefault("effects.record_path", d.Effects.RecordPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("bench.frames", d.Bench.Frames)
	v.SetDefault("bench.views", d.Bench.Views)
	v.SetDefault("bench.meshes", d.Bench.Meshes)
	v.SetDefault("bench.point_lights", d.Bench.PointLights)
	v.SetDefault("bench.spot_lights", d.Bench.SpotLights)
	v.SetDefault("bench.shadowed_lights", d.Bench.ShadowedLights)
	v.SetDefault("bench.sun", d.Bench.Sun)
	v.SetDefault("bench.width", d.Bench.Width)
	v.SetDefault("bench.height", d.Bench.Height)
}
