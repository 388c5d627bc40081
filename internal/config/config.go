// Package config loads cortexrig settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. CORTEXRIG_SCENE_FPS.
const EnvPrefix = "CORTEXRIG"

// Config holds all application configuration.
type Config struct {
	Log    logging.Config  `mapstructure:"log" yaml:"log"`
	Engine animator.Config `mapstructure:"engine" yaml:"engine"`
	Poses  PosesConfig     `mapstructure:"poses" yaml:"poses"`
	Clips  ClipsConfig     `mapstructure:"clips" yaml:"clips"`
	Scene  SceneConfig     `mapstructure:"scene" yaml:"scene"`
	Stream StreamConfig    `mapstructure:"stream" yaml:"stream"`
	Redis  RedisConfig     `mapstructure:"redis" yaml:"redis"`
}

// PosesConfig points at the optional pose override file.
type PosesConfig struct {
	Overrides string `mapstructure:"overrides" yaml:"overrides"`
	Watch     bool   `mapstructure:"watch" yaml:"watch"` // hot reload on change
}

// ClipsConfig points at an optional clip file merged over the built-in clips.
type ClipsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SceneConfig configures the headless multi-character host.
type SceneConfig struct {
	Characters int     `mapstructure:"characters" yaml:"characters"`
	FPS        float64 `mapstructure:"fps" yaml:"fps"`
	Workers    int     `mapstructure:"workers" yaml:"workers"` // 0 ticks every character in parallel
	Report     string  `mapstructure:"report" yaml:"report"`   // cron spec for stats logging, empty disables
}

// StreamConfig configures the websocket frame server.
type StreamConfig struct {
	Addr    string   `mapstructure:"addr" yaml:"addr"`
	Path    string   `mapstructure:"path" yaml:"path"`
	Every   int      `mapstructure:"every" yaml:"every"` // broadcast one frame in N
	Buffer  int      `mapstructure:"buffer" yaml:"buffer"`
	Origins []string `mapstructure:"origins" yaml:"origins"`
	Metrics string   `mapstructure:"metrics" yaml:"metrics"` // prometheus route, empty disables
	Logs    string   `mapstructure:"logs" yaml:"logs"`       // recent log entries route, empty disables
}

// RedisConfig configures the optional Redis Streams frame sink. An empty
// Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Stream   string `mapstructure:"stream" yaml:"stream"`
	MaxLen   int64  `mapstructure:"max_len" yaml:"max_len"`
	Every    int    `mapstructure:"every" yaml:"every"`
	Buffer   int    `mapstructure:"buffer" yaml:"buffer"` // pending frame sets before new ones are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:    logging.DefaultConfig(),
		Engine: animator.DefaultConfig(),
		Scene: SceneConfig{
			Characters: 4,
			FPS:        60,
			Report:     "@every 1m",
		},
		Stream: StreamConfig{
			Addr:    "127.0.0.1:8765",
			Path:    "/frames",
			Every:   2,
			Buffer:  32,
			Metrics: "/metrics",
			Logs:    "/logs",
		},
		Redis: RedisConfig{
			Stream: "cortexrig:frames",
			MaxLen: 10000,
			Every:  6,
			Buffer: 64,
		},
	}
}

// Load reads configuration from path merged over the defaults, then applies
// CORTEXRIG_* environment overrides. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(strings.NewReader(string(defaults))); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}

	// Example: CORTEXRIG_ENGINE_QUALITY=low
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		path = expandPath(path)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Dir = expandPath(cfg.Log.Dir)
	cfg.Poses.Overrides = expandPath(cfg.Poses.Overrides)
	cfg.Clips.Path = expandPath(cfg.Clips.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Quality resolves the engine's quality tier name.
func (c *Config) Quality() (animator.QualityConfig, error) {
	return animator.QualityPreset(c.Engine.Quality)
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Quality(); err != nil {
		return fmt.Errorf("engine.quality: %w", err)
	}
	if c.Engine.MaxFrameDelta <= 0 {
		return fmt.Errorf("engine.max_frame_delta must be positive")
	}
	if c.Scene.FPS <= 0 {
		return fmt.Errorf("scene.fps must be positive")
	}
	if c.Scene.Characters < 0 {
		return fmt.Errorf("scene.characters cannot be negative")
	}
	if c.Stream.Every < 1 {
		return fmt.Errorf("stream.every must be at least 1")
	}
	if c.Redis.Addr != "" && c.Redis.Every < 1 {
		return fmt.Errorf("redis.every must be at least 1")
	}
	if c.Scene.Report != "" {
		if _, err := cron.ParseStandard(c.Scene.Report); err != nil {
			return fmt.Errorf("scene.report: %w", err)
		}
	}
	validLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true, logging.LevelInfo: true,
		logging.LevelWarn: true, logging.LevelError: true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
