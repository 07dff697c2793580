// Package config loads execdef settings from defaults, an optional config
// file and EXECDEF_* environment variables, in increasing precedence.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/execdef/internal/callguard"
)

// EnvPrefix prefixes every environment variable: EXECDEF_DB,
// EXECDEF_BACKEND_MAX_ATTEMPTS, ...
const EnvPrefix = "EXECDEF"

// Config holds every setting.
type Config struct {
	// DB is the SQLite database path.
	DB string `mapstructure:"db"`

	// Workspace is used when a document does not name one.
	Workspace string `mapstructure:"workspace"`

	Log     LogConfig     `mapstructure:"log"`
	Backend BackendConfig `mapstructure:"backend"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug | info | warn | error
	JSON  bool   `mapstructure:"json"`
}

// BackendConfig configures backend calls and result retention.
type BackendConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Backoff           time.Duration `mapstructure:"backoff"`
	MaxResults        int           `mapstructure:"max_results"`
}

// CacheConfig configures the execution cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
}

// defaults lists every key with its default value. Keys must be known to
// viper for environment variables to reach Unmarshal.
var defaults = map[string]any{
	"db":                          "execdef.db",
	"workspace":                   "",
	"log.level":                   "warn",
	"log.json":                    false,
	"backend.requests_per_second": 0.0,
	"backend.burst":               1,
	"backend.max_attempts":        3,
	"backend.backoff":             "50ms",
	"backend.max_results":         256,
	"cache.enabled":               true,
	"cache.max_entries":           128,
}

// Load reads the configuration. path names an optional YAML config file;
// an empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("backend.requests_per_second must not be negative, got %v", c.Backend.RequestsPerSecond))
	}
	if c.Backend.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("backend.max_attempts must be at least 1, got %d", c.Backend.MaxAttempts))
	}
	if c.Backend.Backoff < 0 {
		errs = append(errs, fmt.Errorf("backend.backoff must not be negative, got %s", c.Backend.Backoff))
	}
	if c.Backend.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("backend.max_results must not be negative, got %d", c.Backend.MaxResults))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Guard returns the call guard settings.
func (b BackendConfig) Guard() callguard.Config {
	return callguard.Config{
		RequestsPerSecond: b.RequestsPerSecond,
		Burst:             b.Burst,
		MaxAttempts:       b.MaxAttempts,
		Backoff:           b.Backoff,
	}
}
