// Package config provides configuration management for the stache CLI.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (STACHE_ prefix)
//  3. Config file (.stache.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benjaminschreck/go-stache/pkg/stache"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the CLI configuration.
type Config struct {
	// LogLevel controls the verbosity of log output.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat selects the apex/log handler: text or json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Strict makes undefined variables a render error.
	Strict bool `mapstructure:"strict" json:"strict"`

	// CacheSize bounds the parsed template cache. 0 disables it.
	CacheSize int `mapstructure:"cache-size" json:"cacheSize"`

	// CacheTTL expires cached templates. 0 keeps them until evicted.
	CacheTTL time.Duration `mapstructure:"cache-ttl" json:"cacheTTL"`

	// Sprig registers the sprig function library as filters.
	Sprig bool `mapstructure:"sprig" json:"sprig"`

	// ConfigFile is the resolved path to the config file used.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with the CLI defaults.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		CacheSize: 100,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel))
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat))
	}

	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("invalid cache size %d: must be non-negative", c.CacheSize))
	}

	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid cache ttl %s: must be non-negative", c.CacheTTL))
	}

	return errors.Join(errs...)
}

// EffectiveLogLevel returns the log level to use. Quiet overrides the
// configured level with "error".
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// ToEngineConfig converts the CLI configuration into a library configuration.
func (c *Config) ToEngineConfig() *stache.Config {
	return &stache.Config{
		CacheMaxSize:   c.CacheSize,
		CacheTTL:       c.CacheTTL,
		LogLevel:       c.EffectiveLogLevel(),
		MaxRenderDepth: stache.DefaultConfig().MaxRenderDepth,
		StrictMode:     c.Strict,
	}
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("cache-ttl", d.CacheTTL)
	v.SetDefault("sprig", d.Sprig)
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("STACHE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".stache")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "stache"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds cmd's own flags and the persistent flags of every ancestor.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
