package stache

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds the engine settings. Each field can be preset from the
// environment variable named next to it; see ConfigFromEnvironment.
type Config struct {
	// Parsed templates kept by an engine, 0 for none. STACHE_CACHE_MAX_SIZE.
	CacheMaxSize int
	// How long a parsed template stays cached, 0 for ever. STACHE_CACHE_TTL,
	// as a Go duration such as "5m".
	CacheTTL time.Duration
	// One of debug, info, warn, error or off. STACHE_LOG_LEVEL.
	LogLevel string
	// Deepest section nesting a render may reach. STACHE_MAX_RENDER_DEPTH.
	MaxRenderDepth int
	// Report variables that resolve to nothing as errors. STACHE_STRICT_MODE,
	// accepting true/false, 1/0, yes/no or on/off.
	StrictMode bool
}

// logLevels are the accepted values of Config.LogLevel.
var logLevels = []string{"debug", "info", "warn", "error", "off"}

// envBindings maps each STACHE_* variable onto its Config field. Values
// that do not parse leave the field at its default.
var envBindings = []struct {
	name  string
	apply func(c *Config, raw string)
}{
	{"STACHE_CACHE_MAX_SIZE", func(c *Config, raw string) {
		if n, err := strconv.Atoi(raw); err == nil {
			c.CacheMaxSize = n
		}
	}},
	{"STACHE_CACHE_TTL", func(c *Config, raw string) {
		if d, err := time.ParseDuration(raw); err == nil {
			c.CacheTTL = d
		}
	}},
	{"STACHE_LOG_LEVEL", func(c *Config, raw string) {
		c.LogLevel = strings.ToLower(raw)
	}},
	{"STACHE_MAX_RENDER_DEPTH", func(c *Config, raw string) {
		if n, err := strconv.Atoi(raw); err == nil {
			c.MaxRenderDepth = n
		}
	}},
	{"STACHE_STRICT_MODE", func(c *Config, raw string) {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes", "on":
			c.StrictMode = true
		case "false", "0", "no", "off":
			c.StrictMode = false
		}
	}},
}

// DefaultConfig returns a cached, lenient engine that logs at info.
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		LogLevel:       "info",
		MaxRenderDepth: 100,
	}
}

// ConfigFromEnvironment returns DefaultConfig with every set STACHE_*
// variable applied.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	for _, binding := range envBindings {
		if raw, ok := os.LookupEnv(binding.name); ok && raw != "" {
			binding.apply(config, raw)
		}
	}
	return config
}

// NewConfigWithDefaults copies overrides and fills LogLevel and
// MaxRenderDepth when they are unset. A zero CacheMaxSize is kept, since it
// turns the cache off.
func NewConfigWithDefaults(overrides *Config) *Config {
	if overrides == nil {
		return DefaultConfig()
	}

	config := *overrides
	defaults := DefaultConfig()
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.MaxRenderDepth == 0 {
		config.MaxRenderDepth = defaults.MaxRenderDepth
	}
	return &config
}

// Validate reports every invalid field at once, as a *MultiError.
func (c *Config) Validate() error {
	errs := NewMultiError()
	if c.CacheMaxSize < 0 {
		errs.Add(fmt.Errorf("cache max size cannot be negative, got %d", c.CacheMaxSize))
	}
	if c.CacheTTL < 0 {
		errs.Add(fmt.Errorf("cache TTL cannot be negative, got %s", c.CacheTTL))
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		errs.Add(fmt.Errorf("invalid log level: %q (want one of %s)", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if c.MaxRenderDepth <= 0 {
		errs.Add(fmt.Errorf("max render depth must be positive, got %d", c.MaxRenderDepth))
	}
	return errs.Err()
}

// The package-level functions (Parse, New, the default cache and logger)
// read this configuration. It is loaded from the environment on first use.
var (
	globalConfig     *Config
	globalConfigMu   sync.RWMutex
	globalConfigLoad sync.Once
)

// GetGlobalConfig returns a copy of the package-level configuration.
func GetGlobalConfig() *Config {
	globalConfigLoad.Do(func() {
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = ConfigFromEnvironment()
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	if globalConfig == nil {
		return DefaultConfig()
	}
	c := *globalConfig
	return &c
}

// SetGlobalConfig replaces the package-level configuration and applies its
// log level to the package logger.
func SetGlobalConfig(config *Config) {
	globalConfigLoad.Do(func() {})

	globalConfigMu.Lock()
	globalConfig = config
	globalConfigMu.Unlock()

	// the logger reads the configuration back, so the lock is released first
	UpdateLoggerFromConfig()
}

// ResetGlobalConfig reloads the package-level configuration from the
// environment.
func ResetGlobalConfig() {
	SetGlobalConfig(ConfigFromEnvironment())
}
