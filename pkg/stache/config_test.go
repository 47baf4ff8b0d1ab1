package stache

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CacheMaxSize != 100 {
		t.Errorf("CacheMaxSize = %d, want 100", config.CacheMaxSize)
	}
	if config.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0", config.CacheTTL)
	}
	if config.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", config.LogLevel)
	}
	if config.MaxRenderDepth != 100 {
		t.Errorf("MaxRenderDepth = %d, want 100", config.MaxRenderDepth)
	}
	if config.StrictMode {
		t.Error("StrictMode = true, want false")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("STACHE_CACHE_MAX_SIZE", "5")
	t.Setenv("STACHE_CACHE_TTL", "1m")
	t.Setenv("STACHE_LOG_LEVEL", "DEBUG")
	t.Setenv("STACHE_MAX_RENDER_DEPTH", "7")
	t.Setenv("STACHE_STRICT_MODE", "yes")

	config := ConfigFromEnvironment()

	if config.CacheMaxSize != 5 {
		t.Errorf("CacheMaxSize = %d, want 5", config.CacheMaxSize)
	}
	if config.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", config.CacheTTL)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
	if config.MaxRenderDepth != 7 {
		t.Errorf("MaxRenderDepth = %d, want 7", config.MaxRenderDepth)
	}
	if !config.StrictMode {
		t.Error("StrictMode = false, want true")
	}
}

func TestConfigFromEnvironmentIgnoresInvalidValues(t *testing.T) {
	t.Setenv("STACHE_CACHE_MAX_SIZE", "lots")
	t.Setenv("STACHE_CACHE_TTL", "soon")

	config := ConfigFromEnvironment()
	if config.CacheMaxSize != 100 {
		t.Errorf("CacheMaxSize = %d, want default 100", config.CacheMaxSize)
	}
	if config.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want default 0", config.CacheTTL)
	}
}

func TestConfigFromEnvironmentStrictMode(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{" ON ", true},
		{"no", false},
		{"off", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("STACHE_STRICT_MODE", tt.raw)
			if got := ConfigFromEnvironment().StrictMode; got != tt.want {
				t.Errorf("STACHE_STRICT_MODE=%q gave StrictMode = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"negative cache size", func(c *Config) { c.CacheMaxSize = -1 }, "cache max size"},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }, "cache TTL"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"zero render depth", func(c *Config) { c.MaxRenderDepth = 0 }, "max render depth"},
		{"off log level", func(c *Config) { c.LogLevel = "off" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateCollectsErrors(t *testing.T) {
	config := &Config{CacheMaxSize: -1, LogLevel: "loud"}
	err := config.Validate()

	multi, ok := err.(*MultiError)
	if !ok {
		t.Fatalf("Validate() error = %T, want *MultiError", err)
	}
	if multi.Len() != 3 {
		t.Errorf("Validate() reported %d errors, want 3: %v", multi.Len(), err)
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	config := NewConfigWithDefaults(&Config{CacheMaxSize: 0, StrictMode: true})

	if config.CacheMaxSize != 0 {
		t.Errorf("CacheMaxSize = %d, want 0 kept", config.CacheMaxSize)
	}
	if config.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", config.LogLevel)
	}
	if config.MaxRenderDepth != 100 {
		t.Errorf("MaxRenderDepth = %d, want 100", config.MaxRenderDepth)
	}
	if !config.StrictMode {
		t.Error("StrictMode lost")
	}

	if NewConfigWithDefaults(nil).CacheMaxSize != 100 {
		t.Error("NewConfigWithDefaults(nil) is not the default config")
	}
}

func TestGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	defer SetGlobalConfig(original)

	config := DefaultConfig()
	config.MaxRenderDepth = 3
	SetGlobalConfig(config)

	got := GetGlobalConfig()
	if got.MaxRenderDepth != 3 {
		t.Errorf("MaxRenderDepth = %d, want 3", got.MaxRenderDepth)
	}

	got.MaxRenderDepth = 99
	if GetGlobalConfig().MaxRenderDepth != 3 {
		t.Error("GetGlobalConfig() returned the shared config instead of a copy")
	}
}
