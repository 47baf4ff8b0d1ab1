package stache

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
)

// Engine provides the main API for working with templates.
// Use New() to create a new engine instance.
type Engine struct {
	config   *Config
	cache    *TemplateCache
	registry *DefaultFilterRegistry
}

// New creates a new template engine with the global configuration and
// the built-in filters.
func New() *Engine {
	return NewWithConfig(GetGlobalConfig())
}

// NewWithConfig creates a new template engine with custom configuration.
// Each engine owns its filter registry, seeded with the built-in filters.
func NewWithConfig(config *Config) *Engine {
	config = NewConfigWithDefaults(config)
	return &Engine{
		config: config,
		cache: NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		}),
		registry: NewDefaultFilterRegistry(),
	}
}

// Parse parses a template from source.
func (e *Engine) Parse(name, src string) (*Template, error) {
	return parseTemplate(name, src, e.config, e.registry)
}

// ParseReader parses a template read from r.
func (e *Engine) ParseReader(name string, r io.Reader) (*Template, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return e.Parse(name, string(src))
}

// ParseFile loads and parses a template from a file path.
// The template is cached if caching is enabled in the configuration.
func (e *Engine) ParseFile(path string) (*Template, error) {
	return e.cache.GetOrParse(path, func() (*Template, error) {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open template file: %w", err)
		}
		if debugEnabled() {
			GetLogger().WithFields(log.Fields{
				"path":  path,
				"bytes": len(src),
			}).Debug("loading template file")
		}
		return e.Parse(path, string(src))
	})
}

// RenderString parses src and renders it with data in one step.
func (e *Engine) RenderString(src string, data interface{}) (string, error) {
	tmpl, err := e.Parse("inline", src)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}

// RegisterFilter makes f callable by name from templates parsed by this engine.
// The name must be a valid identifier; an existing binding is replaced.
func (e *Engine) RegisterFilter(name string, f Filter) error {
	return e.registry.RegisterFilter(name, f)
}

// RegisterSprig registers the sprig function library, keeping existing filters.
func (e *Engine) RegisterSprig() error {
	_, err := RegisterSprigFilters(e.registry)
	return err
}

// Filters returns the engine's filter registry.
func (e *Engine) Filters() FilterRegistry {
	return e.registry
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Close releases any resources held by the engine.
func (e *Engine) Close() error {
	e.ClearCache()
	return nil
}

// Option represents a configuration option for the engine.
type Option func(*Engine) error

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) error {
		e.config = NewConfigWithDefaults(config)
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: e.config.CacheMaxSize,
			TTL:     e.config.CacheTTL,
		})
		return nil
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) error {
		e.config.CacheMaxSize = maxSize
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: maxSize,
			TTL:     e.config.CacheTTL,
		})
		return nil
	}
}

// WithFilter returns an option that registers a custom filter.
func WithFilter(name string, f Filter) Option {
	return func(e *Engine) error {
		return e.RegisterFilter(name, f)
	}
}

// WithSprig returns an option that registers the sprig function library.
func WithSprig() Option {
	return func(e *Engine) error {
		return e.RegisterSprig()
	}
}

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) (*Engine, error) {
	engine := New()
	for _, opt := range opts {
		if err := opt(engine); err != nil {
			return nil, err
		}
	}
	if err := engine.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return engine, nil
}
