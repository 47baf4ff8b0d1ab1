package stache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// TemplateCache keeps parsed templates by key, evicting the least recently
// used one when full. It is safe for concurrent use.
type TemplateCache struct {
	lru    *expirable.LRU[string, *Template]
	config CacheConfig
}

// NewTemplateCache creates a new template cache from the global configuration
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// NewTemplateCacheWithConfig creates a new template cache with the given configuration
func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	tc := &TemplateCache{config: config}
	if config.MaxSize > 0 {
		tc.lru = expirable.NewLRU[string, *Template](config.MaxSize, tc.onEvict, config.TTL)
	}
	return tc
}

func (tc *TemplateCache) onEvict(key string, _ *Template) {
	if debugEnabled() {
		GetLogger().WithField("key", key).Debug("template evicted from cache")
	}
}

// Enabled reports whether the cache stores anything
func (tc *TemplateCache) Enabled() bool {
	return tc != nil && tc.lru != nil
}

// GetOrParse returns the cached template for key, or parses one with
// parse and caches it
func (tc *TemplateCache) GetOrParse(key string, parse func() (*Template, error)) (*Template, error) {
	if tmpl, ok := tc.Get(key); ok {
		return tmpl, nil
	}
	tmpl, err := parse()
	if err != nil {
		return nil, err
	}
	tc.Set(key, tmpl)
	return tmpl, nil
}

// Get retrieves a template from the cache
func (tc *TemplateCache) Get(key string) (*Template, bool) {
	if !tc.Enabled() {
		return nil, false
	}
	return tc.lru.Get(key)
}

// Set adds a template to the cache
func (tc *TemplateCache) Set(key string, tmpl *Template) {
	if !tc.Enabled() {
		return
	}
	tc.lru.Add(key, tmpl)
}

// Remove removes a template from the cache
func (tc *TemplateCache) Remove(key string) {
	if !tc.Enabled() {
		return
	}
	tc.lru.Remove(key)
}

// Clear removes all templates from the cache
func (tc *TemplateCache) Clear() {
	if !tc.Enabled() {
		return
	}
	tc.lru.Purge()
}

// Size returns the current number of cached templates
func (tc *TemplateCache) Size() int {
	if !tc.Enabled() {
		return 0
	}
	return tc.lru.Len()
}
