package stache

import (
	"fmt"
	"sort"
	"sync"
)

// FilterRegistry manages the filters a template can call by name
type FilterRegistry interface {
	// RegisterFilter binds name to f, replacing any previous binding
	RegisterFilter(name string, f Filter) error

	// GetFilter retrieves a filter by name
	GetFilter(name string) (Filter, bool)

	// ListFilters returns all registered filters sorted by name
	ListFilters() []FilterInfo
}

// FilterInfo describes a registered filter
type FilterInfo struct {
	Name string     `json:"name"`
	Kind FilterKind `json:"-"`
}

// KindName is the kind of the filter as a string
func (i FilterInfo) KindName() string {
	return i.Kind.String()
}

// DefaultFilterRegistry is the default implementation of FilterRegistry
type DefaultFilterRegistry struct {
	filters map[string]Filter
	mutex   sync.RWMutex
}

// NewFilterRegistry creates an empty filter registry
func NewFilterRegistry() *DefaultFilterRegistry {
	return &DefaultFilterRegistry{
		filters: make(map[string]Filter),
	}
}

func (r *DefaultFilterRegistry) RegisterFilter(name string, f Filter) error {
	if !isIdentifier(name) {
		return fmt.Errorf("invalid filter name %q", name)
	}
	if f == nil {
		return fmt.Errorf("filter %s is nil", name)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.filters[name] = f
	return nil
}

func (r *DefaultFilterRegistry) GetFilter(name string) (Filter, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	f, exists := r.filters[name]
	return f, exists
}

func (r *DefaultFilterRegistry) ListFilters() []FilterInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	infos := make([]FilterInfo, 0, len(r.filters))
	for name, f := range r.filters {
		infos = append(infos, FilterInfo{Name: name, Kind: KindOf(f)})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Clone returns a registry holding the same bindings
func (r *DefaultFilterRegistry) Clone() *DefaultFilterRegistry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	clone := NewFilterRegistry()
	for name, f := range r.filters {
		clone.filters[name] = f
	}
	return clone
}

var (
	globalRegistry *DefaultFilterRegistry
	registryOnce   sync.Once
)

// GetDefaultFilterRegistry returns the global registry holding the built-in filters
func GetDefaultFilterRegistry() FilterRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewFilterRegistry()
		registerBuiltinFilters(globalRegistry)
	})
	return globalRegistry
}

// NewDefaultFilterRegistry returns a fresh registry holding the built-in
// filters, independent of the global one
func NewDefaultFilterRegistry() *DefaultFilterRegistry {
	registry := NewFilterRegistry()
	registerBuiltinFilters(registry)
	return registry
}

func isIdentifier(name string) bool {
	return name != "" && identifierRegex.FindString(name) == name
}
