package stache

import (
	"fmt"
	"reflect"
	"strings"
)

// Context is the variable-resolution stack a template renders against.
// It is immutable: Push returns a new context whose parent is the
// receiver, so one context can be shared by sibling renderings.
type Context struct {
	parent  *Context
	value   Value
	depth   int
	filters FilterRegistry
	strict  bool
}

// NewContext creates a root context holding data. Filter calls that are
// not resolved by a value in the stack fall back to filters; a nil
// registry means the default registry.
func NewContext(data interface{}, filters FilterRegistry) *Context {
	if filters == nil {
		filters = GetDefaultFilterRegistry()
	}
	return &Context{value: ValueOf(data), filters: filters}
}

// Push returns a context with v on top of c.
func (c *Context) Push(v Value) *Context {
	if c == nil {
		return &Context{value: v, filters: GetDefaultFilterRegistry()}
	}
	return &Context{
		parent:  c,
		value:   v,
		depth:   c.depth + 1,
		filters: c.filters,
		strict:  c.strict,
	}
}

// Top returns the value on top of the stack.
func (c *Context) Top() Value {
	if c == nil {
		return Absent()
	}
	return c.value
}

// Depth is the number of values pushed above the root.
func (c *Context) Depth() int {
	if c == nil {
		return 0
	}
	return c.depth
}

// Filters returns the registry bound to the root of the stack.
func (c *Context) Filters() FilterRegistry {
	if c == nil || c.filters == nil {
		return GetDefaultFilterRegistry()
	}
	return c.filters
}

// Lookup resolves name against the stack, top first. The first frame
// that defines name wins, even when its value is nil.
func (c *Context) Lookup(name string) (Value, bool) {
	for frame := c; frame != nil; frame = frame.parent {
		if v, ok := lookupField(frame.value, name); ok {
			return v, true
		}
	}
	return Absent(), false
}

// LookupFilter resolves the callee of a filter call. Filter values found
// in the stack take precedence over the registry.
func (c *Context) LookupFilter(name string) (Filter, error) {
	if v, ok := c.Lookup(name); ok {
		if f, ok := asFilter(v); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %q resolves to %s", ErrNotAFilter, name, v.Kind())
	}
	if f, ok := c.Filters().GetFilter(name); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
}

func asFilter(v Value) (Filter, bool) {
	switch v.kind {
	case KindScalar:
		f, ok := v.scalar.(Filter)
		return f, ok
	case KindRenderable:
		f, ok := v.renderable.(Filter)
		return f, ok
	default:
		return nil, false
	}
}

// lookupField reads a key of a map or a field of a struct.
func lookupField(v Value, name string) (Value, bool) {
	if v.kind != KindScalar {
		return Absent(), false
	}

	switch m := v.scalar.(type) {
	case TemplateData:
		x, ok := m[name]
		return ValueOf(x), ok
	case map[string]interface{}:
		x, ok := m[name]
		return ValueOf(x), ok
	}

	rv := reflect.ValueOf(v.scalar)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Absent(), false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Absent(), false
		}
		x := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return Absent(), false
		}
		return ValueOf(x.Interface()), true
	case reflect.Struct:
		return lookupStructField(rv, name)
	}
	return Absent(), false
}

func lookupStructField(rv reflect.Value, name string) (Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if field.Name == name || (tag != "" && tag != "-" && tag == name) {
			return ValueOf(rv.Field(i).Interface()), true
		}
	}
	return Absent(), false
}
