package stache

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindText
	KindRenderable
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindScalar:
		return "scalar"
	case KindText:
		return "text"
	case KindRenderable:
		return "renderable"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Value is a template value. It is a closed variant: exactly one of the
// kinds above, decided once when the value is built. Rendering and
// filtering switch over Kind instead of probing dynamic types.
type Value struct {
	kind       Kind
	scalar     interface{}
	text       string
	renderable Renderable
	items      []Value
}

// Absent returns the value of a missing variable or a nil input.
func Absent() Value {
	return Value{kind: KindAbsent}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Scalar wraps any host value that is neither text, a collection nor a
// Renderable: numbers, booleans, maps, structs, filters.
func Scalar(x interface{}) Value {
	if x == nil {
		return Absent()
	}
	return Value{kind: KindScalar, scalar: x}
}

// RenderableValue wraps a Renderable.
func RenderableValue(r Renderable) Value {
	if r == nil {
		return Absent()
	}
	return Value{kind: KindRenderable, renderable: r}
}

// Collection returns an ordered list of values.
func Collection(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindCollection, items: items}
}

// ValueOf classifies a host value into a Value.
func ValueOf(x interface{}) Value {
	switch v := x.(type) {
	case nil:
		return Absent()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Absent()
		}
		return *v
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	case Renderable:
		return RenderableValue(v)
	case []Value:
		return Collection(v...)
	case []interface{}:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = ValueOf(item)
		}
		return Collection(items...)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Absent()
		}
	case reflect.Map, reflect.Func:
		if rv.IsNil() {
			return Absent()
		}
	case reflect.Slice:
		if rv.IsNil() {
			return Collection()
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = ValueOf(rv.Index(i).Interface())
		}
		return Collection(items...)
	}
	return Scalar(x)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v is the absent value.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Str returns the text of a Text value.
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Scalar returns the host value of a Scalar, or nil.
func (v Value) Scalar() interface{} {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Renderable returns the Renderable of a Renderable value, or nil.
func (v Value) Renderable() Renderable {
	if v.kind != KindRenderable {
		return nil
	}
	return v.renderable
}

// Items returns the elements of a Collection, or nil.
func (v Value) Items() []Value {
	if v.kind != KindCollection {
		return nil
	}
	return v.items
}

// Interface unwraps v into a plain host value. Collections become
// []interface{}; Renderables are returned as is.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindText:
		return v.text
	case KindRenderable:
		return v.renderable
	case KindCollection:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Truthy reports whether v selects the content of a section.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindAbsent:
		return false
	case KindText:
		return v.text != ""
	case KindCollection:
		return len(v.items) > 0
	case KindRenderable:
		return true
	default:
		return isTruthy(v.scalar)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "Absent"
	case KindText:
		return fmt.Sprintf("Text(%q)", v.text)
	case KindScalar:
		return fmt.Sprintf("Scalar(%v)", v.scalar)
	case KindRenderable:
		return fmt.Sprintf("Renderable(%T)", v.renderable)
	case KindCollection:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "Collection[" + strings.Join(parts, ", ") + "]"
	default:
		return "Unknown"
	}
}

// isTruthy is the truthiness of a scalar host value.
func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, _ := toFloat64(v)
		return f != 0
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// toFloat64 converts numeric host values to float64.
func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
