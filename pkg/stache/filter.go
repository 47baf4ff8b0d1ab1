package stache

// Filter transforms one template value into another. {{ f(x) }} applies
// the filter bound to f to the value of x.
//
// The error return is the failure channel of the filter implementation.
// The engine propagates it as is and never wraps or inspects it.
type Filter interface {
	Apply(v Value) (Value, error)
}

// VariadicFilter is a Filter invoked once per call expression with the
// whole ordered argument list, as in {{ f(a, b, c) }}. Checking the
// number of arguments is left to the filter.
type VariadicFilter interface {
	Filter
	ApplyArgs(args []Value) (Value, error)
}

// FilterKind is the invocation shape a filter was built for.
type FilterKind int

const (
	FilterKindValue FilterKind = iota
	FilterKindString
	FilterKindVariadic
)

func (k FilterKind) String() string {
	switch k {
	case FilterKindValue:
		return "value"
	case FilterKindString:
		return "string"
	case FilterKindVariadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of f. Filters that do not come from one of the
// adapters in this package are value filters unless they implement
// VariadicFilter.
func KindOf(f Filter) FilterKind {
	switch f.(type) {
	case StringFilterFunc:
		return FilterKindString
	case VariadicFilter:
		return FilterKindVariadic
	default:
		return FilterKindValue
	}
}

// FilterFunc adapts a plain value transformation to Filter.
type FilterFunc func(v Value) (Value, error)

// Apply calls f(v).
func (f FilterFunc) Apply(v Value) (Value, error) {
	return f(v)
}

// NewFilter returns a value filter that calls fn.
func NewFilter(fn func(v Value) (Value, error)) Filter {
	return FilterFunc(fn)
}

// StringFilterFunc is a filter that transforms the rendering of its
// input rather than the input itself.
//
// Applying it does not render anything: the rendering of the input only
// exists once the enclosing tag renders, with a tag and a context. Apply
// therefore returns a Renderable which, when rendered, renders the input
// the way the tag would have rendered it unfiltered (before HTML
// escaping), calls the function on that text, and renders the result
// through the default rendering again. The result may be text, any
// other value, or another Renderable such as a second filtered value.
type StringFilterFunc func(s string) (Value, error)

// Apply returns a deferred rendering of v through f.
func (f StringFilterFunc) Apply(v Value) (Value, error) {
	return RenderableValue(&filteredRendering{input: v, transform: f}), nil
}

// NewStringFilter returns a string filter that calls fn.
func NewStringFilter(fn func(s string) (Value, error)) Filter {
	return StringFilterFunc(fn)
}

// StringFunc returns a string filter for a string to string function.
func StringFunc(fn func(s string) string) Filter {
	return StringFilterFunc(func(s string) (Value, error) {
		return Text(fn(s)), nil
	})
}

// filteredRendering is a pending string filter application: one input
// value rendered through one transformation, in a context supplied later.
type filteredRendering struct {
	input     Value
	transform StringFilterFunc
}

func (r *filteredRendering) Render(tag *Tag, ctx *Context) (Rendering, error) {
	rendering, err := RenderValue(r.input, tag, ctx)
	if err != nil {
		return Rendering{}, err
	}

	if debugEnabled() {
		GetLogger().WithField("tag", tag.String()).Debug("applying string filter")
	}

	result, err := r.transform(rendering.Text)
	if err != nil {
		return Rendering{}, err
	}
	return RenderValue(result, tag, ctx)
}

// VariadicFunc adapts a function of the ordered argument list to
// VariadicFilter.
type VariadicFunc func(args []Value) (Value, error)

// Apply calls f with a one-element argument list.
func (f VariadicFunc) Apply(v Value) (Value, error) {
	return f([]Value{v})
}

// ApplyArgs calls f with args.
func (f VariadicFunc) ApplyArgs(args []Value) (Value, error) {
	return f(args)
}

// NewVariadicFilter returns a variadic filter that calls fn.
func NewVariadicFilter(fn func(args []Value) (Value, error)) VariadicFilter {
	return VariadicFunc(fn)
}
