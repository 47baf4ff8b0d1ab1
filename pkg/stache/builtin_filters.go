package stache

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// registerBuiltinFilters registers the built-in filters
func registerBuiltinFilters(registry *DefaultFilterRegistry) {
	builtins := builtinRegistry{registry}
	registerStringFilters(builtins)
	registerValueFilters(builtins)
	registerNumberFilters(builtins)
	registerVariadicFilters(builtins)
	registerDateFilters(builtins)
}

// builtinRegistry registers value and variadic built-ins so that their
// arguments arrive with string filter applications already rendered.
type builtinRegistry struct {
	*DefaultFilterRegistry
}

func (r builtinRegistry) RegisterFilter(name string, f Filter) error {
	switch fn := f.(type) {
	case FilterFunc:
		f = FilterFunc(func(v Value) (Value, error) {
			flat, err := flattenRendering(v)
			if err != nil {
				return Absent(), NewFilterError(name, []Value{v}, err.Error())
			}
			return fn(flat)
		})
	case VariadicFunc:
		f = VariadicFunc(func(args []Value) (Value, error) {
			flat := make([]Value, len(args))
			for i, arg := range args {
				v, err := flattenRendering(arg)
				if err != nil {
					return Absent(), NewFilterError(name, args, err.Error())
				}
				flat[i] = v
			}
			return fn(flat)
		})
	}
	return r.DefaultFilterRegistry.RegisterFilter(name, f)
}

func registerStringFilters(registry builtinRegistry) {
	// cases.Caser keeps state, so a new one is built per call
	registry.RegisterFilter("uppercase", StringFunc(func(s string) string {
		return cases.Upper(language.Und).String(s)
	}))
	registry.RegisterFilter("lowercase", StringFunc(func(s string) string {
		return cases.Lower(language.Und).String(s)
	}))
	registry.RegisterFilter("capitalized", StringFunc(func(s string) string {
		return cases.Title(language.Und).String(s)
	}))
	registry.RegisterFilter("trim", StringFunc(strings.TrimSpace))
	registry.RegisterFilter("escapeURL", StringFunc(url.QueryEscape))
}

func registerValueFilters(registry builtinRegistry) {
	registry.RegisterFilter("isEmpty", FilterFunc(func(v Value) (Value, error) {
		return Scalar(isEmptyValue(v)), nil
	}))

	// isBlank is isEmpty that also accepts whitespace-only text
	registry.RegisterFilter("isBlank", FilterFunc(func(v Value) (Value, error) {
		if s, ok := v.Str(); ok {
			return Scalar(strings.TrimSpace(s) == ""), nil
		}
		return Scalar(isEmptyValue(v)), nil
	}))

	registry.RegisterFilter("length", FilterFunc(func(v Value) (Value, error) {
		switch v.Kind() {
		case KindAbsent:
			return Scalar(0), nil
		case KindText:
			return Scalar(utf8.RuneCountInString(v.text)), nil
		case KindCollection:
			return Scalar(len(v.items)), nil
		case KindScalar:
			rv := reflect.ValueOf(v.scalar)
			if rv.Kind() == reflect.Map {
				return Scalar(rv.Len()), nil
			}
			return Scalar(utf8.RuneCountInString(FormatValue(v.scalar))), nil
		}
		return Absent(), NewFilterError("length", []Value{v}, "value has no length")
	}))

	registry.RegisterFilter("first", FilterFunc(func(v Value) (Value, error) {
		switch v.Kind() {
		case KindCollection:
			if len(v.items) == 0 {
				return Absent(), nil
			}
			return v.items[0], nil
		case KindText:
			r, size := utf8.DecodeRuneInString(v.text)
			if size == 0 {
				return Absent(), nil
			}
			return Text(string(r)), nil
		}
		return Absent(), nil
	}))

	registry.RegisterFilter("last", FilterFunc(func(v Value) (Value, error) {
		switch v.Kind() {
		case KindCollection:
			if len(v.items) == 0 {
				return Absent(), nil
			}
			return v.items[len(v.items)-1], nil
		case KindText:
			r, size := utf8.DecodeLastRuneInString(v.text)
			if size == 0 {
				return Absent(), nil
			}
			return Text(string(r)), nil
		}
		return Absent(), nil
	}))
}

func registerNumberFilters(registry builtinRegistry) {
	registry.RegisterFilter("integer", numberFilter("integer", func(f float64) Value {
		return Scalar(int(f))
	}))
	registry.RegisterFilter("decimal", numberFilter("decimal", func(f float64) Value {
		return Scalar(f)
	}))
	registry.RegisterFilter("round", numberFilter("round", func(f float64) Value {
		return Scalar(int(math.Round(f)))
	}))
	registry.RegisterFilter("floor", numberFilter("floor", func(f float64) Value {
		return Scalar(int(math.Floor(f)))
	}))
	registry.RegisterFilter("ceil", numberFilter("ceil", func(f float64) Value {
		return Scalar(int(math.Ceil(f)))
	}))

	registry.RegisterFilter("bytes", numberFilter("bytes", func(f float64) Value {
		if f < 0 {
			return Text("-" + humanize.Bytes(uint64(-f)))
		}
		return Text(humanize.Bytes(uint64(f)))
	}))

	registry.RegisterFilter("comma", FilterFunc(func(v Value) (Value, error) {
		if v.IsAbsent() {
			return Absent(), nil
		}
		f, err := toNumber(v)
		if err != nil {
			return Absent(), NewFilterError("comma", []Value{v}, err.Error())
		}
		if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return Text(humanize.Comma(int64(f))), nil
		}
		return Text(humanize.Commaf(f)), nil
	}))

	registry.RegisterFilter("ordinal", numberFilter("ordinal", func(f float64) Value {
		return Text(humanize.Ordinal(int(f)))
	}))
}

// numberFilter builds a value filter that converts its input to a number
// first. Absent input stays absent.
func numberFilter(name string, fn func(float64) Value) Filter {
	return FilterFunc(func(v Value) (Value, error) {
		if v.IsAbsent() {
			return Absent(), nil
		}
		f, err := toNumber(v)
		if err != nil {
			return Absent(), NewFilterError(name, []Value{v}, err.Error())
		}
		return fn(f), nil
	})
}

func registerVariadicFilters(registry builtinRegistry) {
	// concat joins collections into one collection and anything else into text
	registry.RegisterFilter("concat", VariadicFunc(func(args []Value) (Value, error) {
		allCollections := true
		for _, arg := range args {
			if arg.Kind() != KindCollection {
				allCollections = false
				break
			}
		}
		if allCollections {
			var items []Value
			for _, arg := range args {
				items = append(items, arg.items...)
			}
			return Collection(items...), nil
		}

		var b strings.Builder
		for _, arg := range args {
			b.WriteString(valueText(arg))
		}
		return Text(b.String()), nil
	}))

	registry.RegisterFilter("join", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("join", args, 1, 2); err != nil {
			return Absent(), err
		}
		if args[0].IsAbsent() {
			return Text(""), nil
		}
		if args[0].Kind() != KindCollection {
			return Absent(), NewFilterError("join", args, "first argument must be a collection")
		}
		separator := ""
		if len(args) > 1 {
			separator = valueText(args[1])
		}
		parts := make([]string, 0, len(args[0].items))
		for _, item := range args[0].items {
			if !item.IsAbsent() {
				parts = append(parts, valueText(item))
			}
		}
		return Text(strings.Join(parts, separator)), nil
	}))

	registry.RegisterFilter("coalesce", VariadicFunc(func(args []Value) (Value, error) {
		for _, arg := range args {
			if !isEmptyValue(arg) {
				return arg, nil
			}
		}
		return Absent(), nil
	}))

	registry.RegisterFilter("default", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("default", args, 2, 2); err != nil {
			return Absent(), err
		}
		if args[0].Truthy() {
			return args[0], nil
		}
		return args[1], nil
	}))

	registry.RegisterFilter("replace", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("replace", args, 3, 3); err != nil {
			return Absent(), err
		}
		text := valueText(args[0])
		if args[1].IsAbsent() {
			return Text(text), nil
		}
		return Text(strings.ReplaceAll(text, valueText(args[1]), valueText(args[2]))), nil
	}))

	registry.RegisterFilter("contains", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("contains", args, 2, 2); err != nil {
			return Absent(), err
		}
		haystack, needle := args[0], valueText(args[1])
		switch haystack.Kind() {
		case KindAbsent:
			return Scalar(false), nil
		case KindText:
			return Scalar(strings.Contains(haystack.text, needle)), nil
		case KindCollection:
			for _, item := range haystack.items {
				if valueText(item) == needle {
					return Scalar(true), nil
				}
			}
			return Scalar(false), nil
		}
		return Absent(), NewFilterError("contains", args, "first argument must be a collection or text")
	}))

	// sum adds the items of a single collection argument, or all arguments
	registry.RegisterFilter("sum", VariadicFunc(func(args []Value) (Value, error) {
		items := args
		if len(args) == 1 && args[0].Kind() == KindCollection {
			items = args[0].items
		}

		var total float64
		hasFloat := false
		for _, item := range items {
			if item.IsAbsent() {
				continue
			}
			f, err := toNumber(item)
			if err != nil {
				return Absent(), NewFilterError("sum", args, fmt.Sprintf("cannot convert %s to number", item))
			}
			total += f
			switch x := item.Interface().(type) {
			case float32, float64:
				hasFloat = true
			case string:
				hasFloat = hasFloat || strings.Contains(x, ".")
			}
		}
		if !hasFloat && total == math.Trunc(total) {
			return Scalar(int(total)), nil
		}
		return Scalar(total), nil
	}))

	registry.RegisterFilter("format", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("format", args, 1, -1); err != nil {
			return Absent(), err
		}
		if args[0].IsAbsent() {
			return Absent(), nil
		}
		values := make([]interface{}, len(args)-1)
		for i, arg := range args[1:] {
			values[i] = arg.Interface()
		}
		return Text(fmt.Sprintf(valueText(args[0]), values...)), nil
	}))

	registry.RegisterFilter("jsonpath", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("jsonpath", args, 2, 2); err != nil {
			return Absent(), err
		}
		doc, ok := args[0].Str()
		if !ok {
			raw, err := json.Marshal(args[0].Interface())
			if err != nil {
				return Absent(), NewFilterError("jsonpath", args, err.Error())
			}
			doc = string(raw)
		}
		if !gjson.Valid(doc) {
			return Absent(), NewFilterError("jsonpath", args, "invalid JSON document")
		}
		result := gjson.Get(doc, valueText(args[1]))
		if !result.Exists() {
			return Absent(), nil
		}
		return ValueOf(result.Value()), nil
	}))

	registry.RegisterFilter("satisfies", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("satisfies", args, 2, 2); err != nil {
			return Absent(), err
		}
		version, err := semver.NewVersion(valueText(args[0]))
		if err != nil {
			return Absent(), NewFilterError("satisfies", args, err.Error())
		}
		constraint, err := semver.NewConstraint(valueText(args[1]))
		if err != nil {
			return Absent(), NewFilterError("satisfies", args, err.Error())
		}
		return Scalar(constraint.Check(version)), nil
	}))
}

func expectArgs(name string, args []Value, minArgs, maxArgs int) error {
	if len(args) < minArgs {
		return NewFilterError(name, args, fmt.Sprintf("expects at least %d arguments, got %d", minArgs, len(args)))
	}
	if maxArgs >= 0 && len(args) > maxArgs {
		return NewFilterError(name, args, fmt.Sprintf("expects at most %d arguments, got %d", maxArgs, len(args)))
	}
	return nil
}

// flattenRendering replaces a pending rendering, such as the result of a
// string filter, with the text it renders to outside any tag. Collections
// are flattened item by item. Other values are returned unchanged.
func flattenRendering(v Value) (Value, error) {
	switch v.Kind() {
	case KindRenderable:
		r, err := RenderValue(v, nil, NewContext(nil, nil))
		if err != nil {
			return Absent(), fmt.Errorf("rendering argument: %w", err)
		}
		return Text(r.Text), nil
	case KindCollection:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			flat, err := flattenRendering(item)
			if err != nil {
				return Absent(), err
			}
			items[i] = flat
		}
		return Collection(items...), nil
	}
	return v, nil
}

// valueText is the plain text of a value outside any tag. Pending
// renderings have no text until flattened.
func valueText(v Value) string {
	switch v.Kind() {
	case KindText:
		return v.text
	case KindScalar:
		return FormatValue(v.scalar)
	case KindCollection:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = valueText(item)
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

func isEmptyValue(v Value) bool {
	switch v.Kind() {
	case KindAbsent:
		return true
	case KindText:
		return v.text == ""
	case KindCollection:
		return len(v.items) == 0
	case KindRenderable:
		return false
	default:
		return !isTruthy(v.scalar)
	}
}

// toNumber converts a numeric, text or boolean value to float64
func toNumber(v Value) (float64, error) {
	switch v.Kind() {
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", v.text)
		}
		return f, nil
	case KindScalar:
		if f, ok := toFloat64(v.scalar); ok {
			return f, nil
		}
		if b, ok := v.scalar.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("cannot convert %T to number", v.scalar)
	}
	return 0, fmt.Errorf("cannot convert %s value to number", v.Kind())
}
