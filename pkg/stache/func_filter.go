package stache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/Masterminds/sprig/v3"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FuncFilter turns an arbitrary Go function into a variadic filter. The
// call arguments are converted to the parameter types of fn; a trailing
// error result is returned as the filter error.
func FuncFilter(fn interface{}) (Filter, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("FuncFilter expects a function, got %T", fn)
	}

	rt := rv.Type()
	switch {
	case rt.NumOut() == 1:
	case rt.NumOut() == 2 && rt.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("function %s must return one value, optionally followed by an error", rt)
	}

	return VariadicFunc(func(args []Value) (result Value, err error) {
		in, err := convertArgs(rt, args)
		if err != nil {
			return Absent(), err
		}

		defer func() {
			if r := recover(); r != nil {
				result, err = Absent(), fmt.Errorf("function %s panicked: %v", rt, r)
			}
		}()
		out := rv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return Absent(), out[1].Interface().(error)
		}
		return ValueOf(out[0].Interface()), nil
	}), nil
}

func convertArgs(rt reflect.Type, args []Value) ([]reflect.Value, error) {
	numIn := rt.NumIn()
	if rt.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("expects at least %d arguments, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("expects %d arguments, got %d", numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var t reflect.Type
		if rt.IsVariadic() && i >= numIn-1 {
			t = rt.In(numIn - 1).Elem()
		} else {
			t = rt.In(i)
		}
		v, err := convertArg(arg, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(arg Value, t reflect.Type) (reflect.Value, error) {
	arg, err := flattenRendering(arg)
	if err != nil {
		return reflect.Value{}, err
	}

	if t.Kind() == reflect.String && arg.Kind() != KindAbsent {
		return reflect.ValueOf(valueText(arg)).Convert(t), nil
	}

	x := arg.Interface()
	if x == nil {
		return reflect.Zero(t), nil
	}

	xv := reflect.ValueOf(x)
	if xv.Type().AssignableTo(t) {
		return xv, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		f, err := toNumber(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(arg.Truthy()), nil
	case reflect.Slice:
		if arg.Kind() != KindCollection {
			break
		}
		out := reflect.MakeSlice(t, len(arg.items), len(arg.items))
		for i, item := range arg.items {
			v, err := convertArg(item, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(v)
		}
		return out, nil
	}

	if xv.Type().ConvertibleTo(t) {
		return xv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", arg.Kind(), t)
}

// sprig functions that read the environment or the network
var excludedSprigFuncs = map[string]bool{
	"env":           true,
	"expandenv":     true,
	"getHostByName": true,
}

// RegisterSprigFilters registers the generic sprig function library as
// filters. Names already bound in registry are left alone. It returns the
// number of filters added.
func RegisterSprigFilters(registry FilterRegistry) (int, error) {
	funcs := sprig.GenericFuncMap()
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	added := 0
	for _, name := range names {
		if excludedSprigFuncs[name] || !isIdentifier(name) {
			continue
		}
		if _, exists := registry.GetFilter(name); exists {
			continue
		}
		filter, err := FuncFilter(funcs[name])
		if err != nil {
			// a few sprig helpers return several values
			continue
		}
		if err := registry.RegisterFilter(name, filter); err != nil {
			errs = append(errs, err)
			continue
		}
		added++
	}

	if debugEnabled() {
		GetLogger().WithField("count", added).Debug("sprig filters registered")
	}
	return added, errors.Join(errs...)
}
