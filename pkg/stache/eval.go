package stache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apex/log"
)

// TemplateData is the usual shape of the data a template renders.
type TemplateData map[string]interface{}

// EvaluateVariable resolves a single name against the context stack.
func EvaluateVariable(name string, ctx *Context) (Value, error) {
	v, ok := ctx.Lookup(name)
	if !ok && ctx != nil && ctx.strict {
		return Absent(), NewEvaluationError(name, ErrUndefinedVariable)
	}

	if debugEnabled() {
		GetLogger().WithFields(log.Fields{
			"name":  name,
			"found": ok,
			"kind":  v.Kind().String(),
		}).Debug("variable evaluated")
	}

	return v, nil
}

// Invoke calls filter with the argument values of one call expression.
//
// Variadic filters receive the whole list. Other filters take exactly one
// argument and are applied to it; any other count is rejected here with
// an EvaluationError. Errors returned by the filter are passed through
// unchanged.
func Invoke(name string, filter Filter, args []Value) (Value, error) {
	kind := KindOf(filter)

	if debugEnabled() {
		GetLogger().WithFields(log.Fields{
			"filter": name,
			"kind":   kind.String(),
			"args":   len(args),
		}).Debug("invoking filter")
	}

	if len(args) == 0 {
		return Absent(), NewEvaluationError(name+"()", ErrNoArguments)
	}

	if kind == FilterKindVariadic {
		if variadic, ok := filter.(VariadicFilter); ok {
			return variadic.ApplyArgs(args)
		}
	}

	if len(args) > 1 {
		return Absent(), NewEvaluationError(name, fmt.Errorf(
			"%w: %s filter %s takes one argument, got %d", ErrTooManyArguments, kind, name, len(args)))
	}

	return filter.Apply(args[0])
}

// FormatValue converts a scalar host value to its string representation
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 drops trailing zeros and float noise
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
