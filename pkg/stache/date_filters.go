package stache

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultDateLayout is the layout of the date filter when none is given.
const DefaultDateLayout = "2006-01-02"

// Layouts tried, in order, when a date arrives as text
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

func registerDateFilters(registry builtinRegistry) {
	// date(value, layout?) formats a time with a Go layout
	registry.RegisterFilter("date", VariadicFunc(func(args []Value) (Value, error) {
		if err := expectArgs("date", args, 1, 2); err != nil {
			return Absent(), err
		}
		if args[0].IsAbsent() {
			return Absent(), nil
		}
		t, err := parseDate(args[0])
		if err != nil {
			return Absent(), NewFilterError("date", args, err.Error())
		}
		layout := DefaultDateLayout
		if len(args) == 2 {
			layout = valueText(args[1])
		}
		return Text(t.Format(layout)), nil
	}))

	// ago renders a time relative to now, as in "3 hours ago"
	registry.RegisterFilter("ago", NewFilter(func(v Value) (Value, error) {
		if v.IsAbsent() {
			return Absent(), nil
		}
		t, err := parseDate(v)
		if err != nil {
			return Absent(), NewFilterError("ago", []Value{v}, err.Error())
		}
		return Text(humanize.Time(t)), nil
	}))
}

// parseDate reads a time from a time value, a unix timestamp in seconds
// (milliseconds above 1e10) or text in one of dateLayouts.
func parseDate(v Value) (time.Time, error) {
	if v.Kind() == KindScalar {
		switch t := v.Scalar().(type) {
		case time.Time:
			return t, nil
		case *time.Time:
			if t != nil {
				return *t, nil
			}
		}
		if n, ok := toFloat64(v.Scalar()); ok {
			return fromUnix(int64(n)), nil
		}
	}

	if s, ok := v.Str(); ok && s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date %q", s)
	}

	return time.Time{}, fmt.Errorf("cannot use %s as a date", v)
}

func fromUnix(n int64) time.Time {
	if n > 1e10 || n < -1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
