package stache

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func callBuiltin(t *testing.T, name string, args ...Value) (Value, error) {
	t.Helper()
	f, ok := GetDefaultFilterRegistry().GetFilter(name)
	if !ok {
		t.Fatalf("built-in %s not registered", name)
	}
	return Invoke(name, f, args)
}

func renderText(t *testing.T, v Value) string {
	t.Helper()
	r, err := RenderValue(v, nil, NewContext(nil, nil))
	if err != nil {
		t.Fatalf("RenderValue() error = %v", err)
	}
	return r.Text
}

func TestBuiltinFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		args   []Value
		want   string
	}{
		{"uppercase", "uppercase", []Value{Text("héllo")}, "HÉLLO"},
		{"lowercase", "lowercase", []Value{Text("ÀB")}, "àb"},
		{"capitalized", "capitalized", []Value{Text("hello wORLD")}, "Hello World"},
		{"trim", "trim", []Value{Text("  x \n")}, "x"},
		{"escapeURL", "escapeURL", []Value{Text("a b&c")}, "a+b%26c"},
		{"isEmpty on empty text", "isEmpty", []Value{Text("")}, "true"},
		{"isEmpty on zero", "isEmpty", []Value{Scalar(0)}, "true"},
		{"isEmpty on list", "isEmpty", []Value{Collection(Text("a"))}, "false"},
		{"isBlank on spaces", "isBlank", []Value{Text("   ")}, "true"},
		{"isBlank on absent", "isBlank", []Value{Absent()}, "true"},
		{"length of absent", "length", []Value{Absent()}, "0"},
		{"length of map", "length", []Value{Scalar(map[string]int{"a": 1})}, "1"},
		{"first of text", "first", []Value{Text("éa")}, "é"},
		{"last of list", "last", []Value{Collection(Text("a"), Text("z"))}, "z"},
		{"last of empty list", "last", []Value{Collection()}, ""},
		{"integer from text", "integer", []Value{Text("42.9")}, "42"},
		{"decimal from int", "decimal", []Value{Scalar(3)}, "3"},
		{"round", "round", []Value{Scalar(2.5)}, "3"},
		{"floor", "floor", []Value{Scalar(-1.5)}, "-2"},
		{"ceil", "ceil", []Value{Text("1.1")}, "2"},
		{"bytes", "bytes", []Value{Scalar(82854982)}, "83 MB"},
		{"comma float", "comma", []Value{Scalar(1234.5)}, "1,234.5"},
		{"ordinal", "ordinal", []Value{Scalar(11)}, "11th"},
		{"concat collections", "concat", []Value{Collection(Text("a")), Collection(Text("b"))}, "ab"},
		{"join without separator", "join", []Value{Collection(Text("a"), Absent(), Text("b"))}, "ab"},
		{"join absent", "join", []Value{Absent(), Text(",")}, ""},
		{"coalesce", "coalesce", []Value{Absent(), Text(""), Text("x"), Text("y")}, "x"},
		{"default keeps truthy", "default", []Value{Text("a"), Text("b")}, "a"},
		{"replace", "replace", []Value{Text("a-b-c"), Text("-"), Text("+")}, "a+b+c"},
		{"replace absent pattern", "replace", []Value{Text("a-b"), Absent(), Text("+")}, "a-b"},
		{"contains in list", "contains", []Value{Collection(Scalar(1), Scalar(2)), Text("2")}, "true"},
		{"contains in text", "contains", []Value{Text("haystack"), Text("st")}, "true"},
		{"contains absent", "contains", []Value{Absent(), Text("x")}, "false"},
		{"sum of text numbers", "sum", []Value{Collection(Text("1"), Text("2"))}, "3"},
		{"format", "format", []Value{Text("%s=%03d"), Text("n"), Scalar(7)}, "n=007"},
		{"jsonpath array", "jsonpath", []Value{Text(`{"a":[1,2,3]}`), Text("a.#")}, "3"},
		{"jsonpath missing", "jsonpath", []Value{Text(`{"a":1}`), Text("b")}, ""},
		{"satisfies", "satisfies", []Value{Text("v2.1.0"), Text("^2.0")}, "true"},
		{"satisfies false", "satisfies", []Value{Text("1.9.9"), Text(">= 2")}, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callBuiltin(t, tt.filter, tt.args...)
			if err != nil {
				t.Fatalf("%s error = %v", tt.filter, err)
			}
			if text := renderText(t, got); text != tt.want {
				t.Errorf("%s = %q, want %q", tt.filter, text, tt.want)
			}
		})
	}
}

func TestBuiltinFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		args   []Value
	}{
		{"integer from word", "integer", []Value{Text("abc")}},
		{"join on text", "join", []Value{Text("abc")}},
		{"default arity", "default", []Value{Text("a")}},
		{"replace arity", "replace", []Value{Text("a"), Text("b")}},
		{"contains in number", "contains", []Value{Scalar(3), Text("3")}},
		{"sum of words", "sum", []Value{Text("a"), Text("b")}},
		{"jsonpath invalid document", "jsonpath", []Value{Text("{"), Text("a")}},
		{"satisfies invalid version", "satisfies", []Value{Text("not-a-version"), Text(">1")}},
		{"satisfies invalid constraint", "satisfies", []Value{Text("1.0.0"), Text(">= foo")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callBuiltin(t, tt.filter, tt.args...)
			if err == nil {
				t.Fatalf("%s succeeded, want error", tt.filter)
			}
			if !IsFilterError(err) {
				t.Errorf("%s error = %v (%T), want a FilterError", tt.filter, err, err)
			}
		})
	}
}

func TestNumberFiltersKeepAbsent(t *testing.T) {
	for _, name := range []string{"integer", "decimal", "round", "floor", "ceil", "bytes", "comma", "ordinal"} {
		got, err := callBuiltin(t, name, Absent())
		if err != nil {
			t.Errorf("%s(absent) error = %v", name, err)
			continue
		}
		if !got.IsAbsent() {
			t.Errorf("%s(absent) = %v, want Absent", name, got)
		}
	}
}

func TestBuiltinsSeeStringFilterOutput(t *testing.T) {
	upper, _ := GetDefaultFilterRegistry().GetFilter("uppercase")
	shout := func(s string) Value {
		v, err := upper.Apply(Text(s))
		if err != nil {
			t.Fatalf("uppercase(%q) error = %v", s, err)
		}
		return v
	}

	got, err := callBuiltin(t, "join", Collection(shout("a"), shout("b")), Text("-"))
	if err != nil {
		t.Fatalf("join() error = %v", err)
	}
	if s := renderText(t, got); s != "A-B" {
		t.Errorf("join(uppercase items) = %q, want %q", s, "A-B")
	}

	got, err = callBuiltin(t, "contains", shout("abc"), Text("B"))
	if err != nil {
		t.Fatalf("contains() error = %v", err)
	}
	if !got.Truthy() {
		t.Error("contains(uppercase(abc), B) = false, want true")
	}

	broken := RenderableValue(RenderFunc(func(*Tag, *Context) (Rendering, error) {
		return Rendering{}, errors.New("broken")
	}))
	_, err = callBuiltin(t, "length", broken)
	if !IsFilterError(err) {
		t.Errorf("length(failing rendering) error = %v, want a FilterError", err)
	}
}

func TestFuncFilter(t *testing.T) {
	repeat, err := FuncFilter(strings.Repeat)
	if err != nil {
		t.Fatalf("FuncFilter() error = %v", err)
	}
	if KindOf(repeat) != FilterKindVariadic {
		t.Errorf("KindOf(FuncFilter) = %v, want variadic", KindOf(repeat))
	}

	got, err := Invoke("repeat", repeat, []Value{Text("ab"), Scalar(2)})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if s, _ := got.Str(); s != "abab" {
		t.Errorf("repeat(ab, 2) = %v, want abab", got)
	}

	if _, err := Invoke("repeat", repeat, []Value{Text("ab")}); err == nil {
		t.Error("repeat(ab) succeeded with a missing argument")
	}

	upper, _ := GetDefaultFilterRegistry().GetFilter("uppercase")
	shouted, err := upper.Apply(Text("ab"))
	if err != nil {
		t.Fatalf("uppercase() error = %v", err)
	}
	got, err = Invoke("repeat", repeat, []Value{shouted, Scalar(2)})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if s, _ := got.Str(); s != "ABAB" {
		t.Errorf("repeat(uppercase(ab), 2) = %v, want ABAB", got)
	}
}

func TestFuncFilterConversions(t *testing.T) {
	errSentinel := errors.New("sentinel")
	tests := []struct {
		name    string
		fn      interface{}
		args    []Value
		want    string
		wantErr error
	}{
		{
			name: "variadic parameters",
			fn: func(sep string, parts ...string) string {
				return strings.Join(parts, sep)
			},
			args: []Value{Text("-"), Text("a"), Text("b")},
			want: "a-b",
		},
		{
			name: "number from text",
			fn:   func(n int) int { return n * 2 },
			args: []Value{Text("21")},
			want: "42",
		},
		{
			name: "slice from collection",
			fn:   func(xs []int) int { return len(xs) },
			args: []Value{Collection(Scalar(1), Scalar(2), Scalar(3))},
			want: "3",
		},
		{
			name: "string from number",
			fn:   func(s string) string { return "<" + s + ">" },
			args: []Value{Scalar(7)},
			want: "<7>",
		},
		{
			name: "interface parameter",
			fn:   func(v interface{}) string { return fmt.Sprintf("%T", v) },
			args: []Value{Scalar(1.5)},
			want: "float64",
		},
		{
			name: "error result",
			fn: func(s string) (string, error) {
				return "", errSentinel
			},
			args:    []Value{Text("x")},
			wantErr: errSentinel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FuncFilter(tt.fn)
			if err != nil {
				t.Fatalf("FuncFilter() error = %v", err)
			}
			got, err := Invoke(tt.name, f, tt.args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("Invoke() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if text := renderText(t, got); text != tt.want {
				t.Errorf("Invoke() = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestFuncFilterRejects(t *testing.T) {
	tests := []struct {
		name string
		fn   interface{}
	}{
		{"not a function", "nope"},
		{"nil function", (func())(nil)},
		{"no results", func() {}},
		{"second result not an error", func() (int, int) { return 0, 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FuncFilter(tt.fn); err == nil {
				t.Error("FuncFilter() succeeded, want error")
			}
		})
	}
}

func TestFuncFilterRecoversPanics(t *testing.T) {
	f, err := FuncFilter(func(xs []string) string { return xs[5] })
	if err != nil {
		t.Fatalf("FuncFilter() error = %v", err)
	}
	if _, err := Invoke("boom", f, []Value{Collection(Text("a"))}); err == nil {
		t.Error("Invoke() succeeded, want the panic as an error")
	}
}

func TestRegisterSprigFilters(t *testing.T) {
	registry := NewDefaultFilterRegistry()
	builtinJoin, _ := registry.GetFilter("join")

	added, err := RegisterSprigFilters(registry)
	if err != nil {
		t.Fatalf("RegisterSprigFilters() error = %v", err)
	}
	if added == 0 {
		t.Fatal("RegisterSprigFilters() added no filters")
	}

	if _, ok := registry.GetFilter("env"); ok {
		t.Error("sprig env function must not be registered")
	}
	if f, _ := registry.GetFilter("join"); fmt.Sprintf("%p", f) != fmt.Sprintf("%p", builtinJoin) {
		t.Error("sprig replaced the built-in join filter")
	}

	tmpl, err := parseTemplate("sprig", `{{snakecase(name)}} {{join(items, "+")}}`, DefaultConfig(), registry)
	if err != nil {
		t.Fatalf("parseTemplate() error = %v", err)
	}
	got, err := tmpl.Render(TemplateData{"name": "HelloWorld", "items": []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := "hello_world a+b"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestSprigFiltersSeeStringFilterOutput(t *testing.T) {
	registry := NewDefaultFilterRegistry()
	if _, err := RegisterSprigFilters(registry); err != nil {
		t.Fatalf("RegisterSprigFilters() error = %v", err)
	}

	tmpl, err := parseTemplate("sprig", `{{repeat(2, uppercase(a))}} {{trimPrefix("X", uppercase(a))}} {{snakecase(capitalized(b))}}`, DefaultConfig(), registry)
	if err != nil {
		t.Fatalf("parseTemplate() error = %v", err)
	}
	got, err := tmpl.Render(TemplateData{"a": "xy", "b": "hello world"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := "XYXY Y hello_world"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}
