package stache

import (
	"strings"
	"testing"
)

func TestEngineRenderString(t *testing.T) {
	engine := New()
	got, err := engine.RenderString("Hello {{capitalized(name)}}!", TemplateData{"name": "ada"})
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "Hello Ada!" {
		t.Errorf("RenderString() = %q, want %q", got, "Hello Ada!")
	}
}

func TestEngineFiltersAreIsolated(t *testing.T) {
	a := New()
	b := New()

	if err := a.RegisterFilter("shout", StringFunc(func(s string) string { return s + "!" })); err != nil {
		t.Fatalf("RegisterFilter() error = %v", err)
	}

	if got, err := a.RenderString("{{shout(x)}}", TemplateData{"x": "hi"}); err != nil || got != "hi!" {
		t.Errorf("engine a RenderString() = %q, %v", got, err)
	}
	if _, err := b.RenderString("{{shout(x)}}", TemplateData{"x": "hi"}); err == nil {
		t.Error("engine b sees a filter registered on engine a")
	}
	if _, ok := GetDefaultFilterRegistry().GetFilter("shout"); ok {
		t.Error("engine filter leaked into the default registry")
	}
}

func TestNewWithOptions(t *testing.T) {
	engine, err := NewWithOptions(
		WithConfig(&Config{MaxRenderDepth: 5, LogLevel: "warn"}),
		WithCache(3),
		WithFilter("twice", NewVariadicFilter(func(args []Value) (Value, error) {
			return Text(strings.Repeat(valueText(args[0]), 2)), nil
		})),
	)
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}

	if engine.Config().MaxRenderDepth != 5 || engine.Config().CacheMaxSize != 3 {
		t.Errorf("Config() = %+v", engine.Config())
	}

	got, err := engine.RenderString("{{twice(x)}}", TemplateData{"x": "ab"})
	if err != nil || got != "abab" {
		t.Errorf("RenderString() = %q, %v, want abab", got, err)
	}

	found := false
	for _, info := range engine.Filters().ListFilters() {
		if info.Name == "twice" {
			found = info.Kind == FilterKindVariadic
		}
	}
	if !found {
		t.Error("twice not listed as a variadic filter")
	}
}

func TestNewWithOptionsErrors(t *testing.T) {
	if _, err := NewWithOptions(WithFilter("bad-name", StringFunc(strings.ToUpper))); err == nil {
		t.Error("NewWithOptions() accepted an invalid filter name")
	}
	if _, err := NewWithOptions(WithConfig(&Config{LogLevel: "loud"})); err == nil {
		t.Error("NewWithOptions() accepted an invalid configuration")
	}
}

func TestEngineWithSprig(t *testing.T) {
	engine, err := NewWithOptions(WithSprig())
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}
	got, err := engine.RenderString(`{{upper(repeat(2, "ab"))}} {{uppercase(name)}}`, TemplateData{"name": "x"})
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "ABAB X" {
		t.Errorf("RenderString() = %q, want %q", got, "ABAB X")
	}
}

func TestEngineParseReader(t *testing.T) {
	engine := New()
	tmpl, err := engine.ParseReader("reader", strings.NewReader("{{#items}}{{.}}{{/items}}"))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	got, err := tmpl.Render(TemplateData{"items": []int{1, 2, 3}})
	if err != nil || got != "123" {
		t.Errorf("Render() = %q, %v, want 123", got, err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
