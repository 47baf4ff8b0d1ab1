package stache

import (
	"fmt"
	"html"
	"strings"
)

// TagKind identifies the kind of a template tag.
type TagKind int

const (
	// TagVariable is {{ expr }}, {{{ expr }}} or {{& expr }}.
	TagVariable TagKind = iota
	// TagSection is {{# expr }}...{{/ expr }}.
	TagSection
	// TagInverted is {{^ expr }}...{{/ expr }}.
	TagInverted
)

func (k TagKind) String() string {
	switch k {
	case TagVariable:
		return "variable"
	case TagSection:
		return "section"
	case TagInverted:
		return "inverted section"
	default:
		return "unknown"
	}
}

// Tag identifies the tag being rendered. Renderables receive it so that
// they can render the way the tag expects, and sections expose their
// inner template through RenderContent.
type Tag struct {
	Kind       TagKind
	Expression string
	// Escaped is false for {{{ }}} and {{& }} tags.
	Escaped bool
	Line    int
	Column  int

	content  []node
	maxDepth int
}

func (t *Tag) String() string {
	if t == nil {
		return "<no tag>"
	}
	var opening, closing string
	switch t.Kind {
	case TagSection:
		opening, closing = "{{#", "}}"
	case TagInverted:
		opening, closing = "{{^", "}}"
	default:
		if t.Escaped {
			opening, closing = "{{", "}}"
		} else {
			opening, closing = "{{{", "}}}"
		}
	}
	return fmt.Sprintf("%s %s %s at line %d, column %d", opening, t.Expression, closing, t.Line, t.Column)
}

// RenderContent renders the inner template of a section tag against ctx.
// Variable tags have no content and render "".
func (t *Tag) RenderContent(ctx *Context) (Rendering, error) {
	if t == nil || len(t.content) == 0 {
		return Rendering{HTMLSafe: true}, nil
	}
	if t.maxDepth > 0 && ctx.Depth() > t.maxDepth {
		return Rendering{}, NewTemplateError(
			fmt.Sprintf("maximum render depth of %d exceeded", t.maxDepth), t.Line, t.Column)
	}

	var b strings.Builder
	if err := renderNodes(t.content, ctx, &b); err != nil {
		return Rendering{}, err
	}
	return Rendering{Text: b.String(), HTMLSafe: true}, nil
}

// Rendering is the text produced by a Renderable and whether that text is
// already HTML-safe.
type Rendering struct {
	Text     string
	HTMLSafe bool
}

// Renderable is anything that produces text for a tag. Building a
// Renderable must not render anything; rendering only happens in Render.
type Renderable interface {
	Render(tag *Tag, ctx *Context) (Rendering, error)
}

// RenderFunc adapts an ordinary function to Renderable.
type RenderFunc func(tag *Tag, ctx *Context) (Rendering, error)

// Render calls f(tag, ctx).
func (f RenderFunc) Render(tag *Tag, ctx *Context) (Rendering, error) {
	return f(tag, ctx)
}

// RenderValue is the default rendering of v for tag. A nil tag renders
// like a variable tag.
func RenderValue(v Value, tag *Tag, ctx *Context) (Rendering, error) {
	if tag != nil && tag.Kind == TagInverted {
		if v.Truthy() {
			return Rendering{HTMLSafe: true}, nil
		}
		return tag.RenderContent(ctx)
	}

	if v.kind == KindRenderable {
		return v.renderable.Render(tag, ctx)
	}

	if tag != nil && tag.Kind == TagSection {
		return renderSection(v, tag, ctx)
	}

	switch v.kind {
	case KindText:
		return Rendering{Text: v.text}, nil
	case KindScalar:
		return Rendering{Text: FormatValue(v.scalar)}, nil
	case KindCollection:
		return renderCollection(v.items, tag, ctx)
	default:
		return Rendering{}, nil
	}
}

func renderSection(v Value, tag *Tag, ctx *Context) (Rendering, error) {
	if !v.Truthy() {
		return Rendering{HTMLSafe: true}, nil
	}
	if v.kind != KindCollection {
		return tag.RenderContent(ctx.Push(v))
	}

	var b strings.Builder
	for _, item := range v.items {
		r, err := tag.RenderContent(ctx.Push(item))
		if err != nil {
			return Rendering{}, err
		}
		b.WriteString(r.Text)
	}
	return Rendering{Text: b.String(), HTMLSafe: true}, nil
}

// renderCollection concatenates item renderings. In escaping tags, items
// that disagree on HTML safety are reconciled by escaping the unsafe ones.
// Tags that do not escape output every item as rendered.
func renderCollection(items []Value, tag *Tag, ctx *Context) (Rendering, error) {
	renderings := make([]Rendering, 0, len(items))
	safe, unsafe := 0, 0
	for _, item := range items {
		r, err := RenderValue(item, tag, ctx)
		if err != nil {
			return Rendering{}, err
		}
		if r.HTMLSafe {
			safe++
		} else {
			unsafe++
		}
		renderings = append(renderings, r)
	}

	var b strings.Builder
	mixed := safe > 0 && unsafe > 0 && (tag == nil || tag.Escaped)
	for _, r := range renderings {
		if mixed && !r.HTMLSafe {
			b.WriteString(EscapeHTML(r.Text))
		} else {
			b.WriteString(r.Text)
		}
	}
	return Rendering{Text: b.String(), HTMLSafe: unsafe == 0 || mixed}, nil
}

// EscapeHTML escapes &, <, >, " and '.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
