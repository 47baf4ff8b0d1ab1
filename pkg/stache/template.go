package stache

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
)

// node is an element of a parsed template
type node interface {
	render(ctx *Context, b *strings.Builder) error
}

type textNode struct {
	text string
}

func (n *textNode) render(_ *Context, b *strings.Builder) error {
	b.WriteString(n.text)
	return nil
}

// tagNode renders one tag: a variable, a section or an inverted section
type tagNode struct {
	tag  *Tag
	expr ExpressionNode
}

func (n *tagNode) render(ctx *Context, b *strings.Builder) error {
	v, err := n.expr.Evaluate(ctx)
	if err != nil {
		return err
	}

	r, err := RenderValue(v, n.tag, ctx)
	if err != nil {
		return err
	}

	if n.tag.Kind == TagVariable && n.tag.Escaped && !r.HTMLSafe {
		b.WriteString(EscapeHTML(r.Text))
	} else {
		b.WriteString(r.Text)
	}
	return nil
}

func renderNodes(nodes []node, ctx *Context, b *strings.Builder) error {
	for _, n := range nodes {
		if err := n.render(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Template is a parsed template. It is immutable and safe for concurrent
// rendering.
type Template struct {
	name    string
	nodes   []node
	filters FilterRegistry
	strict  bool
}

// Name returns the name the template was parsed with
func (t *Template) Name() string {
	return t.name
}

// Render renders the template with data
func (t *Template) Render(data interface{}) (string, error) {
	ctx := NewContext(data, t.filters)
	ctx.strict = t.strict
	return t.RenderContext(ctx)
}

// RenderContext renders the template against an existing context stack
func (t *Template) RenderContext(ctx *Context) (string, error) {
	if debugEnabled() {
		GetLogger().WithFields(log.Fields{
			"template": t.name,
			"nodes":    len(t.nodes),
		}).Debug("rendering template")
	}

	var b strings.Builder
	if err := renderNodes(t.nodes, ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Execute renders the template with data and writes the result to w
func (t *Template) Execute(w io.Writer, data interface{}) error {
	out, err := t.Render(data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Parse parses a template using the global configuration and the default
// filter registry
func Parse(name, src string) (*Template, error) {
	return parseTemplate(name, src, GetGlobalConfig(), GetDefaultFilterRegistry())
}

func parseTemplate(name, src string, config *Config, filters FilterRegistry) (*Template, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &templateParser{maxDepth: config.MaxRenderDepth}
	nodes, err := p.parse(tokens)
	if err != nil {
		return nil, err
	}

	if debugEnabled() {
		GetLogger().WithFields(log.Fields{
			"template": name,
			"tokens":   len(tokens),
		}).Debug("template parsed")
	}

	return &Template{
		name:    name,
		nodes:   nodes,
		filters: filters,
		strict:  config.StrictMode,
	}, nil
}

// sectionFrame is a section whose close tag has not been seen yet
type sectionFrame struct {
	tag   *Tag
	expr  ExpressionNode
	nodes []node
}

type templateParser struct {
	maxDepth int
	stack    []*sectionFrame
}

func (p *templateParser) parse(tokens []Token) ([]node, error) {
	root := &sectionFrame{}
	current := root

	for _, token := range tokens {
		switch token.Type {
		case TokenText:
			current.nodes = append(current.nodes, &textNode{text: token.Value})

		case TokenComment:

		case TokenVariable, TokenUnescaped:
			expr, err := parseTagExpression(token)
			if err != nil {
				return nil, err
			}
			tag := &Tag{
				Kind:       TagVariable,
				Expression: token.Value,
				Escaped:    token.Type == TokenVariable,
				Line:       token.Line,
				Column:     token.Column,
			}
			current.nodes = append(current.nodes, &tagNode{tag: tag, expr: expr})

		case TokenSection, TokenInverted:
			expr, err := parseTagExpression(token)
			if err != nil {
				return nil, err
			}
			kind := TagSection
			if token.Type == TokenInverted {
				kind = TagInverted
			}
			frame := &sectionFrame{
				tag: &Tag{
					Kind:       kind,
					Expression: token.Value,
					Escaped:    true,
					Line:       token.Line,
					Column:     token.Column,
					maxDepth:   p.maxDepth,
				},
				expr: expr,
			}
			p.stack = append(p.stack, current)
			current = frame

		case TokenClose:
			if current == root {
				return nil, NewTemplateError(
					fmt.Sprintf("unexpected close tag {{/%s}}", token.Value), token.Line, token.Column)
			}
			if token.Value != "" && !sameExpression(token.Value, current.tag.Expression) {
				return nil, NewTemplateError(
					fmt.Sprintf("close tag {{/%s}} does not match {{%s}} opened at line %d",
						token.Value, current.tag.Expression, current.tag.Line),
					token.Line, token.Column)
			}
			current.tag.content = current.nodes
			closed := &tagNode{tag: current.tag, expr: current.expr}
			current = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			current.nodes = append(current.nodes, closed)
		}
	}

	if current != root {
		return nil, NewTemplateError(
			fmt.Sprintf("unclosed section {{%s}}", current.tag.Expression), current.tag.Line, current.tag.Column)
	}
	return root.nodes, nil
}

func parseTagExpression(token Token) (ExpressionNode, error) {
	expr, err := ParseExpression(token.Value)
	if err != nil {
		return nil, NewTemplateError(fmt.Sprintf("invalid expression %q: %v", token.Value, err), token.Line, token.Column)
	}
	return expr, nil
}

// sameExpression compares two tag expressions ignoring formatting
func sameExpression(a, b string) bool {
	ea, errA := ParseExpression(a)
	eb, errB := ParseExpression(b)
	if errA == nil && errB == nil {
		return ea.String() == eb.String()
	}
	return strings.Join(strings.Fields(a), "") == strings.Join(strings.Fields(b), "")
}
