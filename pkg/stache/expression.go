package stache

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ExpressionNode represents a node in the expression AST
type ExpressionNode interface {
	// String returns the canonical source form of the expression
	String() string
	Evaluate(ctx *Context) (Value, error)
}

// LiteralNode represents a literal value (string, number, boolean, nil)
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	default:
		return FormatValue(v)
	}
}

func (n *LiteralNode) Evaluate(ctx *Context) (Value, error) {
	return ValueOf(n.Value), nil
}

// VariableNode represents a name resolved against the context stack
type VariableNode struct {
	Name string
}

func (n *VariableNode) String() string {
	return n.Name
}

func (n *VariableNode) Evaluate(ctx *Context) (Value, error) {
	return EvaluateVariable(n.Name, ctx)
}

// ImplicitIteratorNode represents "." - the value on top of the stack
type ImplicitIteratorNode struct{}

func (n *ImplicitIteratorNode) String() string {
	return "."
}

func (n *ImplicitIteratorNode) Evaluate(ctx *Context) (Value, error) {
	return ctx.Top(), nil
}

// FieldAccessNode represents field access (obj.field)
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	if _, ok := n.Object.(*ImplicitIteratorNode); ok {
		return "." + n.Field
	}
	return n.Object.String() + "." + n.Field
}

func (n *FieldAccessNode) Evaluate(ctx *Context) (Value, error) {
	obj, err := n.Object.Evaluate(ctx)
	if err != nil {
		return Absent(), err
	}
	v, ok := lookupField(obj, n.Field)
	if !ok && ctx != nil && ctx.strict {
		return Absent(), NewEvaluationError(n.String(), ErrUndefinedVariable)
	}
	return v, nil
}

// FilterCallNode represents a filter call: name(arg, ...)
type FilterCallNode struct {
	Name string
	Args []ExpressionNode
}

func (n *FilterCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

// Evaluate resolves the filter, evaluates the arguments left to right and
// invokes the filter with them.
func (n *FilterCallNode) Evaluate(ctx *Context) (Value, error) {
	filter, err := ctx.LookupFilter(n.Name)
	if err != nil {
		return Absent(), NewEvaluationError(n.String(), err)
	}

	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(ctx)
		if err != nil {
			return Absent(), err
		}
		args[i] = val
	}

	return Invoke(n.Name, filter, args)
}

// ExpressionToken represents a token in an expression
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenDot
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenEOF
)

var (
	identifierRegex  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)
	numberRegex      = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?`)
	stringRegex      = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	singleQuoteRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
)

// TokenizeExpression tokenizes an expression string
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

	for pos < len(expr) {
		if expr[pos] == ' ' || expr[pos] == '\t' || expr[pos] == '\n' || expr[pos] == '\r' {
			pos++
			continue
		}

		remaining := expr[pos:]

		if match := identifierRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{Type: ExprTokenIdentifier, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := numberRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{Type: ExprTokenNumber, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := stringRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := singleQuoteRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\'`, `'`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		var tokenType ExpressionTokenType
		switch expr[pos] {
		case '.':
			tokenType = ExprTokenDot
		case '(':
			tokenType = ExprTokenLeftParen
		case ')':
			tokenType = ExprTokenRightParen
		case ',':
			tokenType = ExprTokenComma
		default:
			return nil, NewParseError("unexpected character", string(expr[pos]), pos)
		}
		tokens = append(tokens, ExpressionToken{Type: tokenType, Value: string(expr[pos]), Pos: pos})
		pos++
	}

	tokens = append(tokens, ExpressionToken{Type: ExprTokenEOF, Pos: pos})
	return tokens, nil
}

// ParseExpression parses an expression string into an AST. The whole
// input must be consumed.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &ExpressionParser{tokens: tokens}
	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	if token := parser.current(); token.Type != ExprTokenEOF {
		return nil, NewParseError("unexpected trailing token", token.Value, token.Pos)
	}
	return node, nil
}

// ExpressionParser parses expressions into AST nodes
type ExpressionParser struct {
	tokens []ExpressionToken
	pos    int
}

func (p *ExpressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ExpressionParser) parseExpression() (ExpressionNode, error) {
	return p.parseFieldAccess()
}

// parseFieldAccess parses field access chains (obj.field.other)
func (p *ExpressionParser) parseFieldAccess() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == ExprTokenDot {
		p.advance()
		if p.current().Type != ExprTokenIdentifier {
			token := p.current()
			return nil, NewParseError("expected identifier after '.'", token.Value, token.Pos)
		}
		left = &FieldAccessNode{Object: left, Field: p.current().Value}
		p.advance()
	}

	return left, nil
}

// parsePrimary parses literals, names, filter calls, "." and
// parenthesized expressions
func (p *ExpressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		if floatVal, err := strconv.ParseFloat(token.Value, 64); err == nil {
			return &LiteralNode{Value: floatVal}, nil
		}
		return nil, NewParseError("invalid number", token.Value, token.Pos)

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case ExprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true":
			return &LiteralNode{Value: true}, nil
		case "false":
			return &LiteralNode{Value: false}, nil
		case "null", "nil":
			return &LiteralNode{Value: nil}, nil
		}
		if p.current().Type == ExprTokenLeftParen {
			return p.parseFilterCall(token.Value)
		}
		return &VariableNode{Name: token.Value}, nil

	case ExprTokenDot:
		p.advance()
		// ".name" looks name up on the top of the stack only
		if p.current().Type == ExprTokenIdentifier {
			field := p.current().Value
			p.advance()
			return &FieldAccessNode{Object: &ImplicitIteratorNode{}, Field: field}, nil
		}
		return &ImplicitIteratorNode{}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, NewParseError("expected ')' after expression", p.current().Value, p.current().Pos)
		}
		p.advance()
		return expr, nil

	case ExprTokenEOF:
		return nil, NewParseError("unexpected end of expression", "", token.Pos)

	default:
		return nil, NewParseError("unexpected token", token.Value, token.Pos)
	}
}

// parseFilterCall parses the argument list of a filter call
func (p *ExpressionParser) parseFilterCall(name string) (ExpressionNode, error) {
	p.advance() // consume '('

	var args []ExpressionNode

	if p.current().Type == ExprTokenRightParen {
		p.advance()
		return &FilterCallNode{Name: name, Args: args}, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case ExprTokenComma:
			p.advance()
			continue
		case ExprTokenRightParen:
			p.advance()
			return &FilterCallNode{Name: name, Args: args}, nil
		}

		token := p.current()
		return nil, NewParseError("expected ',' or ')' in filter arguments", token.Value, token.Pos)
	}
}
