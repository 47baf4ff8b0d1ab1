package stache

import (
	"regexp"
	"strings"

	"github.com/apex/log"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenUnescaped
	TokenSection
	TokenInverted
	TokenClose
	TokenComment
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenUnescaped:
		return "unescaped"
	case TokenSection:
		return "section"
	case TokenInverted:
		return "inverted"
	case TokenClose:
		return "close"
	case TokenComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Token represents a parsed template token. Line and Column locate its
// first character, both starting at 1.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

var (
	// Triple mustaches are tried first so that {{{x}}} is not read as {{ {x }}.
	tokenRegex = regexp.MustCompile(`(?s)\{\{\{(.*?)\}\}\}|\{\{(.*?)\}\}`)
)

// Tokenize splits a template string into text and tag tokens
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	lastEnd := 0
	pos := newPositionTracker(input)

	logger := GetLogger()
	if debugEnabled() {
		logger.WithField("input_length", len(input)).Debug("starting tokenization")
	}

	matches := tokenRegex.FindAllStringSubmatchIndex(input, -1)
	for _, match := range matches {
		if match[0] > lastEnd {
			text := input[lastEnd:match[0]]
			if err := checkUnclosed(text, lastEnd, pos); err != nil {
				return nil, err
			}
			line, col := pos.at(lastEnd)
			tokens = append(tokens, Token{Type: TokenText, Value: text, Line: line, Column: col})
		}

		line, col := pos.at(match[0])
		var token Token
		if match[2] >= 0 {
			token = Token{Type: TokenUnescaped, Value: strings.TrimSpace(input[match[2]:match[3]])}
		} else {
			content := input[match[4]:match[5]]
			if strings.Contains(content, "{{") {
				return nil, NewTemplateError("unclosed tag", line, col)
			}
			token = parseToken(content)
			if token.Type == TokenText {
				token.Value = input[match[0]:match[1]]
			}
		}
		token.Line, token.Column = line, col

		switch token.Type {
		case TokenVariable, TokenUnescaped, TokenSection, TokenInverted:
			if token.Value == "" {
				return nil, NewTemplateError("empty tag", line, col)
			}
		}

		if debugEnabled() {
			logger.WithFields(log.Fields{
				"type":    token.Type.String(),
				"content": token.Value,
				"line":    line,
			}).Debug("found token")
		}
		tokens = append(tokens, token)
		lastEnd = match[1]
	}

	if lastEnd < len(input) {
		text := input[lastEnd:]
		if err := checkUnclosed(text, lastEnd, pos); err != nil {
			return nil, err
		}
		line, col := pos.at(lastEnd)
		tokens = append(tokens, Token{Type: TokenText, Value: text, Line: line, Column: col})
	}

	if debugEnabled() {
		logger.WithField("token_count", len(tokens)).Debug("tokenization complete")
	}

	return tokens, nil
}

// parseToken determines the type of a {{ }} tag from its sigil
func parseToken(content string) Token {
	content = strings.TrimSpace(content)
	if content == "" {
		return Token{Type: TokenText}
	}

	rest := strings.TrimSpace(content[1:])
	switch content[0] {
	case '!':
		return Token{Type: TokenComment, Value: rest}
	case '#':
		return Token{Type: TokenSection, Value: rest}
	case '^':
		return Token{Type: TokenInverted, Value: rest}
	case '/':
		return Token{Type: TokenClose, Value: rest}
	case '&':
		return Token{Type: TokenUnescaped, Value: rest}
	default:
		return Token{Type: TokenVariable, Value: content}
	}
}

func checkUnclosed(text string, offset int, pos *positionTracker) error {
	if idx := strings.Index(text, "{{"); idx >= 0 {
		line, col := pos.at(offset + idx)
		return NewTemplateError("unclosed tag", line, col)
	}
	return nil
}

// FindTemplateTokens finds all template tags in a string
// This is a utility function for debugging and analysis
func FindTemplateTokens(input string) []string {
	matches := tokenRegex.FindAllString(input, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// positionTracker converts byte offsets to line and column numbers
type positionTracker struct {
	lineStarts []int
}

func newPositionTracker(input string) *positionTracker {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &positionTracker{lineStarts: starts}
}

func (p *positionTracker) at(offset int) (line, column int) {
	lo, hi := 0, len(p.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - p.lineStarts[lo] + 1
}
