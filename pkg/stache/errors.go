// Package stache provides custom error types for better error handling and reporting.
package stache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFilter is returned when a filter call names nothing.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrNotAFilter is returned when a filter call names a value that is not a Filter.
	ErrNotAFilter = errors.New("not a filter")
	// ErrNoArguments is returned for a filter call without arguments.
	ErrNoArguments = errors.New("filter call without arguments")
	// ErrTooManyArguments is returned when a non-variadic filter is called with several arguments.
	ErrTooManyArguments = errors.New("too many arguments")
	// ErrUndefinedVariable is returned in strict mode for names that do not resolve.
	ErrUndefinedVariable = errors.New("undefined variable")
)

// TemplateError represents an error in the template structure or syntax
type TemplateError struct {
	Message string
	Line    int
	Column  int
}

func (e *TemplateError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("template error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	} else if e.Line > 0 {
		return fmt.Sprintf("template error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

// NewTemplateError creates a new template error with position information
func NewTemplateError(message string, line, column int) error {
	return &TemplateError{
		Message: message,
		Line:    line,
		Column:  column,
	}
}

// ParseError represents an error while parsing a tag expression
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at position %d near '%s': %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

// NewParseError creates a new parse error
func NewParseError(message, token string, position int) error {
	return &ParseError{
		Message:  message,
		Token:    token,
		Position: position,
	}
}

// EvaluationError represents an error during expression evaluation
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{
		Expression: expression,
		Cause:      cause,
	}
}

// FilterError is returned by built-in filters that reject their input
type FilterError struct {
	Filter  string
	Args    []Value
	Message string
}

func (e *FilterError) Error() string {
	argsStr := make([]string, len(e.Args))
	for i, arg := range e.Args {
		argsStr[i] = arg.String()
	}
	return fmt.Sprintf("filter error in '%s(%s)': %s", e.Filter, strings.Join(argsStr, ", "), e.Message)
}

// NewFilterError creates a new filter error
func NewFilterError(filter string, args []Value, message string) error {
	return &FilterError{
		Filter:  filter,
		Args:    args,
		Message: message,
	}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors
func (m *MultiError) Errors() []error {
	return m.errors
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// IsTemplateError checks if an error is a template error
func IsTemplateError(err error) bool {
	var target *TemplateError
	return errors.As(err, &target)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsEvaluationError checks if an error is an evaluation error
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// IsFilterError checks if an error is a filter error
func IsFilterError(err error) bool {
	var target *FilterError
	return errors.As(err, &target)
}
