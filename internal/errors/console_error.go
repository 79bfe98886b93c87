package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "notfound"
	CategoryConflict   Category = "conflict"
	CategoryConfirm    Category = "confirm"
	CategoryCLI        Category = "cli"
)

// ConsoleError is a structured error with a registry code and a hint.
type ConsoleError struct {
	// Code is a unique error identifier (e.g., "SC040").
	Code string

	// Category is the error type (config, validation, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of this occurrence.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Fields holds per-field messages for validation errors.
	Fields map[string]string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ConsoleError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ConsoleError) Unwrap() error {
	return e.Wrapped
}

// Is matches another ConsoleError with the same code.
func (e *ConsoleError) Is(target error) bool {
	t, ok := target.(*ConsoleError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *ConsoleError) WithDetail(d string) *ConsoleError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *ConsoleError) WithDetailf(format string, args ...any) *ConsoleError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ConsoleError) WithSuggestion(s string) *ConsoleError {
	e.Suggestion = s
	return e
}

// WithFields attaches per-field messages.
func (e *ConsoleError) WithFields(fields map[string]string) *ConsoleError {
	e.Fields = fields
	return e
}

// Wrap wraps another error.
func (e *ConsoleError) Wrap(err error) *ConsoleError {
	e.Wrapped = err
	return e
}

// New creates a ConsoleError from a registered error code.
func New(code string) *ConsoleError {
	template, ok := registry[code]
	if !ok {
		return &ConsoleError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ConsoleError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new ConsoleError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ConsoleError {
	return &ConsoleError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ConsoleError. Errors that already
// are ConsoleErrors are returned unchanged.
func FromError(err error, code string) *ConsoleError {
	if err == nil {
		return nil
	}
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// CategoryOf returns the category of the first ConsoleError in err's chain,
// or "" if there is none.
func CategoryOf(err error) Category {
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryConfirm:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
