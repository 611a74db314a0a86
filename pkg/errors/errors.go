package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrorCode identifies the class of an application error
type ErrorCode int

// NonFieldErrors is the key used for cross-field validation messages
const NonFieldErrors = "non_field_errors"

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode           `json:"-"`
	Message string              `json:"detail,omitempty"`
	Fields  map[string][]string `json:"-"`
	Err     error               `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg = fmt.Sprintf("invalid fields: %v", keys)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code onto an HTTP status
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// HasField reports whether the error carries a message for field.
func (e *AppError) HasField(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// NotFound builds a 404 error for resource, e.g. NotFound("Patient").
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found.", resource),
	}
}

// Validation builds a single field-scoped validation error.
func Validation(field, message string) *AppError {
	return ValidationFields(map[string][]string{field: {message}})
}

// ValidationFields builds a validation error carrying several field messages.
func ValidationFields(fields map[string][]string) *AppError {
	return &AppError{
		Code:   ErrValidation,
		Fields: fields,
	}
}

// NonField builds a validation error not tied to a single field.
func NonField(message string) *AppError {
	return Validation(NonFieldErrors, message)
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an *AppError with the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// FieldErrors accumulates field-scoped validation messages.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Err returns nil when no messages were recorded.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return ValidationFields(f)
}
