// Package apperror defines the error taxonomy shared by the service and HTTP layers.
//
// Services return *AppError values that wrap one of the sentinel errors below.
// The HTTP layer uses errors.Is on the sentinel to pick a status code and
// AppError.Message (or AppError.Fields) for the response body.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldError describes a single violated field rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

type AppError struct {
	Err     error        // actual error
	Message string       // Human-readable error message
	Field   string       // Optional: field causing the error
	Fields  []FieldError // Optional: every violated rule, for validation failures
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMsg is NotFound with a caller-chosen message.
func NotFoundMsg(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Invalid bundles every violated rule into one validation error.
// The message of the first violation doubles as the error string.
func Invalid(fields []FieldError) *AppError {
	msg := "validation failed"
	field := ""
	if len(fields) > 0 {
		msg = fields[0].Message
		field = fields[0].Field
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Field:   field,
		Fields:  fields,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when a request carries no usable identity.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidCredentials is the single login failure. The message is identical
// for an unknown email and a wrong password.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid Credentials",
	}
}
