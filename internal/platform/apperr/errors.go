// Package apperr defines the error taxonomy shared by the domain services
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Code string

const (
	CodeNotFound           Code = "not_found"
	CodePreconditionFailed Code = "precondition_failed"
	CodeValidation         Code = "validation_failed"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
)

// Error is a classified failure. Fields carries per-field messages for
// validation failures.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func PreconditionFailed(message string) *Error {
	return &Error{Code: CodePreconditionFailed, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Validation builds a validation failure. A nil or empty fields map is
// allowed for form-level messages.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

var statusByCode = map[Code]int{
	CodeNotFound:           http.StatusNotFound,
	CodePreconditionFailed: http.StatusConflict,
	CodeValidation:         http.StatusUnprocessableEntity,
	CodeForbidden:          http.StatusForbidden,
	CodeConflict:           http.StatusConflict,
	CodeInternal:           http.StatusInternalServerError,
}

// Body is the JSON error envelope returned to API clients.
type Body struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HTTPError converts err into an *echo.HTTPError. Unclassified errors keep
// their cause as Internal so the logger can report it, but the client only
// sees a generic message.
func HTTPError(err error) *echo.HTTPError {
	var appErr *Error
	if !errors.As(err, &appErr) {
		he := echo.NewHTTPError(http.StatusInternalServerError, Body{Code: CodeInternal, Message: "internal server error"})
		he.Internal = err
		return he
	}
	return echo.NewHTTPError(statusByCode[appErr.Code], Body{
		Code:    appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}
