// Package apierr defines the error taxonomy reported by the route synthesis
// engine. Every failure surfaced by a build is an *Error carrying a Code.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Code represents a machine-readable error code.
type Code string

const (
	CodeDirectoryNotFound       Code = "directory_not_found"
	CodeFileNotFound            Code = "file_not_found"
	CodeManifestNotFound        Code = "manifest_not_found"
	CodeCompile                 Code = "compile"
	CodeNoExportFound           Code = "no_export_found"
	CodeMultipleExport          Code = "multiple_export"
	CodeUnrecognizedExportShape Code = "unrecognized_export_shape"
	CodeDeclarationNotFound     Code = "declaration_not_found"
	CodeUnsupportedType         Code = "unsupported_type"
	CodeNestedPromise           Code = "nested_promise"
	CodeUnsupportedUnion        Code = "unsupported_union"
	CodeUnsupportedParameter    Code = "unsupported_parameter" // destructured or rest parameters
	CodeMissingRequiredFunction Code = "missing_required_function"
	CodeInvalidOptions          Code = "invalid_options"
	CodeCanceled                Code = "canceled"
	CodeInternal                Code = "internal"
	CodeUnavailable             Code = "unavailable" // no build has completed yet
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrDirectoryNotFound       = &Error{Code: CodeDirectoryNotFound}
	ErrFileNotFound            = &Error{Code: CodeFileNotFound}
	ErrManifestNotFound        = &Error{Code: CodeManifestNotFound}
	ErrCompile                 = &Error{Code: CodeCompile}
	ErrNoExportFound           = &Error{Code: CodeNoExportFound}
	ErrMultipleExport          = &Error{Code: CodeMultipleExport}
	ErrUnrecognizedExportShape = &Error{Code: CodeUnrecognizedExportShape}
	ErrDeclarationNotFound     = &Error{Code: CodeDeclarationNotFound}
	ErrUnsupportedType         = &Error{Code: CodeUnsupportedType}
	ErrNestedPromise           = &Error{Code: CodeNestedPromise}
	ErrUnsupportedUnion        = &Error{Code: CodeUnsupportedUnion}
	ErrUnsupportedParameter    = &Error{Code: CodeUnsupportedParameter}
	ErrMissingRequiredFunction = &Error{Code: CodeMissingRequiredFunction}
	ErrInvalidOptions          = &Error{Code: CodeInvalidOptions}
)

// Error is the error type returned by every stage of a build.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	// Function is the call alias of the exported function being synthesized
	// when the error occurred, if any.
	Function string         `json:"function,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Err      error          `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Function != "" {
		b.WriteString(" (in ")
		b.WriteString(e.Function)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new error.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new error with the given cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

// WithFunction returns a copy of the error attributed to the function alias.
// An error that is already attributed keeps its original alias.
func (e *Error) WithFunction(alias string) *Error {
	if e.Function != "" {
		return e
	}
	c := e.clone()
	c.Function = alias
	return c
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	c := e.clone()
	c.Details = details
	return c
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := e.clone()
	c.Details = merged
	return c
}

// Attribute attributes err to the function alias if it is an *Error.
// Other errors are wrapped as internal errors first.
func Attribute(err error, alias string) error {
	if err == nil {
		return nil
	}
	return From(err).WithFunction(alias)
}

// CodeOf returns the code of err, or the empty code if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// From maps an arbitrary error to an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeCanceled, err, err.Error())
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Namespace()] = msg
			messages = append(messages, ve.Namespace()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidOptions,
			Message: strings.Join(messages, "; "),
			Details: details,
			Err:     err,
		}
	}

	return Wrap(CodeInternal, err, err.Error())
}

// HTTPStatus maps a Code to an HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeDirectoryNotFound, CodeFileNotFound, CodeManifestNotFound:
		return http.StatusNotFound
	case CodeInvalidOptions:
		return http.StatusBadRequest
	case CodeCompile,
		CodeNoExportFound,
		CodeMultipleExport,
		CodeUnrecognizedExportShape,
		CodeDeclarationNotFound,
		CodeUnsupportedType,
		CodeNestedPromise,
		CodeUnsupportedUnion,
		CodeUnsupportedParameter,
		CodeMissingRequiredFunction:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "semver":
		return "must be a semantic version"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
