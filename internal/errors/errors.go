// Package errors provides structured error types for weft.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for weft.
const (
	// Entity errors
	CodeMissionNotFound Code = "MISSION_NOT_FOUND"
	CodeTodoNotFound    Code = "TODO_NOT_FOUND"
	CodeRequestNotFound Code = "REQUEST_NOT_FOUND"

	// Command errors
	CodeCommandFailed Code = "COMMAND_FAILED"
	CodeCreateFailed  Code = "CREATE_FAILED"
	CodeDeleteFailed  Code = "DELETE_FAILED"

	// Transport errors
	CodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"
	CodeBackendRejected    Code = "BACKEND_REJECTED"

	// Payload errors
	CodeAnalysisParse Code = "ANALYSIS_PARSE_FAILED"
	CodeInvalidEvent  Code = "INVALID_EVENT"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryTimeout
	CategoryUnavailable
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeMissionNotFound:    CategoryNotFound,
	CodeTodoNotFound:       CategoryNotFound,
	CodeRequestNotFound:    CategoryNotFound,
	CodeCommandFailed:      CategoryInternal,
	CodeCreateFailed:       CategoryInternal,
	CodeDeleteFailed:       CategoryInternal,
	CodeBackendUnavailable: CategoryUnavailable,
	CodeBackendRejected:    CategoryBadRequest,
	CodeAnalysisParse:      CategoryBadRequest,
	CodeInvalidEvent:       CategoryBadRequest,
	CodeConfigInvalid:      CategoryBadRequest,
	CodeConfigMissing:      CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	case CategoryTimeout:
		return 504
	case CategoryUnavailable:
		return 503
	default:
		return 500
	}
}

// WeftError is the structured error type for weft.
type WeftError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *WeftError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *WeftError) Unwrap() error {
	return e.Cause
}

// Category returns the error category for HTTP status mapping.
func (e *WeftError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *WeftError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *WeftError) MarshalJSON() ([]byte, error) {
	type alias WeftError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a WeftError with the same code.
func (e *WeftError) Is(target error) bool {
	t, ok := target.(*WeftError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *WeftError) WithCause(err error) *WeftError {
	return &WeftError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrMissionNotFound returns an error when a mission doesn't exist locally.
func ErrMissionNotFound(id string) *WeftError {
	return &WeftError{
		Code: CodeMissionNotFound,
		What: fmt.Sprintf("mission %s not found", id),
		Why:  "No mission with this ID exists in the mirrored state",
	}
}

// ErrTodoNotFound returns an error when a todo doesn't exist locally.
func ErrTodoNotFound(id string) *WeftError {
	return &WeftError{
		Code: CodeTodoNotFound,
		What: fmt.Sprintf("todo %s not found", id),
		Why:  "No todo with this ID exists in the mirrored state",
	}
}

// ErrRequestNotFound returns an error when an analysis request is unknown.
func ErrRequestNotFound(id string) *WeftError {
	return &WeftError{
		Code: CodeRequestNotFound,
		What: fmt.Sprintf("analysis request %s not found", id),
	}
}

// ErrCreateFailed returns an error when entity creation fails.
func ErrCreateFailed(kind string, cause error) *WeftError {
	return &WeftError{
		Code:  CodeCreateFailed,
		What:  fmt.Sprintf("failed to create %s", kind),
		Cause: cause,
	}
}

// ErrDeleteFailed returns an error when a delete was rolled back.
func ErrDeleteFailed(kind, id string, cause error) *WeftError {
	return &WeftError{
		Code:  CodeDeleteFailed,
		What:  fmt.Sprintf("failed to delete %s %s", kind, id),
		Why:   "The entity was restored from the pre-delete snapshot",
		Cause: cause,
	}
}

// ErrBackendRejected returns an error carrying the backend's own code
// and message for a rejected command.
func ErrBackendRejected(code Code, what string) *WeftError {
	if code == "" {
		code = CodeBackendRejected
	}
	return &WeftError{
		Code: code,
		What: what,
	}
}

// ErrAnalysisParse returns an error when an analysis payload is malformed.
func ErrAnalysisParse(missionID string, cause error) *WeftError {
	return &WeftError{
		Code:  CodeAnalysisParse,
		What:  fmt.Sprintf("analysis result for mission %s could not be parsed", missionID),
		Why:   "The request keeps its terminal status but produced no suggestions",
		Cause: cause,
	}
}
