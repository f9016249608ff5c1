package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an engine error for callers that need a machine-readable
// outcome (HTTP handlers, clients retrying on upstream failures).
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeInvalidState Code = "invalid_state"
	CodeUpstream     Code = "upstream_error"
	CodePersistence  Code = "persistence_error"
)

// Cause narrows an upstream error to the collaborator step that failed.
type Cause string

const (
	CauseQuoteFailed      Cause = "quote_failed"
	CauseBuildFailed      Cause = "build_failed"
	CauseSlippageExceeded Cause = "slippage_exceeded"
	CauseRPCUnreachable   Cause = "rpc_unreachable"
)

type Error struct {
	Code    Code
	Cause   Cause
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func upstream(cause Cause, err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodeUpstream, Cause: cause, Message: fmt.Sprintf(format, args...), Err: err}
}

func persistence(err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodePersistence, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the engine code from err, or empty if err is not ours.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// CauseOf extracts the upstream sub-cause from err, or empty.
func CauseOf(err error) Cause {
	var e *Error
	if errors.As(err, &e) {
		return e.Cause
	}
	return ""
}

// HTTPStatus maps engine error codes onto response status codes. Validation
// and state errors are the caller's fault; upstream and persistence failures
// are ours or a collaborator's.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	case CodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
