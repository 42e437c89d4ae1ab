package graph

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error codes for graph store operations.
type ErrorCode string

const (
	// ErrCodeConnectionFailed is fatal for the run: the backend cannot
	// be reached and no query will succeed.
	ErrCodeConnectionFailed ErrorCode = "GRAPH_CONNECTION_FAILED"

	// ErrCodeQuerySyntax means the backend rejected the query before
	// executing it. Candidate for the repair loop.
	ErrCodeQuerySyntax ErrorCode = "GRAPH_QUERY_SYNTAX"

	// ErrCodeQueryRuntime means the query failed during execution.
	// Candidate for the repair loop.
	ErrCodeQueryRuntime ErrorCode = "GRAPH_QUERY_RUNTIME"

	ErrCodeInvalidConfig ErrorCode = "GRAPH_INVALID_CONFIG"
	ErrCodeStateExport   ErrorCode = "GRAPH_STATE_EXPORT_FAILED"
)

// Error is a structured error for graph store operations. It carries the
// query that caused the failure so the repair loop can feed it back to
// the model together with the backend's complaint.
type Error struct {
	Code      ErrorCode
	Message   string
	Cause     error
	Query     string
	Retryable bool
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by error code.
func (e *Error) Is(target error) bool {
	var graphErr *Error
	if errors.As(target, &graphErr) {
		return e.Code == graphErr.Code
	}
	return false
}

// WithQuery attaches the offending query. Returns the error for chaining.
func (e *Error) WithQuery(query string) *Error {
	e.Query = query
	return e
}

// NewConnectionError creates a connection failure error. Connection
// failures end the run rather than entering the repair loop.
func NewConnectionError(message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeConnectionFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewSyntaxError creates an error for queries the backend rejected as
// malformed.
func NewSyntaxError(message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeQuerySyntax,
		Message: message,
		Cause:   cause,
	}
}

// NewRuntimeError creates an error for queries that failed during
// execution.
func NewRuntimeError(message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeQueryRuntime,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidConfig,
		Message: message,
	}
}

// IsRepairable reports whether the failed query is worth sending back to
// the model for another attempt. Only syntax and runtime query failures
// qualify; connection loss is fatal.
func IsRepairable(err error) bool {
	var graphErr *Error
	if !errors.As(err, &graphErr) {
		return false
	}
	return graphErr.Code == ErrCodeQuerySyntax || graphErr.Code == ErrCodeQueryRuntime
}

// FailureDetail extracts the message the repair prompt should show the
// model. For graph errors this is the structured message plus cause;
// other errors render as-is.
func FailureDetail(err error) string {
	if err == nil {
		return ""
	}
	var graphErr *Error
	if errors.As(err, &graphErr) {
		return graphErr.Error()
	}
	return err.Error()
}
