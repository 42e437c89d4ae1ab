package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for framework errors.
type ErrorCode string

// Configuration error codes
const (
	ErrConfigLoadFailed       ErrorCode = "CONFIG_LOAD_FAILED"
	ErrConfigParseFailed      ErrorCode = "CONFIG_PARSE_FAILED"
	ErrConfigValidationFailed ErrorCode = "CONFIG_VALIDATION_FAILED"
	ErrConfigNotFound         ErrorCode = "CONFIG_NOT_FOUND"
)

// Run error codes
const (
	ErrRunInvalidTask     ErrorCode = "RUN_INVALID_TASK"
	ErrRunSnapshotFailed  ErrorCode = "RUN_SNAPSHOT_FAILED"
	ErrRunAttachmentLost  ErrorCode = "RUN_ATTACHMENT_LOST"
	ErrRunBudgetExhausted ErrorCode = "RUN_BUDGET_EXHAUSTED"
)

// KGError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type KGError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *KGError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *KGError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a KGError with the same Code.
func (e *KGError) Is(target error) bool {
	var kgErr *KGError
	if errors.As(target, &kgErr) {
		return e.Code == kgErr.Code
	}
	return false
}

// NewError creates a new non-retryable KGError with the given code and message.
func NewError(code ErrorCode, message string) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable KGError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable KGError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// WrapRetryableError creates a retryable KGError that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *KGError {
	return &KGError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether err carries a retryable hint anywhere in its chain.
func IsRetryable(err error) bool {
	var kgErr *KGError
	if errors.As(err, &kgErr) {
		return kgErr.Retryable
	}
	return false
}

// CodeOf extracts the error code from err, or an empty code if err is not a KGError.
func CodeOf(err error) ErrorCode {
	var kgErr *KGError
	if errors.As(err, &kgErr) {
		return kgErr.Code
	}
	return ""
}
