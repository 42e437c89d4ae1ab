package tool

import (
	"context"
	"errors"
	"net"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

const (
	ErrToolNotFound         types.ErrorCode = "TOOL_NOT_FOUND"
	ErrToolAlreadyExists    types.ErrorCode = "TOOL_ALREADY_EXISTS"
	ErrToolInvalidInput     types.ErrorCode = "TOOL_INVALID_INPUT"
	ErrToolTransient        types.ErrorCode = "TOOL_TRANSIENT"
	ErrToolPermanent        types.ErrorCode = "TOOL_PERMANENT"
	ErrToolRetriesExhausted types.ErrorCode = "TOOL_RETRIES_EXHAUSTED"
)

// NewTransientError marks a tool failure as worth retrying.
func NewTransientError(message string, cause error) *types.KGError {
	return &types.KGError{
		Code:      ErrToolTransient,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewPermanentError marks a tool failure that will not improve on retry.
func NewPermanentError(message string, cause error) *types.KGError {
	return &types.KGError{
		Code:    ErrToolPermanent,
		Message: message,
		Cause:   cause,
	}
}

// IsTransient reports whether a tool failure should be retried. Tools
// can mark errors explicitly; timeouts and temporary network failures
// count as transient even when unmarked. Context cancellation is never
// retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var kgErr *types.KGError
	if errors.As(err, &kgErr) {
		return kgErr.Retryable || kgErr.Code == ErrToolTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
