package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

const (
	// Provider errors
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"

	// Model errors
	ErrModelNotFound        types.ErrorCode = "LLM_MODEL_NOT_FOUND"
	ErrModelContextExceeded types.ErrorCode = "LLM_MODEL_CONTEXT_EXCEEDED"

	// Request errors
	ErrInvalidRequest types.ErrorCode = "LLM_INVALID_REQUEST"
	ErrInvalidMessage types.ErrorCode = "LLM_INVALID_MESSAGE"

	// Completion errors
	ErrCompletionFailed    types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrContentFiltered     types.ErrorCode = "LLM_CONTENT_FILTERED"
	ErrResponseParseFailed types.ErrorCode = "LLM_RESPONSE_PARSE_FAILED"
	ErrEmptyResponse       types.ErrorCode = "LLM_EMPTY_RESPONSE"
	ErrTimeoutExceeded     types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrRetriesExhausted    types.ErrorCode = "LLM_RETRIES_EXHAUSTED"

	// Network errors
	ErrNetworkFailed types.ErrorCode = "LLM_NETWORK_FAILED"
)

// IsRetryable determines if an error is transient and may succeed on retry.
func IsRetryable(err error) bool {
	var kgErr *types.KGError
	if !errors.As(err, &kgErr) {
		return false
	}

	if kgErr.Retryable {
		return true
	}

	switch kgErr.Code {
	case ErrNetworkFailed, ErrProviderRateLimited, ErrProviderUnavailable, ErrTimeoutExceeded:
		return true
	default:
		return false
	}
}

// NewProviderNotFoundError creates an error for when a provider is not found
func NewProviderNotFoundError(providerName string) *types.KGError {
	return types.NewError(ErrProviderNotFound, "provider not found: "+providerName)
}

// NewProviderInitError wraps a provider construction failure
func NewProviderInitError(providerName string, cause error) *types.KGError {
	return types.WrapError(ErrProviderInitFailed, "failed to initialize provider: "+providerName, cause)
}

// NewEmptyResponseError creates an error for a completion with no choices
func NewEmptyResponseError(providerName string) *types.KGError {
	return types.NewError(ErrEmptyResponse, "provider returned an empty response: "+providerName)
}

// NewProviderUnavailableError creates a retryable error for a temporarily unavailable provider
func NewProviderUnavailableError(providerName string, cause error) *types.KGError {
	return &types.KGError{
		Code:      ErrProviderUnavailable,
		Message:   "provider temporarily unavailable: " + providerName,
		Retryable: true,
		Cause:     cause,
	}
}

// NewRateLimitError creates a retryable error for rate limiting
func NewRateLimitError(providerName string) *types.KGError {
	return &types.KGError{
		Code:      ErrProviderRateLimited,
		Message:   "rate limit exceeded for provider: " + providerName,
		Retryable: true,
	}
}

// NewProviderUnauthorizedError creates an unauthorized provider error
func NewProviderUnauthorizedError(providerName string, cause error) *types.KGError {
	return &types.KGError{
		Code:    ErrProviderUnauthorized,
		Message: fmt.Sprintf("provider %q authentication failed", providerName),
		Cause:   cause,
	}
}

// NewInvalidRequestError creates an error for invalid requests
func NewInvalidRequestError(message string) *types.KGError {
	return types.NewError(ErrInvalidRequest, message)
}

// NewCompletionError creates an error for completion failures
func NewCompletionError(message string, cause error) *types.KGError {
	return types.WrapError(ErrCompletionFailed, message, cause)
}

// NewParseError creates an error for unparsable model output
func NewParseError(message string, cause error) *types.KGError {
	return types.WrapError(ErrResponseParseFailed, message, cause)
}

// NewNetworkError creates a retryable error for network failures
func NewNetworkError(message string, cause error) *types.KGError {
	return &types.KGError{
		Code:      ErrNetworkFailed,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewTimeoutError creates a retryable error for timeout failures
func NewTimeoutError(message string) *types.KGError {
	return &types.KGError{
		Code:      ErrTimeoutExceeded,
		Message:   message,
		Retryable: true,
	}
}

// TranslateError maps provider client errors onto the shared taxonomy
// based on message content, so retry behavior stays provider-agnostic.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var kgErr *types.KGError
	if errors.As(err, &kgErr) {
		return err
	}

	errMsg := err.Error()
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") || strings.Contains(lowerMsg, "api key"):
		return NewProviderUnauthorizedError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests"):
		return NewRateLimitError(provider)
	case strings.Contains(lowerMsg, "model") && (strings.Contains(lowerMsg, "not found") || strings.Contains(lowerMsg, "does not exist")):
		return types.WrapError(ErrModelNotFound, errMsg, err)
	case strings.Contains(lowerMsg, "context length") || strings.Contains(lowerMsg, "maximum context") || strings.Contains(lowerMsg, "context window"):
		return types.WrapError(ErrModelContextExceeded, errMsg, err)
	case strings.Contains(lowerMsg, "content filter") || strings.Contains(lowerMsg, "content policy"):
		return types.WrapError(ErrContentFiltered, errMsg, err)
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return NewTimeoutError(errMsg)
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return NewNetworkError(errMsg, err)
	case strings.Contains(lowerMsg, "context canceled"):
		return err
	default:
		return NewProviderUnavailableError(provider, err)
	}
}
