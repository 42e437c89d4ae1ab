package llm

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// RetryPolicy controls how failed LLM invocations are retried.
// Only errors classified as retryable by IsRetryable are attempted again.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first failure
	MaxRetries int

	// InitialBackoff is the delay before the first retry
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth of the delay
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// InvokeWithRetry calls fn until it succeeds, the error is permanent, the
// retry budget is exhausted, or the context is done. Backoff doubles per
// attempt with jitter and is capped at MaxBackoff.
func InvokeWithRetry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, operation string, fn func(ctx context.Context) (*CompletionResponse, error)) (*CompletionResponse, error) {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = DefaultRetryPolicy().InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = DefaultRetryPolicy().MaxBackoff
	}

	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			// Full jitter keeps concurrent retries from synchronizing.
			delay := time.Duration(rand.Int63n(int64(backoff)) + 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}

		resp, err := fn(ctx)
		if err == nil {
			if attempt > 0 && logger != nil {
				logger.Debug("llm invocation recovered",
					"operation", operation,
					"attempt", attempt+1)
			}
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}

		if logger != nil {
			logger.Warn("llm invocation failed, retrying",
				"operation", operation,
				"attempt", attempt+1,
				"max_attempts", policy.MaxRetries+1,
				"error", err)
		}
	}

	return nil, &types.KGError{
		Code:    ErrRetriesExhausted,
		Message: "llm retries exhausted for " + operation,
		Cause:   lastErr,
	}
}
