package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestInvokeWithRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	resp, err := InvokeWithRetry(context.Background(), nil, fastPolicy(3), "test", func(ctx context.Context) (*CompletionResponse, error) {
		calls++
		if calls < 3 {
			return nil, NewRateLimitError("openai")
		}
		return &CompletionResponse{Message: NewAssistantMessage("ok")}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
	assert.Equal(t, 3, calls)
}

func TestInvokeWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := InvokeWithRetry(context.Background(), nil, fastPolicy(5), "test", func(ctx context.Context) (*CompletionResponse, error) {
		calls++
		return nil, NewInvalidRequestError("bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrInvalidRequest, types.CodeOf(err))
}

func TestInvokeWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := InvokeWithRetry(context.Background(), nil, fastPolicy(2), "test", func(ctx context.Context) (*CompletionResponse, error) {
		calls++
		return nil, NewNetworkError("connection reset", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, ErrRetriesExhausted, types.CodeOf(err))

	var kgErr *types.KGError
	require.ErrorAs(t, err, &kgErr)
	assert.Equal(t, ErrNetworkFailed, types.CodeOf(kgErr.Cause))
}

func TestInvokeWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := InvokeWithRetry(ctx, nil, fastPolicy(10), "test", func(ctx context.Context) (*CompletionResponse, error) {
		calls++
		cancel()
		return nil, NewNetworkError("flaky", nil)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", NewRateLimitError("openai"), true},
		{"network", NewNetworkError("reset", nil), true},
		{"timeout", NewTimeoutError("deadline"), true},
		{"unavailable", NewProviderUnavailableError("openai", nil), true},
		{"unauthorized", NewProviderUnauthorizedError("openai", nil), false},
		{"invalid request", NewInvalidRequestError("bad"), false},
		{"plain error", assert.AnError, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantCode types.ErrorCode
	}{
		{"auth", "invalid api key provided", ErrProviderUnauthorized},
		{"rate limit", "429 too many requests", ErrProviderRateLimited},
		{"timeout", "context deadline exceeded", ErrTimeoutExceeded},
		{"network", "connection refused", ErrNetworkFailed},
		{"model missing", "the model `gpt-5-nano` does not exist", ErrModelNotFound},
		{"context exceeded", "this model's maximum context length is 128000 tokens", ErrModelContextExceeded},
		{"content filter", "response was blocked by the content filter", ErrContentFiltered},
		{"unknown", "something odd happened", ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TranslateError("openai", assertErrorWithMessage(tt.message))
			assert.Equal(t, tt.wantCode, types.CodeOf(err))
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, TranslateError("openai", nil))
	})

	t.Run("already classified", func(t *testing.T) {
		orig := NewRateLimitError("openai")
		assert.Same(t, orig, TranslateError("openai", orig).(*types.KGError))
	})
}

type assertErrorWithMessage string

func (e assertErrorWithMessage) Error() string { return string(e) }
