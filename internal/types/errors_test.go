package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKGErrorWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(ErrRunSnapshotFailed, "snapshot write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrRunSnapshotFailed, CodeOf(err))
	assert.Contains(t, err.Error(), "RUN_SNAPSHOT_FAILED")
	assert.Contains(t, err.Error(), "disk full")
}

func TestKGErrorIsMatchesByCode(t *testing.T) {
	a := NewError(ErrRunInvalidTask, "empty")
	b := NewError(ErrRunInvalidTask, "different message")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, NewError(ErrRunBudgetExhausted, "other"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(ErrRunSnapshotFailed, "transient")))
	assert.False(t, IsRetryable(NewError(ErrRunInvalidTask, "permanent")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestCodeOfUnknownError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
