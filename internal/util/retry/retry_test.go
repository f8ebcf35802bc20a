package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errors.New("still broken")
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "still broken")
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	attempts := 0
	cause := errors.New("bad token")
	err := Do(context.Background(), func() error {
		attempts++
		return Fatal(cause)
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, cause)
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	}, WithInitialDelay(time.Minute))

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "cancellation must win over the backoff sleep")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFatal(t *testing.T) {
	assert.Nil(t, Fatal(nil))

	wrapped := Fatal(errors.New("boom"))
	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsFatal(errors.New("boom")))
}
