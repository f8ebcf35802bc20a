package hetzner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/config"
	"github.com/datainfrapilot/dip/internal/util/retry"
)

func TestWithRetry_AppliesCallDeadline(t *testing.T) {
	c := &Client{timeouts: config.Timeouts{
		ProviderCall:      time.Minute,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}}

	var hasDeadline bool
	err := c.withRetry(context.Background(), func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hasDeadline, "every attempt must carry a deadline")
}

func TestWithRetry_DeadlineAbortsBlockedCall(t *testing.T) {
	c := &Client{timeouts: config.Timeouts{
		ProviderCall:      20 * time.Millisecond,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}}

	err := c.withRetry(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return retry.Fatal(ctx.Err())
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithRetry_NoDeadlineWhenUnconfigured(t *testing.T) {
	c := &Client{timeouts: config.Timeouts{
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}}

	var hasDeadline bool
	err := c.withRetry(context.Background(), func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hasDeadline)
}
