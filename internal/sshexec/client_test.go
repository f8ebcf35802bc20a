package sshexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitResult_DeliversOutput(t *testing.T) {
	done := make(chan commandResult, 1)
	done <- commandResult{output: []byte("ok\n")}

	output, err := awaitResult(context.Background(), done, func() error {
		t.Fatal("a finished command must not be aborted")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(output))
}

func TestAwaitResult_DeliversCommandError(t *testing.T) {
	boom := errors.New("exit status 1")
	done := make(chan commandResult, 1)
	done <- commandResult{output: []byte("stderr"), err: boom}

	output, err := awaitResult(context.Background(), done, func() error { return nil })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "stderr", string(output))
}

func TestAwaitResult_DeadlineAbortsSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	aborted := false
	done := make(chan commandResult) // never delivers, the command hangs
	_, err := awaitResult(ctx, done, func() error {
		aborted = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, aborted, "the session must be closed to unblock the remote side")
}

func TestNewClient_DefaultsCommandTimeout(t *testing.T) {
	pair, err := GenerateKeyPair()
	require.NoError(t, err)

	c, err := NewClient(&Config{Host: "10.0.0.5", PrivateKey: []byte(pair.PrivatePEM)})
	require.NoError(t, err)
	assert.Equal(t, defaultCommandTimeout, c.config.CommandTimeout)

	c, err = NewClient(&Config{Host: "10.0.0.5", PrivateKey: []byte(pair.PrivatePEM), CommandTimeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, c.config.CommandTimeout)
}
