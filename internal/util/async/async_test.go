package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBounded_RunsAll(t *testing.T) {
	var mu sync.Mutex
	done := map[string]bool{}

	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { mu.Lock(); done["a"] = true; mu.Unlock(); return nil }},
		{Name: "b", Func: func(context.Context) error { mu.Lock(); done["b"] = true; mu.Unlock(); return nil }},
		{Name: "c", Func: func(context.Context) error { mu.Lock(); done["c"] = true; mu.Unlock(); return nil }},
	}

	require.NoError(t, RunBounded(context.Background(), 2, tasks))
	assert.Len(t, done, 3)
}

func TestRunBounded_RespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	gate := make(chan struct{})

	task := Task{Func: func(context.Context) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-gate
		running.Add(-1)
		return nil
	}}

	done := make(chan error, 1)
	go func() {
		done <- RunBounded(context.Background(), 2, []Task{task, task, task, task})
	}()
	close(gate)
	require.NoError(t, <-done)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunBounded_FirstErrorCancelsRest(t *testing.T) {
	boom := errors.New("boom")
	var cancelled atomic.Bool

	tasks := []Task{
		{Name: "fails", Func: func(context.Context) error { return boom }},
		{Name: "watches", Func: func(ctx context.Context) error {
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		}},
	}

	err := RunBounded(context.Background(), 2, tasks)
	assert.ErrorIs(t, err, boom)
	assert.True(t, cancelled.Load())
}

func TestRunBounded_Empty(t *testing.T) {
	assert.NoError(t, RunBounded(context.Background(), 1, nil))
}
