package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerEnqueue_QueueFull(t *testing.T) {
	w := newWorker("c1")

	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, w.enqueue(command{kind: cmdDeploymentInstall}))
	}
	assert.ErrorIs(t, w.enqueue(command{kind: cmdDeploymentInstall}), ErrQueueFull)
}

func TestWorkerEnqueue_Closed(t *testing.T) {
	w := newWorker("c1")
	w.close()
	assert.ErrorIs(t, w.enqueue(command{kind: cmdClusterCreate}), ErrQueueFull)
}

func TestWorkerClose_Idempotent(t *testing.T) {
	w := newWorker("c1")
	w.close()
	assert.NotPanics(t, w.close)
}

func TestWorkerEnqueue_RacingCloseDoesNotPanic(t *testing.T) {
	for i := 0; i < 200; i++ {
		w := newWorker("c1")
		start := make(chan struct{})
		var wg sync.WaitGroup

		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				assert.NotPanics(t, func() {
					for j := 0; j < 8; j++ {
						_ = w.enqueue(command{kind: cmdDeploymentInstall, deploymentID: "d1"})
					}
				})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			w.close()
		}()

		close(start)
		wg.Wait()
		assert.ErrorIs(t, w.enqueue(command{kind: cmdDeploymentInstall}), ErrQueueFull,
			"a closed worker must refuse new commands")
	}
}

func TestWorkerDrain_FailsQueuedDeploymentCommands(t *testing.T) {
	w := newWorker("c1")
	require.NoError(t, w.enqueue(command{kind: cmdDeploymentInstall, deploymentID: "d1"}))
	require.NoError(t, w.enqueue(command{kind: cmdClusterCreate}))
	require.NoError(t, w.enqueue(command{kind: cmdDeploymentDelete, deploymentID: "d2"}))
	w.close()

	var failed []string
	w.drain(func(deploymentID string) { failed = append(failed, deploymentID) })
	assert.Equal(t, []string{"d1", "d2"}, failed,
		"commands stuck behind a cluster delete must not stay pending")
}

func TestWorkerEnqueue_DeleteCancelsCurrent(t *testing.T) {
	w := newWorker("c1")
	ctx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.cancelCurrent = cancel
	w.mu.Unlock()

	require.NoError(t, w.enqueue(command{kind: cmdClusterDelete}))
	assert.ErrorIs(t, ctx.Err(), context.Canceled,
		"a delete must interrupt the command in flight")
}

func TestWorkerEnqueue_OtherCommandsDoNotCancel(t *testing.T) {
	w := newWorker("c1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.mu.Lock()
	w.cancelCurrent = cancel
	w.mu.Unlock()

	require.NoError(t, w.enqueue(command{kind: cmdDeploymentInstall, deploymentID: "d1"}))
	assert.NoError(t, ctx.Err())
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "cluster-create", cmdClusterCreate.String())
	assert.Equal(t, "cluster-delete", cmdClusterDelete.String())
	assert.Equal(t, "deployment-install", cmdDeploymentInstall.String())
	assert.Equal(t, "deployment-update", cmdDeploymentUpdate.String())
	assert.Equal(t, "deployment-delete", cmdDeploymentDelete.String())
	assert.Equal(t, "unknown", commandKind(99).String())
}
