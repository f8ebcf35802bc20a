package orchestrator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/metrics"
	"github.com/datainfrapilot/dip/internal/model"
)

type commandKind int

const (
	cmdClusterCreate commandKind = iota
	cmdClusterDelete
	cmdDeploymentInstall
	cmdDeploymentUpdate
	cmdDeploymentDelete
)

func (k commandKind) String() string {
	switch k {
	case cmdClusterCreate:
		return "cluster-create"
	case cmdClusterDelete:
		return "cluster-delete"
	case cmdDeploymentInstall:
		return "deployment-install"
	case cmdDeploymentUpdate:
		return "deployment-update"
	case cmdDeploymentDelete:
		return "deployment-delete"
	}
	return "unknown"
}

type command struct {
	kind         commandKind
	deploymentID string
}

// worker serializes all mutating commands for one cluster. Enqueueing
// a cluster delete cancels whatever command is currently running, so
// an in-flight create stops at its next suspension point and the
// delete proceeds with label-based discovery.
type worker struct {
	clusterID string
	queue     chan command

	mu            sync.Mutex
	cancelCurrent context.CancelFunc
	closed        bool
}

func newWorker(clusterID string) *worker {
	return &worker{
		clusterID: clusterID,
		queue:     make(chan command, queueCapacity),
	}
}

// enqueue adds a command without blocking; a full queue is an error.
// The send happens under the mutex so it cannot race a close: the
// select has a default case and never blocks while the lock is held.
func (w *worker) enqueue(cmd command) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrQueueFull
	}
	if cmd.kind == cmdClusterDelete && w.cancelCurrent != nil {
		w.cancelCurrent()
	}

	select {
	case w.queue <- cmd:
		metrics.QueueDepth.WithLabelValues(w.clusterID).Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
}

func (w *worker) run(baseCtx context.Context, o *Orchestrator) {
	for cmd := range w.queue {
		metrics.QueueDepth.WithLabelValues(w.clusterID).Dec()

		ctx, cancel := context.WithCancel(baseCtx)
		w.mu.Lock()
		w.cancelCurrent = cancel
		w.mu.Unlock()

		o.dispatch(ctx, w.clusterID, cmd)

		w.mu.Lock()
		w.cancelCurrent = nil
		w.mu.Unlock()
		cancel()

		if cmd.kind == cmdClusterDelete {
			// The row is gone (or failed); either way this worker's
			// life is over. A failed delete can be retried, which
			// starts a fresh worker. Retiring closes the queue, so
			// the drain below terminates.
			o.retire(w.clusterID)
			w.drain(func(deploymentID string) {
				o.setDeploymentStatus(context.WithoutCancel(baseCtx), deploymentID,
					model.StatusFailed, "superseded by a cluster delete")
			})
			return
		}
	}
}

// drain fails every deployment command still queued behind a cluster
// delete so those deployments do not stay pending forever. The caller
// has already closed the worker; metrics for the cluster are gone too,
// so the loop does not touch the queue gauge.
func (w *worker) drain(fail func(deploymentID string)) {
	for cmd := range w.queue {
		if cmd.deploymentID != "" {
			fail(cmd.deploymentID)
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, clusterID string, cmd command) {
	log := o.logger.With(
		zap.String("cluster_id", clusterID),
		zap.String("command", cmd.kind.String()))
	log.Info("command started")

	switch cmd.kind {
	case cmdClusterCreate:
		o.runClusterCreate(ctx, clusterID)
	case cmdClusterDelete:
		o.runClusterDelete(ctx, clusterID)
	case cmdDeploymentInstall:
		o.runDeploymentInstall(ctx, clusterID, cmd.deploymentID, false)
	case cmdDeploymentUpdate:
		o.runDeploymentInstall(ctx, clusterID, cmd.deploymentID, true)
	case cmdDeploymentDelete:
		o.runDeploymentDelete(ctx, clusterID, cmd.deploymentID)
	}
	log.Info("command finished")
}
