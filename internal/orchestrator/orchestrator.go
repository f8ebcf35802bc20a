// Package orchestrator owns the cluster and deployment state machines.
//
// Every cluster gets a dedicated worker goroutine; all mutating
// commands for that cluster (cluster lifecycle and its deployments)
// land on the worker's bounded queue and run strictly in order, so
// mutations to the same cluster cannot race. Different clusters
// proceed in parallel. The worker is the only writer of its cluster's
// status, error message and access IP.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/config"
	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/kube"
	"github.com/datainfrapilot/dip/internal/metrics"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
	"github.com/datainfrapilot/dip/internal/store"
)

// ErrQueueFull signals that a cluster's command queue is at capacity.
// The HTTP layer maps it to 503.
var ErrQueueFull = errors.New("cluster command queue is full")

// queueCapacity bounds the per-cluster command queue.
const queueCapacity = 8

// workerPoolParallelism bounds concurrent server creation per pool.
const workerPoolParallelism = 4

// Bootstrapper is the SSH-driven k3s installation surface, implemented
// by sshexec.Bootstrap and by fakes in tests.
type Bootstrapper interface {
	InstallControlPlane(ctx context.Context, privateKey []byte, host, version, token, poolName string) error
	JoinWorker(ctx context.Context, privateKey []byte, host, version, controlPlaneIP, token, poolName string) error
	NodeToken(ctx context.Context, privateKey []byte, host string) (string, error)
	FetchKubeconfig(ctx context.Context, privateKey []byte, host string) (string, error)
	WaitForNodes(ctx context.Context, privateKey []byte, host string, expected int) error
}

// DriverFactory selects a provider driver for a cluster.
type DriverFactory func(providerName, token string) (provider.Driver, error)

// Orchestrator coordinates the per-cluster workers and carries the
// dependencies each pipeline step needs.
type Orchestrator struct {
	store     *store.Store
	catalog   *catalog.Catalog
	driverFor DriverFactory
	kubeFor   kube.Factory
	helmFor   helm.Factory
	bootstrap Bootstrapper
	timeouts  config.Timeouts
	logger    *zap.Logger

	mu      sync.Mutex
	workers map[string]*worker

	// baseCtx is the lifetime of all background work; Shutdown cancels it.
	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup
}

// Options carries the orchestrator's injectable dependencies.
type Options struct {
	Store     *store.Store
	Catalog   *catalog.Catalog
	DriverFor DriverFactory
	KubeFor   kube.Factory
	HelmFor   helm.Factory
	Bootstrap Bootstrapper
	Timeouts  config.Timeouts
	Logger    *zap.Logger
}

// New creates an orchestrator. Defaults cover the production wiring;
// tests override through Options.
func New(opts Options) *Orchestrator {
	if opts.DriverFor == nil {
		opts.DriverFor = provider.ForCluster
	}
	if opts.KubeFor == nil {
		opts.KubeFor = kube.NewFromKubeconfig
	}
	if opts.HelmFor == nil {
		opts.HelmFor = func(kubeconfig []byte, namespace string) (helm.Engine, error) {
			return helm.NewClient(kubeconfig, namespace, helm.WithTimeout(opts.Timeouts.HelmInstall))
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     opts.Store,
		catalog:   opts.Catalog,
		driverFor: opts.DriverFor,
		kubeFor:   opts.KubeFor,
		helmFor:   opts.HelmFor,
		bootstrap: opts.Bootstrap,
		timeouts:  opts.Timeouts,
		logger:    opts.Logger,
		workers:   make(map[string]*worker),
		baseCtx:   ctx,
		cancelAll: cancel,
	}
}

// Shutdown cancels in-flight work and waits for the workers to drain.
func (o *Orchestrator) Shutdown() {
	o.cancelAll()
	o.mu.Lock()
	for _, w := range o.workers {
		w.close()
	}
	o.workers = make(map[string]*worker)
	o.mu.Unlock()
	o.wg.Wait()
}

// workerFor returns the cluster's worker, starting one if needed.
func (o *Orchestrator) workerFor(clusterID string) *worker {
	o.mu.Lock()
	defer o.mu.Unlock()

	if w, ok := o.workers[clusterID]; ok {
		return w
	}
	w := newWorker(clusterID)
	o.workers[clusterID] = w
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w.run(o.baseCtx, o)
	}()
	return w
}

// retire removes a worker after its cluster row is gone.
func (o *Orchestrator) retire(clusterID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.workers[clusterID]; ok {
		w.close()
		delete(o.workers, clusterID)
	}
	metrics.QueueDepth.DeleteLabelValues(clusterID)
}

// setClusterStatus persists (status, error_message) and records the
// transition.
func (o *Orchestrator) setClusterStatus(ctx context.Context, id string, status model.Status, errMsg string) {
	if err := o.store.UpdateClusterStatus(ctx, id, status, errMsg); err != nil {
		o.logger.Error("failed to persist cluster status",
			zap.String("cluster_id", id), zap.String("status", string(status)), zap.Error(err))
		return
	}
	metrics.StateTransitions.WithLabelValues("cluster", string(status)).Inc()
}

func (o *Orchestrator) setDeploymentStatus(ctx context.Context, id string, status model.Status, errMsg string) {
	if err := o.store.UpdateDeploymentStatus(ctx, id, status, errMsg); err != nil {
		o.logger.Error("failed to persist deployment status",
			zap.String("deployment_id", id), zap.String("status", string(status)), zap.Error(err))
		return
	}
	metrics.StateTransitions.WithLabelValues("deployment", string(status)).Inc()
}
