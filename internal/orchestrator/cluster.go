package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
	"github.com/datainfrapilot/dip/internal/sshexec"
)

// CreateCluster validates and records the desired state, then hands
// the build to the cluster's worker. The synchronous part ends once
// the row exists; progress surfaces through the persisted status.
func (o *Orchestrator) CreateCluster(ctx context.Context, c *model.Cluster) (*model.Cluster, error) {
	if err := c.Validate(); err != nil {
		return nil, apperror.New(apperror.CodeValidation, err.Error())
	}
	if err := provider.ValidatePools(c.Provider, c.Pools); err != nil {
		return nil, err
	}
	// Selecting a provider without a driver fails here, before any row
	// is written.
	if _, err := o.driverFor(c.Provider, c.Credentials.ProviderToken); err != nil {
		return nil, err
	}

	keyPair, err := sshexec.GenerateKeyPair()
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to generate cluster keypair", err)
	}
	token, err := sshexec.GenerateToken()
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to generate join token", err)
	}

	c.ID = uuid.NewString()
	c.Status = model.StatusCreating
	c.CreatedAt = time.Now().UTC()
	c.Credentials.SSHPrivateKey = keyPair.PrivatePEM
	c.Credentials.SSHPublicKey = keyPair.PublicKey
	c.Credentials.K3sToken = token
	for i := range c.Pools {
		c.Pools[i].ID = uuid.NewString()
		c.Pools[i].ClusterID = c.ID
	}

	if err := o.store.CreateCluster(ctx, c); err != nil {
		return nil, err
	}

	if err := o.workerFor(c.ID).enqueue(command{kind: cmdClusterCreate}); err != nil {
		o.setClusterStatus(ctx, c.ID, model.StatusFailed, "enqueue: "+err.Error())
		return nil, err
	}
	return c, nil
}

// DeleteCluster enqueues a teardown. A delete while a create is in
// flight cancels the create at its next suspension point. Deleting a
// failed cluster is allowed; deleting an unknown one is not-found.
func (o *Orchestrator) DeleteCluster(ctx context.Context, id string) error {
	if _, err := o.store.GetCluster(ctx, id); err != nil {
		return err
	}
	return o.workerFor(id).enqueue(command{kind: cmdClusterDelete})
}

// ListClusters returns all clusters with pools and deployments joined.
func (o *Orchestrator) ListClusters(ctx context.Context) ([]model.Cluster, error) {
	return o.store.ListClusters(ctx)
}

// GetCluster returns one cluster with pools and deployments joined.
func (o *Orchestrator) GetCluster(ctx context.Context, id string) (*model.Cluster, error) {
	return o.store.GetCluster(ctx, id)
}

// Kubeconfig returns the admin kubeconfig for a running cluster.
func (o *Orchestrator) Kubeconfig(ctx context.Context, id string) (string, error) {
	cluster, err := o.store.GetCluster(ctx, id)
	if err != nil {
		return "", err
	}
	if cluster.Status != model.StatusRunning {
		return "", apperror.Newf(apperror.CodeConflict,
			"cluster %s is %s, kubeconfig is available once it is running", cluster.Name, cluster.Status)
	}
	return cluster.Credentials.Kubeconfig, nil
}
