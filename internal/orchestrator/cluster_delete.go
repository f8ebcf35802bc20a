package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/model"
)

// runClusterDelete tears a cluster down. Helm releases are uninstalled
// best-effort first so charts with finalizer hooks get a chance to run;
// the provider teardown then reclaims everything by label, including
// resources leaked by a partially failed create.
func (o *Orchestrator) runClusterDelete(ctx context.Context, clusterID string) {
	// Teardown must finish even when the enqueue cancelled an in-flight
	// create through this same context.
	ctx = context.WithoutCancel(ctx)

	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		o.logger.Error("cluster delete: row vanished", zap.String("cluster_id", clusterID), zap.Error(err))
		return
	}

	o.setClusterStatus(ctx, clusterID, model.StatusDeleting, "")

	if cluster.Credentials.Kubeconfig != "" {
		o.uninstallReleases(ctx, cluster)
	}

	driver, err := o.driverFor(cluster.Provider, cluster.Credentials.ProviderToken)
	if err != nil {
		o.failCluster(ctx, clusterID, "teardown", err)
		return
	}
	if err := driver.TeardownCluster(ctx, clusterID); err != nil {
		o.failCluster(ctx, clusterID, "teardown", err)
		return
	}

	if err := o.store.DeleteCluster(ctx, clusterID); err != nil {
		o.logger.Error("failed to delete cluster row",
			zap.String("cluster_id", clusterID), zap.Error(err))
		return
	}
	o.logger.Info("cluster deleted", zap.String("cluster_id", clusterID))
}

// uninstallReleases removes each deployment's Helm release. Failures
// are logged and skipped; the provider teardown deletes the servers the
// releases ran on anyway.
func (o *Orchestrator) uninstallReleases(ctx context.Context, cluster *model.Cluster) {
	deployments, err := o.store.ListDeployments(ctx, cluster.ID)
	if err != nil {
		o.logger.Warn("skipping release uninstall, listing deployments failed",
			zap.String("cluster_id", cluster.ID), zap.Error(err))
		return
	}

	for _, d := range deployments {
		engine, err := o.helmFor([]byte(cluster.Credentials.Kubeconfig), d.Namespace)
		if err != nil {
			o.logger.Warn("helm engine unavailable for release uninstall",
				zap.String("deployment_id", d.ID), zap.Error(err))
			continue
		}
		if err := engine.Uninstall(ctx, d.ReleaseName); err != nil {
			o.logger.Warn("release uninstall failed",
				zap.String("deployment_id", d.ID),
				zap.String("release", d.ReleaseName), zap.Error(err))
		}
	}
}
