package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/util/naming"
)

// CreateDeployment admits a deployment onto a running cluster and
// enqueues the install. Admission is synchronous so the caller gets
// validation and conflict answers immediately; everything that talks
// to the cluster happens on the worker.
func (o *Orchestrator) CreateDeployment(ctx context.Context, clusterID string, d *model.Deployment) (*model.Deployment, error) {
	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if cluster.Status != model.StatusRunning {
		return nil, apperror.Newf(apperror.CodeConflict,
			"cluster %s is %s, deployments require a running cluster", cluster.Name, cluster.Status)
	}

	app, err := o.catalog.ByID(d.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateName("deployment", d.Name); err != nil {
		return nil, apperror.New(apperror.CodeValidation, err.Error())
	}
	if err := catalog.ValidateConfig(app, d.Config); err != nil {
		return nil, err
	}
	if err := validateNodePool(cluster, d.NodePool); err != nil {
		return nil, err
	}

	existing, err := o.store.ListClusterEndpoints(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	admitted, err := admitEndpoints(app, cluster, d.Config, d.Endpoints, existing)
	if err != nil {
		return nil, err
	}

	d.ID = uuid.NewString()
	d.ClusterID = clusterID
	d.Namespace = naming.DeploymentNamespace(d.ID)
	d.ReleaseName = naming.ReleaseName(app.Key, d.ID)
	d.Status = model.StatusPending
	d.InstalledAt = time.Now().UTC()
	d.Endpoints = admitted

	if err := o.admitVolumes(ctx, app, d); err != nil {
		return nil, err
	}

	if err := o.store.CreateDeployment(ctx, d); err != nil {
		return nil, err
	}
	if err := o.workerFor(clusterID).enqueue(command{kind: cmdDeploymentInstall, deploymentID: d.ID}); err != nil {
		o.setDeploymentStatus(ctx, d.ID, model.StatusFailed, "enqueue: "+err.Error())
		return nil, err
	}
	return d, nil
}

// UpdateDeployment re-admits config and endpoints and enqueues a Helm
// upgrade. The human name may change; the release name never does.
func (o *Orchestrator) UpdateDeployment(ctx context.Context, clusterID, deploymentID string, updated *model.Deployment) (*model.Deployment, error) {
	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if cluster.Status != model.StatusRunning {
		return nil, apperror.Newf(apperror.CodeConflict,
			"cluster %s is %s, deployments require a running cluster", cluster.Name, cluster.Status)
	}

	current, err := o.deploymentOn(ctx, clusterID, deploymentID)
	if err != nil {
		return nil, err
	}
	if !current.Status.Terminal() {
		return nil, apperror.Newf(apperror.CodeConflict,
			"deployment %s is %s, wait for it to settle before updating", current.Name, current.Status)
	}
	if updated.ApplicationID != 0 && updated.ApplicationID != current.ApplicationID {
		return nil, apperror.New(apperror.CodeValidation, "the application of a deployment cannot be changed")
	}

	app, err := o.catalog.ByID(current.ApplicationID)
	if err != nil {
		return nil, err
	}
	if updated.Name == "" {
		updated.Name = current.Name
	}
	if err := model.ValidateName("deployment", updated.Name); err != nil {
		return nil, apperror.New(apperror.CodeValidation, err.Error())
	}
	if err := catalog.ValidateConfig(app, updated.Config); err != nil {
		return nil, err
	}
	if err := validateNodePool(cluster, updated.NodePool); err != nil {
		return nil, err
	}

	// Uniqueness is checked against every other deployment; the
	// deployment's own endpoints may be re-submitted unchanged.
	others, err := o.endpointsExcept(ctx, clusterID, deploymentID)
	if err != nil {
		return nil, err
	}
	admitted, err := admitEndpoints(app, cluster, updated.Config, updated.Endpoints, others)
	if err != nil {
		return nil, err
	}

	current.Name = updated.Name
	current.NodePool = updated.NodePool
	current.Config = updated.Config
	current.Endpoints = admitted
	current.Volumes = updated.Volumes
	if err := o.admitVolumes(ctx, app, current); err != nil {
		return nil, err
	}

	if err := o.store.UpdateDeployment(ctx, current); err != nil {
		return nil, err
	}
	if err := o.workerFor(clusterID).enqueue(command{kind: cmdDeploymentUpdate, deploymentID: deploymentID}); err != nil {
		o.setDeploymentStatus(ctx, deploymentID, model.StatusFailed, "enqueue: "+err.Error())
		return nil, err
	}
	return current, nil
}

// DeleteDeployment enqueues removal of the release and its resources.
func (o *Orchestrator) DeleteDeployment(ctx context.Context, clusterID, deploymentID string) error {
	if _, err := o.deploymentOn(ctx, clusterID, deploymentID); err != nil {
		return err
	}
	return o.workerFor(clusterID).enqueue(command{kind: cmdDeploymentDelete, deploymentID: deploymentID})
}

// deploymentOn returns the deployment, treating a cluster mismatch the
// same as an unknown ID.
func (o *Orchestrator) deploymentOn(ctx context.Context, clusterID, deploymentID string) (*model.Deployment, error) {
	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if d.ClusterID != clusterID {
		return nil, apperror.Newf(apperror.CodeNotFound, "deployment %s not found", deploymentID)
	}
	return d, nil
}

// endpointsExcept collects the enabled endpoints of every deployment
// on the cluster except one.
func (o *Orchestrator) endpointsExcept(ctx context.Context, clusterID, deploymentID string) ([]model.Endpoint, error) {
	deployments, err := o.store.ListDeployments(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	var endpoints []model.Endpoint
	for _, d := range deployments {
		if d.ID == deploymentID {
			continue
		}
		endpoints = append(endpoints, d.Endpoints...)
	}
	return endpoints, nil
}

func validateNodePool(cluster *model.Cluster, poolName string) error {
	if poolName == "" {
		return nil
	}
	for _, p := range cluster.Pools {
		if p.Name == poolName {
			return nil
		}
	}
	return apperror.Newf(apperror.CodeValidation, "cluster has no pool named %q", poolName)
}

// admitVolumes resolves each volume binding. A new binding must match
// one of the application's volume requirements and gets a PVC name; an
// existing binding must reference a known user volume, which is
// attached on the worker at install time.
func (o *Orchestrator) admitVolumes(ctx context.Context, app *catalog.Application, d *model.Deployment) error {
	requirements := make(map[string]catalog.VolumeRequirement, len(app.Volumes))
	for _, req := range app.Volumes {
		requirements[req.Name] = req
	}

	for i := range d.Volumes {
		binding := &d.Volumes[i]
		binding.DeploymentID = d.ID

		if binding.Existing {
			if _, err := o.store.GetVolumeByName(ctx, binding.VolumeName); err != nil {
				return err
			}
			binding.PVCName = ""
			continue
		}
		if _, ok := requirements[binding.VolumeName]; !ok {
			return apperror.Newf(apperror.CodeValidation,
				"application %s has no volume requirement named %q", app.Key, binding.VolumeName)
		}
		binding.PVCName = naming.PVC(d.ID, binding.VolumeName)
	}
	return nil
}
