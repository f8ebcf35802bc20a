package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/kube"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/util/naming"
)

// runDeploymentInstall drives both the first install and subsequent
// upgrades; the pipeline is identical apart from the announced status.
func (o *Orchestrator) runDeploymentInstall(ctx context.Context, clusterID, deploymentID string, isUpdate bool) {
	status := model.StatusDeploying
	if isUpdate {
		status = model.StatusUpdating
	}
	o.setDeploymentStatus(ctx, deploymentID, status, "")

	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "load cluster", err)
		return
	}
	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		o.logger.Error("deployment install: row vanished",
			zap.String("deployment_id", deploymentID), zap.Error(err))
		return
	}
	app, err := o.catalog.ByID(d.ApplicationID)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "resolve application", err)
		return
	}

	kubeconfig := []byte(cluster.Credentials.Kubeconfig)
	kubeClient, err := o.kubeFor(kubeconfig)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "connect to cluster", err)
		return
	}

	if err := kubeClient.EnsureNamespace(ctx, d.Namespace); err != nil {
		o.failDeployment(ctx, deploymentID, "ensure namespace", err)
		return
	}

	if err := o.prepareVolumes(ctx, cluster, app, d, kubeClient); err != nil {
		o.failDeployment(ctx, deploymentID, "prepare volumes", err)
		return
	}
	if err := o.prepareSecrets(ctx, app, d, kubeClient); err != nil {
		o.failDeployment(ctx, deploymentID, "prepare secrets", err)
		return
	}

	views := make(map[string]endpointView)
	for _, ep := range d.Endpoints {
		if ep.Enabled {
			views[ep.Name] = viewOf(cluster, d.Namespace, ep)
		}
	}

	values, err := buildValues(app, d, views)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "build values", err)
		return
	}
	cfg := effectiveConfig(app, d.Config)
	if app.ID == catalog.AppAirflow && cfg.Bool("custom_image") {
		values = helm.Merge(values, helm.Values{
			"registry": map[string]any{"secretName": naming.PullSecret(d.ID)},
		})
	}

	engine, err := o.helmFor(kubeconfig, d.Namespace)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "helm setup", err)
		return
	}
	if err := engine.InstallOrUpgrade(ctx, d.ReleaseName, chartFor(app), values); err != nil {
		o.failDeployment(ctx, deploymentID, "helm install", err)
		return
	}

	if app.ID == catalog.AppSpark {
		if err := o.installSparkCluster(ctx, cfg, d, views, kubeClient); err != nil {
			o.failDeployment(ctx, deploymentID, "apply spark cluster", err)
			return
		}
	}

	o.setDeploymentStatus(ctx, deploymentID, model.StatusRunning, "")
	o.logger.Info("deployment running",
		zap.String("deployment_id", deploymentID), zap.String("release", d.ReleaseName))
}

// chartFor prefers a local artifact bundle over the remote repository.
func chartFor(app *catalog.Application) helm.ChartRef {
	ref := app.Chart
	if app.ArtifactPath != "" {
		ref.LocalPath = app.ArtifactPath
	}
	return ref
}

// prepareVolumes attaches existing user volumes at the provider and
// creates claims for new ones. The claim size comes from the
// application's requirement.
func (o *Orchestrator) prepareVolumes(ctx context.Context, cluster *model.Cluster,
	app *catalog.Application, d *model.Deployment, kubeClient kube.Client) error {

	sizes := make(map[string]int, len(app.Volumes))
	for _, req := range app.Volumes {
		sizes[req.Name] = req.DefaultSize
	}

	for _, binding := range d.Volumes {
		if binding.Existing {
			driver, err := o.driverFor(cluster.Provider, cluster.Credentials.ProviderToken)
			if err != nil {
				return err
			}
			server := naming.ControlPlaneServer(cluster.Name)
			if err := driver.AttachVolume(ctx, binding.VolumeName, server); err != nil {
				return err
			}
			continue
		}
		size, ok := sizes[binding.VolumeName]
		if !ok {
			size = model.MinVolumeGiB
		}
		if err := kubeClient.CreatePVC(ctx, d.Namespace, binding.PVCName, size); err != nil {
			return err
		}
	}
	return nil
}

// prepareSecrets materializes the application's namespace-local
// secrets: Airflow's DAG deploy key and image pull secret, Prefect's
// basic-auth credentials.
func (o *Orchestrator) prepareSecrets(ctx context.Context, app *catalog.Application,
	d *model.Deployment, kubeClient kube.Client) error {

	cfg := effectiveConfig(app, d.Config)

	switch app.ID {
	case catalog.AppAirflow:
		if cfg.Bool("dags_repository_private") {
			key := cfg.String("dags_repository_ssh_private_key")
			err := kubeClient.CreateSecret(ctx, d.Namespace, dagsSSHSecret, map[string][]byte{
				"gitSshKey": []byte(key),
			})
			if err != nil {
				return err
			}
		}
		if cfg.Bool("custom_image") {
			registry := cfg.String("custom_image_registry")
			server := strings.SplitN(registry, "/", 2)[0]
			err := kubeClient.CreateDockerRegistrySecret(ctx, d.Namespace, naming.PullSecret(d.ID),
				server, cfg.String("custom_image_registry_username"), cfg.String("custom_image_registry_password"))
			if err != nil {
				return err
			}
		}

	case catalog.AppPrefect:
		// The auth string survives upgrades; only create it once.
		if _, err := kubeClient.GetSecret(ctx, d.Namespace, app.CredentialsSecret); err == nil {
			return nil
		} else if !apperror.IsNotFound(err) {
			return err
		}
		password, err := randomPassword()
		if err != nil {
			return err
		}
		return kubeClient.CreateSecret(ctx, d.Namespace, app.CredentialsSecret, map[string][]byte{
			"auth-string": []byte("admin:" + password),
		})
	}
	return nil
}

// installSparkCluster applies the SparkCluster resource and its UI
// plumbing after the operator chart is in place.
func (o *Orchestrator) installSparkCluster(ctx context.Context, cfg model.ConfigMap,
	d *model.Deployment, views map[string]endpointView, kubeClient kube.Client) error {

	manifests, sparkName, err := sparkManifests(cfg, d, views)
	if err != nil {
		return err
	}
	if err := kubeClient.ApplyManifests(ctx, manifests, fieldManager); err != nil {
		return err
	}

	web := views["web-ui"]
	ingress := kube.BuildIngress(d.Namespace, sparkIngressName(sparkName), kube.IngressRule{
		Host:        web.Host,
		Path:        web.Path,
		ServiceName: sparkName + "-master-ui",
		ServicePort: 8080,
		TLSSecret:   web.TLSSecret,
		Annotations: sparkIngressAnnotations(d.Namespace, sparkName, web.Entrypoint),
	})
	return kubeClient.EnsureIngress(ctx, ingress)
}

// runDeploymentDelete removes the release and every resource the
// deployment created. User-owned volumes are detached, never deleted.
func (o *Orchestrator) runDeploymentDelete(ctx context.Context, clusterID, deploymentID string) {
	ctx = context.WithoutCancel(ctx)
	o.setDeploymentStatus(ctx, deploymentID, model.StatusDeleting, "")

	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "load cluster", err)
		return
	}
	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		o.logger.Error("deployment delete: row vanished",
			zap.String("deployment_id", deploymentID), zap.Error(err))
		return
	}
	app, err := o.catalog.ByID(d.ApplicationID)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "resolve application", err)
		return
	}

	kubeconfig := []byte(cluster.Credentials.Kubeconfig)
	engine, err := o.helmFor(kubeconfig, d.Namespace)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "helm setup", err)
		return
	}
	if err := engine.Uninstall(ctx, d.ReleaseName); err != nil {
		o.failDeployment(ctx, deploymentID, "uninstall release", err)
		return
	}

	kubeClient, err := o.kubeFor(kubeconfig)
	if err != nil {
		o.failDeployment(ctx, deploymentID, "connect to cluster", err)
		return
	}

	if app.ID == catalog.AppSpark {
		sparkName := effectiveConfig(app, d.Config).String("cluster_name")
		if err := kubeClient.DeleteIngress(ctx, d.Namespace, sparkIngressName(sparkName)); err != nil {
			o.failDeployment(ctx, deploymentID, "delete ingress", err)
			return
		}
	}

	for _, binding := range d.Volumes {
		if binding.Existing {
			driver, err := o.driverFor(cluster.Provider, cluster.Credentials.ProviderToken)
			if err != nil {
				o.failDeployment(ctx, deploymentID, "detach volume", err)
				return
			}
			if err := driver.DetachVolume(ctx, binding.VolumeName); err != nil {
				o.failDeployment(ctx, deploymentID, "detach volume", err)
				return
			}
			continue
		}
		if binding.PVCName != "" {
			if err := kubeClient.DeletePVC(ctx, d.Namespace, binding.PVCName); err != nil {
				o.failDeployment(ctx, deploymentID, "delete pvc", err)
				return
			}
		}
	}

	if err := kubeClient.DeleteNamespace(ctx, d.Namespace); err != nil {
		o.failDeployment(ctx, deploymentID, "delete namespace", err)
		return
	}

	// Cascade removes endpoints and volume bindings, which also drops
	// the in_use derivation on bound volumes.
	if err := o.store.DeleteDeployment(ctx, deploymentID); err != nil {
		o.logger.Error("failed to delete deployment row",
			zap.String("deployment_id", deploymentID), zap.Error(err))
		return
	}
	o.logger.Info("deployment deleted", zap.String("deployment_id", deploymentID))
}

func (o *Orchestrator) failDeployment(ctx context.Context, deploymentID, step string, err error) {
	msg := fmt.Sprintf("%s: %s", step, apperror.DetailOf(err))
	if ctx.Err() != nil {
		msg = fmt.Sprintf("%s: cancelled", step)
	}
	o.logger.Warn("deployment step failed",
		zap.String("deployment_id", deploymentID), zap.String("step", step), zap.Error(err))
	o.setDeploymentStatus(context.WithoutCancel(ctx), deploymentID, model.StatusFailed, msg)
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", apperror.Wrap(apperror.CodeInternal, "failed to generate password", err)
	}
	return hex.EncodeToString(buf), nil
}
