package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/kube"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
	"github.com/datainfrapilot/dip/internal/render"
	"github.com/datainfrapilot/dip/internal/util/async"
	"github.com/datainfrapilot/dip/internal/util/labels"
	"github.com/datainfrapilot/dip/internal/util/naming"
)

const (
	fieldManager = "dip"
	csiVersion   = "2.9.0"
)

var certManagerChart = helm.ChartRef{
	RepoURL: "https://charts.jetstack.io",
	Name:    "cert-manager",
	Version: "v1.16.2",
}

// runClusterCreate executes the build pipeline. Each step is a
// cancellation point; any failure writes (failed, "step: err") and
// leaves already-created resources for an explicit delete to reclaim.
func (o *Orchestrator) runClusterCreate(ctx context.Context, clusterID string) {
	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		o.logger.Error("cluster create: row vanished", zap.String("cluster_id", clusterID), zap.Error(err))
		return
	}

	driver, err := o.driverFor(cluster.Provider, cluster.Credentials.ProviderToken)
	if err != nil {
		o.failCluster(ctx, clusterID, "select provider driver", err)
		return
	}

	privateKey := []byte(cluster.Credentials.SSHPrivateKey)
	token := cluster.Credentials.K3sToken
	controlPlane := cluster.ControlPlanePool()

	fail := func(step string, err error) {
		o.failCluster(ctx, clusterID, step, err)
	}

	// Step 1: provider scaffolding.
	if ctx.Err() != nil {
		fail("ensure ssh key", ctx.Err())
		return
	}
	base := labels.ForCluster(clusterID).Build()
	if err := driver.EnsureSSHKey(ctx, naming.SSHKey(clusterID), cluster.Credentials.SSHPublicKey, base); err != nil {
		fail("ensure ssh key", err)
		return
	}
	if err := driver.EnsureFirewall(ctx, naming.Firewall(clusterID), base); err != nil {
		fail("ensure firewall", err)
		return
	}
	if err := driver.EnsureNetwork(ctx, naming.Network(clusterID), base); err != nil {
		fail("ensure network", err)
		return
	}

	// Step 2: control-plane server.
	if ctx.Err() != nil {
		fail("create server: control-plane", ctx.Err())
		return
	}
	cpName := naming.ControlPlaneServer(cluster.Name)
	userData, err := render.File("cloudinit/control-plane.yaml", map[string]string{"Hostname": cpName})
	if err != nil {
		fail("create server: control-plane", apperror.Wrap(apperror.CodeInternal, "cloud-init render failed", err))
		return
	}
	cpGroup := naming.PlacementGroup(cluster.Name, controlPlane.Name)
	if err := driver.EnsurePlacementGroup(ctx, cpGroup, base); err != nil {
		fail("create server: control-plane", err)
		return
	}
	accessIP, err := driver.CreateServer(ctx, provider.ServerCreateOpts{
		Name:           cpName,
		ServerType:     controlPlane.NodeType,
		Region:         controlPlane.Region,
		UserData:       userData,
		SSHKeyName:     naming.SSHKey(clusterID),
		PlacementGroup: cpGroup,
		Labels: labels.ForCluster(clusterID).
			WithRole(labels.RoleControlPlane).
			WithPool(controlPlane.Name).
			Build(),
	})
	if err != nil {
		fail("create server: control-plane", err)
		return
	}

	// Step 3: k3s server install and readiness.
	if ctx.Err() != nil {
		fail("install k3s: control-plane", ctx.Err())
		return
	}
	if err := o.bootstrap.InstallControlPlane(ctx, privateKey, accessIP, cluster.K3sVersion, token, controlPlane.Name); err != nil {
		fail("install k3s: control-plane", err)
		return
	}

	// Step 4: kubeconfig.
	if ctx.Err() != nil {
		fail("fetch kubeconfig", ctx.Err())
		return
	}
	kubeconfig, err := o.bootstrap.FetchKubeconfig(ctx, privateKey, accessIP)
	if err != nil {
		fail("fetch kubeconfig", err)
		return
	}

	// Step 5: worker pools, bounded parallelism within each pool.
	totalNodes := 1
	for _, pool := range cluster.WorkerPools() {
		if ctx.Err() != nil {
			fail("create servers: "+pool.Name, ctx.Err())
			return
		}
		joinToken, err := o.bootstrap.NodeToken(ctx, privateKey, accessIP)
		if err != nil {
			fail("create servers: "+pool.Name, err)
			return
		}
		poolGroup := naming.PlacementGroup(cluster.Name, pool.Name)
		if err := driver.EnsurePlacementGroup(ctx, poolGroup, base); err != nil {
			fail("create servers: "+pool.Name, err)
			return
		}

		tasks := make([]async.Task, 0, pool.Count)
		for i := 1; i <= pool.Count; i++ {
			name := naming.Server(cluster.Name, pool.Name, i)
			pool := pool
			tasks = append(tasks, async.Task{
				Name: "create server " + name,
				Func: func(ctx context.Context) error {
					userData, err := render.File("cloudinit/worker.yaml", map[string]string{"Hostname": name})
					if err != nil {
						return apperror.Wrap(apperror.CodeInternal, "cloud-init render failed", err)
					}
					workerIP, err := driver.CreateServer(ctx, provider.ServerCreateOpts{
						Name:           name,
						ServerType:     pool.NodeType,
						Region:         pool.Region,
						UserData:       userData,
						SSHKeyName:     naming.SSHKey(clusterID),
						PlacementGroup: poolGroup,
						Labels: labels.ForCluster(clusterID).
							WithRole(labels.RoleWorker).
							WithPool(pool.Name).
							Build(),
					})
					if err != nil {
						return err
					}
					return o.bootstrap.JoinWorker(ctx, privateKey, workerIP, cluster.K3sVersion, accessIP, joinToken, pool.Name)
				},
			})
		}
		if err := async.RunBounded(ctx, workerPoolParallelism, tasks); err != nil {
			fail("create servers: "+pool.Name, err)
			return
		}
		totalNodes += pool.Count
	}

	if err := o.bootstrap.WaitForNodes(ctx, privateKey, accessIP, totalNodes); err != nil {
		fail("wait for nodes", err)
		return
	}

	// Step 6: CSI driver.
	if ctx.Err() != nil {
		fail("install csi driver", ctx.Err())
		return
	}
	kubeClient, err := o.kubeFor([]byte(kubeconfig))
	if err != nil {
		fail("install csi driver", err)
		return
	}
	csiManifests, err := render.Manifests("addons/hcloud-csi", map[string]string{
		"Token":      cluster.Credentials.ProviderToken,
		"CSIVersion": csiVersion,
	})
	if err != nil {
		fail("install csi driver", apperror.Wrap(apperror.CodeInternal, "csi manifest render failed", err))
		return
	}
	if err := kubeClient.ApplyManifests(ctx, csiManifests, fieldManager); err != nil {
		fail("install csi driver", err)
		return
	}

	// Step 7: Traefik dashboard addon.
	if cluster.Addons.TraefikDashboard.Enabled {
		if err := o.installTraefikDashboard(ctx, kubeClient, cluster); err != nil {
			fail("install traefik dashboard", err)
			return
		}
	}

	// Step 8: cert-manager for domain-based endpoints.
	if cluster.DomainName != "" {
		if err := o.installCertManager(ctx, kubeClient, []byte(kubeconfig), cluster.DomainName); err != nil {
			fail("install cert-manager", err)
			return
		}
	}

	// Step 9: running.
	if err := o.store.UpdateClusterAccess(ctx, clusterID, accessIP, kubeconfig, model.StatusRunning); err != nil {
		o.logger.Error("failed to persist cluster access",
			zap.String("cluster_id", clusterID), zap.Error(err))
		return
	}
	o.logger.Info("cluster running",
		zap.String("cluster_id", clusterID), zap.String("access_ip", accessIP))
}

// installTraefikDashboard materializes the basic-auth secret and the
// dashboard IngressRoute. The password is bcrypt-hashed; only the hash
// reaches the cluster.
func (o *Orchestrator) installTraefikDashboard(ctx context.Context, kubeClient kube.Client, cluster *model.Cluster) error {
	dashboard := cluster.Addons.TraefikDashboard
	hash, err := bcrypt.GenerateFromPassword([]byte(dashboard.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(apperror.CodeInternal, "failed to hash dashboard password", err)
	}
	manifests, err := render.Manifests("addons/traefik-dashboard", map[string]string{
		"HtpasswdLine": fmt.Sprintf("%s:%s", dashboard.Username, hash),
	})
	if err != nil {
		return apperror.Wrap(apperror.CodeInternal, "dashboard manifest render failed", err)
	}
	return kubeClient.ApplyManifests(ctx, manifests, fieldManager)
}

func (o *Orchestrator) installCertManager(ctx context.Context, kubeClient kube.Client, kubeconfig []byte, domain string) error {
	engine, err := o.helmFor(kubeconfig, "cert-manager")
	if err != nil {
		return err
	}
	values := helm.Values{"crds": map[string]any{"enabled": true}}
	if err := engine.InstallOrUpgrade(ctx, "cert-manager", certManagerChart, values); err != nil {
		return err
	}

	issuer, err := render.Manifests("addons/cert-manager", map[string]string{
		"Email": "admin@" + domain,
	})
	if err != nil {
		return apperror.Wrap(apperror.CodeInternal, "issuer render failed", err)
	}
	return kubeClient.ApplyManifests(ctx, issuer, fieldManager)
}

// failCluster writes the terminal failure, noting cancellation
// distinctly so an interrupted create reads as cancelled.
func (o *Orchestrator) failCluster(ctx context.Context, clusterID, step string, err error) {
	msg := fmt.Sprintf("%s: %s", step, apperror.DetailOf(err))
	if ctx.Err() != nil {
		msg = fmt.Sprintf("%s: cancelled", step)
	}
	o.logger.Warn("cluster step failed",
		zap.String("cluster_id", clusterID), zap.String("step", step), zap.Error(err))

	// Status writes survive the cancelled pipeline context.
	o.setClusterStatus(context.WithoutCancel(ctx), clusterID, model.StatusFailed, msg)
}
