package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/model"
)

func TestEffectiveConfig(t *testing.T) {
	cfg := effectiveConfig(airflowApp(t), model.ConfigMap{
		"version":  "2.10.3",
		"executor": "LocalExecutor",
	})

	assert.Equal(t, "LocalExecutor", cfg.String("executor"), "user values win")
	assert.Equal(t, "main", cfg.String("dags_repository_branch"), "defaults fill the gaps")
	assert.Equal(t, "dags", cfg.String("dags_repository_subpath"))
	assert.False(t, cfg.Bool("pgbouncer_enabled"))
}

func airflowDeployment(cfg model.ConfigMap) *model.Deployment {
	return &model.Deployment{
		ID:            "d1",
		ClusterID:     "c1",
		Name:          "etl",
		ApplicationID: catalog.AppAirflow,
		Namespace:     "dip-d1",
		Config:        cfg,
	}
}

func TestBuildValues_Airflow(t *testing.T) {
	d := airflowDeployment(model.ConfigMap{
		"version":         "2.10.3",
		"instance_name":   "ETL",
		"dags_repository": "https://github.com/acme/dags",
	})
	web := viewOf(domainCluster(), d.Namespace, model.Endpoint{
		Name: "web-ui", AccessType: model.AccessSubdomain, Value: "airflow", Enabled: true,
	})

	values, err := buildValues(airflowApp(t), d, map[string]endpointView{"web-ui": web})
	require.NoError(t, err)

	assert.Equal(t, "2.10.3", values["airflowVersion"])
	assert.Equal(t, "CeleryExecutor", values["executor"], "executor default applies")
	assert.NotContains(t, values, "images", "no custom image configured")

	config := values["config"].(map[string]any)
	webserver := config["webserver"].(map[string]any)
	assert.Equal(t, "https://airflow.example.com", webserver["base_url"])
	assert.Equal(t, "ETL", webserver["instance_name"])

	dags := values["dags"].(map[string]any)["gitSync"].(map[string]any)
	assert.Equal(t, "https://github.com/acme/dags", dags["repo"])
	assert.Equal(t, "main", dags["branch"])
	assert.NotContains(t, dags, "sshKeySecret", "public repositories need no deploy key")

	flower := values["flower"].(map[string]any)
	assert.Equal(t, false, flower["enabled"], "no flower endpoint admitted")

	ingress := values["ingress"].(map[string]any)
	web2 := ingress["web"].(map[string]any)
	hosts := web2["hosts"].([]any)
	require.Len(t, hosts, 1)
	host := hosts[0].(map[string]any)
	assert.Equal(t, "airflow.example.com", host["name"])
	assert.Equal(t, "dip-d1-web-ui-tls", host["tls"].(map[string]any)["secretName"])

	logs := values["logs"].(map[string]any)["persistence"].(map[string]any)
	assert.Equal(t, "100Gi", logs["size"])
	assert.NotContains(t, logs, "existingClaim")
}

func TestBuildValues_AirflowCustomImageAndPrivateDags(t *testing.T) {
	d := airflowDeployment(model.ConfigMap{
		"instance_name":                   "ETL",
		"dags_repository":                 "git@github.com:acme/dags.git",
		"dags_repository_private":         true,
		"dags_repository_ssh_private_key": "key-material",
		"custom_image":                    true,
		"custom_image_registry":           "registry.example.com/acme/airflow",
		"custom_image_tag":                "2.10.3-acme1",
		"executor":                        "CeleryExecutor",
		"flower_enabled":                  true,
	})
	d.Volumes = []model.VolumeBinding{{VolumeName: "airflow-logs", PVCName: "dip-d1-airflow-logs"}}

	cluster := domainCluster()
	views := map[string]endpointView{
		"web-ui": viewOf(cluster, d.Namespace, model.Endpoint{
			Name: "web-ui", AccessType: model.AccessSubdomain, Value: "airflow", Enabled: true,
		}),
		"flower-ui": viewOf(cluster, d.Namespace, model.Endpoint{
			Name: "flower-ui", AccessType: model.AccessDomainPath, Value: "/flower", Enabled: true,
		}),
	}

	values, err := buildValues(airflowApp(t), d, views)
	require.NoError(t, err)

	image := values["images"].(map[string]any)["airflow"].(map[string]any)
	assert.Equal(t, "registry.example.com/acme/airflow", image["repository"])
	assert.Equal(t, "2.10.3-acme1", image["tag"])
	assert.Equal(t, "2.10.3-acme1", values["airflowVersion"], "version falls back to the image tag")

	assert.Equal(t, true, values["flower"].(map[string]any)["enabled"])
	ingress := values["ingress"].(map[string]any)
	assert.Equal(t, "/flower", ingress["flower"].(map[string]any)["path"])

	dags := values["dags"].(map[string]any)["gitSync"].(map[string]any)
	assert.Equal(t, dagsSSHSecret, dags["sshKeySecret"])

	logs := values["logs"].(map[string]any)["persistence"].(map[string]any)
	assert.Equal(t, "dip-d1-airflow-logs", logs["existingClaim"])
}

func TestBuildValues_Grafana(t *testing.T) {
	d := &model.Deployment{
		ID: "d2", Namespace: "dip-d2", ApplicationID: catalog.AppGrafana,
		Config: model.ConfigMap{"version": "11.6", "replicas": 2},
	}
	web := viewOf(domainCluster(), d.Namespace, model.Endpoint{
		Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/grafana", Enabled: true,
	})

	values, err := buildValues(grafanaApp(t), d, map[string]endpointView{"web-ui": web})
	require.NoError(t, err)

	assert.Equal(t, float64(2), values["replicas"])
	assert.Equal(t, "11.6", values["image"].(map[string]any)["tag"])

	ingress := values["ingress"].(map[string]any)
	assert.Equal(t, "/grafana", ingress["path"])
	assert.Empty(t, ingress["hosts"], "cluster IP routing has no host rule")
	assert.Empty(t, ingress["tls"])

	server := values["grafana.ini"].(map[string]any)["server"].(map[string]any)
	assert.Equal(t, "http://10.0.0.5/grafana", server["root_url"])
}

func TestBuildValues_SparkIsEmpty(t *testing.T) {
	app, err := catalog.New("").ByID(catalog.AppSpark)
	require.NoError(t, err)

	values, err := buildValues(app, &model.Deployment{Config: model.ConfigMap{}}, nil)
	require.NoError(t, err)
	assert.Empty(t, values, "the operator chart takes no per-deployment values")
}

func TestSparkManifests(t *testing.T) {
	d := &model.Deployment{ID: "d3", Namespace: "dip-d3", Config: model.ConfigMap{}}
	cfg := model.ConfigMap{
		"version":      "3.5.5",
		"cluster_name": "etl",
		"min_workers":  2,
		"max_workers":  4,
	}
	web := viewOf(domainCluster(), d.Namespace, model.Endpoint{
		Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/spark", Enabled: true,
	})

	manifests, name, err := sparkManifests(cfg, d, map[string]endpointView{"web-ui": web})
	require.NoError(t, err)
	assert.Equal(t, "etl", name)

	out := string(manifests)
	assert.Contains(t, out, "kind: SparkCluster")
	assert.Contains(t, out, `namespace: "dip-d3"`)
	assert.Contains(t, out, "minWorkers: 2")
	assert.Contains(t, out, "maxWorkers: 4")
	assert.Contains(t, out, `spark.ui.reverseProxyUrl: "/spark"`)
	assert.Equal(t, 3, strings.Count(out, "\n---\n")+1, "cluster, service and middleware documents")
}

func TestSparkManifests_WorkerDefaults(t *testing.T) {
	d := &model.Deployment{ID: "d3", Namespace: "dip-d3"}
	cfg := model.ConfigMap{"version": "3.5.5", "cluster_name": "etl"}
	web := viewOf(domainCluster(), d.Namespace, model.Endpoint{
		Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/spark", Enabled: true,
	})

	manifests, _, err := sparkManifests(cfg, d, map[string]endpointView{"web-ui": web})
	require.NoError(t, err)
	assert.Contains(t, string(manifests), "minWorkers: 1")
	assert.Contains(t, string(manifests), "maxWorkers: 3")
}

func TestSparkIngressHelpers(t *testing.T) {
	assert.Equal(t, "etl-web-ui", sparkIngressName("etl"))

	annotations := sparkIngressAnnotations("dip-d3", "etl", entrypointWeb)
	assert.Equal(t, "web", annotations["traefik.ingress.kubernetes.io/router.entrypoints"])
	assert.Equal(t, "dip-d3-etl-strip-prefix@kubernetescrd",
		annotations["traefik.ingress.kubernetes.io/router.middlewares"])
}
