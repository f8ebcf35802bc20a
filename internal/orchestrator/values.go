package orchestrator

import (
	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/render"
)

// dagsSSHSecret is the namespace-local secret holding the deploy key
// for a private DAGs repository. The chart's gitSync reads the
// "gitSshKey" entry.
const dagsSSHSecret = "airflow-dags-ssh"

// effectiveConfig overlays the user config onto the schema defaults.
func effectiveConfig(app *catalog.Application, cfg model.ConfigMap) model.ConfigMap {
	defaults := make(model.ConfigMap)
	for _, opt := range app.Options {
		if opt.Default != nil {
			defaults[opt.ID] = opt.Default
		}
	}
	return cfg.Merge(defaults)
}

// buildValues renders the chart values for a deployment from merged
// defaults, user config and the computed endpoint routing.
func buildValues(app *catalog.Application, d *model.Deployment, views map[string]endpointView) (helm.Values, error) {
	cfg := effectiveConfig(app, d.Config)

	switch app.ID {
	case catalog.AppAirflow:
		return airflowValues(app, cfg, d, views)
	case catalog.AppGrafana:
		return grafanaValues(cfg, views)
	case catalog.AppSpark:
		// The operator chart takes no per-deployment values; the
		// SparkCluster resource carries the configuration.
		return helm.Values{}, nil
	case catalog.AppPrefect:
		return prefectValues(cfg, views)
	}
	return nil, apperror.Newf(apperror.CodeInternal, "no values builder for application %d", app.ID)
}

type airflowHost struct {
	Name      string
	TLSSecret string
}

type airflowValuesData struct {
	Version           string
	Executor          string
	ImageRepository   string
	ImageTag          string
	FlowerEnabled     bool
	BaseURL           string
	InstanceName      string
	Entrypoint        string
	WebPath           string
	WebHosts          []airflowHost
	FlowerPath        string
	PgBouncerEnabled  bool
	DagsRepository    string
	DagsBranch        string
	DagsSubPath       string
	DagsSSHKeySecret  string
	LogsSize          int
	LogsExistingClaim string
}

func airflowValues(app *catalog.Application, cfg model.ConfigMap, d *model.Deployment, views map[string]endpointView) (helm.Values, error) {
	web, ok := views["web-ui"]
	if !ok {
		return nil, apperror.New(apperror.CodeInternal, "airflow deployment admitted without a web-ui endpoint")
	}

	logsSize := 100
	for _, req := range app.Volumes {
		if req.Name == "airflow-logs" {
			logsSize = req.DefaultSize
		}
	}

	data := airflowValuesData{
		Version:          cfg.String("version"),
		Executor:         cfg.String("executor"),
		PgBouncerEnabled: cfg.Bool("pgbouncer_enabled"),
		InstanceName:     cfg.String("instance_name"),
		BaseURL:          web.BaseURL,
		Entrypoint:       web.Entrypoint,
		WebPath:          web.Path,
		DagsRepository:   cfg.String("dags_repository"),
		DagsBranch:       cfg.String("dags_repository_branch"),
		DagsSubPath:      cfg.String("dags_repository_subpath"),
		LogsSize:         logsSize,
	}
	if web.Host != "" {
		data.WebHosts = []airflowHost{{Name: web.Host, TLSSecret: web.TLSSecret}}
	}
	if flower, ok := views["flower-ui"]; ok {
		data.FlowerEnabled = true
		data.FlowerPath = flower.Path
	}
	if cfg.Bool("custom_image") {
		data.ImageRepository = cfg.String("custom_image_registry")
		data.ImageTag = cfg.String("custom_image_tag")
		if data.Version == "" {
			data.Version = data.ImageTag
		}
	}
	if cfg.Bool("dags_repository_private") {
		data.DagsSSHKeySecret = dagsSSHSecret
	}
	for _, binding := range d.Volumes {
		if !binding.Existing && binding.VolumeName == "airflow-logs" {
			data.LogsExistingClaim = binding.PVCName
		}
	}

	rendered, err := render.File("apps/airflow/values.yaml", data)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "airflow values render failed", err)
	}
	return helm.FromYAML([]byte(rendered))
}

type tlsEntry struct {
	Host       string
	SecretName string
}

type grafanaValuesData struct {
	Replicas   int
	Entrypoint string
	Path       string
	Hosts      []string
	TLS        []tlsEntry
	BaseURL    string
}

func grafanaValues(cfg model.ConfigMap, views map[string]endpointView) (helm.Values, error) {
	web, ok := views["web-ui"]
	if !ok {
		return nil, apperror.New(apperror.CodeInternal, "grafana deployment admitted without a web-ui endpoint")
	}

	replicas, ok := cfg.Int("replicas")
	if !ok {
		replicas = 1
	}
	data := grafanaValuesData{
		Replicas:   replicas,
		Entrypoint: web.Entrypoint,
		Path:       web.Path,
		BaseURL:    web.BaseURL,
	}
	if web.Host != "" {
		data.Hosts = []string{web.Host}
		data.TLS = []tlsEntry{{Host: web.Host, SecretName: web.TLSSecret}}
	}

	rendered, err := render.File("apps/grafana/values.yaml", data)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "grafana values render failed", err)
	}
	values, err := helm.FromYAML([]byte(rendered))
	if err != nil {
		return nil, err
	}
	if version := cfg.String("version"); version != "" {
		values = helm.Merge(values, helm.Values{
			"image": map[string]any{"tag": version},
		})
	}
	return values, nil
}

type prefectValuesData struct {
	BasePath   string
	Entrypoint string
	Hostname   string
	Path       string
}

func prefectValues(cfg model.ConfigMap, views map[string]endpointView) (helm.Values, error) {
	web, ok := views["web-ui"]
	if !ok {
		return nil, apperror.New(apperror.CodeInternal, "prefect deployment admitted without a web-ui endpoint")
	}

	data := prefectValuesData{
		BasePath:   web.Path,
		Entrypoint: web.Entrypoint,
		Hostname:   web.Host,
		Path:       web.Path,
	}
	rendered, err := render.File("apps/prefect/values.yaml", data)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "prefect values render failed", err)
	}
	return helm.FromYAML([]byte(rendered))
}

// sparkManifestData feeds the SparkCluster resource, the master UI
// service and the strip-prefix middleware.
type sparkManifestData struct {
	ClusterName string
	Namespace   string
	Version     string
	MinWorkers  int
	MaxWorkers  int
	WebUIPath   string
}

func sparkManifests(cfg model.ConfigMap, d *model.Deployment, views map[string]endpointView) ([]byte, string, error) {
	web, ok := views["web-ui"]
	if !ok {
		return nil, "", apperror.New(apperror.CodeInternal, "spark deployment admitted without a web-ui endpoint")
	}
	minWorkers, ok := cfg.Int("min_workers")
	if !ok {
		minWorkers = 1
	}
	maxWorkers, ok := cfg.Int("max_workers")
	if !ok {
		maxWorkers = 3
	}
	data := sparkManifestData{
		ClusterName: cfg.String("cluster_name"),
		Namespace:   d.Namespace,
		Version:     cfg.String("version"),
		MinWorkers:  minWorkers,
		MaxWorkers:  maxWorkers,
		WebUIPath:   web.Path,
	}
	manifests, err := render.Manifests("apps/spark/manifests", data)
	if err != nil {
		return nil, "", apperror.Wrap(apperror.CodeInternal, "spark manifest render failed", err)
	}
	return manifests, data.ClusterName, nil
}

// sparkIngressName names the ingress created for a Spark cluster's web UI.
func sparkIngressName(sparkClusterName string) string {
	return sparkClusterName + "-web-ui"
}

// sparkIngressAnnotations routes through the strip-prefix middleware so
// the master UI sees requests at its root.
func sparkIngressAnnotations(namespace, sparkClusterName, entrypoint string) map[string]string {
	return map[string]string{
		"traefik.ingress.kubernetes.io/router.entrypoints": entrypoint,
		"traefik.ingress.kubernetes.io/router.priority":    "10",
		"traefik.ingress.kubernetes.io/router.middlewares": namespace + "-" + sparkClusterName + "-strip-prefix@kubernetescrd",
	}
}
