package catalog

import (
	"regexp"

	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/model"
)

// Application IDs are stable and ordered by registration.
const (
	AppAirflow = 1
	AppGrafana = 2
	AppSpark   = 3
	AppPrefect = 4
)

var airflowVersionPattern = regexp.MustCompile(`^\d\.\d{1,2}\.\d$`)

func applications(artifactsDir string) []*Application {
	return []*Application{
		airflow(artifactsDir),
		grafana(artifactsDir),
		spark(artifactsDir),
		prefect(artifactsDir),
	}
}

func airflow(artifactsDir string) *Application {
	return &Application{
		ID:          AppAirflow,
		Key:         "airflow",
		DisplayName: "Apache Airflow",
		Chart: helm.ChartRef{
			RepoURL: "https://airflow.apache.org",
			Name:    "airflow",
			Version: "1.15.0",
		},
		ArtifactPath:      artifact(artifactsDir, "airflow"),
		StaticCredentials: &model.Credentials{Username: "admin", Password: "admin"},
		Options: []ConfigOption{
			{ID: "version", Label: "Airflow version", Type: OptionSelect, Required: true, Fetched: true,
				Conditional: &Condition{Field: "custom_image", Value: false}},
			{ID: "instance_name", Label: "Instance name", Type: OptionText, Required: true},
			{ID: "dags_repository", Label: "DAGs repository URL", Type: OptionText, Required: true},
			{ID: "dags_repository_branch", Label: "DAGs branch", Type: OptionText, Default: "main"},
			{ID: "dags_repository_subpath", Label: "DAGs subpath", Type: OptionText, Default: "dags"},
			{ID: "dags_repository_private", Label: "Private DAGs repository", Type: OptionBoolean, Default: false},
			{ID: "dags_repository_ssh_private_key", Label: "DAGs deploy key", Type: OptionText, Required: true,
				Conditional: &Condition{Field: "dags_repository_private", Value: true}},
			{ID: "executor", Label: "Executor", Type: OptionSelect, Default: "CeleryExecutor",
				Options: []string{"CeleryExecutor", "LocalExecutor", "KubernetesExecutor"}},
			{ID: "flower_enabled", Label: "Enable Flower UI", Type: OptionBoolean, Default: false,
				Conditional: &Condition{Field: "executor", Value: "CeleryExecutor"}},
			{ID: "pgbouncer_enabled", Label: "Enable PgBouncer", Type: OptionBoolean, Default: false},
			{ID: "custom_image", Label: "Use custom image", Type: OptionBoolean, Default: false},
			{ID: "custom_image_registry", Label: "Image registry", Type: OptionText, Required: true,
				Conditional: &Condition{Field: "custom_image", Value: true}},
			{ID: "custom_image_tag", Label: "Image tag", Type: OptionText, Required: true,
				Conditional: &Condition{Field: "custom_image", Value: true}},
			{ID: "custom_image_registry_username", Label: "Registry username", Type: OptionText, Required: true,
				Conditional: &Condition{Field: "custom_image", Value: true}},
			{ID: "custom_image_registry_password", Label: "Registry password", Type: OptionText, Required: true,
				Conditional: &Condition{Field: "custom_image", Value: true}},
		},
		Volumes: []VolumeRequirement{
			{Name: "airflow-logs", DefaultSize: 100, Description: "Persistent storage for Airflow logs"},
		},
		Endpoints: []EndpointSchema{
			{Name: "web-ui", Description: "Airflow Web UI", DefaultAccess: model.AccessSubdomain,
				DefaultValue: "airflow", Required: true},
			{Name: "flower-ui", Description: "Airflow Flower UI", DefaultAccess: model.AccessDomainPath,
				DefaultValue: "/flower", Required: false},
		},
		versionsURL:    "https://api.github.com/repos/apache/airflow/releases",
		versionPattern: airflowVersionPattern,
	}
}

func grafana(artifactsDir string) *Application {
	return &Application{
		ID:          AppGrafana,
		Key:         "grafana",
		DisplayName: "Grafana",
		Chart: helm.ChartRef{
			RepoURL: "https://grafana.github.io/helm-charts",
			Name:    "grafana",
			Version: "8.12.1",
		},
		ArtifactPath:      artifact(artifactsDir, "grafana"),
		CredentialsSecret: "grafana",
		SecretKeys:        SecretKeys{Username: "admin-user", Password: "admin-password"},
		Options: []ConfigOption{
			{ID: "version", Label: "Grafana version", Type: OptionSelect, Required: true, Fetched: true},
			{ID: "replicas", Label: "Replica count", Type: OptionNumber, Default: 1},
		},
		Endpoints: []EndpointSchema{
			{Name: "web-ui", Description: "Grafana Web UI", DefaultAccess: model.AccessClusterIPPath,
				DefaultValue: "/grafana", Required: true},
		},
		staticVersions: []string{"11.6", "11.5", "11.4"},
	}
}

func spark(artifactsDir string) *Application {
	return &Application{
		ID:          AppSpark,
		Key:         "spark",
		DisplayName: "Apache Spark",
		Chart: helm.ChartRef{
			RepoURL: "https://apache.github.io/spark-kubernetes-operator",
			Name:    "spark-kubernetes-operator",
			Version: "1.0.0",
		},
		ArtifactPath: artifact(artifactsDir, "spark"),
		Options: []ConfigOption{
			{ID: "version", Label: "Spark version", Type: OptionSelect, Required: true, Fetched: true},
			{ID: "cluster_name", Label: "Spark cluster name", Type: OptionText, Required: true},
			{ID: "min_workers", Label: "Minimum workers", Type: OptionNumber, Default: 1},
			{ID: "max_workers", Label: "Maximum workers", Type: OptionNumber, Default: 3},
		},
		Endpoints: []EndpointSchema{
			{Name: "web-ui", Description: "Spark Web UI", DefaultAccess: model.AccessClusterIPPath,
				DefaultValue: "/spark", Required: true},
		},
		staticVersions: []string{"3.5.5", "3.5.1", "3.5.0"},
	}
}

func prefect(artifactsDir string) *Application {
	return &Application{
		ID:          AppPrefect,
		Key:         "prefect",
		DisplayName: "Prefect",
		Chart: helm.ChartRef{
			RepoURL: "https://prefecthq.github.io/prefect-helm",
			Name:    "prefect-server",
			Version: "2025.7.10174756",
		},
		ArtifactPath:      artifact(artifactsDir, "prefect"),
		CredentialsSecret: "prefect-creds",
		SecretKeys:        SecretKeys{Password: "auth-string"},
		Options: []ConfigOption{
			{ID: "version", Label: "Prefect version", Type: OptionSelect, Required: true, Fetched: true},
		},
		Endpoints: []EndpointSchema{
			{Name: "web-ui", Description: "Prefect Web UI", DefaultAccess: model.AccessClusterIPPath,
				DefaultValue: "/prefect", Required: true},
		},
		staticVersions: []string{"3.4.8", "3.4.7"},
	}
}
