package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/util/naming"
)

// Traefik entrypoints: domain-based endpoints terminate TLS on
// websecure, IP-based ones stay on plain web.
const (
	entrypointWeb       = "web"
	entrypointWebsecure = "websecure"
)

// endpointView is the routed form of an enabled endpoint: where it
// resolves, which path the backend sees and how the ingress is secured.
type endpointView struct {
	Endpoint   model.Endpoint
	Host       string
	Path       string
	BaseURL    string
	TLSSecret  string
	Entrypoint string
}

// viewOf computes the routing for one endpoint on a cluster. The
// caller has already validated domain requirements.
func viewOf(cluster *model.Cluster, namespace string, ep model.Endpoint) endpointView {
	view := endpointView{Endpoint: ep}

	switch ep.AccessType {
	case model.AccessSubdomain:
		view.Host = ep.Value + "." + cluster.DomainName
		view.Path = "/"
		view.BaseURL = "https://" + view.Host
		view.TLSSecret = naming.TLSSecret(namespace, ep.Name)
		view.Entrypoint = entrypointWebsecure
	case model.AccessDomainPath:
		view.Host = cluster.DomainName
		view.Path = ep.Value
		view.BaseURL = "https://" + view.Host + ep.Value
		view.TLSSecret = naming.TLSSecret(namespace, ep.Name)
		view.Entrypoint = entrypointWebsecure
	case model.AccessClusterIPPath:
		view.Path = ep.Value
		view.BaseURL = "http://" + cluster.AccessIP + ep.Value
		view.Entrypoint = entrypointWeb
	}
	return view
}

// admitEndpoints normalizes and validates a deployment's endpoints
// against the application schema and the cluster's existing endpoints.
// It returns the admitted set, which may be smaller than the input:
// an Airflow Flower endpoint is silently dropped when the executor
// configuration hides it. Callers pass existing without the updated
// deployment's own endpoints, so updates do not collide with themselves.
func admitEndpoints(app *catalog.Application, cluster *model.Cluster, cfg model.ConfigMap,
	endpoints []model.Endpoint, existing []model.Endpoint) ([]model.Endpoint, error) {

	schema := make(map[string]catalog.EndpointSchema, len(app.Endpoints))
	for _, s := range app.Endpoints {
		schema[s.Name] = s
	}

	var admitted []model.Endpoint
	var problems []string
	for _, ep := range endpoints {
		if _, ok := schema[ep.Name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown endpoint %q", ep.Name))
			continue
		}
		if !ep.AccessType.Valid() {
			problems = append(problems, fmt.Sprintf("endpoint %q: unknown access type %q", ep.Name, ep.AccessType))
			continue
		}
		ep.Value = model.NormalizeEndpointValue(ep.AccessType, ep.Value)
		if ep.Value == "" || ep.Value == "/" {
			problems = append(problems, fmt.Sprintf("endpoint %q: value is required", ep.Name))
			continue
		}
		if ep.Enabled && ep.AccessType != model.AccessClusterIPPath && cluster.DomainName == "" {
			problems = append(problems, fmt.Sprintf(
				"endpoint %q: access type %s requires the cluster to have a domain name", ep.Name, ep.AccessType))
			continue
		}
		if ep.Enabled && app.ID == catalog.AppAirflow && ep.Name == "flower-ui" && !flowerExposed(cfg) {
			// Hidden by the executor configuration; drop rather than reject.
			continue
		}
		admitted = append(admitted, ep)
	}

	enabled := make(map[string]bool, len(admitted))
	for _, ep := range admitted {
		if ep.Enabled {
			enabled[ep.Name] = true
		}
	}
	for _, s := range app.Endpoints {
		if s.Required && !enabled[s.Name] {
			problems = append(problems, fmt.Sprintf("endpoint %q is required", s.Name))
		}
	}

	if len(problems) > 0 {
		return nil, apperror.New(apperror.CodeValidation, strings.Join(problems, "; "))
	}

	taken := model.EndpointKeys(existing)
	seen := make(map[model.EndpointKey]string)
	for _, ep := range admitted {
		if !ep.Enabled {
			continue
		}
		key := ep.Key()
		if owner, ok := taken[key]; ok {
			return nil, apperror.Newf(apperror.CodeConflict,
				"endpoint %q: %s %q is already in use by endpoint %q", ep.Name, key.AccessType, key.Value, owner)
		}
		if prev, ok := seen[key]; ok {
			return nil, apperror.Newf(apperror.CodeConflict,
				"endpoints %q and %q request the same %s %q", prev, ep.Name, key.AccessType, key.Value)
		}
		seen[key] = ep.Name
	}
	return admitted, nil
}

// flowerExposed reports whether the Airflow Flower UI is reachable
// under the given config: Celery executor with Flower turned on.
func flowerExposed(cfg model.ConfigMap) bool {
	executor := cfg.String("executor")
	if executor == "" {
		executor = "CeleryExecutor"
	}
	return executor == "CeleryExecutor" && cfg.Bool("flower_enabled")
}

// EndpointExists reports whether an endpoint with the same normalized
// key is already enabled on the cluster. The client polls this while
// the user types; admission re-checks it authoritatively.
func (o *Orchestrator) EndpointExists(ctx context.Context, clusterID string, ep model.Endpoint) (bool, error) {
	if _, err := o.store.GetCluster(ctx, clusterID); err != nil {
		return false, err
	}
	existing, err := o.store.ListClusterEndpoints(ctx, clusterID)
	if err != nil {
		return false, err
	}
	_, taken := model.EndpointKeys(existing)[ep.Key()]
	return taken, nil
}
