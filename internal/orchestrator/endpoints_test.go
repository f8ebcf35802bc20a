package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/model"
)

func domainCluster() *model.Cluster {
	return &model.Cluster{
		ID:         "c1",
		Name:       "analytics",
		DomainName: "example.com",
		AccessIP:   "10.0.0.5",
	}
}

func TestViewOf_Subdomain(t *testing.T) {
	view := viewOf(domainCluster(), "dip-d1", model.Endpoint{
		Name: "web-ui", AccessType: model.AccessSubdomain, Value: "airflow", Enabled: true,
	})
	assert.Equal(t, "airflow.example.com", view.Host)
	assert.Equal(t, "/", view.Path)
	assert.Equal(t, "https://airflow.example.com", view.BaseURL)
	assert.Equal(t, "dip-d1-web-ui-tls", view.TLSSecret)
	assert.Equal(t, entrypointWebsecure, view.Entrypoint)
}

func TestViewOf_DomainPath(t *testing.T) {
	view := viewOf(domainCluster(), "dip-d1", model.Endpoint{
		Name: "flower-ui", AccessType: model.AccessDomainPath, Value: "/flower", Enabled: true,
	})
	assert.Equal(t, "example.com", view.Host)
	assert.Equal(t, "/flower", view.Path)
	assert.Equal(t, "https://example.com/flower", view.BaseURL)
	assert.Equal(t, entrypointWebsecure, view.Entrypoint)
}

func TestViewOf_ClusterIPPath(t *testing.T) {
	view := viewOf(domainCluster(), "dip-d1", model.Endpoint{
		Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/grafana", Enabled: true,
	})
	assert.Empty(t, view.Host)
	assert.Empty(t, view.TLSSecret)
	assert.Equal(t, "http://10.0.0.5/grafana", view.BaseURL)
	assert.Equal(t, entrypointWeb, view.Entrypoint)
}

func grafanaApp(t *testing.T) *catalog.Application {
	t.Helper()
	app, err := catalog.New("").ByID(catalog.AppGrafana)
	require.NoError(t, err)
	return app
}

func airflowApp(t *testing.T) *catalog.Application {
	t.Helper()
	app, err := catalog.New("").ByID(catalog.AppAirflow)
	require.NoError(t, err)
	return app
}

func TestAdmitEndpoints_NormalizesValues(t *testing.T) {
	admitted, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "Grafana/", Enabled: true},
	}, nil)
	require.NoError(t, err)
	require.Len(t, admitted, 1)
	assert.Equal(t, "/grafana", admitted[0].Value)
}

func TestAdmitEndpoints_UnknownEndpoint(t *testing.T) {
	_, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, []model.Endpoint{
		{Name: "admin-ui", AccessType: model.AccessClusterIPPath, Value: "/admin", Enabled: true},
		{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/grafana", Enabled: true},
	}, nil)
	assert.True(t, apperror.IsValidation(err))
	assert.ErrorContains(t, err, `unknown endpoint "admin-ui"`)
}

func TestAdmitEndpoints_InvalidAccessType(t *testing.T) {
	_, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, []model.Endpoint{
		{Name: "web-ui", AccessType: "node_port", Value: "/grafana", Enabled: true},
	}, nil)
	assert.ErrorContains(t, err, `unknown access type "node_port"`)
}

func TestAdmitEndpoints_EmptyValue(t *testing.T) {
	_, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/", Enabled: true},
	}, nil)
	assert.ErrorContains(t, err, `value is required`)
}

func TestAdmitEndpoints_DomainRequired(t *testing.T) {
	cluster := domainCluster()
	cluster.DomainName = ""

	_, err := admitEndpoints(grafanaApp(t), cluster, nil, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessSubdomain, Value: "grafana", Enabled: true},
	}, nil)
	assert.True(t, apperror.IsValidation(err))
	assert.ErrorContains(t, err, "requires the cluster to have a domain name")
}

func TestAdmitEndpoints_RequiredEndpointMissing(t *testing.T) {
	_, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, nil, nil)
	assert.ErrorContains(t, err, `endpoint "web-ui" is required`)
}

func TestAdmitEndpoints_ConflictWithExisting(t *testing.T) {
	existing := []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/grafana", Enabled: true},
	}
	_, err := admitEndpoints(grafanaApp(t), domainCluster(), nil, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/Grafana/", Enabled: true},
	}, existing)
	assert.True(t, apperror.IsConflict(err), "normalized values must collide")
	assert.ErrorContains(t, err, "already in use")
}

func TestAdmitEndpoints_ConflictWithinRequest(t *testing.T) {
	cfg := model.ConfigMap{"executor": "CeleryExecutor", "flower_enabled": true}
	_, err := admitEndpoints(airflowApp(t), domainCluster(), cfg, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessDomainPath, Value: "/airflow", Enabled: true},
		{Name: "flower-ui", AccessType: model.AccessDomainPath, Value: "/Airflow", Enabled: true},
	}, nil)
	assert.True(t, apperror.IsConflict(err))
	assert.ErrorContains(t, err, "request the same")
}

func TestAdmitEndpoints_FlowerDroppedWhenHidden(t *testing.T) {
	for _, cfg := range []model.ConfigMap{
		{"executor": "LocalExecutor", "flower_enabled": true},
		{"executor": "CeleryExecutor", "flower_enabled": false},
		{"executor": "CeleryExecutor"},
	} {
		admitted, err := admitEndpoints(airflowApp(t), domainCluster(), cfg, []model.Endpoint{
			{Name: "web-ui", AccessType: model.AccessSubdomain, Value: "airflow", Enabled: true},
			{Name: "flower-ui", AccessType: model.AccessDomainPath, Value: "/flower", Enabled: true},
		}, nil)
		require.NoError(t, err, "config %v", cfg)
		require.Len(t, admitted, 1, "config %v", cfg)
		assert.Equal(t, "web-ui", admitted[0].Name)
	}
}

func TestAdmitEndpoints_FlowerKeptWhenExposed(t *testing.T) {
	cfg := model.ConfigMap{"executor": "CeleryExecutor", "flower_enabled": true}
	admitted, err := admitEndpoints(airflowApp(t), domainCluster(), cfg, []model.Endpoint{
		{Name: "web-ui", AccessType: model.AccessSubdomain, Value: "airflow", Enabled: true},
		{Name: "flower-ui", AccessType: model.AccessDomainPath, Value: "/flower", Enabled: true},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, admitted, 2)
}

func TestFlowerExposed(t *testing.T) {
	assert.True(t, flowerExposed(model.ConfigMap{"flower_enabled": true}),
		"executor defaults to CeleryExecutor")
	assert.False(t, flowerExposed(model.ConfigMap{"executor": "KubernetesExecutor", "flower_enabled": true}))
	assert.False(t, flowerExposed(model.ConfigMap{"executor": "CeleryExecutor"}))
}
