package kube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIngress(t *testing.T) {
	ingress := BuildIngress("dip-d3", "etl-web-ui", IngressRule{
		Host:        "spark.example.com",
		Path:        "/spark",
		ServiceName: "etl-master-ui",
		ServicePort: 8080,
		TLSSecret:   "dip-d3-web-ui-tls",
		Annotations: map[string]string{"traefik.ingress.kubernetes.io/router.entrypoints": "websecure"},
	})

	assert.Equal(t, "etl-web-ui", ingress.Name)
	assert.Equal(t, "dip-d3", ingress.Namespace)
	assert.Equal(t, "traefik", *ingress.Spec.IngressClassName)
	assert.Equal(t, "websecure", ingress.Annotations["traefik.ingress.kubernetes.io/router.entrypoints"])

	require.Len(t, ingress.Spec.Rules, 1)
	rule := ingress.Spec.Rules[0]
	assert.Equal(t, "spark.example.com", rule.Host)
	require.Len(t, rule.HTTP.Paths, 1)
	path := rule.HTTP.Paths[0]
	assert.Equal(t, "/spark", path.Path)
	assert.Equal(t, "etl-master-ui", path.Backend.Service.Name)
	assert.Equal(t, int32(8080), path.Backend.Service.Port.Number)

	require.Len(t, ingress.Spec.TLS, 1)
	assert.Equal(t, []string{"spark.example.com"}, ingress.Spec.TLS[0].Hosts)
	assert.Equal(t, "dip-d3-web-ui-tls", ingress.Spec.TLS[0].SecretName)
}

func TestBuildIngress_NoTLSWithoutHost(t *testing.T) {
	ingress := BuildIngress("dip-d3", "etl-web-ui", IngressRule{
		Path:        "/spark",
		ServiceName: "etl-master-ui",
		ServicePort: 8080,
		TLSSecret:   "ignored",
	})
	assert.Empty(t, ingress.Spec.TLS, "host-less routes stay on plain HTTP")
	assert.Empty(t, ingress.Spec.Rules[0].Host)
}
