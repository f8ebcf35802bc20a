package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpointValue(t *testing.T) {
	tests := []struct {
		name       string
		accessType AccessType
		value      string
		want       string
	}{
		{"subdomain lowercased", AccessSubdomain, "Airflow", "airflow"},
		{"subdomain slashes stripped", AccessSubdomain, "/airflow/", "airflow"},
		{"subdomain whitespace trimmed", AccessSubdomain, "  airflow ", "airflow"},
		{"path gets leading slash", AccessClusterIPPath, "grafana", "/grafana"},
		{"path trailing slash stripped", AccessClusterIPPath, "/grafana/", "/grafana"},
		{"path double leading slash collapsed", AccessDomainPath, "//flower", "/flower"},
		{"path lowercased", AccessDomainPath, "/Flower", "/flower"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEndpointValue(tt.accessType, tt.value))
		})
	}
}

func TestNormalizeEndpointValue_Idempotent(t *testing.T) {
	for _, accessType := range []AccessType{AccessSubdomain, AccessDomainPath, AccessClusterIPPath} {
		for _, value := range []string{"Airflow", "/grafana/", "  spark "} {
			once := NormalizeEndpointValue(accessType, value)
			assert.Equal(t, once, NormalizeEndpointValue(accessType, once),
				"normalizing twice must equal normalizing once for %s %q", accessType, value)
		}
	}
}

func TestEndpointKey_EqualAfterNormalization(t *testing.T) {
	a := Endpoint{Name: "web-ui", AccessType: AccessDomainPath, Value: "/Grafana/"}
	b := Endpoint{Name: "other", AccessType: AccessDomainPath, Value: "grafana"}
	assert.Equal(t, a.Key(), b.Key())

	c := Endpoint{Name: "other", AccessType: AccessClusterIPPath, Value: "grafana"}
	assert.NotEqual(t, a.Key(), c.Key(), "access type is part of the key")
}

func TestEndpointKeys_SkipsDisabled(t *testing.T) {
	keys := EndpointKeys([]Endpoint{
		{Name: "web-ui", AccessType: AccessSubdomain, Value: "airflow", Enabled: true},
		{Name: "flower-ui", AccessType: AccessDomainPath, Value: "/flower", Enabled: false},
	})
	assert.Len(t, keys, 1)
	assert.Equal(t, "web-ui", keys[EndpointKey{AccessType: AccessSubdomain, Value: "airflow"}])
}
