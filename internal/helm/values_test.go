package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	base := Values{
		"replicas": 1,
		"image":    map[string]any{"repository": "apache/airflow", "tag": "2.10.3"},
	}
	override := Values{
		"image":   map[string]any{"tag": "2.10.3-acme1"},
		"ingress": map[string]any{"enabled": true},
	}

	merged := Merge(base, override)

	image := merged["image"].(map[string]any)
	assert.Equal(t, "apache/airflow", image["repository"], "untouched nested keys survive")
	assert.Equal(t, "2.10.3-acme1", image["tag"], "later maps win")
	assert.Equal(t, 1, merged["replicas"])
	assert.Equal(t, true, merged["ingress"].(map[string]any)["enabled"])
}

func TestMerge_ScalarReplacesMap(t *testing.T) {
	merged := Merge(
		Values{"persistence": map[string]any{"enabled": true}},
		Values{"persistence": false},
	)
	assert.Equal(t, false, merged["persistence"])
}

func TestFromYAML_StringKeys(t *testing.T) {
	values, err := FromYAML([]byte("ingress:\n  web:\n    enabled: true\n    hosts:\n      - name: airflow.example.com\n"))
	require.NoError(t, err)

	ingress, ok := values["ingress"].(map[string]any)
	require.True(t, ok, "nested maps must be string-keyed for the Helm action API")
	web, ok := ingress["web"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, web["enabled"])
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := FromYAML([]byte(":\n  - ["))
	assert.Error(t, err)
}

func TestToYAMLRoundTrip(t *testing.T) {
	in := Values{"server": map[string]any{"basePath": "/prefect"}}
	data, err := in.ToYAML()
	require.NoError(t, err)

	out, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, "/prefect", out["server"].(map[string]any)["basePath"])
}
