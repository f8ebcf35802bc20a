package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMap_Accessors(t *testing.T) {
	m := ConfigMap{
		"name":      "etl",
		"enabled":   true,
		"wired":     "true",
		"replicas":  float64(3),
		"count":     2,
		"nil_value": nil,
	}

	assert.Equal(t, "etl", m.String("name"))
	assert.Equal(t, "", m.String("replicas"), "non-strings read as empty")

	assert.True(t, m.Bool("enabled"))
	assert.True(t, m.Bool("wired"), "wire values may arrive as strings")
	assert.False(t, m.Bool("name"))

	n, ok := m.Int("replicas")
	assert.True(t, ok)
	assert.Equal(t, 3, n, "JSON numbers decode as float64")
	n, ok = m.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = m.Int("name")
	assert.False(t, ok)

	assert.True(t, m.Has("name"))
	assert.False(t, m.Has("nil_value"))
	assert.False(t, m.Has("missing"))
}

func TestConfigMap_Merge(t *testing.T) {
	defaults := ConfigMap{"executor": "CeleryExecutor", "branch": "main"}
	merged := ConfigMap{"executor": "LocalExecutor"}.Merge(defaults)

	assert.Equal(t, "LocalExecutor", merged.String("executor"))
	assert.Equal(t, "main", merged.String("branch"))
	assert.Equal(t, "CeleryExecutor", defaults.String("executor"), "defaults are not mutated")
}

func TestConfigMap_ScanValue(t *testing.T) {
	value, err := ConfigMap{"a": 1}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(value.([]byte)))

	value, err = ConfigMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)

	var m ConfigMap
	require.NoError(t, m.Scan([]byte(`{"a":1}`)))
	n, ok := m.Int("a")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))
}
