package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_CloudInit(t *testing.T) {
	out, err := File("cloudinit/control-plane.yaml", map[string]any{
		"Hostname": "analytics-control-plane-1",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "#cloud-config"))
	assert.Contains(t, out, "hostname: analytics-control-plane-1")
}

func TestFile_MissingVariableFails(t *testing.T) {
	_, err := File("cloudinit/control-plane.yaml", map[string]any{})
	require.Error(t, err, "missingkey=error must reject incomplete data")
	assert.Contains(t, err.Error(), "Hostname")
}

func TestFile_UnknownTemplate(t *testing.T) {
	_, err := File("cloudinit/does-not-exist.yaml", nil)
	assert.ErrorContains(t, err, "failed to read template")
}

func TestManifests_JoinsDocuments(t *testing.T) {
	out, err := Manifests("addons/hcloud-csi", map[string]any{
		"Token":      "secret-token",
		"CSIVersion": "2.9.0",
	})
	require.NoError(t, err)

	docs := strings.Split(string(out), "\n---\n")
	assert.Len(t, docs, 7, "six template files, with rbac bundling two documents")
	assert.Contains(t, string(out), "secret-token")
	assert.Contains(t, string(out), "2.9.0")
}

func TestManifests_UnknownDirectory(t *testing.T) {
	_, err := Manifests("addons/nope", nil)
	assert.ErrorContains(t, err, "failed to read manifests")
}
