package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "dip-c1", SSHKey("c1"))
	assert.Equal(t, "dip-c1", Firewall("c1"))
	assert.Equal(t, "dip-c1", Network("c1"))
	assert.Equal(t, "analytics-workers-2", Server("analytics", "workers", 2))
	assert.Equal(t, "analytics-control-plane-1", ControlPlaneServer("analytics"))
	assert.Equal(t, "analytics-workers", PlacementGroup("analytics", "workers"))
	assert.Equal(t, "dip-d1", DeploymentNamespace("d1"))
	assert.Equal(t, "airflow-d1", ReleaseName("airflow", "d1"))
	assert.Equal(t, "dip-d1-airflow-logs", PVC("d1", "airflow-logs"))
	assert.Equal(t, "dip-d1-web-ui-tls", TLSSecret("dip-d1", "web-ui"))
	assert.Equal(t, "dip-d1-pull", PullSecret("d1"))
}

func TestControlPlaneServerMatchesPoolNaming(t *testing.T) {
	// Volume attachment targets the control-plane server by name, so the
	// shorthand must agree with the generic pool-based form.
	assert.Equal(t, Server("analytics", "control-plane", 1), ControlPlaneServer("analytics"))
}
