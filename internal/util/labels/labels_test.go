package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	got := ForCluster("c1").WithRole(RoleWorker).WithPool("workers").Build()
	assert.Equal(t, map[string]string{
		KeyCluster: "c1",
		KeyRole:    RoleWorker,
		KeyPool:    "workers",
	}, got)
}

func TestBuilder_BuildCopies(t *testing.T) {
	b := ForCluster("c1")
	first := b.Build()
	first[KeyRole] = "tampered"
	assert.NotContains(t, b.Build(), KeyRole)
}

func TestSelectorForCluster(t *testing.T) {
	assert.Equal(t, "dip/cluster=c1", SelectorForCluster("c1"))
}

func TestIsRetained(t *testing.T) {
	assert.True(t, IsRetained(map[string]string{KeyRetained: "true"}))
	assert.False(t, IsRetained(map[string]string{KeyRetained: "false"}))
	assert.False(t, IsRetained(nil))
}
