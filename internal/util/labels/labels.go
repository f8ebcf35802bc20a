// Package labels provides consistent labeling for provider resources.
//
// Every resource created on a cloud provider carries the cluster ID, the
// server role and the pool name. Teardown discovers resources by the
// cluster label rather than by locally stored IDs, so leaked resources
// from partial creates are still reclaimed.
package labels

// Standard label keys applied to every provider resource.
const (
	KeyCluster = "dip/cluster"
	KeyRole    = "dip/role"
	KeyPool    = "dip/pool"
	// KeyRetained marks a volume that must survive cluster teardown.
	KeyRetained = "dip/retained"
)

// Role values.
const (
	RoleControlPlane = "control-plane"
	RoleWorker       = "worker"
)

// Builder accumulates labels for a provider resource.
type Builder struct {
	labels map[string]string
}

// ForCluster creates a builder with the cluster ID label pre-set.
func ForCluster(clusterID string) *Builder {
	return &Builder{
		labels: map[string]string{
			KeyCluster: clusterID,
		},
	}
}

// WithRole adds the server role label.
func (b *Builder) WithRole(role string) *Builder {
	b.labels[KeyRole] = role
	return b
}

// WithPool adds the pool name label.
func (b *Builder) WithPool(pool string) *Builder {
	b.labels[KeyPool] = pool
	return b
}

// WithRetained marks the resource as retained across teardown.
func (b *Builder) WithRetained() *Builder {
	b.labels[KeyRetained] = "true"
	return b
}

// Build returns a copy of the labels map.
func (b *Builder) Build() map[string]string {
	out := make(map[string]string, len(b.labels))
	for k, v := range b.labels {
		out[k] = v
	}
	return out
}

// SelectorForCluster returns a label selector matching all resources of a cluster.
func SelectorForCluster(clusterID string) string {
	return KeyCluster + "=" + clusterID
}

// IsRetained reports whether a resource's labels mark it as retained.
func IsRetained(resourceLabels map[string]string) bool {
	return resourceLabels[KeyRetained] == "true"
}
