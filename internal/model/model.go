// Package model defines the persisted entities of the control plane:
// clusters, node pools, deployments, access endpoints and volumes.
//
// The store is the single source of truth; orchestrators read desired
// state from these types and write actual state back.
package model

import (
	"time"
)

// Status is the lifecycle state shared by clusters, deployments and volumes.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCreating  Status = "creating"
	StatusRunning   Status = "running"
	StatusUpdating  Status = "updating"
	StatusDeploying Status = "deploying"
	StatusFailed    Status = "failed"
	StatusDeleting  Status = "deleting"
)

// Terminal reports whether the status is a resting state.
// A failed resource still allows deletion.
func (s Status) Terminal() bool {
	return s == StatusRunning || s == StatusFailed
}

// ProviderHetzner is the only provider with a driver implementation.
// ProviderDigitalOcean appears in catalogs but has no driver yet.
const (
	ProviderHetzner      = "hetzner"
	ProviderDigitalOcean = "digitalocean"
)

// Cluster is the root aggregate. It exclusively owns its pools,
// deployments and addon configuration.
type Cluster struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Provider   string    `db:"provider" json:"provider"`
	K3sVersion string    `db:"k3s_version" json:"k3s_version"`
	DomainName string    `db:"domain_name" json:"domain_name,omitempty"`
	AccessIP   string    `db:"access_ip" json:"access_ip,omitempty"`
	Status     Status    `db:"status" json:"status"`
	ErrorMsg   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Pools       []Pool       `json:"pools"`
	Deployments []Deployment `json:"deployments"`
	Addons      AddonConfig  `json:"additional_components"`

	// Credentials are stored with the cluster but never serialized
	// into query responses.
	Credentials ClusterCredentials `json:"-"`
}

// ControlPlanePool returns the pool designated as control plane.
// Every valid cluster has exactly one.
func (c *Cluster) ControlPlanePool() *Pool {
	for i := range c.Pools {
		if c.Pools[i].ControlPlane {
			return &c.Pools[i]
		}
	}
	return nil
}

// WorkerPools returns all pools that are not the control plane.
func (c *Cluster) WorkerPools() []Pool {
	var workers []Pool
	for _, p := range c.Pools {
		if !p.ControlPlane {
			workers = append(workers, p)
		}
	}
	return workers
}

// ClusterCredentials holds the secrets attached to a cluster row.
type ClusterCredentials struct {
	ProviderToken string `db:"provider_token"`
	SSHPrivateKey string `db:"ssh_private_key"`
	SSHPublicKey  string `db:"ssh_public_key"`
	K3sToken      string `db:"k3s_token"`
	Kubeconfig    string `db:"kubeconfig"`
}

// AddonConfig holds cluster-wide addon settings.
type AddonConfig struct {
	TraefikDashboard TraefikDashboardConfig `json:"traefik_dashboard"`
}

// TraefikDashboardConfig configures the Traefik dashboard addon.
// The password is bcrypt-hashed before it reaches the cluster and is
// never serialized into query responses.
type TraefikDashboardConfig struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// Autoscaling is an optional node count range for a pool.
type Autoscaling struct {
	Enabled  bool `json:"enabled"`
	MinNodes int  `json:"min_nodes"`
	MaxNodes int  `json:"max_nodes"`
}

// Pool is a named set of homogeneous servers within a cluster,
// pinned to one node type and one region.
type Pool struct {
	ID           string       `db:"id" json:"id"`
	ClusterID    string       `db:"cluster_id" json:"-"`
	Name         string       `db:"name" json:"name"`
	NodeType     string       `db:"node_type" json:"node_type"`
	Region       string       `db:"region" json:"region"`
	Count        int          `db:"node_count" json:"number_of_nodes"`
	ControlPlane bool         `db:"control_plane" json:"control_plane"`
	Autoscaling  *Autoscaling `json:"autoscaling,omitempty"`
}

// AccessType classifies how an endpoint is routed into a deployment.
type AccessType string

const (
	AccessSubdomain     AccessType = "subdomain"
	AccessDomainPath    AccessType = "domain_path"
	AccessClusterIPPath AccessType = "cluster_ip_path"
)

// Valid reports whether the access type is one of the known values.
func (a AccessType) Valid() bool {
	switch a {
	case AccessSubdomain, AccessDomainPath, AccessClusterIPPath:
		return true
	}
	return false
}

// Endpoint is a user-visible URL routed into a deployment.
type Endpoint struct {
	Name       string     `db:"name" json:"name"`
	AccessType AccessType `db:"access_type" json:"access_type"`
	Value      string     `db:"value" json:"value"`
	Enabled    bool       `db:"enabled" json:"enabled"`
}

// VolumeBinding references a volume by name from a deployment.
// Deployments reference but never own volumes.
type VolumeBinding struct {
	DeploymentID string `db:"deployment_id" json:"-"`
	VolumeName   string `db:"volume_name" json:"volume_name"`
	// Existing marks a binding to a pre-existing user volume, which is
	// attached at bind time and must never be deleted with the deployment.
	Existing bool   `db:"existing" json:"existing"`
	PVCName  string `db:"pvc_name" json:"pvc_name,omitempty"`
}

// Deployment is an application instance on a cluster.
type Deployment struct {
	ID            string `db:"id" json:"id"`
	ClusterID     string `db:"cluster_id" json:"cluster_id"`
	Name          string `db:"name" json:"name"`
	ApplicationID int    `db:"application_id" json:"application_id"`
	Namespace     string `db:"namespace" json:"namespace"`
	// ReleaseName is the Helm release name. It is fixed at install time
	// and never changes, even when the deployment is renamed.
	ReleaseName string    `db:"release_name" json:"-"`
	NodePool    string    `db:"node_pool" json:"node_pool,omitempty"`
	Config      ConfigMap `db:"config" json:"config"`
	Status      Status    `db:"status" json:"status"`
	ErrorMsg    string    `db:"error_message" json:"error_message,omitempty"`
	InstalledAt time.Time `db:"installed_at" json:"installed_at"`

	Endpoints []Endpoint      `json:"endpoints"`
	Volumes   []VolumeBinding `json:"volumes"`
}

// Volume is a provider block volume. It is in use while at least one
// deployment binds it.
type Volume struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	SizeGiB     int       `db:"size_gib" json:"size"`
	Provider    string    `db:"provider" json:"provider"`
	Region      string    `db:"region" json:"region"`
	Description string    `db:"description" json:"description,omitempty"`
	Status      Status    `db:"status" json:"status"`
	InUse       bool      `db:"in_use" json:"in_use"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Credentials are the first-login credentials of a deployed application.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
