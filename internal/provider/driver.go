// Package provider defines the capability interface a cloud provider
// driver must implement, plus the registry that selects a driver from a
// cluster's provider field.
package provider

import (
	"context"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

// ServerCreateOpts holds all parameters for creating a server.
type ServerCreateOpts struct {
	Name       string
	ServerType string
	Region     string
	UserData   string
	SSHKeyName string
	// PlacementGroup spreads the pool's servers across physical hosts
	// when set.
	PlacementGroup string
	Labels         map[string]string
}

// ServerInfo is the provider-side view of a server.
type ServerInfo struct {
	ID       string
	Name     string
	PublicIP string
	Status   string
	Labels   map[string]string
}

// VolumeCreateOpts holds all parameters for creating a block volume.
type VolumeCreateOpts struct {
	Name    string
	SizeGiB int
	Region  string
	Labels  map[string]string
}

// Driver is the capability interface over an IaaS. One implementation
// exists per provider; calls are retried on transient failures inside
// the driver, and a resource that already exists on a create call is
// adopted rather than reported as an error.
type Driver interface {
	// EnsureSSHKey uploads the public key, adopting an existing key of
	// the same name.
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) error

	// EnsureFirewall creates the cluster firewall if absent.
	EnsureFirewall(ctx context.Context, name string, labels map[string]string) error

	// EnsureNetwork creates the cluster private network if absent.
	EnsureNetwork(ctx context.Context, name string, labels map[string]string) error

	// EnsurePlacementGroup creates a spread placement group if absent.
	EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) error

	// CreateServer creates a server with cloud-init user data and the
	// attached SSH key, returning its public IP.
	CreateServer(ctx context.Context, opts ServerCreateOpts) (string, error)

	// DeleteServer deletes the named server; absent servers are a no-op.
	DeleteServer(ctx context.Context, name string) error

	// ListServersByLabel returns servers matching a label selector.
	ListServersByLabel(ctx context.Context, selector string) ([]ServerInfo, error)

	// ServerStatus returns the provider's view of a server's state.
	ServerStatus(ctx context.Context, name string) (string, error)

	// CreateVolume creates a block volume, returning the provider ID.
	CreateVolume(ctx context.Context, opts VolumeCreateOpts) (string, error)

	// DeleteVolume deletes the named volume; absent volumes are a no-op.
	DeleteVolume(ctx context.Context, name string) error

	// AttachVolume attaches a volume to a server.
	AttachVolume(ctx context.Context, volumeName, serverName string) error

	// DetachVolume detaches a volume from whatever server holds it.
	DetachVolume(ctx context.Context, volumeName string) error

	// TeardownCluster removes every resource labeled with the cluster
	// ID: servers first, then non-retained volumes, then network,
	// firewall and SSH key. Discovery is label-based so resources
	// leaked by partial creates are reclaimed too.
	TeardownCluster(ctx context.Context, clusterID string) error
}

// Factory builds a driver from a provider API token.
type Factory func(token string) Driver

var drivers = map[string]Factory{}

// Register makes a driver available under a provider name. Called from
// driver packages at init time.
func Register(name string, factory Factory) {
	drivers[name] = factory
}

// ForCluster selects the driver for a cluster's provider field.
// Providers that appear in catalogs without a driver implementation
// (DigitalOcean) are a validation error, not a crash.
func ForCluster(providerName, token string) (Driver, error) {
	factory, ok := drivers[providerName]
	if !ok {
		if providerName == model.ProviderDigitalOcean {
			return nil, apperror.New(apperror.CodeValidation, "provider digitalocean is not implemented yet")
		}
		return nil, apperror.Newf(apperror.CodeValidation, "unknown provider %q", providerName)
	}
	return factory(token), nil
}
