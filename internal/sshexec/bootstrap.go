package sshexec

import (
	"context"

	"github.com/datainfrapilot/dip/internal/config"
)

// Bootstrap drives the k3s installation on cluster nodes. It bundles
// client construction and the provisioning commands behind one type so
// the orchestrator can swap it for a fake in tests.
type Bootstrap struct {
	timeouts    config.Timeouts
	provisioner *Provisioner
}

// NewBootstrap creates a Bootstrap with the configured timeouts.
func NewBootstrap(timeouts config.Timeouts) *Bootstrap {
	return &Bootstrap{
		timeouts:    timeouts,
		provisioner: NewProvisioner(timeouts.K3sReady),
	}
}

func (b *Bootstrap) client(host string, privateKey []byte) (*Client, error) {
	return NewClient(&Config{
		Host:           host,
		PrivateKey:     privateKey,
		CommandTimeout: b.timeouts.SSHCommand,
	})
}

// InstallControlPlane waits for the node's first boot and installs the
// k3s server.
func (b *Bootstrap) InstallControlPlane(ctx context.Context, privateKey []byte, host, version, token, poolName string) error {
	client, err := b.client(host, privateKey)
	if err != nil {
		return err
	}
	if err := b.provisioner.WaitCloudInit(ctx, client); err != nil {
		return err
	}
	if err := b.provisioner.InstallControlPlane(ctx, client, version, token, poolName); err != nil {
		return err
	}
	return b.provisioner.WaitForK3s(ctx, client)
}

// JoinWorker waits for a worker's first boot and joins it to the
// control plane.
func (b *Bootstrap) JoinWorker(ctx context.Context, privateKey []byte, host, version, controlPlaneIP, token, poolName string) error {
	client, err := b.client(host, privateKey)
	if err != nil {
		return err
	}
	if err := b.provisioner.WaitCloudInit(ctx, client); err != nil {
		return err
	}
	return b.provisioner.JoinWorker(ctx, client, version, controlPlaneIP, token, poolName)
}

// NodeToken reads the join token from the control plane.
func (b *Bootstrap) NodeToken(ctx context.Context, privateKey []byte, host string) (string, error) {
	client, err := b.client(host, privateKey)
	if err != nil {
		return "", err
	}
	return b.provisioner.NodeToken(ctx, client)
}

// FetchKubeconfig reads the admin kubeconfig, rewritten to the public IP.
func (b *Bootstrap) FetchKubeconfig(ctx context.Context, privateKey []byte, host string) (string, error) {
	client, err := b.client(host, privateKey)
	if err != nil {
		return "", err
	}
	return b.provisioner.FetchKubeconfig(ctx, client, host)
}

// WaitForNodes blocks until the expected node count reports Ready.
func (b *Bootstrap) WaitForNodes(ctx context.Context, privateKey []byte, host string, expected int) error {
	client, err := b.client(host, privateKey)
	if err != nil {
		return err
	}
	return b.provisioner.WaitForNodesReady(ctx, client, expected)
}
