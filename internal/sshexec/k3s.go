package sshexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/util/retry"
)

// DefaultK3sVersion is installed when a cluster does not pin one.
const DefaultK3sVersion = "v1.31.5+k3s1"

const (

	// Built-in servicelb and local-path storage are disabled: ingress
	// traffic goes straight to node IPs and persistent volumes come
	// from the cloud CSI driver.
	controlPlaneFlags = "--disable servicelb --disable local-storage --disable-cloud-controller --write-kubeconfig-mode=644"

	nodeTokenPath = "/var/lib/rancher/k3s/server/node-token"

	nodeReadyInterval = 5 * time.Second
)

// Provisioner installs k3s on cluster nodes over SSH.
type Provisioner struct {
	k3sReadyTimeout time.Duration
}

// NewProvisioner creates a provisioner with the given readiness timeout.
func NewProvisioner(k3sReadyTimeout time.Duration) *Provisioner {
	return &Provisioner{k3sReadyTimeout: k3sReadyTimeout}
}

// WaitCloudInit blocks until cloud-init finished its first boot on the
// node. The SSH dial itself already waited for the node to accept
// connections.
func (p *Provisioner) WaitCloudInit(ctx context.Context, client *Client) error {
	_, err := client.Execute(ctx, "cloud-init status --wait || true")
	if err != nil {
		return apperror.Wrap(apperror.CodeProvider, "cloud-init did not finish", err)
	}
	return nil
}

// InstallControlPlane installs the k3s server on the control plane node
// and labels it with its pool name.
func (p *Provisioner) InstallControlPlane(ctx context.Context, client *Client, version, token, poolName string) error {
	if version == "" {
		version = DefaultK3sVersion
	}
	install := fmt.Sprintf(
		"curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION=%q K3S_TOKEN=%q sh -s - server %s --node-label %s",
		version, token, controlPlaneFlags, "pool="+poolName)

	if _, err := client.Execute(ctx, install); err != nil {
		return apperror.Wrap(apperror.CodeProvider, "k3s server install failed", err)
	}
	return nil
}

// NodeToken reads the join token the k3s server generated. Workers
// join with this token rather than the bootstrap one, since the server
// rewrites it into its fully-qualified form on first start.
func (p *Provisioner) NodeToken(ctx context.Context, client *Client) (string, error) {
	out, err := client.Execute(ctx, "cat "+nodeTokenPath)
	if err != nil {
		return "", apperror.Wrap(apperror.CodeProvider, "failed to read k3s node token", err)
	}
	token := strings.TrimSpace(out)
	if token == "" {
		return "", apperror.New(apperror.CodeProvider, "k3s node token is empty")
	}
	return token, nil
}

// WaitForK3s polls until the k3s service is active and the kubeconfig
// exists on the control plane.
func (p *Provisioner) WaitForK3s(ctx context.Context, client *Client) error {
	ctx, cancel := context.WithTimeout(ctx, p.k3sReadyTimeout)
	defer cancel()

	attempts := int(p.k3sReadyTimeout/nodeReadyInterval) + 1
	err := retry.Do(ctx, func() error {
		_, err := client.Execute(ctx, "systemctl is-active k3s && test -f /etc/rancher/k3s/k3s.yaml")
		return err
	},
		retry.WithMaxAttempts(attempts),
		retry.WithInitialDelay(nodeReadyInterval),
		retry.WithMaxDelay(nodeReadyInterval),
	)
	if err != nil {
		return apperror.Wrap(apperror.CodeProvider, "k3s did not become ready", err)
	}
	return nil
}

// JoinWorker installs the k3s agent on a worker node, pointed at the
// control plane's private API endpoint.
func (p *Provisioner) JoinWorker(ctx context.Context, client *Client, version, controlPlaneIP, token, poolName string) error {
	if version == "" {
		version = DefaultK3sVersion
	}
	install := fmt.Sprintf(
		"curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION=%q K3S_URL=%q K3S_TOKEN=%q sh -s - agent --node-label %s",
		version, "https://"+controlPlaneIP+":6443", token, "pool="+poolName)

	if _, err := client.Execute(ctx, install); err != nil {
		return apperror.Wrap(apperror.CodeProvider, "k3s agent install failed", err)
	}
	return nil
}

// FetchKubeconfig reads the admin kubeconfig from the control plane and
// rewrites the loopback API address to the cluster's public IP.
func (p *Provisioner) FetchKubeconfig(ctx context.Context, client *Client, accessIP string) (string, error) {
	out, err := client.Execute(ctx, "cat /etc/rancher/k3s/k3s.yaml")
	if err != nil {
		return "", apperror.Wrap(apperror.CodeProvider, "failed to read kubeconfig", err)
	}
	kubeconfig := strings.ReplaceAll(out, "127.0.0.1", accessIP)
	if !strings.Contains(kubeconfig, accessIP) {
		return "", apperror.New(apperror.CodeProvider, "kubeconfig has no rewritable server address")
	}
	return kubeconfig, nil
}

// WaitForNodesReady polls `kubectl get nodes` on the control plane
// until the expected number of nodes report Ready.
func (p *Provisioner) WaitForNodesReady(ctx context.Context, client *Client, expected int) error {
	ctx, cancel := context.WithTimeout(ctx, p.k3sReadyTimeout)
	defer cancel()

	attempts := int(p.k3sReadyTimeout/nodeReadyInterval) + 1
	err := retry.Do(ctx, func() error {
		out, err := client.Execute(ctx, "k3s kubectl get nodes --no-headers")
		if err != nil {
			return err
		}
		ready := 0
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[1] == "Ready" {
				ready++
			}
		}
		if ready < expected {
			return fmt.Errorf("%d of %d nodes ready", ready, expected)
		}
		return nil
	},
		retry.WithMaxAttempts(attempts),
		retry.WithInitialDelay(nodeReadyInterval),
		retry.WithMaxDelay(nodeReadyInterval),
	)
	if err != nil {
		return apperror.Wrap(apperror.CodeProvider, "cluster nodes did not become ready", err)
	}
	return nil
}
