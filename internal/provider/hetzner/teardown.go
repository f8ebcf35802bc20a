package hetzner

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/util/async"
	"github.com/datainfrapilot/dip/internal/util/labels"
)

// TeardownCluster removes every resource labeled with the cluster ID.
// Discovery is label-based so resources leaked by a partial create are
// reclaimed too. Servers go first (they hold volume attachments), then
// volumes not marked retained, then network, firewall and SSH key.
func (c *Client) TeardownCluster(ctx context.Context, clusterID string) error {
	selector := labels.SelectorForCluster(clusterID)

	if err := c.teardownServers(ctx, selector); err != nil {
		return err
	}
	if err := c.teardownVolumes(ctx, selector); err != nil {
		return err
	}

	groups, err := c.client.PlacementGroup.AllWithOpts(ctx, hcloud.PlacementGroupListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list placement groups for teardown", err)
	}
	for _, group := range groups {
		if err := c.deletePlacementGroup(ctx, group); err != nil {
			return err
		}
	}

	networks, err := c.client.Network.AllWithOpts(ctx, hcloud.NetworkListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list networks for teardown", err)
	}
	for _, network := range networks {
		if err := c.deleteNetwork(ctx, network); err != nil {
			return err
		}
	}

	firewalls, err := c.client.Firewall.AllWithOpts(ctx, hcloud.FirewallListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list firewalls for teardown", err)
	}
	for _, fw := range firewalls {
		if err := c.deleteFirewall(ctx, fw); err != nil {
			return err
		}
	}

	keys, err := c.client.SSHKey.AllWithOpts(ctx, hcloud.SSHKeyListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list ssh keys for teardown", err)
	}
	for _, key := range keys {
		if err := c.deleteSSHKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) teardownServers(ctx context.Context, selector string) error {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list servers for teardown", err)
	}

	tasks := make([]async.Task, 0, len(servers))
	for _, server := range servers {
		server := server
		tasks = append(tasks, async.Task{
			Name: "delete server " + server.Name,
			Func: func(ctx context.Context) error {
				err := c.withRetry(ctx, func(ctx context.Context) error {
					_, _, err := c.client.Server.DeleteWithResult(ctx, server)
					if IsNotFound(err) {
						return nil
					}
					return err
				})
				if err != nil {
					return providerError("failed to delete server "+server.Name, err)
				}
				return nil
			},
		})
	}
	return async.RunBounded(ctx, 4, tasks)
}

func (c *Client) teardownVolumes(ctx context.Context, selector string) error {
	volumes, err := c.client.Volume.AllWithOpts(ctx, hcloud.VolumeListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return providerError("failed to list volumes for teardown", err)
	}
	for _, volume := range volumes {
		if labels.IsRetained(volume.Labels) {
			continue
		}
		if err := c.deleteVolume(ctx, volume); err != nil {
			return err
		}
	}
	return nil
}
