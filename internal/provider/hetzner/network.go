package hetzner

import (
	"context"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

const (
	networkCIDR = "10.0.0.0/16"
	subnetCIDR  = "10.0.1.0/24"
	networkZone = hcloud.NetworkZoneEUCentral
)

// EnsureNetwork creates the cluster private network with a single
// cloud subnet if absent.
func (c *Client) EnsureNetwork(ctx context.Context, name string, labels map[string]string) error {
	existing, _, err := c.client.Network.Get(ctx, name)
	if err != nil {
		return providerError("failed to get network "+name, err)
	}
	if existing != nil {
		return nil
	}

	_, ipRange, err := net.ParseCIDR(networkCIDR)
	if err != nil {
		return providerError("invalid network range "+networkCIDR, err)
	}
	_, subnetRange, err := net.ParseCIDR(subnetCIDR)
	if err != nil {
		return providerError("invalid subnet range "+subnetCIDR, err)
	}

	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, _, err := c.client.Network.Create(ctx, hcloud.NetworkCreateOpts{
			Name:    name,
			IPRange: ipRange,
			Labels:  labels,
			Subnets: []hcloud.NetworkSubnet{{
				Type:        hcloud.NetworkSubnetTypeCloud,
				IPRange:     subnetRange,
				NetworkZone: networkZone,
			}},
		})
		if isUniquenessError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to create network "+name, err)
	}
	return nil
}

func (c *Client) deleteNetwork(ctx context.Context, network *hcloud.Network) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.Network.Delete(ctx, network)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete network "+network.Name, err)
	}
	return nil
}
