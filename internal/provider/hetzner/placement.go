package hetzner

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsurePlacementGroup creates a spread placement group so a pool's
// servers land on distinct physical hosts. An existing group of the
// same name is adopted.
func (c *Client) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) error {
	existing, _, err := c.client.PlacementGroup.Get(ctx, name)
	if err != nil {
		return providerError("failed to get placement group "+name, err)
	}
	if existing != nil {
		return nil
	}

	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, _, err := c.client.PlacementGroup.Create(ctx, hcloud.PlacementGroupCreateOpts{
			Name:   name,
			Type:   hcloud.PlacementGroupTypeSpread,
			Labels: labels,
		})
		if isUniquenessError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to create placement group "+name, err)
	}
	return nil
}

func (c *Client) deletePlacementGroup(ctx context.Context, group *hcloud.PlacementGroup) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.PlacementGroup.Delete(ctx, group)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete placement group "+group.Name, err)
	}
	return nil
}
