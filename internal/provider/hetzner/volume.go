package hetzner

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/provider"
)

// CreateVolume creates a block volume and returns its provider ID. A
// volume already present under the same name is adopted.
func (c *Client) CreateVolume(ctx context.Context, opts provider.VolumeCreateOpts) (string, error) {
	existing, _, err := c.client.Volume.Get(ctx, opts.Name)
	if err != nil {
		return "", providerError("failed to get volume "+opts.Name, err)
	}
	if existing != nil {
		return fmt.Sprintf("%d", existing.ID), nil
	}

	location, _, err := c.client.Location.Get(ctx, opts.Region)
	if err != nil {
		return "", providerError("failed to resolve location "+opts.Region, err)
	}

	var result hcloud.VolumeCreateResult
	err = c.withRetry(ctx, func(ctx context.Context) error {
		res, _, err := c.client.Volume.Create(ctx, hcloud.VolumeCreateOpts{
			Name:     opts.Name,
			Size:     opts.SizeGiB,
			Location: location,
			Labels:   opts.Labels,
			Format:   hcloud.Ptr("ext4"),
		})
		if err != nil {
			if isUniquenessError(err) {
				return nil
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return "", providerError("failed to create volume "+opts.Name, err)
	}

	if result.Volume == nil {
		adopted, _, err := c.client.Volume.Get(ctx, opts.Name)
		if err != nil || adopted == nil {
			return "", providerError("failed to adopt existing volume "+opts.Name, err)
		}
		return fmt.Sprintf("%d", adopted.ID), nil
	}

	if result.Action != nil {
		if err := c.client.Action.WaitFor(ctx, result.Action); err != nil {
			return "", providerError("failed waiting for volume "+opts.Name, err)
		}
	}
	return fmt.Sprintf("%d", result.Volume.ID), nil
}

// DeleteVolume deletes the named volume; absent volumes are a no-op.
// An attached volume is detached first.
func (c *Client) DeleteVolume(ctx context.Context, name string) error {
	volume, _, err := c.client.Volume.Get(ctx, name)
	if err != nil {
		return providerError("failed to get volume "+name, err)
	}
	if volume == nil {
		return nil
	}
	return c.deleteVolume(ctx, volume)
}

func (c *Client) deleteVolume(ctx context.Context, volume *hcloud.Volume) error {
	if volume.Server != nil {
		if err := c.detachVolume(ctx, volume); err != nil {
			return err
		}
	}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.Volume.Delete(ctx, volume)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete volume "+volume.Name, err)
	}
	return nil
}

// AttachVolume attaches a volume to a server without automount; the
// CSI driver inside the cluster handles the filesystem.
func (c *Client) AttachVolume(ctx context.Context, volumeName, serverName string) error {
	volume, _, err := c.client.Volume.Get(ctx, volumeName)
	if err != nil || volume == nil {
		return providerError("failed to get volume "+volumeName, err)
	}
	server, _, err := c.client.Server.Get(ctx, serverName)
	if err != nil || server == nil {
		return providerError("failed to get server "+serverName, err)
	}
	if volume.Server != nil && volume.Server.ID == server.ID {
		return nil
	}

	err = c.withRetry(ctx, func(ctx context.Context) error {
		action, _, err := c.client.Volume.AttachWithOpts(ctx, volume, hcloud.VolumeAttachOpts{
			Server:    server,
			Automount: hcloud.Ptr(false),
		})
		if err != nil {
			return err
		}
		return c.client.Action.WaitFor(ctx, action)
	})
	if err != nil {
		return providerError("failed to attach volume "+volumeName, err)
	}
	return nil
}

// DetachVolume detaches a volume from whatever server holds it.
func (c *Client) DetachVolume(ctx context.Context, volumeName string) error {
	volume, _, err := c.client.Volume.Get(ctx, volumeName)
	if err != nil {
		return providerError("failed to get volume "+volumeName, err)
	}
	if volume == nil || volume.Server == nil {
		return nil
	}
	return c.detachVolume(ctx, volume)
}

func (c *Client) detachVolume(ctx context.Context, volume *hcloud.Volume) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		action, _, err := c.client.Volume.Detach(ctx, volume)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		return c.client.Action.WaitFor(ctx, action)
	})
	if err != nil {
		return providerError("failed to detach volume "+volume.Name, err)
	}
	return nil
}
