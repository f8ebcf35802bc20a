package hetzner

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/provider"
	"github.com/datainfrapilot/dip/internal/util/retry"
)

const serverImage = "ubuntu-22.04"

// withRetry runs an hcloud call with the configured backoff, skipping
// retries for errors classified as fatal. Each attempt gets its own
// deadline so one stuck call cannot hold the cluster worker.
func (c *Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, func() error {
		callCtx := ctx
		if c.timeouts.ProviderCall > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeouts.ProviderCall)
			defer cancel()
		}
		return classifyForRetry(op(callCtx))
	},
		retry.WithMaxAttempts(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
	)
}

// CreateServer creates a server with cloud-init user data and returns
// its public IPv4. A server that already exists under the same name is
// adopted.
func (c *Client) CreateServer(ctx context.Context, opts provider.ServerCreateOpts) (string, error) {
	existing, _, err := c.client.Server.Get(ctx, opts.Name)
	if err == nil && existing != nil {
		return serverIP(existing)
	}

	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return "", providerError("failed to resolve server type "+opts.ServerType, err)
	}
	if serverType == nil {
		return "", providerError("unknown server type "+opts.ServerType, nil)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, serverImage, serverType.Architecture)
	if err != nil {
		return "", providerError("failed to resolve image "+serverImage, err)
	}

	location, _, err := c.client.Location.Get(ctx, opts.Region)
	if err != nil {
		return "", providerError("failed to resolve location "+opts.Region, err)
	}

	sshKey, _, err := c.client.SSHKey.Get(ctx, opts.SSHKeyName)
	if err != nil || sshKey == nil {
		return "", providerError("failed to resolve ssh key "+opts.SSHKeyName, err)
	}

	createOpts := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    []*hcloud.SSHKey{sshKey},
		Labels:     opts.Labels,
		UserData:   opts.UserData,
	}
	if opts.PlacementGroup != "" {
		group, _, err := c.client.PlacementGroup.Get(ctx, opts.PlacementGroup)
		if err != nil || group == nil {
			return "", providerError("failed to resolve placement group "+opts.PlacementGroup, err)
		}
		createOpts.PlacementGroup = group
	}

	var result hcloud.ServerCreateResult
	err = c.withRetry(ctx, func(ctx context.Context) error {
		res, _, err := c.client.Server.Create(ctx, createOpts)
		if err != nil {
			if isUniquenessError(err) {
				// Created by a previous attempt; adopt it below.
				return nil
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return "", providerError("failed to create server "+opts.Name, err)
	}

	if result.Server == nil {
		adopted, _, err := c.client.Server.Get(ctx, opts.Name)
		if err != nil || adopted == nil {
			return "", providerError("failed to adopt existing server "+opts.Name, err)
		}
		return serverIP(adopted)
	}

	if err := c.client.Action.WaitFor(ctx, result.Action); err != nil {
		return "", providerError("failed waiting for server "+opts.Name, err)
	}
	return serverIP(result.Server)
}

func serverIP(server *hcloud.Server) (string, error) {
	if server.PublicNet.IPv4.IP == nil {
		return "", providerError("server "+server.Name+" has no public IPv4", nil)
	}
	return server.PublicNet.IPv4.IP.String(), nil
}

// DeleteServer deletes the named server. Absent servers are a no-op so
// teardown retries stay idempotent.
func (c *Client) DeleteServer(ctx context.Context, name string) error {
	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return providerError("failed to get server "+name, err)
	}
	if server == nil {
		return nil
	}

	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, _, err := c.client.Server.DeleteWithResult(ctx, server)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete server "+name, err)
	}
	return nil
}

// ListServersByLabel returns servers matching the label selector.
func (c *Client) ListServersByLabel(ctx context.Context, selector string) ([]provider.ServerInfo, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return nil, providerError("failed to list servers by label "+selector, err)
	}

	infos := make([]provider.ServerInfo, 0, len(servers))
	for _, s := range servers {
		info := provider.ServerInfo{
			ID:     fmt.Sprintf("%d", s.ID),
			Name:   s.Name,
			Status: string(s.Status),
			Labels: s.Labels,
		}
		if s.PublicNet.IPv4.IP != nil {
			info.PublicIP = s.PublicNet.IPv4.IP.String()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ServerStatus returns the provider's view of a server's state.
func (c *Client) ServerStatus(ctx context.Context, name string) (string, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return "", providerError("failed to get server "+name, err)
	}
	if server == nil {
		return "", providerError("server not found: "+name, nil)
	}
	return string(server.Status), nil
}
