package hetzner

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureSSHKey uploads the public key under the given name. A key that
// already exists with that name is adopted, which keeps re-runs of a
// failed cluster create idempotent.
func (c *Client) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) error {
	existing, _, err := c.client.SSHKey.Get(ctx, name)
	if err != nil {
		return providerError("failed to get ssh key "+name, err)
	}
	if existing != nil {
		return nil
	}

	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, _, err := c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
			Name:      name,
			PublicKey: publicKey,
			Labels:    labels,
		})
		if isUniquenessError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to create ssh key "+name, err)
	}
	return nil
}

func (c *Client) deleteSSHKey(ctx context.Context, key *hcloud.SSHKey) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.SSHKey.Delete(ctx, key)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete ssh key "+key.Name, err)
	}
	return nil
}
