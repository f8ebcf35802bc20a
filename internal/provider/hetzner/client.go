// Package hetzner implements the provider driver on the Hetzner Cloud API.
package hetzner

import (
	"net/http"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/config"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
)

func init() {
	provider.Register(model.ProviderHetzner, func(token string) provider.Driver {
		return New(token)
	})
}

// Client implements provider.Driver using hcloud-go.
type Client struct {
	client   *hcloud.Client
	timeouts config.Timeouts
}

// Option configures a Client.
type Option func(*Client)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t config.Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New creates a Hetzner driver for the given API token. Every request
// carries the provider-call deadline at the transport, so lookups that
// run outside the retry wrapper cannot hang either.
func New(token string, opts ...Option) *Client {
	c := &Client{timeouts: config.LoadTimeouts()}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = hcloud.NewClient(
			hcloud.WithToken(token),
			hcloud.WithHTTPClient(&http.Client{Timeout: c.timeouts.ProviderCall}),
		)
	}
	return c
}
