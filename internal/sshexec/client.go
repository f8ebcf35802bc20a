// Package sshexec runs provisioning commands on cluster nodes over SSH.
// Connections are dialed per Execute call with retry, since nodes come
// up asynchronously after cloud-init and SSH is the readiness signal.
//
// Host key verification is disabled: nodes are created fresh per
// cluster and their host keys are not known ahead of time.
package sshexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/datainfrapilot/dip/internal/util/retry"
)

const (
	defaultPort           = 22
	defaultUser           = "root"
	defaultDialTimeout    = 10 * time.Second
	defaultMaxRetries     = 60
	defaultRetryDelay     = 5 * time.Second
	defaultMaxDelay       = 10 * time.Second
	defaultCommandTimeout = 5 * time.Minute
)

// Config holds SSH client configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds the TCP connect per attempt.
	DialTimeout time.Duration

	// MaxRetries is the number of dial attempts before giving up.
	MaxRetries int

	// RetryDelay is the initial delay between dial attempts.
	RetryDelay time.Duration

	// CommandTimeout bounds a single remote command once the session
	// is up. A hung command must not block the caller forever.
	CommandTimeout time.Duration
}

// Client executes commands on a remote node. The private key is parsed
// once at construction; connections are created per Execute call.
type Client struct {
	config *Config
	signer ssh.Signer
}

// NewClient creates an SSH client and validates the private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.User == "" {
		configCopy.User = defaultUser
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.CommandTimeout == 0 {
		configCopy.CommandTimeout = defaultCommandTimeout
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: &configCopy, signer: signer}, nil
}

// Execute runs a command on the remote host, dialing with retry.
// Returns combined stdout and stderr.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	return c.runCommand(ctx, client, command)
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User: c.config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(c.signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // Nodes are ephemeral, keys unknown at dial time
		Timeout:         c.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	var client *ssh.Client

	// Nodes can take minutes to finish their first boot, so the dial
	// loop doubles as the "node is up" wait.
	err := retry.Do(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		return dialErr
	},
		retry.WithMaxAttempts(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s after %d attempts: %w",
			addr, c.config.MaxRetries, err)
	}
	return client, nil
}

func (c *Client) runCommand(ctx context.Context, client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()

	done := make(chan commandResult, 1)
	go func() {
		output, err := session.CombinedOutput(command)
		done <- commandResult{output: output, err: err}
	}()

	output, err := awaitResult(ctx, done, session.Close)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "", fmt.Errorf("command aborted on %s: %w\nCommand: %s", c.config.Host, err, command)
	}
	if err != nil {
		return string(output), fmt.Errorf("command failed on %s: %w\nCommand: %s\nOutput: %s",
			c.config.Host, err, command, string(output))
	}
	return string(output), nil
}

type commandResult struct {
	output []byte
	err    error
}

// awaitResult waits for the in-flight command or the context, whichever
// finishes first. On expiry the session is closed, which tears down the
// channel and unblocks the reading goroutine.
func awaitResult(ctx context.Context, done <-chan commandResult, abort func() error) ([]byte, error) {
	select {
	case res := <-done:
		return res.output, res.err
	case <-ctx.Done():
		_ = abort()
		return nil, ctx.Err()
	}
}
