package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"

	"github.com/datainfrapilot/dip/internal/apperror"
)

const defaultTimeout = 10 * time.Minute

// ChartRef locates a chart either in a remote repository or as a local
// artifact directory. LocalPath takes precedence when set.
type ChartRef struct {
	RepoURL   string
	Name      string
	Version   string
	LocalPath string
}

// Engine is the Helm surface the deployment orchestrator uses.
type Engine interface {
	// InstallOrUpgrade installs a release or upgrades it if present.
	// Installs are atomic; a failed install rolls its resources back.
	InstallOrUpgrade(ctx context.Context, releaseName string, ref ChartRef, values Values) error

	// Uninstall removes a release and waits for its resources to go.
	// A missing release is not an error.
	Uninstall(ctx context.Context, releaseName string) error

	// ReleaseExists reports whether a release is present.
	ReleaseExists(releaseName string) (bool, error)
}

// Factory builds an Engine scoped to one cluster and namespace.
type Factory func(kubeconfig []byte, namespace string) (Engine, error)

// Client implements Engine through the Helm action API.
type Client struct {
	namespace    string
	timeout      time.Duration
	actionConfig *action.Configuration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the install and uninstall wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, namespace string, opts ...Option) (*Client, error) {
	c := &Client{
		namespace: namespace,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	actionConfig := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(kubeconfig, namespace)
	if err := actionConfig.Init(restGetter, namespace, "secret", func(format string, v ...interface{}) {}); err != nil {
		return nil, apperror.Wrap(apperror.CodeHelm, "failed to initialize helm", err)
	}
	c.actionConfig = actionConfig
	return c, nil
}

// InstallOrUpgrade installs a chart or upgrades an existing release.
func (c *Client) InstallOrUpgrade(ctx context.Context, releaseName string, ref ChartRef, values Values) error {
	exists, err := c.ReleaseExists(releaseName)
	if err != nil {
		return err
	}
	if exists {
		return c.upgrade(ctx, releaseName, ref, values)
	}
	return c.install(ctx, releaseName, ref, values)
}

func (c *Client) install(ctx context.Context, releaseName string, ref ChartRef, values Values) error {
	installClient := action.NewInstall(c.actionConfig)
	installClient.ReleaseName = releaseName
	installClient.Namespace = c.namespace
	installClient.CreateNamespace = true
	installClient.Version = ref.Version
	installClient.Wait = true
	installClient.Atomic = true
	installClient.Timeout = c.timeout

	loaded, err := c.loadChart(ref)
	if err != nil {
		return err
	}

	if _, err := installClient.RunWithContext(ctx, loaded, values); err != nil {
		return classify("install of "+releaseName, err)
	}
	return nil
}

// upgrade runs without Atomic: a wait timeout leaves the release in
// place so a later upgrade can converge instead of deleting resources.
func (c *Client) upgrade(ctx context.Context, releaseName string, ref ChartRef, values Values) error {
	upgradeClient := action.NewUpgrade(c.actionConfig)
	upgradeClient.Namespace = c.namespace
	upgradeClient.Version = ref.Version
	upgradeClient.Wait = true
	upgradeClient.Timeout = c.timeout
	upgradeClient.ReuseValues = false

	loaded, err := c.loadChart(ref)
	if err != nil {
		return err
	}

	if _, err := upgradeClient.RunWithContext(ctx, releaseName, loaded, values); err != nil {
		return classify("upgrade of "+releaseName, err)
	}
	return nil
}

// Uninstall removes a release, waiting for resource deletion.
func (c *Client) Uninstall(ctx context.Context, releaseName string) error {
	uninstallClient := action.NewUninstall(c.actionConfig)
	uninstallClient.Wait = true
	uninstallClient.Timeout = c.timeout

	if _, err := uninstallClient.Run(releaseName); err != nil {
		if strings.Contains(err.Error(), "release: not found") {
			return nil
		}
		return classify("uninstall of "+releaseName, err)
	}
	return nil
}

// ReleaseExists checks if a release exists.
func (c *Client) ReleaseExists(releaseName string) (bool, error) {
	histClient := action.NewHistory(c.actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *Client) loadChart(ref ChartRef) (*chart.Chart, error) {
	if ref.LocalPath != "" {
		loaded, err := loader.Load(ref.LocalPath)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeHelm, "chart not found at "+ref.LocalPath, err)
		}
		return loaded, nil
	}

	settings := cli.New()
	chartPath, err := repo.FindChartInRepoURL(
		ref.RepoURL,
		ref.Name,
		ref.Version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeHelm,
			fmt.Sprintf("chart %s %s not found in %s", ref.Name, ref.Version, ref.RepoURL), err)
	}
	defer func() { _ = os.Remove(chartPath) }()

	loaded, err := loader.Load(chartPath)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeHelm, "failed to load chart "+ref.Name, err)
	}
	return loaded, nil
}

// classify folds helm failures into the wire taxonomy, keeping the
// wait-timeout and API-server cases distinguishable by detail text.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(err.Error(), "timed out waiting"):
		return apperror.Wrap(apperror.CodeHelm, op+" timed out waiting for resources", err)
	case strings.Contains(err.Error(), "Kubernetes cluster unreachable"):
		return apperror.Wrap(apperror.CodeHelm, op+" could not reach the cluster", err)
	default:
		return apperror.Wrap(apperror.CodeHelm, op+" failed", err)
	}
}
