package orchestrator

import (
	"context"
	"strings"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

// Credentials returns the first-login credentials of a running
// deployment, read from the application's known secret. Applications
// with fixed defaults short-circuit the cluster round trip.
func (o *Orchestrator) Credentials(ctx context.Context, clusterID, deploymentID string) (*model.Credentials, error) {
	cluster, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	d, err := o.deploymentOn(ctx, clusterID, deploymentID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.StatusRunning {
		return nil, apperror.Newf(apperror.CodeConflict,
			"deployment %s is %s, credentials are available once it is running", d.Name, d.Status)
	}

	app, err := o.catalog.ByID(d.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.StaticCredentials != nil {
		creds := *app.StaticCredentials
		return &creds, nil
	}
	if app.CredentialsSecret == "" {
		return nil, apperror.Newf(apperror.CodeNotFound,
			"application %s exposes no credentials", app.Key)
	}

	kubeClient, err := o.kubeFor([]byte(cluster.Credentials.Kubeconfig))
	if err != nil {
		return nil, err
	}
	data, err := kubeClient.GetSecret(ctx, d.Namespace, app.CredentialsSecret)
	if err != nil {
		return nil, err
	}

	creds := &model.Credentials{}
	if app.SecretKeys.Username != "" {
		creds.Username = string(data[app.SecretKeys.Username])
	}
	creds.Password = string(data[app.SecretKeys.Password])

	// A combined "user:password" entry is split when no separate
	// username key exists (Prefect's auth-string).
	if creds.Username == "" {
		if user, pass, found := strings.Cut(creds.Password, ":"); found {
			creds.Username = user
			creds.Password = pass
		}
	}
	return creds, nil
}
