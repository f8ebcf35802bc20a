package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/datainfrapilot/dip/internal/model"
)

type deploymentRow struct {
	ID            string          `db:"id"`
	ClusterID     string          `db:"cluster_id"`
	Name          string          `db:"name"`
	ApplicationID int             `db:"application_id"`
	Namespace     string          `db:"namespace"`
	ReleaseName   string          `db:"release_name"`
	NodePool      string          `db:"node_pool"`
	Config        model.ConfigMap `db:"config"`
	Status        string          `db:"status"`
	ErrorMsg      string          `db:"error_message"`
	InstalledAt   time.Time       `db:"installed_at"`
}

func (r *deploymentRow) toModel() model.Deployment {
	return model.Deployment{
		ID:            r.ID,
		ClusterID:     r.ClusterID,
		Name:          r.Name,
		ApplicationID: r.ApplicationID,
		Namespace:     r.Namespace,
		ReleaseName:   r.ReleaseName,
		NodePool:      r.NodePool,
		Config:        r.Config,
		Status:        model.Status(r.Status),
		ErrorMsg:      r.ErrorMsg,
		InstalledAt:   r.InstalledAt,
	}
}

// CreateDeployment inserts the deployment with its endpoints and volume
// bindings in one transaction. Binding an existing volume flips its
// in-use state implicitly, since in_use is derived from bindings.
func (s *Store) CreateDeployment(ctx context.Context, d *model.Deployment) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deployments (
				id, cluster_id, name, application_id, namespace, release_name,
				node_pool, config, status, error_message, installed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			d.ID, d.ClusterID, d.Name, d.ApplicationID, d.Namespace, d.ReleaseName,
			d.NodePool, d.Config, d.Status, d.ErrorMsg, d.InstalledAt,
		)
		if err != nil {
			return classify(err, "deployment "+d.Name)
		}
		if err := insertEndpoints(ctx, tx, d.ClusterID, d.ID, d.Endpoints); err != nil {
			return err
		}
		return insertVolumeBindings(ctx, tx, d.ID, d.Volumes)
	})
}

// insertEndpoints writes the endpoint rows. The partial unique index on
// (cluster_id, access_type, value) turns a concurrent claim of the same
// address into a conflict here, after admission already said yes.
func insertEndpoints(ctx context.Context, tx *sqlx.Tx, clusterID, deploymentID string, endpoints []model.Endpoint) error {
	for _, ep := range endpoints {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deployment_endpoints (deployment_id, cluster_id, name, access_type, value, enabled)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			deploymentID, clusterID, ep.Name, ep.AccessType, ep.Value, ep.Enabled,
		)
		if err != nil {
			return classify(err, "endpoint "+ep.Name)
		}
	}
	return nil
}

func insertVolumeBindings(ctx context.Context, tx *sqlx.Tx, deploymentID string, bindings []model.VolumeBinding) error {
	for _, vb := range bindings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deployment_volumes (deployment_id, volume_name, existing, pvc_name)
			VALUES ($1, $2, $3, $4)`,
			deploymentID, vb.VolumeName, vb.Existing, vb.PVCName,
		)
		if err != nil {
			return classify(err, "volume binding "+vb.VolumeName)
		}
	}
	return nil
}

// GetDeployment returns a deployment with its endpoints and volume bindings.
func (s *Store) GetDeployment(ctx context.Context, id string) (*model.Deployment, error) {
	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM deployments WHERE id = $1`, id); err != nil {
		return nil, classify(err, "deployment "+id)
	}
	d := row.toModel()
	if err := s.loadDeploymentChildren(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeployments returns all deployments of a cluster, joined.
func (s *Store) ListDeployments(ctx context.Context, clusterID string) ([]model.Deployment, error) {
	var rows []deploymentRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM deployments WHERE cluster_id = $1 ORDER BY installed_at`, clusterID)
	if err != nil {
		return nil, classify(err, "deployments of cluster "+clusterID)
	}

	deployments := make([]model.Deployment, 0, len(rows))
	for i := range rows {
		d := rows[i].toModel()
		if err := s.loadDeploymentChildren(ctx, &d); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, nil
}

func (s *Store) loadDeploymentChildren(ctx context.Context, d *model.Deployment) error {
	err := s.db.SelectContext(ctx, &d.Endpoints,
		`SELECT name, access_type, value, enabled FROM deployment_endpoints WHERE deployment_id = $1 ORDER BY name`, d.ID)
	if err != nil {
		return classify(err, "endpoints of deployment "+d.ID)
	}
	err = s.db.SelectContext(ctx, &d.Volumes,
		`SELECT deployment_id, volume_name, existing, pvc_name FROM deployment_volumes WHERE deployment_id = $1 ORDER BY volume_name`, d.ID)
	if err != nil {
		return classify(err, "volume bindings of deployment "+d.ID)
	}
	return nil
}

// ListClusterEndpoints returns the enabled endpoints of every deployment
// on a cluster, used for admission-time uniqueness checks.
func (s *Store) ListClusterEndpoints(ctx context.Context, clusterID string) ([]model.Endpoint, error) {
	var endpoints []model.Endpoint
	err := s.db.SelectContext(ctx, &endpoints, `
		SELECT e.name, e.access_type, e.value, e.enabled
		FROM deployment_endpoints e
		JOIN deployments d ON d.id = e.deployment_id
		WHERE d.cluster_id = $1 AND e.enabled`, clusterID)
	if err != nil {
		return nil, classify(err, "endpoints of cluster "+clusterID)
	}
	return endpoints, nil
}

// UpdateDeploymentStatus atomically writes (status, error_message).
func (s *Store) UpdateDeploymentStatus(ctx context.Context, id string, status model.Status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deployments SET status = $2, error_message = $3 WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return classify(err, "deployment "+id)
	}
	return checkFound(res, "deployment "+id)
}

// UpdateDeployment replaces the mutable fields of a deployment (name,
// config, endpoints, volume bindings) in one transaction. The release
// name is immutable. Endpoints and bindings are replaced wholesale so
// the worker re-reads exactly what admission accepted.
func (s *Store) UpdateDeployment(ctx context.Context, d *model.Deployment) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE deployments SET name = $2, node_pool = $3, config = $4, status = $5, error_message = $6
			WHERE id = $1`,
			d.ID, d.Name, d.NodePool, d.Config, d.Status, d.ErrorMsg)
		if err != nil {
			return classify(err, "deployment "+d.ID)
		}
		if err := checkFound(res, "deployment "+d.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM deployment_endpoints WHERE deployment_id = $1`, d.ID); err != nil {
			return classify(err, "endpoints of deployment "+d.ID)
		}
		if err := insertEndpoints(ctx, tx, d.ClusterID, d.ID, d.Endpoints); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM deployment_volumes WHERE deployment_id = $1`, d.ID); err != nil {
			return classify(err, "volume bindings of deployment "+d.ID)
		}
		return insertVolumeBindings(ctx, tx, d.ID, d.Volumes)
	})
}

// DeleteDeployment removes the deployment row; endpoints and volume
// bindings cascade, releasing any bound volumes.
func (s *Store) DeleteDeployment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deployments WHERE id = $1`, id)
	if err != nil {
		return classify(err, "deployment "+id)
	}
	return checkFound(res, "deployment "+id)
}
