package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/datainfrapilot/dip/internal/model"
)

// clusterRow is the flat scan target for the clusters table.
type clusterRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Provider   string    `db:"provider"`
	K3sVersion string    `db:"k3s_version"`
	DomainName string    `db:"domain_name"`
	AccessIP   string    `db:"access_ip"`
	Status     string    `db:"status"`
	ErrorMsg   string    `db:"error_message"`
	CreatedAt  time.Time `db:"created_at"`

	ProviderToken string `db:"provider_token"`
	SSHPrivateKey string `db:"ssh_private_key"`
	SSHPublicKey  string `db:"ssh_public_key"`
	K3sToken      string `db:"k3s_token"`
	Kubeconfig    string `db:"kubeconfig"`

	TraefikEnabled  bool   `db:"traefik_enabled"`
	TraefikUsername string `db:"traefik_username"`
	TraefikPassword string `db:"traefik_password"`
}

func (r *clusterRow) toModel() model.Cluster {
	return model.Cluster{
		ID:         r.ID,
		Name:       r.Name,
		Provider:   r.Provider,
		K3sVersion: r.K3sVersion,
		DomainName: r.DomainName,
		AccessIP:   r.AccessIP,
		Status:     model.Status(r.Status),
		ErrorMsg:   r.ErrorMsg,
		CreatedAt:  r.CreatedAt,
		Addons: model.AddonConfig{
			TraefikDashboard: model.TraefikDashboardConfig{
				Enabled:  r.TraefikEnabled,
				Username: r.TraefikUsername,
				Password: r.TraefikPassword,
			},
		},
		Credentials: model.ClusterCredentials{
			ProviderToken: r.ProviderToken,
			SSHPrivateKey: r.SSHPrivateKey,
			SSHPublicKey:  r.SSHPublicKey,
			K3sToken:      r.K3sToken,
			Kubeconfig:    r.Kubeconfig,
		},
	}
}

type poolRow struct {
	ID           string `db:"id"`
	ClusterID    string `db:"cluster_id"`
	Name         string `db:"name"`
	NodeType     string `db:"node_type"`
	Region       string `db:"region"`
	Count        int    `db:"node_count"`
	ControlPlane bool   `db:"control_plane"`
	Autoscaling  []byte `db:"autoscaling"`
}

func (r *poolRow) toModel() (model.Pool, error) {
	p := model.Pool{
		ID:           r.ID,
		ClusterID:    r.ClusterID,
		Name:         r.Name,
		NodeType:     r.NodeType,
		Region:       r.Region,
		Count:        r.Count,
		ControlPlane: r.ControlPlane,
	}
	if len(r.Autoscaling) > 0 {
		var a model.Autoscaling
		if err := json.Unmarshal(r.Autoscaling, &a); err != nil {
			return p, err
		}
		p.Autoscaling = &a
	}
	return p, nil
}

// CreateCluster inserts a cluster and its pools in one transaction.
func (s *Store) CreateCluster(ctx context.Context, c *model.Cluster) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clusters (
				id, name, provider, k3s_version, domain_name, status, created_at,
				provider_token, ssh_private_key, ssh_public_key, k3s_token,
				traefik_enabled, traefik_username, traefik_password
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			c.ID, c.Name, c.Provider, c.K3sVersion, c.DomainName, c.Status, c.CreatedAt,
			c.Credentials.ProviderToken, c.Credentials.SSHPrivateKey, c.Credentials.SSHPublicKey,
			c.Credentials.K3sToken,
			c.Addons.TraefikDashboard.Enabled, c.Addons.TraefikDashboard.Username,
			c.Addons.TraefikDashboard.Password,
		)
		if err != nil {
			return classify(err, "cluster "+c.Name)
		}

		for i := range c.Pools {
			p := &c.Pools[i]
			var autoscaling []byte
			if p.Autoscaling != nil {
				autoscaling, err = json.Marshal(p.Autoscaling)
				if err != nil {
					return classify(err, "pool "+p.Name)
				}
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pools (id, cluster_id, name, node_type, region, node_count, control_plane, autoscaling)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, c.ID, p.Name, p.NodeType, p.Region, p.Count, p.ControlPlane, autoscaling,
			)
			if err != nil {
				return classify(err, "pool "+p.Name)
			}
		}
		return nil
	})
}

// GetCluster returns a cluster with its pools and deployments joined.
func (s *Store) GetCluster(ctx context.Context, id string) (*model.Cluster, error) {
	var row clusterRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM clusters WHERE id = $1`, id); err != nil {
		return nil, classify(err, "cluster "+id)
	}
	cluster := row.toModel()
	if err := s.loadClusterChildren(ctx, &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

// ListClusters returns all clusters with pools and deployments joined.
func (s *Store) ListClusters(ctx context.Context) ([]model.Cluster, error) {
	var rows []clusterRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM clusters ORDER BY created_at`); err != nil {
		return nil, classify(err, "clusters")
	}

	clusters := make([]model.Cluster, 0, len(rows))
	for i := range rows {
		cluster := rows[i].toModel()
		if err := s.loadClusterChildren(ctx, &cluster); err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

func (s *Store) loadClusterChildren(ctx context.Context, c *model.Cluster) error {
	var poolRows []poolRow
	err := s.db.SelectContext(ctx, &poolRows,
		`SELECT * FROM pools WHERE cluster_id = $1 ORDER BY control_plane DESC, name`, c.ID)
	if err != nil {
		return classify(err, "pools of cluster "+c.ID)
	}
	for i := range poolRows {
		p, err := poolRows[i].toModel()
		if err != nil {
			return classify(err, "pool "+poolRows[i].Name)
		}
		c.Pools = append(c.Pools, p)
	}

	deployments, err := s.ListDeployments(ctx, c.ID)
	if err != nil {
		return err
	}
	c.Deployments = deployments
	return nil
}

// UpdateClusterStatus atomically writes (status, error_message).
func (s *Store) UpdateClusterStatus(ctx context.Context, id string, status model.Status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET status = $2, error_message = $3 WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return classify(err, "cluster "+id)
	}
	return checkFound(res, "cluster "+id)
}

// UpdateClusterAccess records the access IP and kubeconfig captured
// during bootstrap, atomically with the status transition.
func (s *Store) UpdateClusterAccess(ctx context.Context, id, accessIP, kubeconfig string, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET access_ip = $2, kubeconfig = $3, status = $4, error_message = '' WHERE id = $1`,
		id, accessIP, kubeconfig, status)
	if err != nil {
		return classify(err, "cluster "+id)
	}
	return checkFound(res, "cluster "+id)
}

// DeleteCluster removes the cluster row; pools, deployments, endpoints
// and volume bindings cascade in the same transaction.
func (s *Store) DeleteCluster(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clusters WHERE id = $1`, id)
	if err != nil {
		return classify(err, "cluster "+id)
	}
	return checkFound(res, "cluster "+id)
}
