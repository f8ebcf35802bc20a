package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil, "cluster x"))

	err := classify(sql.ErrNoRows, "cluster x")
	assert.True(t, apperror.IsNotFound(err))

	err = classify(&pgconn.PgError{Code: pgUniqueViolation}, "cluster x")
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, "cluster x already exists", apperror.DetailOf(err))

	err = classify(errors.New("connection reset"), "cluster x")
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckFound(t *testing.T) {
	assert.NoError(t, checkFound(fakeResult{rows: 1}, "cluster x"))

	err := checkFound(fakeResult{rows: 0}, "cluster x")
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "cluster x not found", apperror.DetailOf(err))

	err = checkFound(fakeResult{err: errors.New("driver gone")}, "cluster x")
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
}

// The tests below exercise schema guarantees and need a real database.
// Point DIP_TEST_DATABASE_URL at a scratch Postgres to run them.

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DIP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DIP_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCluster(t *testing.T, s *Store) *model.Cluster {
	t.Helper()
	c := &model.Cluster{
		ID:         uuid.NewString(),
		Name:       "c-" + uuid.NewString(),
		Provider:   model.ProviderHetzner,
		K3sVersion: "v1.31.4+k3s1",
		Status:     model.StatusRunning,
		CreatedAt:  time.Now().UTC(),
		Pools: []model.Pool{{
			ID:           uuid.NewString(),
			Name:         "control-plane",
			NodeType:     "cx22",
			Region:       "fsn1",
			Count:        1,
			ControlPlane: true,
		}},
	}
	require.NoError(t, s.CreateCluster(context.Background(), c))
	t.Cleanup(func() { _ = s.DeleteCluster(context.Background(), c.ID) })
	return c
}

func seedDeployment(t *testing.T, s *Store, clusterID string, endpoints []model.Endpoint, volumes []model.VolumeBinding) *model.Deployment {
	t.Helper()
	id := uuid.NewString()
	for i := range volumes {
		volumes[i].DeploymentID = id
	}
	d := &model.Deployment{
		ID:            id,
		ClusterID:     clusterID,
		Name:          "d-" + id[:8],
		ApplicationID: 1,
		Namespace:     "dip-" + id,
		ReleaseName:   "airflow-" + id,
		Config:        model.ConfigMap{},
		Status:        model.StatusPending,
		InstalledAt:   time.Now().UTC(),
		Endpoints:     endpoints,
		Volumes:       volumes,
	}
	require.NoError(t, s.CreateDeployment(context.Background(), d))
	return d
}

func TestCreateCluster_DuplicateNameConflicts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := seedCluster(t, s)
	dupe := &model.Cluster{
		ID:         uuid.NewString(),
		Name:       c.Name,
		Provider:   model.ProviderHetzner,
		K3sVersion: c.K3sVersion,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.CreateCluster(ctx, dupe)
	assert.True(t, apperror.IsConflict(err))
}

func TestDeleteCluster_CascadesToChildren(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := seedCluster(t, s)
	d := seedDeployment(t, s, c.ID,
		[]model.Endpoint{{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/airflow", Enabled: true}},
		[]model.VolumeBinding{{VolumeName: "airflow-logs", PVCName: "dip-x-airflow-logs"}},
	)

	require.NoError(t, s.DeleteCluster(ctx, c.ID))

	_, err := s.GetDeployment(ctx, d.ID)
	assert.True(t, apperror.IsNotFound(err), "deployments must cascade with the cluster")

	var endpoints, bindings int
	require.NoError(t, s.db.GetContext(ctx, &endpoints,
		`SELECT count(*) FROM deployment_endpoints WHERE deployment_id = $1`, d.ID))
	require.NoError(t, s.db.GetContext(ctx, &bindings,
		`SELECT count(*) FROM deployment_volumes WHERE deployment_id = $1`, d.ID))
	assert.Zero(t, endpoints)
	assert.Zero(t, bindings)
}

func TestUpdateDeployment_ReplacesVolumeBindings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := seedCluster(t, s)
	d := seedDeployment(t, s, c.ID, nil,
		[]model.VolumeBinding{{VolumeName: "airflow-logs", PVCName: "dip-old-airflow-logs"}},
	)

	d.Volumes = []model.VolumeBinding{
		{DeploymentID: d.ID, VolumeName: "shared-data", Existing: true},
	}
	require.NoError(t, s.UpdateDeployment(ctx, d))

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Volumes, 1, "stale bindings must not survive an update")
	assert.Equal(t, "shared-data", got.Volumes[0].VolumeName)
	assert.True(t, got.Volumes[0].Existing)
}

func TestCreateDeployment_EndpointUniquePerCluster(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := seedCluster(t, s)
	ep := model.Endpoint{Name: "web-ui", AccessType: model.AccessClusterIPPath, Value: "/grafana", Enabled: true}
	seedDeployment(t, s, c.ID, []model.Endpoint{ep}, nil)

	id := uuid.NewString()
	second := &model.Deployment{
		ID:            id,
		ClusterID:     c.ID,
		Name:          "d-" + id[:8],
		ApplicationID: 2,
		Namespace:     "dip-" + id,
		ReleaseName:   "grafana-" + id,
		Config:        model.ConfigMap{},
		Status:        model.StatusPending,
		InstalledAt:   time.Now().UTC(),
		Endpoints:     []model.Endpoint{ep},
	}
	err := s.CreateDeployment(ctx, second)
	assert.True(t, apperror.IsConflict(err),
		"two deployments must not claim the same address even when admitted concurrently")

	// A disabled duplicate is fine; the index only guards enabled rows.
	disabled := ep
	disabled.Enabled = false
	second.ID = uuid.NewString()
	second.Name = "d-" + second.ID[:8]
	second.Namespace = "dip-" + second.ID
	second.ReleaseName = "grafana-" + second.ID
	second.Endpoints = []model.Endpoint{disabled}
	assert.NoError(t, s.CreateDeployment(ctx, second))
}
