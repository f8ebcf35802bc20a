package store

import (
	"context"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

// volumeQuery joins the derived in_use flag: a volume is in use while
// any deployment row references its name.
const volumeQuery = `
	SELECT v.id, v.name, v.size_gib, v.provider, v.region, v.description,
	       v.status, v.created_at,
	       EXISTS (SELECT 1 FROM deployment_volumes dv WHERE dv.volume_name = v.name) AS in_use
	FROM volumes v`

// CreateVolume inserts a volume row.
func (s *Store) CreateVolume(ctx context.Context, v *model.Volume) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volumes (id, name, size_gib, provider, region, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.Name, v.SizeGiB, v.Provider, v.Region, v.Description, v.Status, v.CreatedAt)
	return classify(err, "volume "+v.Name)
}

// GetVolume returns a volume by ID.
func (s *Store) GetVolume(ctx context.Context, id string) (*model.Volume, error) {
	var v model.Volume
	if err := s.db.GetContext(ctx, &v, volumeQuery+` WHERE v.id = $1`, id); err != nil {
		return nil, classify(err, "volume "+id)
	}
	return &v, nil
}

// GetVolumeByName returns a volume by its unique name.
func (s *Store) GetVolumeByName(ctx context.Context, name string) (*model.Volume, error) {
	var v model.Volume
	if err := s.db.GetContext(ctx, &v, volumeQuery+` WHERE v.name = $1`, name); err != nil {
		return nil, classify(err, "volume "+name)
	}
	return &v, nil
}

// ListVolumes returns all volumes with their derived in_use flag.
func (s *Store) ListVolumes(ctx context.Context) ([]model.Volume, error) {
	var volumes []model.Volume
	if err := s.db.SelectContext(ctx, &volumes, volumeQuery+` ORDER BY v.created_at`); err != nil {
		return nil, classify(err, "volumes")
	}
	return volumes, nil
}

// UpdateVolumeStatus atomically writes the volume status.
func (s *Store) UpdateVolumeStatus(ctx context.Context, id string, status model.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE volumes SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return classify(err, "volume "+id)
	}
	return checkFound(res, "volume "+id)
}

// DeleteVolume removes a volume. Deleting a volume that is still bound
// by a deployment is a conflict.
func (s *Store) DeleteVolume(ctx context.Context, id string) error {
	v, err := s.GetVolume(ctx, id)
	if err != nil {
		return err
	}
	if v.InUse {
		return apperror.Newf(apperror.CodeConflict, "volume %s is in use", v.Name)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM volumes WHERE id = $1`, id)
	if err != nil {
		return classify(err, "volume "+id)
	}
	return checkFound(res, "volume "+id)
}
