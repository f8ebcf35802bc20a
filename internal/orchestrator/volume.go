package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
	"github.com/datainfrapilot/dip/internal/util/labels"
)

// CreateVolume provisions a standalone user volume synchronously; the
// name-unique constraint in the store guards concurrent creates. User
// volumes carry the retained label so a cluster teardown never
// reclaims them.
func (o *Orchestrator) CreateVolume(ctx context.Context, v *model.Volume, providerToken string) (*model.Volume, error) {
	if err := model.ValidateName("volume", v.Name); err != nil {
		return nil, apperror.New(apperror.CodeValidation, err.Error())
	}
	if err := model.ValidateVolumeSize(v.SizeGiB); err != nil {
		return nil, apperror.New(apperror.CodeValidation, err.Error())
	}
	if regions := provider.Regions(v.Provider); regions != nil {
		known := false
		for _, r := range regions {
			if r.Name == v.Region {
				known = true
			}
		}
		if !known {
			return nil, apperror.Newf(apperror.CodeValidation, "unknown region %q", v.Region)
		}
	}

	driver, err := o.driverFor(v.Provider, providerToken)
	if err != nil {
		return nil, err
	}

	v.ID = uuid.NewString()
	v.Status = model.StatusCreating
	v.CreatedAt = time.Now().UTC()
	if err := o.store.CreateVolume(ctx, v); err != nil {
		return nil, err
	}

	retained := map[string]string{labels.KeyRetained: "true"}
	if _, err := driver.CreateVolume(ctx, provider.VolumeCreateOpts{
		Name:    v.Name,
		SizeGiB: v.SizeGiB,
		Region:  v.Region,
		Labels:  retained,
	}); err != nil {
		if storeErr := o.store.UpdateVolumeStatus(ctx, v.ID, model.StatusFailed); storeErr != nil {
			o.logger.Error("failed to persist volume status",
				zap.String("volume_id", v.ID), zap.Error(storeErr))
		}
		return nil, err
	}

	if err := o.store.UpdateVolumeStatus(ctx, v.ID, model.StatusRunning); err != nil {
		return nil, err
	}
	v.Status = model.StatusRunning
	return v, nil
}

// DeleteVolume removes a user volume that no deployment binds.
func (o *Orchestrator) DeleteVolume(ctx context.Context, id, providerToken string) error {
	v, err := o.store.GetVolume(ctx, id)
	if err != nil {
		return err
	}
	if v.InUse {
		return apperror.Newf(apperror.CodeConflict, "volume %s is in use", v.Name)
	}

	driver, err := o.driverFor(v.Provider, providerToken)
	if err != nil {
		return err
	}
	if err := driver.DeleteVolume(ctx, v.Name); err != nil {
		return err
	}
	return o.store.DeleteVolume(ctx, id)
}

// ListVolumes returns all user volumes with their derived in_use flag.
func (o *Orchestrator) ListVolumes(ctx context.Context) ([]model.Volume, error) {
	return o.store.ListVolumes(ctx)
}
