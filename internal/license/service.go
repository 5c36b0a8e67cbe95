package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/activity"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// ErrInvalidWindow is returned when a license window is not strictly increasing
var ErrInvalidWindow = errors.New("license expiry must be after activation")

// Service owns the license ledger: renewal is a single atomic store
// call, so a failed renewal never leaves a license row without the
// tenant pointer update.
type Service struct {
	store    storage.Store
	recorder *activity.Recorder
	now      func() time.Time
}

// NewService creates a license service
func NewService(store storage.Store, recorder *activity.Recorder) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithStatus pairs a license with its derived display status
type WithStatus struct {
	*models.License
	Status Status `json:"status"`
}

// Renew creates a new license for the tenant and repoints the tenant's
// current-license pointer. Existing license rows are never mutated.
func (s *Service) Renew(ctx context.Context, tenantID uuid.UUID, activatedAt, expiresAt time.Time) (*models.License, error) {
	if !expiresAt.After(activatedAt) {
		return nil, ErrInvalidWindow
	}

	license := &models.License{
		TenantID:    tenantID,
		ActivatedAt: activatedAt,
		ExpiresAt:   expiresAt,
	}

	if err := s.store.CreateLicense(ctx, license); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx,
		"License Updated",
		fmt.Sprintf("License updated for company %s", tenantID),
		models.SubjectTenant, tenantID,
	)

	return license, nil
}

// Get returns a license with its derived status
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WithStatus, error) {
	license, err := s.store.GetLicense(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WithStatus{
		License: license,
		Status:  Derive(s.now(), license.ActivatedAt, license.ExpiresAt),
	}, nil
}

// List returns licenses with derived statuses, newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*WithStatus, int64, error) {
	licenses, total, err := s.store.ListLicenses(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	result := make([]*WithStatus, 0, len(licenses))
	for _, license := range licenses {
		result = append(result, &WithStatus{
			License: license,
			Status:  Derive(now, license.ActivatedAt, license.ExpiresAt),
		})
	}

	return result, total, nil
}

// TenantStatus derives the tenant's access-control status from its lock
// flag and current license
func (s *Service) TenantStatus(ctx context.Context, tenant *models.Tenant) (TenantStatus, error) {
	current, err := s.store.GetCurrentLicense(ctx, tenant.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	return DeriveTenantStatus(s.now(), tenant, current), nil
}
