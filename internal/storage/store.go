package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidReference = errors.New("invalid reference")
	ErrUnavailable      = errors.New("store unavailable")
)

// Store defines the storage interface
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	SoftDeleteAccount(ctx context.Context, id uuid.UUID) error
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, int64, error)

	// SetVerificationCode replaces any outstanding code for the account.
	SetVerificationCode(ctx context.Context, accountID uuid.UUID, code string, sentAt time.Time) error
	// RedeemVerificationCode flips verified and clears the code in a
	// single conditional update. Returns ErrNotFound when no unverified
	// account matches the (email, code) pair exactly.
	RedeemVerificationCode(ctx context.Context, email, code string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	SetTenantLock(ctx context.Context, id uuid.UUID, locked bool) error
	// RecordTenantUsage applies a usage report from the desktop sync
	// side. The scan counter never moves backwards.
	RecordTenantUsage(ctx context.Context, id uuid.UUID, scanCount int64, vatAmount float64, syncedAt time.Time) error
	SoftDeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// License methods. CreateLicense inserts the license and repoints the
	// tenant's current-license pointer in one transaction, serialized per
	// tenant.
	CreateLicense(ctx context.Context, license *models.License) error
	GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error)
	GetCurrentLicense(ctx context.Context, tenantID uuid.UUID) (*models.License, error)
	ListLicenses(ctx context.Context, limit, offset int) ([]*models.License, int64, error)

	// Activity methods
	CreateActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, subjectType models.SubjectType, subjectID uuid.UUID, limit, offset int) ([]*models.Activity, int64, error)

	// Close the store
	Close() error
}
