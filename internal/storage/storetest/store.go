// Package storetest provides an in-memory Store for tests. Conditional
// operations take the same lock as everything else, so the concurrency
// semantics of the real store (at-most-once code redemption, serialized
// license renewal) hold here too.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// Store is an in-memory storage.Store
type Store struct {
	mu sync.Mutex

	accounts   map[uuid.UUID]*models.Account
	tenants    map[uuid.UUID]*models.Tenant
	licenses   map[uuid.UUID]*models.License
	activities []*models.Activity
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*models.Account),
		tenants:  make(map[uuid.UUID]*models.Tenant),
		licenses: make(map[uuid.UUID]*models.License),
	}
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func copyTenant(t *models.Tenant) *models.Tenant {
	c := *t
	return &c
}

func copyLicense(l *models.License) *models.License {
	c := *l
	return &c
}

// CreateAccount creates an account. The email and username uniqueness
// constraints span soft-deleted rows, matching the database schema.
func (s *Store) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email || existing.Username == account.Username {
			return storage.ErrDuplicateKey
		}
	}

	if account.TenantID != nil {
		tenant, ok := s.tenants[*account.TenantID]
		if !ok || tenant.IsDeleted {
			return storage.ErrInvalidReference
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	s.accounts[account.ID] = copyAccount(account)
	return nil
}

// GetAccount gets an account by ID
func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAccount(account), nil
}

// GetAccountByEmail gets an account by email. Soft-deleted accounts
// are returned like the real store does; callers check IsDeleted.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Email == email {
			return copyAccount(account), nil
		}
	}
	return nil, storage.ErrNotFound
}

// UpdateAccount updates an account
func (s *Store) UpdateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok || existing.IsDeleted {
		return storage.ErrNotFound
	}
	account.UpdatedAt = time.Now()
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

// SoftDeleteAccount marks an account deleted
func (s *Store) SoftDeleteAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.IsDeleted {
		return storage.ErrNotFound
	}
	account.IsDeleted = true
	account.UpdatedAt = time.Now()
	return nil
}

// ListAccounts lists live accounts, newest first
func (s *Store) ListAccounts(_ context.Context, limit, offset int) ([]*models.Account, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Account
	for _, account := range s.accounts {
		if !account.IsDeleted {
			all = append(all, copyAccount(account))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, limit, offset), int64(len(all)), nil
}

// SetVerificationCode replaces any outstanding code for the account
func (s *Store) SetVerificationCode(_ context.Context, accountID uuid.UUID, code string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok || account.IsDeleted {
		return storage.ErrNotFound
	}
	account.VerificationCode = &code
	account.VerificationSentAt = &sentAt
	account.UpdatedAt = time.Now()
	return nil
}

// RedeemVerificationCode flips verified and clears the code when the
// (email, code) pair matches an unverified live account
func (s *Store) RedeemVerificationCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Email != email || account.IsDeleted || account.Verified {
			continue
		}
		if account.VerificationCode == nil || *account.VerificationCode != code {
			continue
		}
		account.Verified = true
		account.VerificationCode = nil
		account.UpdatedAt = time.Now()
		return nil
	}
	return storage.ErrNotFound
}

// TouchLastLogin records a login time
func (s *Store) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.IsDeleted {
		return storage.ErrNotFound
	}
	account.LastLoginAt = &at
	return nil
}

// CreateTenant creates a tenant
func (s *Store) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	s.tenants[tenant.ID] = copyTenant(tenant)
	return nil
}

// GetTenant gets a tenant by ID
func (s *Store) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTenant(tenant), nil
}

// UpdateTenant updates a tenant's mutable fields
func (s *Store) UpdateTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tenants[tenant.ID]
	if !ok || existing.IsDeleted {
		return storage.ErrNotFound
	}
	existing.Name = tenant.Name
	existing.TaxNumber = tenant.TaxNumber
	existing.UpdatedAt = time.Now()
	return nil
}

// SetTenantLock toggles the tenant lock flag
func (s *Store) SetTenantLock(_ context.Context, id uuid.UUID, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok || tenant.IsDeleted {
		return storage.ErrNotFound
	}
	tenant.Locked = locked
	tenant.UpdatedAt = time.Now()
	return nil
}

// RecordTenantUsage applies a usage report. Counters are accrued
// totals: stale reports never move them backwards.
func (s *Store) RecordTenantUsage(_ context.Context, id uuid.UUID, scanCount int64, vatAmount float64, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok || tenant.IsDeleted {
		return storage.ErrNotFound
	}
	if scanCount > tenant.ScanCount {
		tenant.ScanCount = scanCount
	}
	if vatAmount > tenant.VATAmount {
		tenant.VATAmount = vatAmount
	}
	if tenant.LastSyncAt == nil || syncedAt.After(*tenant.LastSyncAt) {
		tenant.LastSyncAt = &syncedAt
	}
	if syncedAt.After(tenant.UpdatedAt) {
		tenant.UpdatedAt = syncedAt
	}
	return nil
}

// SoftDeleteTenant marks a tenant deleted
func (s *Store) SoftDeleteTenant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[id]
	if !ok || tenant.IsDeleted {
		return storage.ErrNotFound
	}
	tenant.IsDeleted = true
	tenant.UpdatedAt = time.Now()
	return nil
}

// ListTenants lists live tenants, newest first
func (s *Store) ListTenants(_ context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Tenant
	for _, tenant := range s.tenants {
		if !tenant.IsDeleted {
			all = append(all, copyTenant(tenant))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, limit, offset), int64(len(all)), nil
}

// CreateLicense inserts a license and repoints the tenant's current
// license under one lock
func (s *Store) CreateLicense(_ context.Context, license *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[license.TenantID]
	if !ok || tenant.IsDeleted {
		return storage.ErrInvalidReference
	}

	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}
	license.CreatedAt = time.Now()

	s.licenses[license.ID] = copyLicense(license)
	id := license.ID
	tenant.CurrentLicenseID = &id
	tenant.UpdatedAt = license.CreatedAt
	return nil
}

// GetLicense gets a license by ID
func (s *Store) GetLicense(_ context.Context, id uuid.UUID) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyLicense(license), nil
}

// GetCurrentLicense gets the license the tenant currently points at
func (s *Store) GetCurrentLicense(_ context.Context, tenantID uuid.UUID) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[tenantID]
	if !ok || tenant.CurrentLicenseID == nil {
		return nil, storage.ErrNotFound
	}
	license, ok := s.licenses[*tenant.CurrentLicenseID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyLicense(license), nil
}

// ListLicenses lists licenses, newest first
func (s *Store) ListLicenses(_ context.Context, limit, offset int) ([]*models.License, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.License
	for _, license := range s.licenses {
		all = append(all, copyLicense(license))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, limit, offset), int64(len(all)), nil
}

// CreateActivity appends an activity record
func (s *Store) CreateActivity(_ context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.CreatedAt = time.Now()

	c := *activity
	s.activities = append(s.activities, &c)
	return nil
}

// ListActivities lists activities for a subject, newest first
func (s *Store) ListActivities(_ context.Context, subjectType models.SubjectType, subjectID uuid.UUID, limit, offset int) ([]*models.Activity, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Activity
	for _, activity := range s.activities {
		if activity.SubjectType == subjectType && activity.SubjectID == subjectID {
			c := *activity
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, limit, offset), int64(len(all)), nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
