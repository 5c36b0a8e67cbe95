package license

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/activity"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage/storetest"
)

func newTestService(t *testing.T) (*Service, *storetest.Store, *models.Tenant) {
	t.Helper()

	store := storetest.New()
	tenant := &models.Tenant{Name: "Acme", TaxNumber: "12345"}
	require.NoError(t, store.CreateTenant(context.Background(), tenant))

	return NewService(store, activity.NewRecorder(store, nil)), store, tenant
}

func TestRenewRejectsInvalidWindow(t *testing.T) {
	svc, _, tenant := newTestService(t)
	now := time.Now()

	_, err := svc.Renew(context.Background(), tenant.ID, now, now)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = svc.Renew(context.Background(), tenant.ID, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRenewRepointsCurrentLicense(t *testing.T) {
	svc, store, tenant := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	first, err := svc.Renew(ctx, tenant.ID, now.Add(-400*24*time.Hour), now.Add(-35*24*time.Hour))
	require.NoError(t, err)

	second, err := svc.Renew(ctx, tenant.ID, now, now.Add(365*24*time.Hour))
	require.NoError(t, err)

	current, err := store.GetCurrentLicense(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	// The old license row stays in the ledger untouched.
	old, err := store.GetLicense(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ExpiresAt.Unix(), old.ExpiresAt.Unix())
}

func TestRenewUnknownTenant(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.Now()

	_, err := svc.Renew(context.Background(), uuid.New(), now, now.Add(time.Hour))
	assert.Error(t, err)
}

func TestConcurrentRenewals(t *testing.T) {
	svc, store, tenant := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	const renewals = 10

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, renewals)
	for i := 0; i < renewals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lic, err := svc.Renew(ctx, tenant.ID, now, now.Add(time.Duration(i+1)*24*time.Hour))
			assert.NoError(t, err)
			ids <- lic.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	// Every renewal left a row in the ledger.
	licenses, total, err := store.ListLicenses(ctx, 100, 0)
	require.NoError(t, err)
	assert.EqualValues(t, renewals, total)
	assert.Len(t, licenses, renewals)

	// The tenant points at one of the renewals, never a dangling ID.
	current, err := store.GetCurrentLicense(ctx, tenant.ID)
	require.NoError(t, err)

	found := false
	for id := range ids {
		if id == current.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTenantStatus(t *testing.T) {
	svc, store, tenant := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	// No license yet.
	status, err := svc.TenantStatus(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, TenantLicenseExpired, status)

	_, err = svc.Renew(ctx, tenant.ID, now, now.Add(90*24*time.Hour))
	require.NoError(t, err)

	fresh, err := store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)

	status, err = svc.TenantStatus(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, TenantActive, status)
}
