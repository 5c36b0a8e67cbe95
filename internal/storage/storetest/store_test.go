package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

func TestRecordTenantUsageNeverRegresses(t *testing.T) {
	store := New()
	ctx := context.Background()

	tenant := &models.Tenant{Name: "Acme", TaxNumber: "12345"}
	require.NoError(t, store.CreateTenant(ctx, tenant))

	now := time.Now()
	require.NoError(t, store.RecordTenantUsage(ctx, tenant.ID, 100, 500.00, now))

	// A stale report carrying lower accrued totals changes nothing.
	require.NoError(t, store.RecordTenantUsage(ctx, tenant.ID, 40, 200.00, now.Add(-time.Hour)))

	fresh, err := store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, fresh.ScanCount)
	assert.InDelta(t, 500.00, fresh.VATAmount, 0.001)
	require.NotNil(t, fresh.LastSyncAt)
	assert.Equal(t, now.Unix(), fresh.LastSyncAt.Unix())

	// A newer report moves everything forward.
	later := now.Add(time.Hour)
	require.NoError(t, store.RecordTenantUsage(ctx, tenant.ID, 150, 730.25, later))

	fresh, err = store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 150, fresh.ScanCount)
	assert.InDelta(t, 730.25, fresh.VATAmount, 0.001)
	assert.Equal(t, later.Unix(), fresh.LastSyncAt.Unix())
}

func TestCreateAccountUniquenessSpansDeletedRows(t *testing.T) {
	store := New()
	ctx := context.Background()

	account := &models.Account{
		Email:    "taken@example.com",
		Username: "taken",
		Role:     models.RoleAdmin,
	}
	require.NoError(t, store.CreateAccount(ctx, account))
	require.NoError(t, store.SoftDeleteAccount(ctx, account.ID))

	// The unique constraints cover soft-deleted rows too.
	err := store.CreateAccount(ctx, &models.Account{
		Email:    "taken@example.com",
		Username: "other",
		Role:     models.RoleAdmin,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.CreateAccount(ctx, &models.Account{
		Email:    "other@example.com",
		Username: "taken",
		Role:     models.RoleAdmin,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
