package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage/storetest"
)

func claimsFor(account *models.Account) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		TenantID:  account.TenantID,
	}
}

func authorizerFixture(t *testing.T) (*Authorizer, *storetest.Store, *models.Account, *models.Account, *models.Tenant) {
	t.Helper()

	store := storetest.New()
	ctx := context.Background()

	tenant := &models.Tenant{Name: "Acme", TaxNumber: "12345"}
	require.NoError(t, store.CreateTenant(ctx, tenant))

	admin := &models.Account{
		Email: "admin@example.com", Username: "admin",
		Role: models.RoleAdmin, Verified: true,
	}
	require.NoError(t, store.CreateAccount(ctx, admin))

	user := &models.Account{
		Email: "user@example.com", Username: "user",
		Role: models.RoleUser, Verified: true, TenantID: &tenant.ID,
	}
	require.NoError(t, store.CreateAccount(ctx, user))

	return NewAuthorizer(store), store, admin, user, tenant
}

func TestAuthorizeRoleAndScope(t *testing.T) {
	authz, _, admin, user, tenant := authorizerFixture(t)
	ctx := context.Background()
	otherTenant := uuid.New()

	tests := []struct {
		name    string
		account *models.Account
		req     Requirement
		want    error
	}{
		{"admin reaches admin routes", admin, Requirement{Role: models.RoleAdmin}, nil},
		{"admin reaches plain authenticated routes", admin, Requirement{}, nil},
		{"admin reaches any tenant resource", admin, Requirement{TenantID: &otherTenant}, nil},
		{"user denied admin routes", user, Requirement{Role: models.RoleAdmin}, ErrForbidden},
		{"user reaches plain authenticated routes", user, Requirement{}, nil},
		{"user reaches own tenant resource", user, Requirement{TenantID: &tenant.ID}, nil},
		{"user denied other tenant resource", user, Requirement{TenantID: &otherTenant}, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(ctx, claimsFor(tt.account), tt.req)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestAuthorizeEveryPolicyClass(t *testing.T) {
	authz, _, admin, user, tenant := authorizerFixture(t)
	ctx := context.Background()

	type expectation struct {
		admin error
		user  error
	}
	expectations := map[RouteClass]expectation{
		ClassAuthenticated: {nil, nil},
		ClassAdminAccounts: {nil, ErrForbidden},
		ClassAdminTenants:  {nil, ErrForbidden},
		ClassAdminLicenses: {nil, ErrForbidden},
		ClassTenantSelf:    {nil, nil},
	}

	for _, policy := range policyTable {
		want, ok := expectations[policy.Class]
		require.True(t, ok, "missing expectation for class %s", policy.Class)

		req := policy.Requirement(&tenant.ID)

		err := authz.Authorize(ctx, claimsFor(admin), req)
		assert.ErrorIs(t, err, want.admin, "class %s, admin", policy.Class)

		err = authz.Authorize(ctx, claimsFor(user), req)
		assert.ErrorIs(t, err, want.user, "class %s, user", policy.Class)
	}
}

func TestAuthorizeSessionValidity(t *testing.T) {
	authz, _, admin, _, _ := authorizerFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, authz.Authorize(ctx, nil, Requirement{}), ErrUnauthenticated)

	expired := claimsFor(admin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.ErrorIs(t, authz.Authorize(ctx, expired, Requirement{}), ErrUnauthenticated)

	noExpiry := claimsFor(admin)
	noExpiry.ExpiresAt = nil
	assert.ErrorIs(t, authz.Authorize(ctx, noExpiry, Requirement{}), ErrUnauthenticated)
}

func TestAuthorizeRevocation(t *testing.T) {
	authz, store, admin, user, tenant := authorizerFixture(t)
	ctx := context.Background()

	// Claims stay valid, but the deleted account is denied on its next
	// request.
	claims := claimsFor(admin)
	require.NoError(t, store.SoftDeleteAccount(ctx, admin.ID))
	assert.ErrorIs(t, authz.Authorize(ctx, claims, Requirement{}), ErrUnauthenticated)

	// Locking the tenant cuts off its users the same way.
	userClaims := claimsFor(user)
	assert.NoError(t, authz.Authorize(ctx, userClaims, Requirement{TenantID: &tenant.ID}))
	require.NoError(t, store.SetTenantLock(ctx, tenant.ID, true))
	assert.ErrorIs(t, authz.Authorize(ctx, userClaims, Requirement{TenantID: &tenant.ID}), ErrForbidden)
}

func TestAuthorizeStoredRoleWins(t *testing.T) {
	authz, store, admin, _, _ := authorizerFixture(t)
	ctx := context.Background()

	// Token still says ADMIN; the stored account was demoted.
	claims := claimsFor(admin)
	demoted, err := store.GetAccount(ctx, admin.ID)
	require.NoError(t, err)
	tenant := &models.Tenant{Name: "Demo", TaxNumber: "99999"}
	require.NoError(t, store.CreateTenant(ctx, tenant))
	demoted.Role = models.RoleUser
	demoted.TenantID = &tenant.ID
	require.NoError(t, store.UpdateAccount(ctx, demoted))

	assert.ErrorIs(t, authz.Authorize(ctx, claims, Requirement{Role: models.RoleAdmin}), ErrForbidden)
}
