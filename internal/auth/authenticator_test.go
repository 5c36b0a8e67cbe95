package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/config"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage/storetest"
	"github.com/amo-platform/amo-server/pkg/crypto"
)

type fakeVerifier struct {
	assertion *Assertion
	err       error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*Assertion, error) {
	return f.assertion, f.err
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newTestAuthenticator(t *testing.T, verifier AssertionVerifier) (*Authenticator, *storetest.Store) {
	t.Helper()

	store := storetest.New()
	return NewAuthenticator(store, NewJWTManager(testJWTConfig()), verifier), store
}

func seedAccount(t *testing.T, store *storetest.Store, email, password string, verified bool) *models.Account {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	account := &models.Account{
		Email:        email,
		Username:     email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Verified:     verified,
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func TestAuthenticateSuccess(t *testing.T) {
	a, store := newTestAuthenticator(t, nil)
	account := seedAccount(t, store, "admin@example.com", "correct horse", true)
	ctx := context.Background()

	pair, got, err := a.Authenticate(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	fresh, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLoginAt)
}

func TestAuthenticateEmailCaseInsensitive(t *testing.T) {
	a, store := newTestAuthenticator(t, nil)
	seedAccount(t, store, "admin@example.com", "correct horse", true)

	_, _, err := a.Authenticate(context.Background(), "Admin@Example.COM", "correct horse")
	assert.NoError(t, err)
}

func TestAuthenticateFailures(t *testing.T) {
	a, store := newTestAuthenticator(t, nil)
	seedAccount(t, store, "admin@example.com", "correct horse", true)

	// Federated-only account: no password hash.
	federated := &models.Account{
		Email:    "federated@example.com",
		Username: "federated",
		Role:     models.RoleAdmin,
		Verified: true,
	}
	require.NoError(t, store.CreateAccount(context.Background(), federated))

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "whatever"},
		{"wrong password", "admin@example.com", "wrong"},
		{"federated account has no password", "federated@example.com", "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := a.Authenticate(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthenticateUnverified(t *testing.T) {
	a, store := newTestAuthenticator(t, nil)
	seedAccount(t, store, "new@example.com", "correct horse", false)

	_, _, err := a.Authenticate(context.Background(), "new@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestFederatedFirstLoginProvisions(t *testing.T) {
	verifier := &fakeVerifier{assertion: &Assertion{Email: "New.User@Example.com", Name: "New User"}}
	a, store := newTestAuthenticator(t, verifier)
	ctx := context.Background()

	pair, account, err := a.AuthenticateFederated(ctx, "provider-token")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// Provisioned verified, as a USER, with no password hash.
	fresh, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", fresh.Email)
	assert.Equal(t, models.RoleUser, fresh.Role)
	assert.True(t, fresh.Verified)
	assert.Empty(t, fresh.PasswordHash)

	// Password login never works for it.
	_, _, err = a.Authenticate(ctx, fresh.Email, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Second login reuses the account.
	_, again, err := a.AuthenticateFederated(ctx, "provider-token")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, again.ID)
}

func TestFederatedBadAssertion(t *testing.T) {
	a, _ := newTestAuthenticator(t, &fakeVerifier{err: ErrInvalidAssertion})

	_, _, err := a.AuthenticateFederated(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidAssertion)
}

func TestRefresh(t *testing.T) {
	a, store := newTestAuthenticator(t, nil)
	account := seedAccount(t, store, "admin@example.com", "correct horse", true)
	ctx := context.Background()

	pair, _, err := a.Authenticate(ctx, account.Email, "correct horse")
	require.NoError(t, err)

	fresh, err := a.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	// A deleted account stops refreshing immediately.
	require.NoError(t, store.SoftDeleteAccount(ctx, account.ID))
	_, err = a.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
