package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amo-platform/amo-server/internal/models"
)

func TestGenerateTokenPair(t *testing.T) {
	m := NewJWTManager(testJWTConfig())
	account := &models.Account{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Role:  models.RoleAdmin,
	}

	access, refresh, err := m.GenerateTokenPair(account)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	subject, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)

	// Two pairs minted back to back carry distinct refresh tokens.
	_, again, err := m.GenerateTokenPair(account)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, again)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	m := NewJWTManager(testJWTConfig())

	otherCfg := *testJWTConfig()
	otherCfg.Secret = "different-secret"
	other := NewJWTManager(&otherCfg)

	account := &models.Account{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}
	access, _, err := other.GenerateTokenPair(account)
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.Error(t, err)

	_, err = m.ValidateToken("not-a-token")
	assert.Error(t, err)
}
