package verification

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
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/internal/storage/storetest"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) Send(to, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, to)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newTestFlow(t *testing.T) (*Flow, *storetest.Store, *captureSender, *models.Account) {
	t.Helper()

	store := storetest.New()
	sender := &captureSender{}
	flow := NewFlow(store, sender, activity.NewRecorder(store, nil))

	account := &models.Account{
		Email:    "user@example.com",
		Username: "user",
		Role:     models.RoleAdmin,
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))

	return flow, store, sender, account
}

func TestIssueAndRedeem(t *testing.T) {
	flow, store, sender, account := newTestFlow(t)
	ctx := context.Background()

	code, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, 1, sender.count())

	require.NoError(t, flow.Redeem(ctx, account.Email, code))

	fresh, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Verified)
	assert.Nil(t, fresh.VerificationCode)
}

func TestRedeemIsSingleUse(t *testing.T) {
	flow, _, _, account := newTestFlow(t)
	ctx := context.Background()

	code, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	require.NoError(t, flow.Redeem(ctx, account.Email, code))
	assert.ErrorIs(t, flow.Redeem(ctx, account.Email, code), ErrInvalidCode)
}

func TestRedeemWrongCode(t *testing.T) {
	flow, store, _, account := newTestFlow(t)
	ctx := context.Background()

	_, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, flow.Redeem(ctx, account.Email, "ZZZZZZ"), ErrInvalidCode)
	assert.ErrorIs(t, flow.Redeem(ctx, account.Email, "short"), ErrInvalidCode)

	// Unknown email gets the same answer as a wrong code.
	assert.ErrorIs(t, flow.Redeem(ctx, "nobody@example.com", "ZZZZZZ"), ErrInvalidCode)

	fresh, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Verified)
}

func TestRedeemNormalizesEmail(t *testing.T) {
	flow, _, _, account := newTestFlow(t)
	ctx := context.Background()

	code, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	require.NoError(t, flow.Redeem(ctx, "  User@Example.COM ", code))
}

func TestReissueInvalidatesOldCode(t *testing.T) {
	flow, _, _, account := newTestFlow(t)
	ctx := context.Background()

	old, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	// Step past the resend window.
	flow.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	fresh, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	if old != fresh {
		assert.ErrorIs(t, flow.Redeem(ctx, account.Email, old), ErrInvalidCode)
	}
	require.NoError(t, flow.Redeem(ctx, account.Email, fresh))
}

func TestIssueRateLimited(t *testing.T) {
	flow, _, sender, account := newTestFlow(t)
	ctx := context.Background()

	_, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)

	_, err = flow.Issue(ctx, account.ID)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, sender.count())
}

func TestIssueAlreadyVerified(t *testing.T) {
	flow, store, sender, account := newTestFlow(t)
	ctx := context.Background()

	code, err := flow.Issue(ctx, account.ID)
	require.NoError(t, err)
	require.NoError(t, flow.Redeem(ctx, account.Email, code))

	_, err = flow.Issue(ctx, account.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, sender.count())

	fresh, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Verified)
}

func TestIssueUnknownAccount(t *testing.T) {
	flow, _, sender, _ := newTestFlow(t)

	_, err := flow.Issue(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, sender.count())
}
