package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/activity"
	"github.com/amo-platform/amo-server/internal/mail"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/pkg/crypto"
)

// Errors returned by the flow. ErrInvalidCode deliberately covers both
// "unknown email" and "wrong code" so redemption cannot be used to probe
// which emails exist.
var (
	ErrInvalidCode = errors.New("invalid verification code")
	ErrRateLimited = errors.New("verification code requested too recently")
)

const (
	codeLength     = 6
	resendInterval = time.Minute
)

// Flow issues and redeems one-time verification codes gating account
// activation
type Flow struct {
	store    storage.Store
	sender   mail.Sender
	recorder *activity.Recorder
	now      func() time.Time
}

// NewFlow creates a verification flow
func NewFlow(store storage.Store, sender mail.Sender, recorder *activity.Recorder) *Flow {
	return &Flow{
		store:    store,
		sender:   sender,
		recorder: recorder,
		now:      time.Now,
	}
}

// Issue generates a fresh code for the account, replacing any
// outstanding one, and mails it. Unknown or already-verified accounts
// fail with storage.ErrNotFound.
func (f *Flow) Issue(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := f.store.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account.Verified || account.IsDeleted {
		return "", storage.ErrNotFound
	}

	if account.VerificationSentAt != nil && f.now().Sub(*account.VerificationSentAt) < resendInterval {
		return "", ErrRateLimited
	}

	code, err := crypto.GenerateCode(codeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	if err := f.store.SetVerificationCode(ctx, account.ID, code, f.now()); err != nil {
		return "", err
	}

	if err := f.sender.Send(account.Email, "Verify your email address", verificationBody(code)); err != nil {
		return "", fmt.Errorf("send verification mail: %w", err)
	}

	f.recorder.Record(ctx,
		"Verification Code Sent",
		fmt.Sprintf("Verification code issued for %s", account.Email),
		models.SubjectAccount, account.ID,
	)

	return code, nil
}

// Redeem consumes a code: verified is set and the code cleared in a
// single conditional store update, so a code can be redeemed at most
// once and a concurrent re-issue wins over an in-flight redeem. The
// code comparison is exact and case-sensitive.
func (f *Flow) Redeem(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(code) != codeLength {
		return ErrInvalidCode
	}

	err := f.store.RedeemVerificationCode(ctx, email, code)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}

	// Best effort: the account just verified itself, the record is
	// informational.
	account, err := f.store.GetAccountByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load account after verification")
		return nil
	}

	f.recorder.Record(ctx,
		"Email Verified",
		fmt.Sprintf("Email verified for %s", account.Email),
		models.SubjectAccount, account.ID,
	)

	return nil
}

// verificationBody renders the verification mail
func verificationBody(code string) string {
	return fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h1 style="color: #1a56db;">Welcome to AMO Platform!</h1>
        <p>Please use the following code to verify your email address:</p>
        <div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px; text-align: center; margin: 20px 0;">
          <code style="font-size: 24px; letter-spacing: 4px;">%s</code>
        </div>
        <p>If you didn't request this verification, please ignore this email.</p>
      </div>
    `, code)
}
