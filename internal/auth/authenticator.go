package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/idtoken"

	"github.com/amo-platform/amo-server/internal/config"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/pkg/crypto"
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidAssertion   = errors.New("invalid assertion")
)

// dummyHash is compared against when no account matches, so a failed
// lookup costs the same as a failed password check.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenPair is the result of a successful authentication
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Assertion is the verified identity extracted from a federated
// provider token
type Assertion struct {
	Email string
	Name  string
}

// AssertionVerifier verifies a federated identity assertion's signature
// and audience. Unsigned claims are never trusted.
type AssertionVerifier interface {
	Verify(ctx context.Context, token string) (*Assertion, error)
}

// GoogleVerifier verifies Google ID tokens against the configured
// client ID
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a Google assertion verifier
func NewGoogleVerifier(cfg *config.GoogleConfig) *GoogleVerifier {
	return &GoogleVerifier{clientID: cfg.ClientID}
}

// Verify validates the token's signature, audience and expiry
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Assertion, error) {
	if v.clientID == "" {
		return nil, ErrInvalidAssertion
	}

	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, ErrInvalidAssertion
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidAssertion
	}
	name, _ := payload.Claims["name"].(string)

	return &Assertion{Email: email, Name: name}, nil
}

// Authenticator validates presented credentials against the store and
// issues session tokens
type Authenticator struct {
	store    storage.Store
	jwt      *JWTManager
	verifier AssertionVerifier
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(store storage.Store, jwt *JWTManager, verifier AssertionVerifier) *Authenticator {
	return &Authenticator{
		store:    store,
		jwt:      jwt,
		verifier: verifier,
	}
}

// NormalizeEmail lowercases an email so identity comparisons are
// case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate validates an email/password pair. All credential
// failures collapse into ErrInvalidCredentials so callers cannot probe
// which emails exist; an unverified account is the one distinct outcome
// so the UI can redirect to verification.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*TokenPair, *models.Account, error) {
	account, err := a.store.GetAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		crypto.VerifyPassword(password, dummyHash)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	// Federated-only accounts have no hash; password auth does not apply.
	if account.IsDeleted || account.PasswordHash == "" {
		crypto.VerifyPassword(password, dummyHash)
		return nil, nil, ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, nil, ErrNotVerified
	}

	return a.issue(ctx, account)
}

// AuthenticateFederated verifies a provider assertion and signs in the
// matching account, auto-provisioning a verified USER account without a
// password hash on first login. A password is never issued for an
// account created this way.
func (a *Authenticator) AuthenticateFederated(ctx context.Context, token string) (*TokenPair, *models.Account, error) {
	assertion, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	email := NormalizeEmail(assertion.Email)
	account, err := a.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		account = &models.Account{
			Email:    email,
			Username: assertion.Name,
			Role:     models.RoleUser,
			Verified: true,
		}
		if account.Username == "" {
			account.Username = email
		}
		if err := a.store.CreateAccount(ctx, account); err != nil {
			return nil, nil, err
		}
		log.Info().Str("email", email).Msg("Provisioned federated account")
	} else if err != nil {
		return nil, nil, err
	}

	if account.IsDeleted {
		return nil, nil, ErrInvalidCredentials
	}

	return a.issue(ctx, account)
}

// Refresh exchanges a valid refresh token for a new token pair
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	accountID, err := a.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	account, err := a.store.GetAccount(ctx, accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if account.IsDeleted {
		return nil, ErrInvalidCredentials
	}

	pair, _, err := a.issue(ctx, account)
	return pair, err
}

func (a *Authenticator) issue(ctx context.Context, account *models.Account) (*TokenPair, *models.Account, error) {
	access, refresh, err := a.jwt.GenerateTokenPair(account)
	if err != nil {
		return nil, nil, err
	}

	if err := a.store.TouchLastLogin(ctx, account.ID, time.Now()); err != nil {
		log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("Failed to record login time")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.jwt.config.AccessTokenTTL.Seconds()),
		TokenType:    "Bearer",
	}, account, nil
}
