package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
)

// Authorization errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Requirement is what a single request demands of a session
type Requirement struct {
	Role     models.Role // empty means any authenticated role
	TenantID *uuid.UUID  // owner of the targeted resource, nil if not tenant-scoped
}

// Authorizer decides allow/deny for a session against a requirement.
// The account is re-read on every call: a soft-deleted account or a
// locked tenant invalidates outstanding sessions immediately instead of
// surviving until token expiry.
type Authorizer struct {
	store storage.Store
}

// NewAuthorizer creates an authorizer
func NewAuthorizer(store storage.Store) *Authorizer {
	return &Authorizer{store: store}
}

// Authorize evaluates the rules in order: session validity, role,
// resource ownership. A nil return means allow.
func (a *Authorizer) Authorize(ctx context.Context, claims *Claims, req Requirement) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return ErrUnauthenticated
	}

	account, err := a.store.GetAccount(ctx, claims.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if account.IsDeleted {
		return ErrUnauthenticated
	}

	// The stored role wins over the token's: a demotion takes effect
	// without waiting for the token to expire.
	if req.Role != "" && account.Role != req.Role {
		return ErrForbidden
	}

	if account.Role == models.RoleUser {
		if account.TenantID != nil {
			tenant, err := a.store.GetTenant(ctx, *account.TenantID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err == nil && (tenant.Locked || tenant.IsDeleted) {
				return ErrForbidden
			}
		}

		if req.TenantID != nil {
			if account.TenantID == nil || *account.TenantID != *req.TenantID {
				return ErrForbidden
			}
		}
	}

	return nil
}
