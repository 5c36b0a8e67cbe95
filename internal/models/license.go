package models

import (
	"time"

	"github.com/google/uuid"
)

// License represents a time window of entitlement for a tenant.
// Licenses are never mutated in place; a renewal inserts a new row
// and repoints the tenant's current-license pointer.
type License struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	ActivatedAt time.Time `json:"activatedAt" db:"activated_at"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at"`
}
