package license

import (
	"math"
	"time"

	"github.com/amo-platform/amo-server/internal/models"
)

// Status represents a license's display status
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// TenantStatus represents a tenant's access-control status
type TenantStatus string

const (
	TenantActive TenantStatus = "active"
	TenantLocked TenantStatus = "locked"
	// TenantLicenseExpired blocks access, unlike the display-only
	// StatusExpired tag.
	TenantLicenseExpired TenantStatus = "license_expired"
)

// expiringSoonDays is the warning window before expiry
const expiringSoonDays = 30

// DaysLeft returns the number of whole or partial days until expiry,
// rounded up. Zero or negative means the window has closed.
func DaysLeft(now, expiresAt time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// Derive computes a license's status from its window. Pure: now is an
// explicit input, never read from the wall clock.
func Derive(now, activatedAt, expiresAt time.Time) Status {
	daysLeft := DaysLeft(now, expiresAt)
	switch {
	case daysLeft <= 0:
		return StatusExpired
	case daysLeft <= expiringSoonDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// DeriveTenantStatus folds the tenant lock flag into the license-derived
// state. The lock overrides everything; a missing or expired current
// license blocks access; expiring_soon collapses into active because the
// warning window is display-only.
func DeriveTenantStatus(now time.Time, tenant *models.Tenant, current *models.License) TenantStatus {
	if tenant.Locked {
		return TenantLocked
	}
	if current == nil {
		return TenantLicenseExpired
	}
	if Derive(now, current.ActivatedAt, current.ExpiresAt) == StatusExpired {
		return TenantLicenseExpired
	}
	return TenantActive
}
