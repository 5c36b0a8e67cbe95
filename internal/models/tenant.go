package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a licensed company account
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name      string `json:"name" db:"name"`
	TaxNumber string `json:"taxNumber" db:"tax_number"`

	Locked    bool `json:"locked" db:"locked"`
	IsDeleted bool `json:"isDeleted" db:"is_deleted"`

	// CurrentLicenseID points at the license the tenant's status is
	// derived from. Repointed only by license renewal.
	CurrentLicenseID *uuid.UUID `json:"currentLicenseId,omitempty" db:"current_license_id"`

	// Usage counters, updated by the desktop ingestion side. Monotonic.
	ScanCount  int64   `json:"scanCount" db:"scan_count"`
	VATAmount  float64 `json:"vatAmount" db:"vat_amount"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty" db:"last_sync_at"`
}
