package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amo-platform/amo-server/internal/models"
)

func TestDaysLeft(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"expired yesterday", now.Add(-24 * time.Hour), -1},
		{"expires this instant", now, 0},
		{"expires in one hour", now.Add(time.Hour), 1},
		{"expires in exactly one day", now.Add(24 * time.Hour), 1},
		{"partial day rounds up", now.Add(25 * time.Hour), 2},
		{"expires in thirty days", now.Add(30 * 24 * time.Hour), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysLeft(now, tt.expiresAt))
		})
	}
}

func TestDerive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	activated := now.Add(-365 * 24 * time.Hour)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      Status
	}{
		{"already expired", now.Add(-time.Hour), StatusExpired},
		{"expires this instant", now, StatusExpired},
		{"one day left", now.Add(24 * time.Hour), StatusExpiringSoon},
		{"thirty days left", now.Add(30 * 24 * time.Hour), StatusExpiringSoon},
		{"thirty-one days left", now.Add(31 * 24 * time.Hour), StatusActive},
		{"a year left", now.Add(365 * 24 * time.Hour), StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(now, activated, tt.expiresAt))
		})
	}
}

func TestDeriveTenantStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	valid := &models.License{
		ActivatedAt: now.Add(-24 * time.Hour),
		ExpiresAt:   now.Add(60 * 24 * time.Hour),
	}
	expiringSoon := &models.License{
		ActivatedAt: now.Add(-24 * time.Hour),
		ExpiresAt:   now.Add(10 * 24 * time.Hour),
	}
	expired := &models.License{
		ActivatedAt: now.Add(-48 * time.Hour),
		ExpiresAt:   now.Add(-24 * time.Hour),
	}

	tests := []struct {
		name    string
		tenant  *models.Tenant
		current *models.License
		want    TenantStatus
	}{
		{"valid license", &models.Tenant{}, valid, TenantActive},
		{"expiring soon still grants access", &models.Tenant{}, expiringSoon, TenantActive},
		{"expired license", &models.Tenant{}, expired, TenantLicenseExpired},
		{"no license on record", &models.Tenant{}, nil, TenantLicenseExpired},
		{"lock overrides valid license", &models.Tenant{Locked: true}, valid, TenantLocked},
		{"lock overrides expired license", &models.Tenant{Locked: true}, expired, TenantLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTenantStatus(now, tt.tenant, tt.current))
		})
	}
}
