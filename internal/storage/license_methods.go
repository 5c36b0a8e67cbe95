package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

const licenseColumns = `id, created_at, tenant_id, activated_at, expires_at`

// CreateLicense inserts a license and repoints the tenant's
// current-license pointer in one transaction. The tenant row is locked
// first so concurrent renewals for the same tenant serialize instead of
// racing on the pointer.
func (s *PostgresStore) CreateLicense(ctx context.Context, license *models.License) error {
	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}
	license.CreatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	var tenantID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tenants WHERE id = $1 AND NOT is_deleted FOR UPDATE`,
		license.TenantID,
	).Scan(&tenantID)
	if err != nil {
		if mapped := mapError(err); mapped == ErrNotFound {
			return ErrInvalidReference
		}
		return mapError(err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO licenses (id, created_at, tenant_id, activated_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)`,
		license.ID, license.CreatedAt, license.TenantID,
		license.ActivatedAt, license.ExpiresAt,
	)
	if err != nil {
		return mapError(err)
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE tenants SET current_license_id = $2, updated_at = $3 WHERE id = $1`,
		license.TenantID, license.ID, time.Now(),
	)
	if err != nil {
		return mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit license: %w", mapError(err))
	}

	return nil
}

func scanLicense(row interface{ Scan(...interface{}) error }) (*models.License, error) {
	license := &models.License{}
	err := row.Scan(
		&license.ID, &license.CreatedAt, &license.TenantID,
		&license.ActivatedAt, &license.ExpiresAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return license, nil
}

// GetLicense gets a license by ID
func (s *PostgresStore) GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error) {
	return retryRead(ctx, func() (*models.License, error) {
		query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
		return scanLicense(s.db.QueryRowContext(ctx, query, id))
	})
}

// GetCurrentLicense gets the license the tenant's pointer references
func (s *PostgresStore) GetCurrentLicense(ctx context.Context, tenantID uuid.UUID) (*models.License, error) {
	return retryRead(ctx, func() (*models.License, error) {
		query := `
            SELECT l.id, l.created_at, l.tenant_id, l.activated_at, l.expires_at
            FROM licenses l
            JOIN tenants t ON t.current_license_id = l.id
            WHERE t.id = $1`
		return scanLicense(s.db.QueryRowContext(ctx, query, tenantID))
	})
}

// ListLicenses lists licenses, newest first
func (s *PostgresStore) ListLicenses(ctx context.Context, limit, offset int) ([]*models.License, int64, error) {
	type page struct {
		licenses []*models.License
		total    int64
	}

	p, err := retryRead(ctx, func() (page, error) {
		var p page

		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM licenses`).Scan(&p.total); err != nil {
			return p, mapError(err)
		}

		query := `SELECT ` + licenseColumns + `
            FROM licenses
            ORDER BY created_at DESC
            LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return p, mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			license, err := scanLicense(rows)
			if err != nil {
				return p, err
			}
			p.licenses = append(p.licenses, license)
		}

		return p, mapError(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}

	return p.licenses, p.total, nil
}
