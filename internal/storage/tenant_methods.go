package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

const tenantColumns = `id, created_at, updated_at, name, tax_number, locked,
       is_deleted, current_license_id, scan_count, vat_amount, last_sync_at`

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	query := `
        INSERT INTO tenants (
            id, created_at, updated_at, name, tax_number, locked,
            is_deleted, current_license_id, scan_count, vat_amount, last_sync_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name,
		tenant.TaxNumber, tenant.Locked, tenant.IsDeleted,
		tenant.CurrentLicenseID, tenant.ScanCount, tenant.VATAmount,
		tenant.LastSyncAt,
	)

	return mapError(err)
}

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name,
		&tenant.TaxNumber, &tenant.Locked, &tenant.IsDeleted,
		&tenant.CurrentLicenseID, &tenant.ScanCount, &tenant.VATAmount,
		&tenant.LastSyncAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return tenant, nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return retryRead(ctx, func() (*models.Tenant, error) {
		query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
		return scanTenant(s.db.QueryRowContext(ctx, query, id))
	})
}

// UpdateTenant updates a tenant's mutable fields
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
        UPDATE tenants
        SET updated_at = $2, name = $3, tax_number = $4
        WHERE id = $1 AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.TaxNumber,
	)
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTenantLock toggles the tenant lock flag
func (s *PostgresStore) SetTenantLock(ctx context.Context, id uuid.UUID, locked bool) error {
	query := `UPDATE tenants SET locked = $2, updated_at = $3 WHERE id = $1 AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query, id, locked, time.Now())
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// RecordTenantUsage applies a usage report from the desktop sync side.
// The counters are accrued totals, so a stale or reordered report must
// never move any of them backwards.
func (s *PostgresStore) RecordTenantUsage(ctx context.Context, id uuid.UUID, scanCount int64, vatAmount float64, syncedAt time.Time) error {
	query := `
        UPDATE tenants
        SET scan_count = GREATEST(scan_count, $2),
            vat_amount = GREATEST(vat_amount, $3),
            last_sync_at = GREATEST(COALESCE(last_sync_at, $4), $4),
            updated_at = GREATEST(updated_at, $4)
        WHERE id = $1 AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query, id, scanCount, vatAmount, syncedAt)
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SoftDeleteTenant marks a tenant as deleted
func (s *PostgresStore) SoftDeleteTenant(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tenants SET is_deleted = true, updated_at = $2 WHERE id = $1 AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants that are not soft-deleted
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	type page struct {
		tenants []*models.Tenant
		total   int64
	}

	p, err := retryRead(ctx, func() (page, error) {
		var p page

		countQuery := `SELECT COUNT(*) FROM tenants WHERE NOT is_deleted`
		if err := s.db.QueryRowContext(ctx, countQuery).Scan(&p.total); err != nil {
			return p, mapError(err)
		}

		query := `SELECT ` + tenantColumns + `
            FROM tenants
            WHERE NOT is_deleted
            ORDER BY created_at DESC
            LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return p, mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			tenant, err := scanTenant(rows)
			if err != nil {
				return p, err
			}
			p.tenants = append(p.tenants, tenant)
		}

		return p, mapError(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}

	return p.tenants, p.total, nil
}
