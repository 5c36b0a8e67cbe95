package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

const accountColumns = `id, created_at, updated_at, email, username, password_hash,
       role, verified, verification_code, verification_sent_at,
       tenant_id, is_deleted, last_login_at`

// CreateAccount creates a new account
func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
        INSERT INTO accounts (
            id, created_at, updated_at, email, username, password_hash,
            role, verified, verification_code, verification_sent_at,
            tenant_id, is_deleted, last_login_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        )`

	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.CreatedAt, account.UpdatedAt, account.Email,
		account.Username, account.PasswordHash, account.Role, account.Verified,
		account.VerificationCode, account.VerificationSentAt,
		account.TenantID, account.IsDeleted, account.LastLoginAt,
	)

	return mapError(err)
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID, &account.CreatedAt, &account.UpdatedAt, &account.Email,
		&account.Username, &account.PasswordHash, &account.Role, &account.Verified,
		&account.VerificationCode, &account.VerificationSentAt,
		&account.TenantID, &account.IsDeleted, &account.LastLoginAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return account, nil
}

// GetAccount gets an account by ID
func (s *PostgresStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return retryRead(ctx, func() (*models.Account, error) {
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
		return scanAccount(s.db.QueryRowContext(ctx, query, id))
	})
}

// GetAccountByEmail gets an account by its normalized email
func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return retryRead(ctx, func() (*models.Account, error) {
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
		return scanAccount(s.db.QueryRowContext(ctx, query, email))
	})
}

// UpdateAccount updates an account's mutable fields
func (s *PostgresStore) UpdateAccount(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now()

	query := `
        UPDATE accounts
        SET updated_at = $2, email = $3, username = $4, role = $5,
            tenant_id = $6, is_deleted = $7
        WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		account.ID, account.UpdatedAt, account.Email, account.Username,
		account.Role, account.TenantID, account.IsDeleted,
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

// SoftDeleteAccount marks an account as deleted; rows are never removed
func (s *PostgresStore) SoftDeleteAccount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET is_deleted = true, updated_at = $2 WHERE id = $1 AND NOT is_deleted`

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

// ListAccounts lists accounts that are not soft-deleted
func (s *PostgresStore) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, int64, error) {
	type page struct {
		accounts []*models.Account
		total    int64
	}

	p, err := retryRead(ctx, func() (page, error) {
		var p page

		countQuery := `SELECT COUNT(*) FROM accounts WHERE NOT is_deleted`
		if err := s.db.QueryRowContext(ctx, countQuery).Scan(&p.total); err != nil {
			return p, mapError(err)
		}

		query := `SELECT ` + accountColumns + `
            FROM accounts
            WHERE NOT is_deleted
            ORDER BY created_at DESC
            LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return p, mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			account, err := scanAccount(rows)
			if err != nil {
				return p, err
			}
			p.accounts = append(p.accounts, account)
		}

		return p, mapError(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}

	return p.accounts, p.total, nil
}

// SetVerificationCode stores a fresh code, replacing any outstanding one
func (s *PostgresStore) SetVerificationCode(ctx context.Context, accountID uuid.UUID, code string, sentAt time.Time) error {
	query := `
        UPDATE accounts
        SET verification_code = $2, verification_sent_at = $3, updated_at = $3
        WHERE id = $1 AND NOT verified AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query, accountID, code, sentAt)
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

// RedeemVerificationCode atomically flips verified and clears the code.
// The WHERE clause is the linearization point: a stale or already
// consumed code matches no row.
func (s *PostgresStore) RedeemVerificationCode(ctx context.Context, email, code string) error {
	query := `
        UPDATE accounts
        SET verified = true, verification_code = NULL, updated_at = $3
        WHERE email = $1 AND verification_code = $2 AND NOT verified AND NOT is_deleted`

	result, err := s.db.ExecContext(ctx, query, email, code, time.Now())
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

// TouchLastLogin records a successful login time
func (s *PostgresStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE accounts SET last_login_at = $2 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id, at)
	return mapError(err)
}
