package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents an account role
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether the role is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account represents a human operator account
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Email is stored lowercase; lookups compare the normalized value.
	Email    string `json:"email" db:"email"`
	Username string `json:"username" db:"username"`

	// PasswordHash is empty for federated-only accounts.
	PasswordHash string `json:"-" db:"password_hash"`

	Role Role `json:"role" db:"role"`

	Verified           bool       `json:"verified" db:"verified"`
	VerificationCode   *string    `json:"-" db:"verification_code"`
	VerificationSentAt *time.Time `json:"-" db:"verification_sent_at"`

	// TenantID is set for USER accounts, nil for ADMIN accounts.
	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	IsDeleted   bool       `json:"isDeleted" db:"is_deleted"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}
