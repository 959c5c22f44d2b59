package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is the identity this service issues tokens for. Credential and
// role storage is owned by the account repository; the token services treat
// an account as an opaque identity.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	PasswordSalt string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LockedUntil  *time.Time `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsLocked reports whether a lockout window is still active.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// DefaultRoles are assigned at registration when the caller requests none.
var DefaultRoles = []string{"Manager", "Cashier"}
