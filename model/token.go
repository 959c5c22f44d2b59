// file: model/token.go

package model

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// RefreshToken holds one outstanding (or historical) refresh credential.
// Only the SHA-256 digest of the bearer secret is ever stored; the plaintext
// is handed to the caller exactly once at issuance.
type RefreshToken struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	TokenHash      string     `json:"-"` // The digest is not exposed in JSON responses.
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	ReplacedByHash *string    `json:"-"`
}

// IsExpired is a read-time predicate; expiry is never written to the row.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked. Revocation is monotonic:
// once set it is never cleared.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked()
}

// GenerateRefreshSecret returns a fresh 256-bit random bearer secret.
func GenerateRefreshSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
