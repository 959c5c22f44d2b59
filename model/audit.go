package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the auth use cases.
const (
	AuditRegistered     = "registered"
	AuditLoggedIn       = "logged-in"
	AuditTokenRefreshed = "token-refreshed"
	AuditTokenRevoked   = "token-revoked"
	AuditRolesAssigned  = "roles-assigned"
)

// AuditEntry is an immutable record of a security-relevant state transition.
// Entries are only ever inserted, never updated or deleted.
type AuditEntry struct {
	ID             uuid.UUID  `json:"id"`
	Action         string     `json:"action"`
	SubjectType    string     `json:"subject_type"`
	SubjectID      uuid.UUID  `json:"subject_id"`
	ActorAccountID *uuid.UUID `json:"actor_account_id,omitempty"`
	Detail         string     `json:"detail"`
	CreatedAt      time.Time  `json:"created_at"`
}
