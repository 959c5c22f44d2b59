package repository

import (
	"database/sql"
	"go-identity-api/logger"
	"go-identity-api/model"

	"github.com/sirupsen/logrus"
)

// IAuditRepository defines the contract for audit trail writes. Entries are
// inserted inside the same transaction as the mutation they describe, so a
// reader never observes one without the other.
type IAuditRepository interface {
	Create(tx *sql.Tx, entry *model.AuditEntry) error
}

// AuditRepository implements IAuditRepository.
type AuditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

// Create inserts an audit entry inside the given transaction.
func (r *AuditRepository) Create(tx *sql.Tx, entry *model.AuditEntry) error {
	log := logger.Log.WithFields(logrus.Fields{
		"action":     entry.Action,
		"subject_id": entry.SubjectID,
	})
	log.Info("Executing query to create an audit entry")

	query := `INSERT INTO audit_log (id, action, subject_type, subject_id, actor_account_id, detail) VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := tx.QueryRow(query,
		entry.ID, entry.Action, entry.SubjectType, entry.SubjectID,
		entry.ActorAccountID, entry.Detail,
	).Scan(&entry.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create audit entry query")
		return err
	}
	return nil
}
