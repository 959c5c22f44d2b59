// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"go-identity-api/logger"
	"go-identity-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
// Mutating methods take a *sql.Tx so the rotation engine can commit a token
// state change and its audit entry atomically.
type ITokenRepository interface {
	Create(tx *sql.Tx, token *model.RefreshToken) error
	GetByTokenHash(tokenHash string) (*model.RefreshToken, error)
	GetByTokenHashForUpdate(tx *sql.Tx, tokenHash string) (*model.RefreshToken, error)
	MarkRotated(tx *sql.Tx, id uuid.UUID, replacedByHash string, revokedAt time.Time) error
	Revoke(tx *sql.Tx, id uuid.UUID, revokedAt time.Time) error
	RevokeAllByAccountID(tx *sql.Tx, accountID uuid.UUID, revokedAt time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

const tokenColumns = `id, account_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_hash`

// Create inserts a new refresh token record inside the given transaction.
func (r *TokenRepository) Create(tx *sql.Tx, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": token.AccountID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, account_id, token_hash, issued_at, expires_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(query, token.ID, token.AccountID, token.TokenHash, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its digest without locking.
func (r *TokenRepository) GetByTokenHash(tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	err := r.DB.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.AccountID, &token.TokenHash,
		&token.IssuedAt, &token.ExpiresAt, &token.RevokedAt, &token.ReplacedByHash)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get refresh token by hash query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return token, nil
}

// GetByTokenHashForUpdate retrieves a refresh token by digest and locks its
// row for the duration of the transaction. Two concurrent rotations of the
// same token serialize here: exactly one proceeds, the other observes the
// revoked predecessor afterwards.
func (r *TokenRepository) GetByTokenHashForUpdate(tx *sql.Tx, tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`
	err := tx.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.AccountID, &token.TokenHash,
		&token.IssuedAt, &token.ExpiresAt, &token.RevokedAt, &token.ReplacedByHash)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Log.Info("Refresh token not found for update")
		} else {
			logger.Log.WithError(err).Error("Failed to execute get refresh token for update query")
		}
		return nil, err
	}
	return token, nil
}

// MarkRotated links a predecessor token to its successor and revokes it in
// one statement, so there is no window where both appear valid.
func (r *TokenRepository) MarkRotated(tx *sql.Tx, id uuid.UUID, replacedByHash string, revokedAt time.Time) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to mark refresh token as rotated")

	query := `UPDATE refresh_tokens SET revoked_at = $1, replaced_by_hash = $2 WHERE id = $3 AND revoked_at IS NULL`
	_, err := tx.Exec(query, revokedAt, replacedByHash, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute mark rotated query")
		return err
	}
	return nil
}

// Revoke sets revoked_at on a live token. Already-revoked rows are left
// untouched, which keeps revocation monotonic.
func (r *TokenRepository) Revoke(tx *sql.Tx, id uuid.UUID, revokedAt time.Time) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to revoke refresh token")

	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	_, err := tx.Exec(query, revokedAt, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	return nil
}

// RevokeAllByAccountID revokes every non-revoked token belonging to an
// account. Used on reuse detection and for "log out everywhere".
func (r *TokenRepository) RevokeAllByAccountID(tx *sql.Tx, accountID uuid.UUID, revokedAt time.Time) (int64, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to revoke all refresh tokens for an account")

	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL`
	result, err := tx.Exec(query, revokedAt, accountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// DeleteExpiredBefore purges tokens that are both revoked and expired since
// before the cutoff. Storage hygiene only; correctness never depends on it.
func (r *TokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE revoked_at IS NOT NULL AND expires_at < $1`
	result, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute purge expired refresh tokens query")
		return 0, err
	}
	return result.RowsAffected()
}
