// file: repository/token_repository_test.go

package repository

import (
	"context"
	"database/sql"
	"go-identity-api/logger"
	"go-identity-api/model"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestMain runs setup before any tests in this package are executed.
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTokenRepo(t *testing.T) (*TokenRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTokenRepository(db), dbMock, db
}

func tokenRows(token *model.RefreshToken) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "token_hash", "issued_at", "expires_at", "revoked_at", "replaced_by_hash"}).
		AddRow(token.ID, token.AccountID, token.TokenHash, token.IssuedAt, token.ExpiresAt, token.RevokedAt, token.ReplacedByHash)
}

func TestTokenRepository_Create(t *testing.T) {
	repo, dbMock, db := newTokenRepo(t)

	now := time.Now().UTC()
	token := &model.RefreshToken{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		TokenHash: "digest",
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO refresh_tokens (id, account_id, token_hash, issued_at, expires_at) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(token.ID, token.AccountID, token.TokenHash, token.IssuedAt, token.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	err = repo.Create(tx, token)

	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_GetByTokenHash(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, dbMock, _ := newTokenRepo(t)

		now := time.Now().UTC()
		stored := &model.RefreshToken{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			TokenHash: "digest",
			IssuedAt:  now,
			ExpiresAt: now.Add(24 * time.Hour),
		}

		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, account_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_hash FROM refresh_tokens WHERE token_hash = $1`)).
			WithArgs("digest").
			WillReturnRows(tokenRows(stored))

		token, err := repo.GetByTokenHash("digest")

		assert.NoError(t, err)
		assert.Equal(t, stored.ID, token.ID)
		assert.Nil(t, token.RevokedAt)
		assert.Nil(t, token.ReplacedByHash)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, dbMock, _ := newTokenRepo(t)

		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, account_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_hash FROM refresh_tokens WHERE token_hash = $1`)).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByTokenHash("missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestTokenRepository_GetByTokenHashForUpdate(t *testing.T) {
	repo, dbMock, db := newTokenRepo(t)

	now := time.Now().UTC()
	revokedAt := now.Add(-time.Minute)
	replacedBy := "successor-digest"
	stored := &model.RefreshToken{
		ID:             uuid.New(),
		AccountID:      uuid.New(),
		TokenHash:      "digest",
		IssuedAt:       now.Add(-time.Hour),
		ExpiresAt:      now.Add(24 * time.Hour),
		RevokedAt:      &revokedAt,
		ReplacedByHash: &replacedBy,
	}

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, account_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_hash FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`)).
		WithArgs("digest").
		WillReturnRows(tokenRows(stored))
	dbMock.ExpectRollback()

	tx, err := db.Begin()
	assert.NoError(t, err)
	defer tx.Rollback()

	token, err := repo.GetByTokenHashForUpdate(tx, "digest")

	assert.NoError(t, err)
	assert.True(t, token.IsRevoked())
	assert.NotNil(t, token.ReplacedByHash)
	assert.Equal(t, replacedBy, *token.ReplacedByHash)
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_MarkRotated(t *testing.T) {
	repo, dbMock, db := newTokenRepo(t)

	id := uuid.New()
	revokedAt := time.Now().UTC()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $1, replaced_by_hash = $2 WHERE id = $3 AND revoked_at IS NULL`)).
		WithArgs(revokedAt, "successor-digest", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	err = repo.MarkRotated(tx, id, "successor-digest", revokedAt)

	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_Revoke(t *testing.T) {
	repo, dbMock, db := newTokenRepo(t)

	id := uuid.New()
	revokedAt := time.Now().UTC()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`)).
		WithArgs(revokedAt, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	err = repo.Revoke(tx, id, revokedAt)

	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_RevokeAllByAccountID(t *testing.T) {
	repo, dbMock, db := newTokenRepo(t)

	accountID := uuid.New()
	revokedAt := time.Now().UTC()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL`)).
		WithArgs(revokedAt, accountID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	dbMock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	affected, err := repo.RevokeAllByAccountID(tx, accountID, revokedAt)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_DeleteExpiredBefore(t *testing.T) {
	repo, dbMock, _ := newTokenRepo(t)

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	dbMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE revoked_at IS NOT NULL AND expires_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	deleted, err := repo.DeleteExpiredBefore(context.Background(), cutoff)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
