// file: service/token_service.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-identity-api/config"
	"go-identity-api/logger"
	"go-identity-api/model"
	"go-identity-api/repository"
	"go-identity-api/security"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTokenRequired = errors.New("refresh token is required")
	ErrInvalidToken  = errors.New("invalid refresh token")
	ErrTokenReused   = errors.New("refresh token reuse detected")
	ErrTokenExpired  = errors.New("refresh token has expired")
)

// RevokeStatus tells the use-case layer what a revoke call actually did.
// All three outcomes are successes from the caller's perspective.
type RevokeStatus int

const (
	RevokeStatusNotFound RevokeStatus = iota
	RevokeStatusAlreadyRevoked
	RevokeStatusRevoked
)

// IRoleProvider resolves the role names of an account for token claims.
type IRoleProvider interface {
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// TokenService issues signed access tokens and drives the refresh token
// state machine: issue, rotate, revoke, detect reuse, bulk-revoke.
type TokenService struct {
	db          *sql.DB
	cfg         config.JWTConfig
	tokenRepo   repository.ITokenRepository
	accountRepo repository.IAccountRepository
	auditRepo   repository.IAuditRepository
	roles       IRoleProvider
	now         func() time.Time
}

// NewTokenService validates the signing configuration up front; a missing or
// weak key is a deployment defect and the caller must treat it as fatal.
func NewTokenService(
	db *sql.DB,
	cfg config.JWTConfig,
	tokenRepo repository.ITokenRepository,
	accountRepo repository.IAccountRepository,
	auditRepo repository.IAuditRepository,
	roles IRoleProvider,
) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenService{
		db:          db,
		cfg:         cfg,
		tokenRepo:   tokenRepo,
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		roles:       roles,
		now:         time.Now,
	}, nil
}

// GenerateAccessToken builds and signs a short-lived bearer token for the
// account. Access tokens are stateless: nothing is persisted and they cannot
// be revoked before expiry.
func (s *TokenService) GenerateAccessToken(account *model.Account, roles []string) (string, error) {
	now := s.now()

	claims := &model.AppClaims{
		Email:      account.Email,
		GivenName:  account.FirstName,
		FamilyName: account.LastName,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.AccessTokenLifetimeMinutes) * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		logger.Log.WithError(err).WithField("account_id", account.ID).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

// IssuePair creates a refresh token record inside the caller's transaction
// and returns the access token and the plaintext refresh secret. The
// plaintext is handed out exactly this once; only its digest is stored.
func (s *TokenService) IssuePair(tx *sql.Tx, account *model.Account, roles []string) (accessToken string, refreshSecret string, err error) {
	refreshSecret, _, err = s.issueRefreshToken(tx, account.ID)
	if err != nil {
		return "", "", err
	}

	accessToken, err = s.GenerateAccessToken(account, roles)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshSecret, nil
}

func (s *TokenService) issueRefreshToken(tx *sql.Tx, accountID uuid.UUID) (string, *model.RefreshToken, error) {
	secret, err := model.GenerateRefreshSecret()
	if err != nil {
		return "", nil, fmt.Errorf("could not generate refresh secret: %w", err)
	}
	digest, err := security.HashToken(secret)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	token := &model.RefreshToken{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: digest,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Duration(s.cfg.RefreshTokenLifetimeDays) * 24 * time.Hour),
	}
	if err := s.tokenRepo.Create(tx, token); err != nil {
		return "", nil, err
	}
	return secret, token, nil
}

// Rotate exchanges a live refresh token for a new access/refresh pair. The
// presented token's row is locked for the whole transaction, so of two
// concurrent rotations exactly one wins; the loser finds the predecessor
// already revoked and trips reuse detection.
//
// Presenting an already-revoked token is treated as a compromise signal:
// every active token of the account is revoked before the call fails.
func (s *TokenService) Rotate(ctx context.Context, refreshSecret string) (*model.AuthResponse, error) {
	digest, err := security.HashToken(refreshSecret)
	if err != nil {
		return nil, ErrTokenRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := s.tokenRepo.GetByTokenHashForUpdate(tx, digest)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if stored.IsRevoked() {
		return nil, s.handleReuse(tx, stored)
	}

	if stored.IsExpired(s.now()) {
		// The record is left as-is; expiry is a derived predicate, not a
		// state transition.
		return nil, ErrTokenExpired
	}

	account, err := s.accountRepo.GetByID(stored.AccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	roles, err := s.roles.RolesForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	newSecret, newToken, err := s.issueRefreshToken(tx, stored.AccountID)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.MarkRotated(tx, stored.ID, newToken.TokenHash, s.now()); err != nil {
		return nil, err
	}

	if err := s.writeAudit(tx, model.AuditTokenRefreshed, "RefreshToken", stored.ID, &stored.AccountID,
		"refresh token rotated"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit rotation: %w", err)
	}

	accessToken, err := s.GenerateAccessToken(account, roles)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{
		AccessToken:      accessToken,
		RefreshToken:     newSecret,
		ExpiresInMinutes: s.cfg.AccessTokenLifetimeMinutes,
		AccountID:        account.ID,
		Email:            account.Email,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
	}, nil
}

// handleReuse revokes the whole token family of the account and commits that
// side effect even though the rotation itself fails.
func (s *TokenService) handleReuse(tx *sql.Tx, stored *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": stored.AccountID,
		"token_id":   stored.ID,
	})
	log.Warn("Revoked refresh token presented again; revoking all tokens for the account")

	revoked, err := s.tokenRepo.RevokeAllByAccountID(tx, stored.AccountID, s.now())
	if err != nil {
		return err
	}

	if err := s.writeAudit(tx, model.AuditTokenRevoked, "RefreshToken", stored.ID, &stored.AccountID,
		fmt.Sprintf("token reuse detected; revoked %d active tokens", revoked)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit family revocation: %w", err)
	}
	return ErrTokenReused
}

// Revoke marks a single refresh token revoked. Unknown digests and tokens
// that are already revoked are idempotent no-ops.
func (s *TokenService) Revoke(ctx context.Context, refreshSecret string) (RevokeStatus, error) {
	digest, err := security.HashToken(refreshSecret)
	if err != nil {
		return RevokeStatusNotFound, ErrTokenRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RevokeStatusNotFound, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := s.tokenRepo.GetByTokenHashForUpdate(tx, digest)
	if err != nil {
		if err == sql.ErrNoRows {
			return RevokeStatusNotFound, nil
		}
		return RevokeStatusNotFound, err
	}

	if stored.IsRevoked() {
		return RevokeStatusAlreadyRevoked, nil
	}

	if err := s.tokenRepo.Revoke(tx, stored.ID, s.now()); err != nil {
		return RevokeStatusNotFound, err
	}

	if err := s.writeAudit(tx, model.AuditTokenRevoked, "RefreshToken", stored.ID, &stored.AccountID,
		"refresh token revoked"); err != nil {
		return RevokeStatusNotFound, err
	}

	if err := tx.Commit(); err != nil {
		return RevokeStatusNotFound, fmt.Errorf("could not commit revocation: %w", err)
	}
	return RevokeStatusRevoked, nil
}

// RevokeAll revokes every active refresh token of an account ("log out
// everywhere").
func (s *TokenService) RevokeAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	revoked, err := s.tokenRepo.RevokeAllByAccountID(tx, accountID, s.now())
	if err != nil {
		return 0, err
	}

	if revoked > 0 {
		if err := s.writeAudit(tx, model.AuditTokenRevoked, "Account", accountID, &accountID,
			fmt.Sprintf("revoked %d active tokens", revoked)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpired deletes records that are both revoked and expired since
// before the retention window. Hygiene only; expiry stays a read-time check.
func (s *TokenService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	return s.tokenRepo.DeleteExpiredBefore(ctx, cutoff)
}

func (s *TokenService) writeAudit(tx *sql.Tx, action, subjectType string, subjectID uuid.UUID, actorID *uuid.UUID, detail string) error {
	return s.auditRepo.Create(tx, &model.AuditEntry{
		ID:             uuid.New(),
		Action:         action,
		SubjectType:    subjectType,
		SubjectID:      subjectID,
		ActorAccountID: actorID,
		Detail:         detail,
	})
}
