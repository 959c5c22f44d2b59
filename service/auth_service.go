package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-identity-api/logger"
	"go-identity-api/model"
	"go-identity-api/repository"
	"go-identity-api/security"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountLocked      = errors.New("account is locked")
	ErrDuplicateAccount   = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("account not found")
)

// AuthService orchestrates the register, login, refresh, and revoke use
// cases against the account store and the token service.
type AuthService struct {
	db           *sql.DB
	accountRepo  repository.IAccountRepository
	auditRepo    repository.IAuditRepository
	tokenService *TokenService
	roles        IRoleProvider
	now          func() time.Time
}

func NewAuthService(db *sql.DB, accountRepo repository.IAccountRepository, auditRepo repository.IAuditRepository, tokenService *TokenService, roles IRoleProvider) *AuthService {
	return &AuthService{
		db:           db,
		accountRepo:  accountRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		roles:        roles,
		now:          time.Now,
	}
}

// Register creates an account, assigns its initial roles, and issues the
// first token pair. Unknown role names are skipped with a warning rather
// than failing the registration.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	log := logger.Log.WithField("email", email)

	if err := security.ValidatePasswordPolicy(req.Password); err != nil {
		log.WithError(err).Warn("Registration failed: password policy violation")
		return nil, err
	}

	if _, err := s.accountRepo.GetByEmail(email); err == nil {
		log.Warn("Registration failed: email already registered")
		return nil, ErrDuplicateAccount
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	hash, salt, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		PasswordSalt: salt,
		IsActive:     true,
	}
	if err := s.accountRepo.CreateAccount(account); err != nil {
		return nil, err
	}

	roles, err := s.assignInitialRoles(account, req.Roles)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	accessToken, refreshSecret, err := s.tokenService.IssuePair(tx, account, roles)
	if err != nil {
		return nil, err
	}

	if err := s.writeAudit(tx, model.AuditRegistered, "Account", account.ID, &account.ID,
		fmt.Sprintf("account registered with email %s", email)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit registration: %w", err)
	}

	log.Info("Account registered successfully")
	return s.authResponse(account, accessToken, refreshSecret), nil
}

func (s *AuthService) assignInitialRoles(account *model.Account, requested []string) ([]string, error) {
	toAssign := requested
	if len(toAssign) == 0 {
		toAssign = model.DefaultRoles
	}

	var roles []string
	for _, role := range toAssign {
		exists, err := s.accountRepo.RoleExists(role)
		if err != nil {
			return nil, err
		}
		if !exists {
			logger.Log.WithFields(logrus.Fields{
				"account_id": account.ID,
				"role":       role,
			}).Warn("Skipping unknown role during registration")
			continue
		}
		roles = append(roles, role)
	}

	if len(roles) > 0 {
		if err := s.accountRepo.AddRoles(account.ID, roles); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// Login authenticates an account by email and password and issues a token
// pair. A missing account and a wrong password produce the same failure, so
// responses cannot be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	log := logger.Log.WithField("email", email)

	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Login failed: account not found")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsActive {
		log.Warn("Login failed: account is inactive")
		return nil, ErrAccountInactive
	}

	if !security.VerifyPassword(req.Password, account.PasswordHash, account.PasswordSalt) {
		log.Warn("Login failed: password mismatch")
		return nil, ErrInvalidCredentials
	}

	if account.IsLocked(s.now()) {
		log.Warn("Login failed: account is locked")
		return nil, ErrAccountLocked
	}

	roles, err := s.roles.RolesForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	accessToken, refreshSecret, err := s.tokenService.IssuePair(tx, account, roles)
	if err != nil {
		return nil, err
	}

	if err := s.writeAudit(tx, model.AuditLoggedIn, "Account", account.ID, &account.ID,
		fmt.Sprintf("account logged in with email %s", email)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit login: %w", err)
	}

	if err := s.accountRepo.SetLastLogin(account.ID, s.now()); err != nil {
		// Last-login is informational; the login itself already succeeded.
		log.WithError(err).Warn("Failed to update last login timestamp")
	}

	log.Info("Account logged in successfully")
	return s.authResponse(account, accessToken, refreshSecret), nil
}

// Refresh rotates a refresh token through the rotation engine. The audit
// entry is written inside the engine's transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshSecret string) (*model.AuthResponse, error) {
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, ErrTokenRequired
	}
	return s.tokenService.Rotate(ctx, refreshSecret)
}

// Revoke revokes a refresh token. Unknown and already-revoked tokens are
// successes; the status lets the transport pick an accurate message.
func (s *AuthService) Revoke(ctx context.Context, refreshSecret string) (RevokeStatus, error) {
	if strings.TrimSpace(refreshSecret) == "" {
		return RevokeStatusNotFound, ErrTokenRequired
	}
	return s.tokenService.Revoke(ctx, refreshSecret)
}

func (s *AuthService) authResponse(account *model.Account, accessToken, refreshSecret string) *model.AuthResponse {
	return &model.AuthResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshSecret,
		ExpiresInMinutes: s.tokenService.cfg.AccessTokenLifetimeMinutes,
		AccountID:        account.ID,
		Email:            account.Email,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
	}
}

func (s *AuthService) writeAudit(tx *sql.Tx, action, subjectType string, subjectID uuid.UUID, actorID *uuid.UUID, detail string) error {
	return s.auditRepo.Create(tx, &model.AuditEntry{
		ID:             uuid.New(),
		Action:         action,
		SubjectType:    subjectType,
		SubjectID:      subjectID,
		ActorAccountID: actorID,
		Detail:         detail,
	})
}
