// file: service/role_service.go

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"go-identity-api/logger"
	"go-identity-api/model"
	"go-identity-api/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrRoleNotFound is wrapped with the full list of offending role names.
var ErrRoleNotFound = errors.New("unknown roles")

const roleCacheTTL = 10 * time.Minute

// RoleService manages role assignment and serves role lookups through a
// cache-aside redis layer. A nil redis client disables caching.
type RoleService struct {
	db          *sql.DB
	accountRepo repository.IAccountRepository
	auditRepo   repository.IAuditRepository
	redisClient *redis.Client
}

func NewRoleService(db *sql.DB, accountRepo repository.IAccountRepository, auditRepo repository.IAuditRepository, redisClient *redis.Client) *RoleService {
	return &RoleService{
		db:          db,
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		redisClient: redisClient,
	}
}

// RolesForAccount returns an account's role names, utilizing a cache-aside
// strategy so token issuance does not hit the role store on every request.
func (s *RoleService) RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	cacheKey := roleCacheKey(accountID)

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var roles []string
			if err := json.Unmarshal([]byte(cached), &roles); err == nil {
				return roles, nil
			}
		}
	}

	roles, err := s.accountRepo.GetRoles(accountID)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(roles); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, roleCacheTTL)
		}
	}
	return roles, nil
}

// AssignRoles replaces the account's role set with the requested one. Every
// requested name is checked first and all invalid names are reported in a
// single failure. Roles are added before dropped ones are removed; if the
// removal fails, the additions are rolled back.
func (s *RoleService) AssignRoles(ctx context.Context, accountID uuid.UUID, requested []string, actorID *uuid.UUID) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"roles":      requested,
	})

	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Assign roles failed: account not found")
			return ErrAccountNotFound
		}
		return err
	}

	var invalid []string
	for _, role := range requested {
		exists, err := s.accountRepo.RoleExists(role)
		if err != nil {
			return err
		}
		if !exists {
			invalid = append(invalid, role)
		}
	}
	if len(invalid) > 0 {
		log.WithField("invalid_roles", invalid).Warn("Assign roles failed: unknown role names")
		return fmt.Errorf("%w: %s", ErrRoleNotFound, strings.Join(invalid, ", "))
	}

	current, err := s.accountRepo.GetRoles(accountID)
	if err != nil {
		return err
	}

	toAdd := difference(requested, current)
	toRemove := difference(current, requested)

	if len(toAdd) > 0 {
		if err := s.accountRepo.AddRoles(accountID, toAdd); err != nil {
			return err
		}
	}

	if len(toRemove) > 0 {
		if err := s.accountRepo.RemoveRoles(accountID, toRemove); err != nil {
			// Roll back the additions so a partial failure does not leave
			// the account with a mixed role set.
			if len(toAdd) > 0 {
				if rbErr := s.accountRepo.RemoveRoles(accountID, toAdd); rbErr != nil {
					log.WithError(rbErr).Error("Failed to roll back added roles")
				}
			}
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.auditRepo.Create(tx, &model.AuditEntry{
		ID:             uuid.New(),
		Action:         model.AuditRolesAssigned,
		SubjectType:    "Account",
		SubjectID:      accountID,
		ActorAccountID: actorID,
		Detail:         fmt.Sprintf("roles assigned: %s", strings.Join(requested, ", ")),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit role assignment audit: %w", err)
	}

	if s.redisClient != nil {
		s.redisClient.Del(ctx, roleCacheKey(accountID))
	}

	log.Info("Roles assigned successfully")
	return nil
}

func roleCacheKey(accountID uuid.UUID) string {
	return fmt.Sprintf("roles:%s", accountID)
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
