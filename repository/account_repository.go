package repository

import (
	"database/sql"
	"go-identity-api/logger"
	"go-identity-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// IAccountRepository is the narrow account/role store capability the auth
// services depend on. Services never touch a concrete driver type, so tests
// can substitute mocks.
type IAccountRepository interface {
	CreateAccount(account *model.Account) error
	GetByEmail(email string) (*model.Account, error)
	GetByID(id uuid.UUID) (*model.Account, error)
	SetLastLogin(id uuid.UUID, at time.Time) error
	GetRoles(accountID uuid.UUID) ([]string, error)
	AddRoles(accountID uuid.UUID, roles []string) error
	RemoveRoles(accountID uuid.UUID, roles []string) error
	RoleExists(name string) (bool, error)
}

// AccountRepository implements IAccountRepository on Postgres.
type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, email, first_name, last_name, password_hash, password_salt, is_active, locked_until, last_login_at, created_at`

// CreateAccount inserts a new account row.
func (r *AccountRepository) CreateAccount(account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      account.Email,
	})
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (id, email, first_name, last_name, password_hash, password_salt, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	err := r.DB.QueryRow(query,
		account.ID, account.Email, account.FirstName, account.LastName,
		account.PasswordHash, account.PasswordSalt, account.IsActive,
	).Scan(&account.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

func (r *AccountRepository) GetByEmail(email string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	err := r.DB.QueryRow(query, email).Scan(
		&account.ID, &account.Email, &account.FirstName, &account.LastName,
		&account.PasswordHash, &account.PasswordSalt, &account.IsActive,
		&account.LockedUntil, &account.LastLoginAt, &account.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get account by email query")
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) GetByID(id uuid.UUID) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&account.ID, &account.Email, &account.FirstName, &account.LastName,
		&account.PasswordHash, &account.PasswordSalt, &account.IsActive,
		&account.LockedUntil, &account.LastLoginAt, &account.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get account by id query")
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) SetLastLogin(id uuid.UUID, at time.Time) error {
	query := `UPDATE accounts SET last_login_at = $1 WHERE id = $2`
	_, err := r.DB.Exec(query, at, id)
	if err != nil {
		logger.Log.WithError(err).WithField("account_id", id).Error("Failed to execute set last login query")
		return err
	}
	return nil
}

// GetRoles returns the role names currently assigned to an account.
func (r *AccountRepository) GetRoles(accountID uuid.UUID) ([]string, error) {
	query := `SELECT role_name FROM account_roles WHERE account_id = $1 ORDER BY role_name`
	rows, err := r.DB.Query(query, accountID)
	if err != nil {
		logger.Log.WithError(err).WithField("account_id", accountID).Error("Failed to execute get roles query")
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AddRoles assigns role names to an account. Re-adding an existing
// assignment is a no-op.
func (r *AccountRepository) AddRoles(accountID uuid.UUID, roles []string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"roles":      roles,
	})
	log.Info("Executing query to add account roles")

	query := `INSERT INTO account_roles (account_id, role_name) SELECT $1, unnest($2::text[]) ON CONFLICT DO NOTHING`
	_, err := r.DB.Exec(query, accountID, pq.Array(roles))
	if err != nil {
		log.WithError(err).Error("Failed to execute add roles query")
		return err
	}
	return nil
}

// RemoveRoles removes role names from an account.
func (r *AccountRepository) RemoveRoles(accountID uuid.UUID, roles []string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"roles":      roles,
	})
	log.Info("Executing query to remove account roles")

	query := `DELETE FROM account_roles WHERE account_id = $1 AND role_name = ANY($2)`
	_, err := r.DB.Exec(query, accountID, pq.Array(roles))
	if err != nil {
		log.WithError(err).Error("Failed to execute remove roles query")
		return err
	}
	return nil
}

func (r *AccountRepository) RoleExists(name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`
	if err := r.DB.QueryRow(query, name).Scan(&exists); err != nil {
		logger.Log.WithError(err).WithField("role", name).Error("Failed to execute role exists query")
		return false, err
	}
	return exists, nil
}
