package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"tycoon-engine/internal/model"

	"github.com/go-sql-driver/mysql"
)

// MySQLAccountRepository implements AccountRepository using MySQL.
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQL account repository and ensures its table exists.
func NewMySQLAccountRepository(db *sql.DB) (*MySQLAccountRepository, error) {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(64) PRIMARY KEY,
		provider VARCHAR(32) NOT NULL,
		subject VARCHAR(191) NULL,
		display_name VARCHAR(64) NOT NULL,
		is_anonymous TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_provider_subject (provider, subject)
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create accounts table: %w", err)
	}
	return &MySQLAccountRepository{db: db}, nil
}

// CreateAccount inserts a new account.
func (r *MySQLAccountRepository) CreateAccount(ctx context.Context, acc model.Account) error {
	log.Printf("[AccountRepository] Creating %s account %s", acc.Provider, acc.ID)

	query := `
		INSERT INTO accounts (id, provider, subject, display_name, is_anonymous, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Anonymous accounts have no subject; NULL keeps them out of the unique key.
	var subject sql.NullString
	if acc.Subject != "" {
		subject = sql.NullString{String: acc.Subject, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, acc.ID, acc.Provider, subject, acc.DisplayName, acc.IsAnonymous, acc.CreatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return fmt.Errorf("account already exists: %s", acc.ID)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount finds an account by id.
func (r *MySQLAccountRepository) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT id, provider, subject, display_name, is_anonymous, created_at FROM accounts WHERE id = ? LIMIT 1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// FindAccount finds the account linked to a provider subject.
func (r *MySQLAccountRepository) FindAccount(ctx context.Context, provider, subject string) (*model.Account, error) {
	query := `SELECT id, provider, subject, display_name, is_anonymous, created_at FROM accounts WHERE provider = ? AND subject = ? LIMIT 1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, provider, subject))
}

func (r *MySQLAccountRepository) scanAccount(row *sql.Row) (*model.Account, error) {
	var acc model.Account
	var subject sql.NullString
	err := row.Scan(&acc.ID, &acc.Provider, &subject, &acc.DisplayName, &acc.IsAnonymous, &acc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	acc.Subject = subject.String
	return &acc, nil
}

var _ AccountRepository = (*MySQLAccountRepository)(nil)
