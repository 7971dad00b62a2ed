// Package postgres implements the storage interfaces over PostgreSQL using
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cashtrackr/api/pkg/config"
)

// Store bundles the per-entity stores sharing one connection pool.
type Store struct {
	db       *sql.DB
	Users    *UserStore
	Budgets  *BudgetStore
	Expenses *ExpenseStore
}

// Open connects to PostgreSQL, configures the pool and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewStore(db), nil
}

// NewStore wraps an existing connection (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserStore(db),
		Budgets:  NewBudgetStore(db),
		Expenses: NewExpenseStore(db),
	}
}

// Ping checks database health.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// schema is applied at startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		confirmed  BOOLEAN NOT NULL DEFAULT FALSE,
		token      VARCHAR(6),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		amount     NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		amount     NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		budget_id  BIGINT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_token ON users(token)`,
	`CREATE INDEX IF NOT EXISTS idx_budgets_user_id ON budgets(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_budget_id ON expenses(budget_id)`,
}

// InitSchema creates the tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
