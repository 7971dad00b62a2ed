package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cashtrackr/api/pkg/storage"
)

// UserStore implements storage.UserStore over PostgreSQL.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store on the given connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, email, password, confirmed, token, created_at, updated_at`

func scanUser(row *sql.Row) (*storage.User, error) {
	var user storage.User
	var token sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Confirmed,
		&token,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if token.Valid {
		user.Token = &token.String
	}
	return &user, nil
}

// Create inserts the user and fills in the generated id and timestamps.
func (s *UserStore) Create(ctx context.Context, user *storage.User) error {
	query := `
		INSERT INTO users (name, email, password, confirmed, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.Password,
		user.Confirmed,
		user.Token,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID loads a user by primary key.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*storage.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail loads a user by email. Emails are compared exactly as stored.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*storage.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetByToken loads the user holding a pending confirmation or reset code.
func (s *UserStore) GetByToken(ctx context.Context, token string) (*storage.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE token = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, token))
}

// Confirm flips confirmed and clears the token in one statement, making
// confirmation exactly-once per issued code.
func (s *UserStore) Confirm(ctx context.Context, id int64) error {
	query := `UPDATE users SET confirmed = TRUE, token = NULL, updated_at = NOW() WHERE id = $1`
	return s.exec(ctx, query, id)
}

// UpdateToken replaces the pending code; a nil token clears the slot.
func (s *UserStore) UpdateToken(ctx context.Context, id int64, token *string) error {
	query := `UPDATE users SET token = $2, updated_at = NOW() WHERE id = $1`
	return s.exec(ctx, query, id, token)
}

// UpdatePassword stores a new password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`
	return s.exec(ctx, query, id, passwordHash)
}

// ResetPassword stores a new password hash and consumes the reset code.
func (s *UserStore) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password = $2, token = NULL, updated_at = NOW() WHERE id = $1`
	return s.exec(ctx, query, id, passwordHash)
}

func (s *UserStore) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
