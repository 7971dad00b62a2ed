package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cashtrackr/api/pkg/storage"
)

// ExpenseStore implements storage.ExpenseStore over PostgreSQL.
type ExpenseStore struct {
	db *sql.DB
}

// NewExpenseStore creates an expense store on the given connection.
func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

const expenseColumns = `id, name, amount, budget_id, created_at, updated_at`

// Create inserts the expense and fills in the generated id and timestamps.
func (s *ExpenseStore) Create(ctx context.Context, expense *storage.Expense) error {
	query := `
		INSERT INTO expenses (name, amount, budget_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		expense.Name,
		expense.Amount,
		expense.BudgetID,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID loads an expense by primary key.
func (s *ExpenseStore) GetByID(ctx context.Context, id int64) (*storage.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	var expense storage.Expense
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&expense.ID,
		&expense.Name,
		&expense.Amount,
		&expense.BudgetID,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	return &expense, nil
}

// Update persists name and amount changes.
func (s *ExpenseStore) Update(ctx context.Context, expense *storage.Expense) error {
	query := `UPDATE expenses SET name = $2, amount = $3, updated_at = NOW() WHERE id = $1`
	return execAffected(ctx, s.db, "expense", query, expense.ID, expense.Name, expense.Amount)
}

// Delete removes the expense.
func (s *ExpenseStore) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM expenses WHERE id = $1`
	return execAffected(ctx, s.db, "expense", query, id)
}
