package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cashtrackr/api/pkg/storage"
)

// BudgetStore implements storage.BudgetStore over PostgreSQL.
type BudgetStore struct {
	db *sql.DB
}

// NewBudgetStore creates a budget store on the given connection.
func NewBudgetStore(db *sql.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

const budgetColumns = `id, name, amount, user_id, created_at, updated_at`

// Create inserts the budget and fills in the generated id and timestamps.
func (s *BudgetStore) Create(ctx context.Context, budget *storage.Budget) error {
	query := `
		INSERT INTO budgets (name, amount, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		budget.Name,
		budget.Amount,
		budget.UserID,
	).Scan(&budget.ID, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create budget: %w", err)
	}
	if budget.Expenses == nil {
		budget.Expenses = []*storage.Expense{}
	}
	return nil
}

// ListByUser returns the user's budgets, newest first. Expenses are not
// loaded; each budget carries an empty slice.
func (s *BudgetStore) ListByUser(ctx context.Context, userID int64) ([]*storage.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []*storage.Budget{}
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

// GetByID loads a budget without its expenses.
func (s *BudgetStore) GetByID(ctx context.Context, id int64) (*storage.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`
	budget, err := scanBudget(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// GetWithExpenses loads a budget and all of its expenses.
func (s *BudgetStore) GetWithExpenses(ctx context.Context, id int64) (*storage.Budget, error) {
	budget, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE budget_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expense storage.Expense
		if err := rows.Scan(
			&expense.ID,
			&expense.Name,
			&expense.Amount,
			&expense.BudgetID,
			&expense.CreatedAt,
			&expense.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		budget.Expenses = append(budget.Expenses, &expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return budget, nil
}

// Update persists name and amount changes.
func (s *BudgetStore) Update(ctx context.Context, budget *storage.Budget) error {
	query := `UPDATE budgets SET name = $2, amount = $3, updated_at = NOW() WHERE id = $1`
	return execAffected(ctx, s.db, "budget", query, budget.ID, budget.Name, budget.Amount)
}

// Delete removes the budget; the schema cascades to its expenses.
func (s *BudgetStore) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM budgets WHERE id = $1`
	return execAffected(ctx, s.db, "budget", query, id)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(row rowScanner) (*storage.Budget, error) {
	budget := storage.Budget{Expenses: []*storage.Expense{}}
	err := row.Scan(
		&budget.ID,
		&budget.Name,
		&budget.Amount,
		&budget.UserID,
		&budget.CreatedAt,
		&budget.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}
	return &budget, nil
}

func execAffected(ctx context.Context, db *sql.DB, entity, query string, args ...interface{}) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
