// Package contextkeys defines the typed request-context keys used to pass
// resolved entities from middleware to handlers. Using a dedicated package
// avoids import cycles between middleware and handler packages.
package contextkeys

import (
	"context"

	"github.com/cashtrackr/api/pkg/storage"
)

// Key is the type for all context keys defined by this package.
type Key string

const (
	// UserKey carries the authenticated *storage.User.
	UserKey Key = "user"
	// BudgetKey carries the resolved *storage.Budget for nested routes.
	BudgetKey Key = "budget"
	// ExpenseKey carries the resolved *storage.Expense.
	ExpenseKey Key = "expense"
)

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *storage.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// User extracts the authenticated user, if any.
func User(ctx context.Context) (*storage.User, bool) {
	user, ok := ctx.Value(UserKey).(*storage.User)
	return user, ok
}

// WithBudget attaches the resolved budget to the context.
func WithBudget(ctx context.Context, budget *storage.Budget) context.Context {
	return context.WithValue(ctx, BudgetKey, budget)
}

// Budget extracts the resolved budget, if any.
func Budget(ctx context.Context) (*storage.Budget, bool) {
	budget, ok := ctx.Value(BudgetKey).(*storage.Budget)
	return budget, ok
}

// WithExpense attaches the resolved expense to the context.
func WithExpense(ctx context.Context, expense *storage.Expense) context.Context {
	return context.WithValue(ctx, ExpenseKey, expense)
}

// Expense extracts the resolved expense, if any.
func Expense(ctx context.Context) (*storage.Expense, bool) {
	expense, ok := ctx.Value(ExpenseKey).(*storage.Expense)
	return expense, ok
}
