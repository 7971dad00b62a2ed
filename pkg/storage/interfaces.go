package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User is an account holder. Password always contains the bcrypt hash, never
// plaintext. Token holds the pending 6-digit confirmation or password-reset
// code and is nil whenever no confirmation/reset is in flight.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Confirmed bool      `json:"confirmed"`
	Token     *string   `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Budget belongs to exactly one user. Expenses is populated only by
// GetWithExpenses; list lookups return it empty.
type Budget struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Amount    float64    `json:"amount"`
	UserID    int64      `json:"userId"`
	Expenses  []*Expense `json:"expenses"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Expense belongs to exactly one budget.
type Expense struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	BudgetID  int64     `json:"budgetId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserStore persists user accounts and their lifecycle state.
type UserStore interface {
	// Create inserts the user and fills in its generated ID.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByToken finds the user holding a pending confirmation/reset code.
	GetByToken(ctx context.Context, token string) (*User, error)
	// Confirm marks the account confirmed and clears its token.
	Confirm(ctx context.Context, id int64) error
	// UpdateToken replaces the pending code; nil clears it.
	UpdateToken(ctx context.Context, id int64, token *string) error
	// UpdatePassword stores a new password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// ResetPassword stores a new password hash and clears the token.
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
}

// BudgetStore persists budgets.
type BudgetStore interface {
	Create(ctx context.Context, budget *Budget) error
	ListByUser(ctx context.Context, userID int64) ([]*Budget, error)
	GetByID(ctx context.Context, id int64) (*Budget, error)
	// GetWithExpenses loads the budget and all of its expenses.
	GetWithExpenses(ctx context.Context, id int64) (*Budget, error)
	Update(ctx context.Context, budget *Budget) error
	// Delete removes the budget; its expenses go with it (schema cascade).
	Delete(ctx context.Context, id int64) error
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id int64) error
}
