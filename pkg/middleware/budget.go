package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cashtrackr/api/pkg/contextkeys"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// BudgetResolver loads the budget (and expense) named by path parameters,
// enforces ownership and attaches the entities to the request context so
// handlers never repeat the lookup.
type BudgetResolver struct {
	budgets  storage.BudgetStore
	expenses storage.ExpenseStore
	logger   *observability.Logger
}

// NewBudgetResolver creates a BudgetResolver.
func NewBudgetResolver(budgets storage.BudgetStore, expenses storage.ExpenseStore, logger *observability.Logger) *BudgetResolver {
	return &BudgetResolver{budgets: budgets, expenses: expenses, logger: logger}
}

// parseID validates a path parameter as a positive integer id.
func parseID(r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Resolve validates {budgetId}, loads the budget and checks it belongs to
// the authenticated user before letting the request through.
func (b *BudgetResolver) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "budgetId")
		if !ok {
			httputil.WriteFieldErrors(w, []httputil.FieldError{
				{Msg: "ID no válido", Param: "budgetId"},
			})
			return
		}

		budget, err := b.budgets.GetByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "Presupuesto no encontrado")
			return
		}
		if err != nil {
			b.logger.WithError(err).Error("failed to load budget")
			httputil.WriteInternalError(w)
			return
		}

		user, ok := contextkeys.User(r.Context())
		if !ok || budget.UserID != user.ID {
			httputil.WriteUnauthorized(w, "Acción no válida")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithBudget(r.Context(), budget)))
	})
}

// ResolveExpense validates {expenseId} and loads the expense, requiring it
// to belong to the already-resolved budget. An expense reached through the
// wrong budget is indistinguishable from a missing one.
func (b *BudgetResolver) ResolveExpense(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r, "expenseId")
		if !ok {
			httputil.WriteFieldErrors(w, []httputil.FieldError{
				{Msg: "ID no válido", Param: "expenseId"},
			})
			return
		}

		budget, ok := contextkeys.Budget(r.Context())
		if !ok {
			httputil.WriteInternalError(w)
			return
		}

		expense, err := b.expenses.GetByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "Gasto no encontrado")
			return
		}
		if err != nil {
			b.logger.WithError(err).Error("failed to load expense")
			httputil.WriteInternalError(w)
			return
		}
		if expense.BudgetID != budget.ID {
			httputil.WriteNotFound(w, "Gasto no encontrado")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithExpense(r.Context(), expense)))
	})
}
