package api

import (
	"net/http"

	"github.com/cashtrackr/api/pkg/contextkeys"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// ExpenseHandler serves expense CRUD under a resolved budget.
type ExpenseHandler struct {
	expenses storage.ExpenseStore
	logger   *observability.Logger
}

// NewExpenseHandler creates the handler.
func NewExpenseHandler(expenses storage.ExpenseStore, logger *observability.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, logger: logger}
}

func (h *ExpenseHandler) create(w http.ResponseWriter, r *http.Request) {
	budget, ok := contextkeys.Budget(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req expenseRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	errs, amount := req.validate()
	if len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	expense := &storage.Expense{Name: req.Name, Amount: amount, BudgetID: budget.ID}
	if err := h.expenses.Create(r.Context(), expense); err != nil {
		h.logger.WithError(err).Error("failed to create expense")
		httputil.WriteInternalError(w)
		return
	}
	// message kept verbatim from the API clients already depend on
	httputil.WriteCreated(w, "Gasto agregado conrrectamente")
}

func (h *ExpenseHandler) get(w http.ResponseWriter, r *http.Request) {
	expense, ok := contextkeys.Expense(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, expense)
}

func (h *ExpenseHandler) update(w http.ResponseWriter, r *http.Request) {
	expense, ok := contextkeys.Expense(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req expenseRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	errs, amount := req.validate()
	if len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	expense.Name = req.Name
	expense.Amount = amount
	if err := h.expenses.Update(r.Context(), expense); err != nil {
		h.logger.WithError(err).Error("failed to update expense")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Gasto actualizado correctamente")
}

func (h *ExpenseHandler) delete(w http.ResponseWriter, r *http.Request) {
	expense, ok := contextkeys.Expense(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	if err := h.expenses.Delete(r.Context(), expense.ID); err != nil {
		h.logger.WithError(err).Error("failed to delete expense")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Gasto eliminado correctamente")
}
