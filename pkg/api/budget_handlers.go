package api

import (
	"net/http"

	"github.com/cashtrackr/api/pkg/contextkeys"
	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// BudgetHandler serves budget CRUD. The resolver middleware has already
// validated the id, loaded the budget and checked ownership by the time any
// /{budgetId} handler runs.
type BudgetHandler struct {
	budgets storage.BudgetStore
	logger  *observability.Logger
}

// NewBudgetHandler creates the handler.
func NewBudgetHandler(budgets storage.BudgetStore, logger *observability.Logger) *BudgetHandler {
	return &BudgetHandler{budgets: budgets, logger: logger}
}

func (h *BudgetHandler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := contextkeys.User(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	budgets, err := h.budgets.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list budgets")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, budgets)
}

func (h *BudgetHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := contextkeys.User(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req budgetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	errs, amount := req.validate()
	if len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	budget := &storage.Budget{Name: req.Name, Amount: amount, UserID: user.ID}
	if err := h.budgets.Create(r.Context(), budget); err != nil {
		h.logger.WithError(err).Error("failed to create budget")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, "Presupuesto creado correctamente")
}

func (h *BudgetHandler) get(w http.ResponseWriter, r *http.Request) {
	budget, ok := contextkeys.Budget(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	full, err := h.budgets.GetWithExpenses(r.Context(), budget.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to load budget expenses")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, full)
}

func (h *BudgetHandler) update(w http.ResponseWriter, r *http.Request) {
	budget, ok := contextkeys.Budget(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	var req budgetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	errs, amount := req.validate()
	if len(errs) > 0 {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	budget.Name = req.Name
	budget.Amount = amount
	if err := h.budgets.Update(r.Context(), budget); err != nil {
		h.logger.WithError(err).Error("failed to update budget")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Presupuesto actualizado correctamente")
}

func (h *BudgetHandler) delete(w http.ResponseWriter, r *http.Request) {
	budget, ok := contextkeys.Budget(r.Context())
	if !ok {
		httputil.WriteInternalError(w)
		return
	}
	if err := h.budgets.Delete(r.Context(), budget.ID); err != nil {
		h.logger.WithError(err).Error("failed to delete budget")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Presupuesto eliminado correctamente")
}
