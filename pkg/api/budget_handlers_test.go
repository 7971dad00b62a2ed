package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashtrackr/api/pkg/storage"
)

func TestBudgetsRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/budgets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No autorizado"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/budgets", "not_a_jwt", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Token no válido"}`, rec.Body.String())
}

func TestCreateBudgetValidation(t *testing.T) {
	ts := newTestServer(t)
	_, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")

	rec := ts.do(t, http.MethodPost, "/api/budgets", bearer, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, fieldErrorCount(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/budgets", bearer, map[string]interface{}{
		"name":   "Vacaciones",
		"amount": "not_a_number",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, fieldErrorCount(t, rec))
	assert.Contains(t, rec.Body.String(), "Cantidad no válida")

	rec = ts.do(t, http.MethodPost, "/api/budgets", bearer, map[string]interface{}{
		"name":   "Vacaciones",
		"amount": -100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, fieldErrorCount(t, rec))
	assert.Contains(t, rec.Body.String(), "El presupuesto  debe ser mayor a 0")
}

func TestCreateBudget(t *testing.T) {
	ts := newTestServer(t)
	user, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")

	rec := ts.do(t, http.MethodPost, "/api/budgets", bearer, map[string]interface{}{
		"name":   "Vacaciones",
		"amount": 3000,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `"Presupuesto creado correctamente"`, rec.Body.String())

	budgets, err := ts.budgets.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Vacaciones", budgets[0].Name)
	assert.Equal(t, 3000.0, budgets[0].Amount)

	// numeric strings are accepted like form input
	rec = ts.do(t, http.MethodPost, "/api/budgets", bearer, map[string]interface{}{
		"name":   "Comida",
		"amount": "500",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListBudgetsOnlyOwn(t *testing.T) {
	ts := newTestServer(t)
	owner, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")
	other, _ := ts.seedUser(t, "ana", "ana@email.com", "12345678")
	ts.seedBudget(t, owner.ID, "Vacaciones", 3000)
	ts.seedBudget(t, other.ID, "Ajeno", 100)

	rec := ts.do(t, http.MethodGet, "/api/budgets", bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var budgets []storage.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &budgets))
	require.Len(t, budgets, 1)
	assert.Equal(t, "Vacaciones", budgets[0].Name)
}

func TestGetBudgetInvalidID(t *testing.T) {
	ts := newTestServer(t)
	_, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")

	rec := ts.do(t, http.MethodGet, "/api/budgets/not_valid", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, fieldErrorCount(t, rec))
	assert.Contains(t, rec.Body.String(), "ID no válido")
}

func TestGetBudgetNotFound(t *testing.T) {
	ts := newTestServer(t)
	_, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")

	rec := ts.do(t, http.MethodGet, "/api/budgets/99", bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Presupuesto no encontrado"}`, rec.Body.String())
}

func TestGetBudgetForeignOwner(t *testing.T) {
	ts := newTestServer(t)
	_, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")
	other, _ := ts.seedUser(t, "ana", "ana@email.com", "12345678")
	budget := ts.seedBudget(t, other.ID, "Ajeno", 100)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := ts.do(t, method, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, map[string]interface{}{
			"name":   "x",
			"amount": 1,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, method)
		assert.JSONEq(t, `{"error":"Acción no válida"}`, rec.Body.String(), method)
	}
}

func TestGetBudgetWithExpenses(t *testing.T) {
	ts := newTestServer(t)
	user, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")
	budget := ts.seedBudget(t, user.ID, "Vacaciones", 3000)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Vacaciones", body["name"])
	assert.Equal(t, []interface{}{}, body["expenses"])

	ts.seedExpense(t, budget.ID, "Hotel", 1200)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	expenses := body["expenses"].([]interface{})
	require.Len(t, expenses, 1)
}

func TestUpdateBudget(t *testing.T) {
	ts := newTestServer(t)
	user, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")
	budget := ts.seedBudget(t, user.ID, "Vacaciones", 3000)

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, fieldErrorCount(t, rec))

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, map[string]interface{}{
		"name":   "Vacaciones 2026",
		"amount": 4000,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Presupuesto actualizado correctamente"`, rec.Body.String())

	stored, err := ts.budgets.GetByID(context.Background(), budget.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vacaciones 2026", stored.Name)
	assert.Equal(t, 4000.0, stored.Amount)
}

func TestDeleteBudget(t *testing.T) {
	ts := newTestServer(t)
	user, bearer := ts.seedUser(t, "luis", "email@email.com", "12345678")
	budget := ts.seedBudget(t, user.ID, "Vacaciones", 3000)
	expense := ts.seedExpense(t, budget.ID, "Hotel", 1200)

	rec := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/budgets/%d", budget.ID), bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Presupuesto eliminado correctamente"`, rec.Body.String())

	_, err := ts.budgets.GetByID(context.Background(), budget.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = ts.expenses.GetByID(context.Background(), expense.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
