package http

import (
	"errors"
	"log/slog"
	"net/http"

	"presupuesto/internal/core"
)

type expenseRequest struct {
	BudgetID    int64      `json:"presupuestoId"`
	Description string     `json:"descripcion"`
	Amount      core.Money `json:"monto"`
	Date        core.Date  `json:"fecha"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}

	newExpense := core.NewExpense{
		BudgetID:    req.BudgetID,
		OwnerID:     userID,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Date:        req.Date,
	}
	if err := newExpense.Validate(); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Descripción y monto válidos son requeridos")
		return
	}

	expense, err := s.ledger.CreateExpense(r.Context(), newExpense)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
		case errors.Is(err, core.ErrInsufficientFunds):
			writeMessage(w, http.StatusBadRequest, "Fondos insuficientes en el presupuesto")
		default:
			slog.ErrorContext(r.Context(), "Failed creating expense",
				"error", err, "budget_id", req.BudgetID, "user_id", userID)
			writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		}
		return
	}

	slog.InfoContext(r.Context(), "Expense recorded",
		"expense_id", expense.ID, "budget_id", expense.BudgetID,
		"user_id", userID, "amount_cents", expense.Amount.Cents)
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	budgetID, ok := parseID(r.URL.Query().Get("presupuestoId"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "presupuestoId es requerido")
		return
	}

	expenses, err := s.budgets.ListExpensesByBudget(r.Context(), budgetID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
			return
		}
		slog.ErrorContext(r.Context(), "Failed listing expenses",
			"error", err, "budget_id", budgetID, "user_id", userID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}
