package http

import (
	"errors"
	"log/slog"
	"net/http"

	"presupuesto/internal/core"
)

type budgetRequest struct {
	Name   string     `json:"nombre"`
	Amount core.Money `json:"monto"`
}

func (r budgetRequest) validate() (string, core.Money, error) {
	name := sanitizeInput(r.Name)
	if name == "" {
		return "", core.Money{}, core.ErrEmptyName
	}
	if err := r.Amount.Validate(); err != nil {
		return "", core.Money{}, err
	}
	return name, r.Amount, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	budgets, err := s.budgets.ListBudgetsByOwner(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed listing budgets", "error", err, "user_id", userID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	name, amount, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Nombre y monto válidos son requeridos")
		return
	}

	budget, err := s.budgets.CreateBudget(r.Context(), userID, name, amount)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed creating budget", "error", err, "user_id", userID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	slog.InfoContext(r.Context(), "Budget created",
		"budget_id", budget.ID, "user_id", userID, "allocated_cents", budget.Allocated.Cents)
	writeJSON(w, http.StatusCreated, budget)
}

// handleUpdateBudget replaces name and allocation. The remaining balance is
// reset to the new allocation; recorded gastos are history, not a lien.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	name, amount, err := req.validate()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Nombre y monto válidos son requeridos")
		return
	}

	budget, err := s.budgets.UpdateBudget(r.Context(), id, userID, name, amount)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating budget", "error", err, "budget_id", id, "user_id", userID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
		return
	}

	if err := s.budgets.DeleteBudget(r.Context(), id, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Presupuesto no encontrado")
			return
		}
		slog.ErrorContext(r.Context(), "Failed deleting budget", "error", err, "budget_id", id, "user_id", userID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	slog.InfoContext(r.Context(), "Budget deleted", "budget_id", id, "user_id", userID)
	writeMessage(w, http.StatusOK, "Presupuesto eliminado exitosamente")
}
