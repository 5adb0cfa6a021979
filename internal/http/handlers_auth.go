package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"presupuesto/internal/auth"
	"presupuesto/internal/core"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}

	email := strings.ToLower(sanitizeInput(req.Email))
	if email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email y contraseña son requeridos")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed hashing password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	account, err := s.accounts.CreateAccount(r.Context(), email, hash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			writeMessage(w, http.StatusBadRequest, "El email ya está registrado")
			return
		}
		slog.ErrorContext(r.Context(), "Failed creating account", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	token, err := auth.GenerateToken(s.jwtSecret, account.ID, account.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing token", "error", err, "user_id", account.ID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	slog.InfoContext(r.Context(), "Account registered", "user_id", account.ID)
	writeJSON(w, http.StatusCreated, tokenResponse{
		Message: "Usuario registrado exitosamente",
		Token:   token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}

	email := strings.ToLower(sanitizeInput(req.Email))
	if email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email y contraseña son requeridos")
		return
	}

	// Unknown email and wrong password are indistinguishable to the caller.
	account, err := s.accounts.GetAccountByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading account", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}
	if !auth.CheckPasswordHash(req.Password, account.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}

	token, err := auth.GenerateToken(s.jwtSecret, account.ID, account.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing token", "error", err, "user_id", account.ID)
		writeMessage(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Message: "Inicio de sesión exitoso",
		Token:   token,
	})
}

// handleLogout exists for client symmetry. Tokens are stateless and expire
// on their own; the client discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Sesión cerrada exitosamente")
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No autorizado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        userID,
	})
}
