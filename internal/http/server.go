// Package http exposes the budgeting API: stateless JSON handlers over the
// standard mux, bearer-token auth, and the middleware the service needs at
// the edge (request IDs, logging, CORS, security headers, rate limiting).
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"presupuesto/internal/auth"
	"presupuesto/internal/core"
)

// AccountStore persists user identities.
type AccountStore interface {
	CreateAccount(ctx context.Context, email, passwordHash string) (*core.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*core.Account, error)
}

// BudgetStore persists budgets and reads their gastos. Every method takes
// the owner so a caller can never reach another user's rows.
type BudgetStore interface {
	CreateBudget(ctx context.Context, ownerID int64, name string, allocated core.Money) (*core.Budget, error)
	ListBudgetsByOwner(ctx context.Context, ownerID int64) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, id, ownerID int64, name string, allocated core.Money) (*core.Budget, error)
	DeleteBudget(ctx context.Context, id, ownerID int64) error
	ListExpensesByBudget(ctx context.Context, budgetID, ownerID int64) ([]core.Expense, error)
}

// ExpenseRecorder runs the transactional create and the export announce.
type ExpenseRecorder interface {
	CreateExpense(ctx context.Context, req core.NewExpense) (*core.Expense, error)
}

type Server struct {
	http.Server
	accounts  AccountStore
	budgets   BudgetStore
	ledger    ExpenseRecorder
	jwtSecret []byte

	corsOrigins map[string]bool
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr, jwtSecret string, corsOrigins []string, accounts AccountStore, budgets BudgetStore, ledger ExpenseRecorder) *Server {
	mux := http.NewServeMux()

	s := &Server{
		accounts:    accounts,
		budgets:     budgets,
		ledger:      ledger,
		jwtSecret:   []byte(jwtSecret),
		corsOrigins: make(map[string]bool, len(corsOrigins)),
		rateLimiter: newRateLimiter(20, time.Minute),
	}
	for _, origin := range corsOrigins {
		s.corsOrigins[origin] = true
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.withRateLimit(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withRateLimit(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.withAuth(s.handleLogout))
	mux.HandleFunc("GET /api/check-auth", s.withAuth(s.handleCheckAuth))

	mux.HandleFunc("GET /presupuestos", s.withAuth(s.handleListBudgets))
	mux.HandleFunc("POST /presupuestos", s.withAuth(s.handleCreateBudget))
	mux.HandleFunc("PUT /presupuestos/{id}", s.withAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /presupuestos/{id}", s.withAuth(s.handleDeleteBudget))

	mux.HandleFunc("POST /gastos", s.withAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /gastos", s.withAuth(s.handleListExpenses))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.withCommon(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Shutdown stops the background limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// userIDFromContext returns the authenticated caller set by withAuth.
func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// withCommon wraps the whole mux: request ID, CORS, security headers and
// request/completion logging.
func (s *Server) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-Id", requestID)

		if origin := r.Header.Get("Origin"); origin != "" && s.corsOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP(r))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// withRateLimit guards unauthenticated endpoints per peer address.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiterKey(r)
		if !s.rateLimiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", ip, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeMessage(w, http.StatusTooManyRequests, "Demasiadas solicitudes, intente más tarde")
			return
		}
		next(w, r)
	}
}

// withAuth resolves the bearer token and puts the caller's user ID in the
// request context. Every credential failure gets the same 401 body.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "No autorizado")
			return
		}
		claims, err := auth.ValidateToken(s.jwtSecret, token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "No autorizado")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

// responseWriter captures the status code for completion logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientIP is for log fields only: forwarded headers are useful context
// behind a proxy but are client-controlled.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// limiterKey identifies the peer for rate limiting. It ignores forwarded
// headers: trusting those would let a direct caller mint a fresh identity
// on every request.
func limiterKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
