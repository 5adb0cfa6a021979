// Package storage owns the relational store: account records, budgets and
// the expense ledger, all in a single SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"presupuesto/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository is the single store handle, constructor-injected into the
// layers above it. enforceNonNegative is the configurable policy from
// config: when set, an expense may not push a budget's remaining balance
// below zero.
type Repository struct {
	db                 *sql.DB
	enforceNonNegative bool
}

// NewRepository opens (creating if needed) the SQLite database at dbPath,
// runs migrations and returns a ready store handle.
func NewRepository(dbPath string, enforceNonNegative bool) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys enables the ON DELETE CASCADE rules; busy_timeout makes
	// concurrent writers queue instead of failing immediately. txlock=immediate
	// takes the write lock at BEGIN: a deferred transaction that reads first
	// and upgrades to a writer would get SQLITE_BUSY without the timeout
	// applying, so concurrent expense creations would error instead of queue.
	dsn := "file:" + dbPath + "?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, enforceNonNegative: enforceNonNegative}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// CreateAccount inserts a new user record. The caller supplies an already
// hashed password. A taken email maps to core.ErrDuplicateEmail.
func (r *Repository) CreateAccount(ctx context.Context, email, passwordHash string) (*core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account insert id: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "user_id", id)
	return &core.Account{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}, nil
}

// GetAccountByEmail returns the account record or core.ErrNotFound.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	var (
		acc       core.Account
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email).Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	acc.CreatedAt = parseTimestamp(createdAt)
	return &acc, nil
}

// CountAccounts returns the number of user records.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// CreateBudget inserts a budget with remaining = allocated.
func (r *Repository) CreateBudget(ctx context.Context, ownerID int64, name string, allocated core.Money) (*core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO presupuestos (user_id, nombre, monto_cents, restante_cents) VALUES (?, ?, ?, ?)`,
		ownerID, name, allocated.Cents, allocated.Cents)
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("budget insert id: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", id,
		"user_id", ownerID,
		"allocated_cents", allocated.Cents)

	return &core.Budget{ID: id, OwnerID: ownerID, Name: name, Allocated: allocated, Remaining: allocated}, nil
}

// ListBudgetsByOwner returns every budget owned by the caller.
func (r *Repository) ListBudgetsByOwner(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, nombre, monto_cents, restante_cents FROM presupuestos WHERE user_id = ? ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Allocated.Cents, &b.Remaining.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

// GetBudget returns a budget matched on id AND owner, core.ErrNotFound
// otherwise. Budgets owned by other users are indistinguishable from
// nonexistent ones.
func (r *Repository) GetBudget(ctx context.Context, id, ownerID int64) (*core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, nombre, monto_cents, restante_cents FROM presupuestos WHERE id = ? AND user_id = ?`,
		id, ownerID).Scan(&b.ID, &b.OwnerID, &b.Name, &b.Allocated.Cents, &b.Remaining.Cents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

// UpdateBudget renames and reallocates a budget. The remaining balance is
// reset to the new allocation, discarding spend-to-date: intended
// reset-on-edit semantics, not an accounting adjustment.
func (r *Repository) UpdateBudget(ctx context.Context, id, ownerID int64, name string, allocated core.Money) (*core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE presupuestos SET nombre = ?, monto_cents = ?, restante_cents = ? WHERE id = ? AND user_id = ?`,
		name, allocated.Cents, allocated.Cents, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update budget rows affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Budget updated",
		"budget_id", id,
		"user_id", ownerID,
		"allocated_cents", allocated.Cents)

	return &core.Budget{ID: id, OwnerID: ownerID, Name: name, Allocated: allocated, Remaining: allocated}, nil
}

// DeleteBudget removes a budget matched on id AND owner. Child gastos are
// removed by the ON DELETE CASCADE rule.
func (r *Repository) DeleteBudget(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM presupuestos WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", id, "user_id", ownerID)
	return nil
}

// CreateExpense runs the ledger consistency protocol in one transaction:
// verify the budget exists and belongs to the caller, optionally enforce the
// non-negative-balance policy, insert the gasto, decrement the budget's
// remaining balance. Any failure rolls back the whole unit, so an expense
// row can never exist without its matching decrement.
func (r *Repository) CreateExpense(ctx context.Context, req core.NewExpense) (*core.Expense, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = core.Today()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin expense transaction: %w", err)
	}
	defer tx.Rollback()

	var remaining int64
	err = tx.QueryRowContext(ctx,
		`SELECT restante_cents FROM presupuestos WHERE id = ? AND user_id = ?`,
		req.BudgetID, req.OwnerID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("verify budget: %w", err)
	}

	if r.enforceNonNegative && req.Amount.Cents > remaining {
		return nil, core.ErrInsufficientFunds
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO gastos (presupuesto_id, descripcion, monto_cents, fecha) VALUES (?, ?, ?, ?)`,
		req.BudgetID, req.Description, req.Amount.Cents, date.String())
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("expense insert id: %w", err)
	}

	// Relative decrement inside the same transaction: concurrent creations
	// serialize on the budget row and can never decrement from a stale basis.
	if _, err := tx.ExecContext(ctx,
		`UPDATE presupuestos SET restante_cents = restante_cents - ? WHERE id = ?`,
		req.Amount.Cents, req.BudgetID); err != nil {
		return nil, fmt.Errorf("decrement budget balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expense transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", id,
		"budget_id", req.BudgetID,
		"amount_cents", req.Amount.Cents,
		"fecha", date.String())

	return &core.Expense{
		ID:          id,
		BudgetID:    req.BudgetID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
	}, nil
}

// ListExpensesByBudget returns a budget's gastos after verifying the budget
// belongs to ownerID. A bare budget id is never trusted on its own.
func (r *Repository) ListExpensesByBudget(ctx context.Context, budgetID, ownerID int64) ([]core.Expense, error) {
	if _, err := r.GetBudget(ctx, budgetID, ownerID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, presupuesto_id, descripcion, monto_cents, fecha FROM gastos WHERE presupuesto_id = ? ORDER BY id`,
		budgetID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// CountExpenses returns the number of gasto rows across all budgets.
func (r *Repository) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gastos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// ExportExpense is a gasto joined with its budget and owner, the full row
// the export worker appends to the spreadsheet.
type ExportExpense struct {
	Expense    core.Expense
	BudgetName string
	OwnerEmail string
}

// GetExpenseForExport loads one gasto with its budget name and owner email.
func (r *Repository) GetExpenseForExport(ctx context.Context, id int64) (*ExportExpense, error) {
	var (
		exp   ExportExpense
		fecha string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT g.id, g.presupuesto_id, g.descripcion, g.monto_cents, g.fecha, p.nombre, u.email
		 FROM gastos g
		 JOIN presupuestos p ON p.id = g.presupuesto_id
		 JOIN users u ON u.id = p.user_id
		 WHERE g.id = ?`, id).
		Scan(&exp.Expense.ID, &exp.Expense.BudgetID, &exp.Expense.Description,
			&exp.Expense.Amount.Cents, &fecha, &exp.BudgetName, &exp.OwnerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense for export: %w", err)
	}
	exp.Expense.Date = parseDateLenient(fecha)
	return &exp, nil
}

// GetPendingExportIDs returns ids of gastos not yet exported, oldest first.
func (r *Repository) GetPendingExportIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM gastos WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending export id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export ids: %w", err)
	}
	return ids, nil
}

// MarkExported marks a gasto as successfully exported.
func (r *Repository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE gastos SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "expense_id", id)
	return nil
}

// MarkExportError marks a gasto as having failed export; the periodic sweep
// leaves it alone until an operator intervenes.
func (r *Repository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE gastos SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "expense_id", id)
	return nil
}

func scanExpense(rows *sql.Rows) (core.Expense, error) {
	var (
		e     core.Expense
		fecha string
	)
	if err := rows.Scan(&e.ID, &e.BudgetID, &e.Description, &e.Amount.Cents, &fecha); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Date = parseDateLenient(fecha)
	return e, nil
}

// parseDateLenient reads a stored fecha; rows written by this code are
// always YYYY-MM-DD but SQLite defaults may carry a time suffix.
func parseDateLenient(s string) core.Date {
	if len(s) >= 10 {
		if d, err := core.ParseDate(s[:10]); err == nil {
			return d
		}
	}
	return core.Date{}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
