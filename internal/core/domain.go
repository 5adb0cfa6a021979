package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Account is a registered user identity. The password hash is never
	// serialized to clients.
	Account struct {
		ID           int64     `json:"id"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Budget is a named allocation of money with a running remaining balance.
	// Remaining equals Allocated at creation and is mutated only by expense
	// creation (decrement) and budget update (reset to the new allocation).
	Budget struct {
		ID        int64  `json:"id"`
		OwnerID   int64  `json:"-"`
		Name      string `json:"nombre"`
		Allocated Money  `json:"monto"`
		Remaining Money  `json:"restante"`
	}

	// Expense is a debit recorded against a specific budget.
	Expense struct {
		ID          int64  `json:"id"`
		BudgetID    int64  `json:"presupuestoId"`
		Description string `json:"descripcion"`
		Amount      Money  `json:"monto"`
		Date        Date   `json:"fecha"`
	}

	// NewExpense carries a create-expense request into the ledger. OwnerID is
	// the authenticated caller; the budget must belong to them.
	NewExpense struct {
		BudgetID    int64
		OwnerID     int64
		Description string
		Amount      Money
		Date        Date
	}

	// Date is a calendar day without a time component.
	Date struct {
		time.Time
	}
)

var (
	ErrNotFound           = errors.New("presupuesto no encontrado")
	ErrDuplicateEmail     = errors.New("el usuario ya existe")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrInsufficientFunds  = errors.New("fondos insuficientes")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyEmail         = errors.New("empty email")
	ErrEmptyPassword      = errors.New("empty password")
	ErrInvalidDate        = errors.New("invalid date")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day. Used as the default expense date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON renders the date as a plain "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD"; an empty or null value leaves the
// zero date, which callers replace with Today.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the request fields a caller controls. Budget existence and
// ownership are the ledger's job, not validation's.
func (e NewExpense) Validate() error {
	if e.BudgetID <= 0 {
		return ErrNotFound
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
