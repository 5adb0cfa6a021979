package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("09/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	var e Expense
	in := `{"presupuestoId":3,"descripcion":"Milk","monto":12.50,"fecha":"2025-03-09"}`
	if err := json.Unmarshal([]byte(in), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.BudgetID != 3 || e.Amount.Cents != 1250 || e.Date.String() != "2025-03-09" {
		t.Fatalf("unexpected expense: %+v", e)
	}

	// Missing fecha leaves the zero date for the caller to default.
	var e2 Expense
	if err := json.Unmarshal([]byte(`{"presupuestoId":3,"descripcion":"Milk","monto":1}`), &e2); err != nil {
		t.Fatalf("unmarshal without fecha: %v", err)
	}
	if !e2.Date.IsZero() {
		t.Fatalf("expected zero date, got %s", e2.Date)
	}
}

func TestNewExpenseValidate(t *testing.T) {
	valid := NewExpense{BudgetID: 1, OwnerID: 1, Description: "Milk", Amount: Money{Cents: 1250}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name string
		e    NewExpense
		want error
	}{
		{"missing budget", NewExpense{Description: "x", Amount: Money{Cents: 1}}, ErrNotFound},
		{"empty description", NewExpense{BudgetID: 1, Description: "  ", Amount: Money{Cents: 1}}, ErrEmptyDescription},
		{"zero amount", NewExpense{BudgetID: 1, Description: "x"}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
