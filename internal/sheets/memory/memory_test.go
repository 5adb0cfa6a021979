package memory

import (
	"context"
	"sync"
	"testing"

	"presupuesto/internal/core"
	"presupuesto/internal/storage"
)

func TestAppendAndRows(t *testing.T) {
	s := New()
	row := storage.ExportExpense{
		Expense:    core.Expense{ID: 1, BudgetID: 2, Description: "Milk", Amount: core.Money{Cents: 1250}},
		BudgetName: "Groceries",
		OwnerEmail: "a@x.com",
	}
	if err := s.Append(context.Background(), row); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].Expense.ID != 1 || rows[0].BudgetName != "Groceries" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	// Rows returns a copy.
	rows[0].BudgetName = "mutated"
	if s.Rows()[0].BudgetName != "Groceries" {
		t.Fatal("Rows leaked internal slice")
	}
}

func TestAppendConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = s.Append(context.Background(), storage.ExportExpense{Expense: core.Expense{ID: id}})
		}(int64(i))
	}
	wg.Wait()
	if len(s.Rows()) != 50 {
		t.Fatalf("rows = %d, want 50", len(s.Rows()))
	}
}
