package services

import (
	"context"
	"errors"
	"testing"

	"presupuesto/internal/core"
)

type fakeStore struct {
	created []core.NewExpense
	err     error
}

func (f *fakeStore) CreateExpense(ctx context.Context, req core.NewExpense) (*core.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &core.Expense{ID: int64(len(f.created)), BudgetID: req.BudgetID, Description: req.Description, Amount: req.Amount}, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishExpenseExport(ctx context.Context, id, version int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func TestCreateExpensePublishesExport(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub)

	exp, err := svc.CreateExpense(context.Background(), core.NewExpense{
		BudgetID: 1, OwnerID: 1, Description: "Milk", Amount: core.Money{Cents: 1250},
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != exp.ID {
		t.Fatalf("published = %v, want [%d]", pub.published, exp.ID)
	}
}

func TestCreateExpenseStoreFailureNotPublished(t *testing.T) {
	store := &fakeStore{err: core.ErrInsufficientFunds}
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub)

	_, err := svc.CreateExpense(context.Background(), core.NewExpense{
		BudgetID: 1, OwnerID: 1, Description: "TV", Amount: core.Money{Cents: 20000},
	})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected wrapped ErrInsufficientFunds, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("rejected expense was announced: %v", pub.published)
	}
}

func TestCreateExpensePublishFailureDoesNotFailRequest(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewLedgerService(store, pub)

	if _, err := svc.CreateExpense(context.Background(), core.NewExpense{
		BudgetID: 1, OwnerID: 1, Description: "Milk", Amount: core.Money{Cents: 1250},
	}); err != nil {
		t.Fatalf("publish failure surfaced to caller: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expense not recorded: %d", len(store.created))
	}
}

func TestCreateExpenseNilPublisher(t *testing.T) {
	svc := NewLedgerService(&fakeStore{}, nil)
	if _, err := svc.CreateExpense(context.Background(), core.NewExpense{
		BudgetID: 1, OwnerID: 1, Description: "Milk", Amount: core.Money{Cents: 1250},
	}); err != nil {
		t.Fatalf("nil publisher should be tolerated: %v", err)
	}
}
