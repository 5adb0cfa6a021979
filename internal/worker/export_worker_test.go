package worker

import (
	"context"
	"errors"
	"testing"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/sheets/memory"
	"presupuesto/internal/storage"
)

type fakeExportStore struct {
	rows       map[int64]*storage.ExportExpense
	pending    []int64
	exported   []int64
	errored    []int64
	loadErr    error
	markErr    error
	pendingErr error
}

func (f *fakeExportStore) GetExpenseForExport(ctx context.Context, id int64) (*storage.ExportExpense, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return row, nil
}

func (f *fakeExportStore) GetPendingExportIDs(ctx context.Context, limit int) ([]int64, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeExportStore) MarkExported(ctx context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.exported = append(f.exported, id)
	return nil
}

func (f *fakeExportStore) MarkExportError(ctx context.Context, id int64) error {
	f.errored = append(f.errored, id)
	return nil
}

func exportRow(id int64) *storage.ExportExpense {
	return &storage.ExportExpense{
		Expense:    core.Expense{ID: id, BudgetID: 1, Description: "Milk", Amount: core.Money{Cents: 1250}, Date: core.NewDate(2025, 3, 9)},
		BudgetName: "Groceries",
		OwnerEmail: "a@x.com",
	}
}

func TestHandleExportMessage(t *testing.T) {
	store := &fakeExportStore{rows: map[int64]*storage.ExportExpense{7: exportRow(7)}}
	backend := memory.New()
	w := NewExportWorker(store, backend, 10)

	if err := w.HandleExportMessage(context.Background(), amqp.NewExpenseExportMessage(7, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := backend.Rows()
	if len(rows) != 1 || rows[0].Expense.ID != 7 {
		t.Fatalf("unexpected backend rows: %+v", rows)
	}
	if len(store.exported) != 1 || store.exported[0] != 7 {
		t.Fatalf("expense not marked exported: %v", store.exported)
	}
}

func TestHandleExportMessageGoneExpense(t *testing.T) {
	// Budget cascade-deleted between publish and consume: skip, don't requeue.
	store := &fakeExportStore{rows: map[int64]*storage.ExportExpense{}}
	w := NewExportWorker(store, memory.New(), 10)

	if err := w.HandleExportMessage(context.Background(), amqp.NewExpenseExportMessage(99, 1)); err != nil {
		t.Fatalf("gone expense should not error: %v", err)
	}
	if len(store.exported) != 0 {
		t.Fatalf("nothing should be marked exported: %v", store.exported)
	}
}

type failingAppender struct{}

func (failingAppender) Append(ctx context.Context, row storage.ExportExpense) error {
	return errors.New("sheet unavailable")
}

func TestHandleExportMessageAppendFailure(t *testing.T) {
	store := &fakeExportStore{rows: map[int64]*storage.ExportExpense{7: exportRow(7)}}
	w := NewExportWorker(store, failingAppender{}, 10)

	if err := w.HandleExportMessage(context.Background(), amqp.NewExpenseExportMessage(7, 1)); err == nil {
		t.Fatal("append failure should surface for requeue")
	}
	if len(store.errored) != 1 || store.errored[0] != 7 {
		t.Fatalf("expense not marked errored: %v", store.errored)
	}
}

func TestProcessPending(t *testing.T) {
	store := &fakeExportStore{
		rows:    map[int64]*storage.ExportExpense{1: exportRow(1), 2: exportRow(2), 3: exportRow(3)},
		pending: []int64{1, 2, 3},
	}
	backend := memory.New()
	w := NewExportWorker(store, backend, 2)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	// Batch size caps the sweep.
	if len(backend.Rows()) != 2 {
		t.Fatalf("exported %d rows, want 2", len(backend.Rows()))
	}
}

func TestProcessPendingEmpty(t *testing.T) {
	w := NewExportWorker(&fakeExportStore{}, memory.New(), 10)
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("empty sweep: %v", err)
	}
}
