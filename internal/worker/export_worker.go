// Package worker exports recorded gastos from the store to the reporting
// backend, driven by AMQP messages with a periodic sweep for anything a
// lost message leaves behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/sheets"
	"presupuesto/internal/storage"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	GetExpenseForExport(ctx context.Context, id int64) (*storage.ExportExpense, error)
	GetPendingExportIDs(ctx context.Context, limit int) ([]int64, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
}

type ExportWorker struct {
	store     ExportStore
	appender  sheets.ExpenseAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender sheets.ExpenseAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes one export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"expense_id", msg.ID,
		"version", msg.Version)

	return w.export(ctx, msg.ID)
}

// ProcessPending sweeps gastos still marked pending. Run periodically so
// rows survive a broker outage or a message lost before publish.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.store.GetPendingExportIDs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending export ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending exports", "count", len(ids))

	for _, id := range ids {
		if err := w.export(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending expense",
				"expense_id", id, "error", err)
			// Keep going; the row stays pending or is marked error.
		}
	}

	return nil
}

func (w *ExportWorker) export(ctx context.Context, id int64) error {
	row, err := w.store.GetExpenseForExport(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// The budget (and its gastos) was cascade-deleted after the
			// message was published. Nothing left to export.
			slog.WarnContext(ctx, "Expense gone before export, skipping", "expense_id", id)
			return nil
		}
		return fmt.Errorf("load expense for export: %w", err)
	}

	if err := w.appender.Append(ctx, *row); err != nil {
		if markErr := w.store.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"expense_id", id, "error", markErr)
		}
		return fmt.Errorf("append expense to export backend: %w", err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}

	return nil
}
