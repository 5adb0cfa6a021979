// Package services orchestrates the expense ledger and the export pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"presupuesto/internal/core"
)

// ExpenseStore is the transactional ledger the service writes through.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, req core.NewExpense) (*core.Expense, error)
}

// ExportPublisher announces recorded gastos to the export worker.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, id, version int64) error
}

// LedgerService records expenses durably and then announces them for export.
// The announce step is best-effort: the expense is already committed, and
// the worker's periodic sweep picks up anything a lost message leaves behind.
type LedgerService struct {
	store     ExpenseStore
	publisher ExportPublisher
}

// NewLedgerService wires the service. publisher may be nil when the export
// pipeline is not deployed.
func NewLedgerService(store ExpenseStore, publisher ExportPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// CreateExpense runs the ledger's create transaction, then publishes an
// export message. A publish failure is logged, never surfaced: the caller's
// expense is durable either way.
func (s *LedgerService) CreateExpense(ctx context.Context, req core.NewExpense) (*core.Expense, error) {
	expense, err := s.store.CreateExpense(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("record expense: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "Export publisher not configured, skipping export message",
			"expense_id", expense.ID)
		return expense, nil
	}

	if err := s.publisher.PublishExpenseExport(ctx, expense.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"expense_id", expense.ID, "error", err)
	}

	return expense, nil
}
