// Package sheets defines the export-backend port: somewhere recorded gastos
// can be appended for reporting, outside the authoritative SQLite store.
package sheets

import (
	"context"

	"presupuesto/internal/storage"
)

// ExpenseAppender appends one exported gasto row to a reporting backend.
type ExpenseAppender interface {
	Append(ctx context.Context, row storage.ExportExpense) error
}
