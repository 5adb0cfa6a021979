// Package memory is an in-memory export backend for tests and deployments
// without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"presupuesto/internal/storage"

	ports "presupuesto/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []storage.ExportExpense
}

var _ ports.ExpenseAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, row storage.ExportExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []storage.ExportExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.ExportExpense, len(s.rows))
	copy(out, s.rows)
	return out
}
