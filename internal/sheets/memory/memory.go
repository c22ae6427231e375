package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store collects appended rows in memory. It backs the "memory" export
// backend, useful for local runs and tests where no spreadsheet exists.
type Store struct {
	mu   sync.Mutex
	rows [][]interface{}
}

func New() *Store {
	return &Store{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Store) AppendRow(_ context.Context, row []interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, append([]interface{}(nil), row...))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() [][]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]interface{}, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]interface{}(nil), r...)
	}
	return out
}
