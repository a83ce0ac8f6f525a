// Package memory is a RecordExporter that keeps rows in process, used by
// the worker when no spreadsheet is configured and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bankcore/internal/core"
	ports "bankcore/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	items []core.TransferRecord
	byID  map[int64]int
}

// Ensure interface conformance
var _ ports.RecordExporter = (*Store)(nil)

func New() *Store {
	return &Store{byID: make(map[int64]int)}
}

// Export stores the record and returns a synthetic row reference. A record
// already exported returns its original reference.
func (s *Store) Export(_ context.Context, r core.TransferRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byID[r.ID]; ok && r.ID != 0 {
		return fmt.Sprintf("mem:%d", n), nil
	}
	s.items = append(s.items, r)
	s.byID[r.ID] = len(s.items)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Records returns the exported records in export order.
func (s *Store) Records() []core.TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransferRecord(nil), s.items...)
}
