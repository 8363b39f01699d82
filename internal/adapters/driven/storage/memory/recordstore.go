package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// DefaultParamLimit mirrors SQLite's default bound parameter limit.
const DefaultParamLimit = 999

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu         sync.RWMutex
	tables     map[string]map[string]domain.Record
	paramLimit int
	upserts    int
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		tables:     make(map[string]map[string]domain.Record),
		paramLimit: DefaultParamLimit,
	}
}

// SetParamLimit overrides the reported parameter limit.
func (s *RecordStore) SetParamLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paramLimit = n
}

// Upsert replaces records by primary key. Records whose table differs
// from table are rejected and nothing is written.
func (s *RecordStore) Upsert(_ context.Context, table string, records []domain.Record) error {
	for _, r := range records {
		if r.Table() != table {
			return domain.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]domain.Record)
		s.tables[table] = rows
	}
	for _, r := range records {
		rows[r.RecordID()] = r
	}
	s.upserts++
	return nil
}

// Count returns the number of rows in table.
func (s *RecordStore) Count(_ context.Context, table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table]), nil
}

// Clear deletes all rows of table.
func (s *RecordStore) Clear(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table)
	return nil
}

// Checksum returns an order-independent digest of the stored rows.
func (s *RecordStore) Checksum(_ context.Context, table string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stamps := make([]domain.RowStamp, 0, len(s.tables[table]))
	for id, r := range s.tables[table] {
		stamps = append(stamps, domain.RowStamp{ID: id, UpdatedAt: domain.FormatTime(r.RecordUpdatedAt())})
	}
	return domain.Checksum(stamps), nil
}

// ParamLimit returns the configured parameter limit.
func (s *RecordStore) ParamLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paramLimit
}

// Get returns one stored record.
func (s *RecordStore) Get(table, id string) (domain.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tables[table][id]
	return r, ok
}

// UpsertCalls returns the number of Upsert transactions applied.
func (s *RecordStore) UpsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}
