package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// Ensure SyncMetadataStore implements the interface.
var _ driven.SyncMetadataStore = (*SyncMetadataStore)(nil)

// SyncMetadataStore is an in-memory implementation of driven.SyncMetadataStore.
// Every known table is seeded on creation.
type SyncMetadataStore struct {
	mu      sync.RWMutex
	records map[string]domain.SyncMetadata
	now     func() time.Time
}

// NewSyncMetadataStore creates a store seeded with one record per known table.
func NewSyncMetadataStore() *SyncMetadataStore {
	s := &SyncMetadataStore{
		records: make(map[string]domain.SyncMetadata),
		now:     time.Now,
	}
	for _, t := range domain.AllTables() {
		s.records[t.Name] = s.initial(t.Name)
	}
	return s
}

func (s *SyncMetadataStore) initial(table string) domain.SyncMetadata {
	return domain.SyncMetadata{
		TableName:  table,
		LastSync:   domain.EpochZero,
		SyncStatus: domain.SyncStatusIdle,
		UpdatedAt:  s.now().UTC(),
	}
}

// Get returns the metadata of one table.
func (s *SyncMetadataStore) Get(_ context.Context, table string) (*domain.SyncMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.records[table]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

// List returns the metadata of every table in dependency order.
func (s *SyncMetadataStore) List(_ context.Context) ([]domain.SyncMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.SyncMetadata, 0, len(s.records))
	for _, t := range domain.AllTables() {
		if meta, ok := s.records[t.Name]; ok {
			result = append(result, meta)
		}
	}
	return result, nil
}

// SetStatus records the pipeline status and error message.
func (s *SyncMetadataStore) SetStatus(_ context.Context, table string, status domain.SyncStatus, errMsg string) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}
	return s.update(table, func(m *domain.SyncMetadata) {
		m.SyncStatus = status
		m.ErrorMessage = errMsg
	})
}

// AdvanceWatermark moves the cursor forward, ignoring regressions.
func (s *SyncMetadataStore) AdvanceWatermark(_ context.Context, table string, cursor domain.Cursor) error {
	return s.update(table, func(m *domain.SyncMetadata) {
		if cursor.After(m.Cursor()) {
			m.LastSync = cursor.UpdatedAt.UTC()
			m.LastSyncID = cursor.ID
		}
	})
}

// SetContentVersion records the incorporated content version.
func (s *SyncMetadataStore) SetContentVersion(_ context.Context, table, version string) error {
	return s.update(table, func(m *domain.SyncMetadata) {
		m.ContentVersion = version
	})
}

// SetCountGap records the row count gap left by a full-range pass.
func (s *SyncMetadataStore) SetCountGap(_ context.Context, table string, gap int) error {
	return s.update(table, func(m *domain.SyncMetadata) {
		m.CountGap = gap
	})
}

// TouchVersionCheck stamps last_version_check on the given tables.
func (s *SyncMetadataStore) TouchVersionCheck(_ context.Context, tables []string, at time.Time) error {
	for _, table := range tables {
		if err := s.update(table, func(m *domain.SyncMetadata) {
			m.LastVersionCheck = at.UTC()
		}); err != nil {
			return err
		}
	}
	return nil
}

// Reset rewinds a table to its initial state.
func (s *SyncMetadataStore) Reset(_ context.Context, table string) error {
	if _, err := domain.LookupTable(table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[table] = s.initial(table)
	return nil
}

func (s *SyncMetadataStore) update(table string, fn func(m *domain.SyncMetadata)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.records[table]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&meta)
	meta.UpdatedAt = s.now().UTC()
	s.records[table] = meta
	return nil
}
