// Package memory provides a fixture-backed remote source for tests and
// offline demos. It honours the same filter and ordering contract as the
// REST client.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.RemoteSource = (*Source)(nil)

// FetchHook runs before every FetchPage. A non-nil error is returned to
// the caller instead of the page.
type FetchHook func(ctx context.Context, table string, filter domain.PageFilter) error

// Source is an in-memory remote backend.
type Source struct {
	mu         sync.RWMutex
	tables     map[string]map[string]domain.RemoteRecord
	versions   map[string]string
	fetchErrs  map[string][]error
	countErrs  map[string]error
	fetchCalls map[string]int
	hook       FetchHook
}

// NewSource creates an empty remote source.
func NewSource() *Source {
	return &Source{
		tables:     make(map[string]map[string]domain.RemoteRecord),
		versions:   make(map[string]string),
		fetchErrs:  make(map[string][]error),
		countErrs:  make(map[string]error),
		fetchCalls: make(map[string]int),
	}
}

// Put inserts or replaces rows by id.
func (s *Source) Put(table string, rows ...domain.RemoteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]domain.RemoteRecord)
		s.tables[table] = t
	}
	for _, row := range rows {
		t[row.ID()] = row
	}
}

// Delete removes a row.
func (s *Source) Delete(table, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[table], id)
}

// SetVersion sets the content version published for table.
func (s *Source) SetVersion(table, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[table] = version
}

// FailFetches queues errors returned by the next FetchPage calls on table.
func (s *Source) FailFetches(table string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErrs[table] = append(s.fetchErrs[table], errs...)
}

// FailCount makes Count on table return err until cleared with nil.
func (s *Source) FailCount(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countErrs[table] = err
}

// SetFetchHook installs a hook run before every FetchPage.
func (s *Source) SetFetchHook(hook FetchHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// FetchCalls returns how many times FetchPage was called for table.
func (s *Source) FetchCalls(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchCalls[table]
}

// FetchPage returns up to limit rows matching filter in (updated_at, id) order.
// Rows without an id or a parseable updated_at are never returned.
func (s *Source) FetchPage(
	ctx context.Context,
	table string,
	filter domain.PageFilter,
	limit int,
) ([]domain.RemoteRecord, error) {
	s.mu.Lock()
	s.fetchCalls[table]++
	hook := s.hook
	var queued error
	if errs := s.fetchErrs[table]; len(errs) > 0 {
		queued, s.fetchErrs[table] = errs[0], errs[1:]
	}
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, table, filter); err != nil {
			return nil, err
		}
	}
	if queued != nil {
		return nil, queued
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.FetchError{Table: table, Err: err}
	}

	type keyed struct {
		row       domain.RemoteRecord
		id        string
		updatedAt time.Time
	}

	s.mu.RLock()
	matched := make([]keyed, 0, len(s.tables[table]))
	for id, row := range s.tables[table] {
		updatedAt, err := row.UpdatedAt()
		if id == "" || err != nil {
			continue
		}
		if filter.Matches(updatedAt, id) {
			matched = append(matched, keyed{row: copyRow(row), id: id, updatedAt: updatedAt})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].updatedAt.Equal(matched[j].updatedAt) {
			return matched[i].id < matched[j].id
		}
		return matched[i].updatedAt.Before(matched[j].updatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	rows := make([]domain.RemoteRecord, len(matched))
	for i, k := range matched {
		rows[i] = k.row
	}
	return rows, nil
}

// Count returns the number of rows in table.
func (s *Source) Count(_ context.Context, table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.countErrs[table]; err != nil {
		return 0, err
	}
	return len(s.tables[table]), nil
}

// ContentVersion returns the version set with SetVersion, or "".
func (s *Source) ContentVersion(_ context.Context, table string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[table], nil
}

func copyRow(row domain.RemoteRecord) domain.RemoteRecord {
	c := make(domain.RemoteRecord, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}
