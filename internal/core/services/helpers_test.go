package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	remotemem "github.com/custodia-labs/versesync/internal/adapters/driven/remote/memory"
	"github.com/custodia-labs/versesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/versesync/internal/core/domain"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

// fixture wires in-memory adapters around a remote seeded by each test.
type fixture struct {
	remote   *remotemem.Source
	records  *memory.RecordStore
	metadata *memory.SyncMetadataStore
}

func newFixture() *fixture {
	return &fixture{
		remote:   remotemem.NewSource(),
		records:  memory.NewRecordStore(),
		metadata: memory.NewSyncMetadataStore(),
	}
}

func (f *fixture) orchestrator(t *testing.T, domainName string) *SyncOrchestrator {
	t.Helper()
	o, err := NewSyncOrchestrator(domainName, f.remote, f.records, f.metadata, domain.SyncSettings{})
	require.NoError(t, err)
	o.retry = fastRetry
	return o
}

func (f *fixture) pipeline(t *testing.T, table string) *TablePipeline {
	t.Helper()
	st, err := domain.LookupTable(table)
	require.NoError(t, err)
	return NewTablePipeline(st, f.remote, f.records, f.metadata, fastRetry)
}

func (f *fixture) meta(t *testing.T, table string) domain.SyncMetadata {
	t.Helper()
	m, err := f.metadata.Get(context.Background(), table)
	require.NoError(t, err)
	return *m
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	n, err := f.records.Count(context.Background(), table)
	require.NoError(t, err)
	return n
}

func bookRow(id string, updatedAt time.Time) domain.RemoteRecord {
	return domain.RemoteRecord{
		"id":          id,
		"name":        "Book " + id,
		"book_number": 1,
		"testament":   domain.TestamentOld,
		"updated_at":  domain.FormatTime(updatedAt),
	}
}
