package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// syncMetadataStore implements driven.SyncMetadataStore on the gateway.
type syncMetadataStore struct {
	gw driven.LocalStore
}

var _ driven.SyncMetadataStore = (*syncMetadataStore)(nil)

// NewSyncMetadataStore creates a sync metadata store on any local store gateway.
func NewSyncMetadataStore(gw driven.LocalStore) driven.SyncMetadataStore {
	return &syncMetadataStore{gw: gw}
}

const selectSyncMetadata = `
	SELECT table_name, last_sync, last_sync_id, sync_status, error_message,
	       content_version, last_version_check, count_gap, updated_at
	FROM sync_metadata`

// Get returns the metadata of one table.
func (s *syncMetadataStore) Get(ctx context.Context, table string) (*domain.SyncMetadata, error) {
	rows, err := s.gw.Query(ctx, selectSyncMetadata+" WHERE table_name = ?", table)
	if err != nil {
		return nil, fmt.Errorf("querying sync metadata: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sync metadata for %s", domain.ErrNotFound, table)
	}
	meta := scanSyncMetadata(rows[0])
	return &meta, nil
}

// List returns the metadata of every known table in dependency order.
func (s *syncMetadataStore) List(ctx context.Context) ([]domain.SyncMetadata, error) {
	rows, err := s.gw.Query(ctx, selectSyncMetadata)
	if err != nil {
		return nil, fmt.Errorf("querying sync metadata: %w", err)
	}
	byName := make(map[string]domain.SyncMetadata, len(rows))
	for _, row := range rows {
		meta := scanSyncMetadata(row)
		byName[meta.TableName] = meta
	}

	out := make([]domain.SyncMetadata, 0, len(byName))
	for _, t := range domain.AllTables() {
		if meta, ok := byName[t.Name]; ok {
			out = append(out, meta)
		}
	}
	return out, nil
}

// SetStatus records the pipeline status and error message.
func (s *syncMetadataStore) SetStatus(ctx context.Context, table string, status domain.SyncStatus, errMsg string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: sync status %q", domain.ErrInvalidInput, status)
	}
	return s.update(ctx, table, "sync_status = ?, error_message = ?", string(status), nullString(errMsg))
}

// AdvanceWatermark moves the resume cursor forward. The comparison happens
// in SQL on fixed-width timestamps, so a stale cursor never wins.
func (s *syncMetadataStore) AdvanceWatermark(ctx context.Context, table string, cursor domain.Cursor) error {
	if _, err := domain.LookupTable(table); err != nil {
		return err
	}
	ts := domain.FormatTime(cursor.UpdatedAt)
	_, err := s.gw.Execute(ctx, `
		UPDATE sync_metadata
		SET last_sync = ?, last_sync_id = ?, updated_at = ?
		WHERE table_name = ?
		  AND (last_sync < ? OR (last_sync = ? AND last_sync_id < ?))
	`, ts, cursor.ID, domain.FormatTime(time.Now()), table, ts, ts, cursor.ID)
	if err != nil {
		return fmt.Errorf("advancing watermark of %s: %w", table, err)
	}
	return nil
}

// SetContentVersion records the remote content version incorporated locally.
func (s *syncMetadataStore) SetContentVersion(ctx context.Context, table, version string) error {
	return s.update(ctx, table, "content_version = ?", nullString(version))
}

// SetCountGap records the row count gap left by a full-range pass.
func (s *syncMetadataStore) SetCountGap(ctx context.Context, table string, gap int) error {
	return s.update(ctx, table, "count_gap = ?", gap)
}

// TouchVersionCheck stamps last_version_check on the given tables.
func (s *syncMetadataStore) TouchVersionCheck(ctx context.Context, tables []string, at time.Time) error {
	if len(tables) == 0 {
		return nil
	}
	args := make([]any, 0, len(tables)+2)
	args = append(args, domain.FormatTime(at), domain.FormatTime(time.Now()))
	for _, t := range tables {
		args = append(args, t)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tables)), ", ")

	_, err := s.gw.Execute(ctx,
		"UPDATE sync_metadata SET last_version_check = ?, updated_at = ? WHERE table_name IN ("+placeholders+")",
		args...)
	if err != nil {
		return fmt.Errorf("stamping version check: %w", err)
	}
	return nil
}

// Reset rewinds a table to its initial state (epoch-zero watermark, idle).
func (s *syncMetadataStore) Reset(ctx context.Context, table string) error {
	return s.update(ctx, table,
		"last_sync = ?, last_sync_id = '', sync_status = ?, error_message = NULL, content_version = NULL, last_version_check = NULL, count_gap = 0",
		domain.FormatTime(domain.EpochZero), string(domain.SyncStatusIdle))
}

// update applies a SET clause to one known table's record and stamps updated_at.
func (s *syncMetadataStore) update(ctx context.Context, table, set string, args ...any) error {
	if _, err := domain.LookupTable(table); err != nil {
		return err
	}
	args = append(args, domain.FormatTime(time.Now()), table)
	n, err := s.gw.Execute(ctx, "UPDATE sync_metadata SET "+set+", updated_at = ? WHERE table_name = ?", args...)
	if err != nil {
		return fmt.Errorf("updating sync metadata of %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: sync metadata for %s", domain.ErrNotFound, table)
	}
	return nil
}

func scanSyncMetadata(row map[string]any) domain.SyncMetadata {
	lastSync := parseTime(row["last_sync"])
	if lastSync.IsZero() {
		lastSync = domain.EpochZero
	}
	return domain.SyncMetadata{
		TableName:        asString(row["table_name"]),
		LastSync:         lastSync,
		LastSyncID:       asString(row["last_sync_id"]),
		SyncStatus:       domain.SyncStatus(asString(row["sync_status"])),
		ErrorMessage:     asString(row["error_message"]),
		ContentVersion:   asString(row["content_version"]),
		LastVersionCheck: parseTime(row["last_version_check"]),
		CountGap:         int(asInt64(row["count_gap"])),
		UpdatedAt:        parseTime(row["updated_at"]),
	}
}
