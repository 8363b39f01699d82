package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/logger"
)

// ChangeDetector decides which tables have remote changes to pull.
// It never writes sync metadata.
type ChangeDetector struct {
	remote   driven.RemoteSource
	records  driven.RecordStore
	metadata driven.SyncMetadataStore
	cache    *VersionCache
}

// NewChangeDetector creates a change detector.
func NewChangeDetector(
	remote driven.RemoteSource,
	records driven.RecordStore,
	metadata driven.SyncMetadataStore,
	cache *VersionCache,
) *ChangeDetector {
	return &ChangeDetector{
		remote:   remote,
		records:  records,
		metadata: metadata,
		cache:    cache,
	}
}

// NeedsUpdate checks each table and flags it on the first positive signal:
// a changed content version, a row count mismatch other than the table's
// recorded count gap, or a row after the stored cursor. Remote failures leave the table unflagged.
func (d *ChangeDetector) NeedsUpdate(ctx context.Context, tables []domain.SyncableTable) (*domain.UpdateCheck, error) {
	check := &domain.UpdateCheck{Reasons: make(map[string]domain.UpdateReason)}

	for _, table := range tables {
		reason, err := d.checkTable(ctx, table)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			continue
		}
		logger.Debug("%s needs update: %s", table.Name, reason)
		check.Tables = append(check.Tables, table.Name)
		check.Reasons[table.Name] = reason
	}

	check.NeedsUpdate = len(check.Tables) > 0
	return check, nil
}

// checkTable returns the reason table needs syncing, or "" if it does not.
// Only local failures are returned as errors.
func (d *ChangeDetector) checkTable(ctx context.Context, table domain.SyncableTable) (domain.UpdateReason, error) {
	meta, err := d.metadata.Get(ctx, table.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get sync metadata for %s: %w", table.Name, err)
	}
	if meta == nil {
		meta = &domain.SyncMetadata{TableName: table.Name, LastSync: domain.EpochZero}
	}

	version, err := d.RemoteVersion(ctx, table.Name)
	if err != nil {
		logger.Warn("version check for %s failed: %v", table.Name, err)
		return "", nil
	}
	if version != "" && version != meta.ContentVersion {
		return domain.ReasonVersion, nil
	}

	remoteCount, err := d.remote.Count(ctx, table.Name)
	if err != nil {
		logger.Warn("remote count for %s failed: %v", table.Name, err)
		return "", nil
	}
	localCount, err := d.records.Count(ctx, table.Name)
	if err != nil {
		return "", fmt.Errorf("count local %s: %w", table.Name, err)
	}
	if remoteCount-localCount != meta.CountGap {
		return domain.ReasonCountMismatch, nil
	}

	cursor := meta.Cursor()
	rows, err := d.remote.FetchPage(ctx, table.Name, domain.PageFilter{
		UpdatedAtGte: cursor.UpdatedAt,
		IDGt:         cursor.ID,
	}, 1)
	if err != nil {
		logger.Warn("new-row check for %s failed: %v", table.Name, err)
		return "", nil
	}
	if len(rows) > 0 {
		return domain.ReasonNewRows, nil
	}

	return "", nil
}

// RemoteVersion returns the remote content version of table, consulting
// the cache first and filling it on a miss.
func (d *ChangeDetector) RemoteVersion(ctx context.Context, table string) (string, error) {
	if version, ok := d.cache.Get(table); ok {
		return version, nil
	}
	version, err := d.remote.ContentVersion(ctx, table)
	if err != nil {
		return "", err
	}
	d.cache.Set(table, version)
	return version, nil
}
