package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/logger"
)

// TablePipeline replicates one table: it pages through remote rows in
// (updated_at, id) order, validates them, upserts them locally and
// advances the table's watermark after every applied page.
type TablePipeline struct {
	table    domain.SyncableTable
	remote   driven.RemoteSource
	records  driven.RecordStore
	metadata driven.SyncMetadataStore
	retry    RetryPolicy
	now      func() time.Time
}

// NewTablePipeline creates a pipeline for table.
func NewTablePipeline(
	table domain.SyncableTable,
	remote driven.RemoteSource,
	records driven.RecordStore,
	metadata driven.SyncMetadataStore,
	retry RetryPolicy,
) *TablePipeline {
	return &TablePipeline{
		table:    table,
		remote:   remote,
		records:  records,
		metadata: metadata,
		retry:    retry,
		now:      time.Now,
	}
}

// Sync pulls every remote row after the table's cursor (or every row when
// opts.ForceFullSync is set). Failures are reported in the result, never
// returned.
func (p *TablePipeline) Sync(ctx context.Context, opts domain.SyncOptions) domain.SyncResult {
	name := p.table.Name

	if err := p.metadata.SetStatus(ctx, name, domain.SyncStatusSyncing, ""); err != nil {
		return p.fail(ctx, fmt.Errorf("mark syncing: %w", err))
	}

	cursor := domain.Cursor{UpdatedAt: domain.EpochZero}
	if !opts.ForceFullSync {
		meta, err := p.metadata.Get(ctx, name)
		switch {
		case err == nil:
			cursor = meta.Cursor()
		case !errors.Is(err, domain.ErrNotFound):
			return p.fail(ctx, fmt.Errorf("get sync metadata: %w", err))
		}
	}

	limit := domain.ClampBatchSize(opts.BatchSize)
	logger.Debug("syncing %s from %s (id > %q), page size %d",
		name, domain.FormatTime(cursor.UpdatedAt), cursor.ID, limit)

	synced := 0
	for page := 1; ; page++ {
		filter := domain.PageFilter{UpdatedAtGte: cursor.UpdatedAt, IDGt: cursor.ID, IDs: opts.IDs}
		rows, err := retryFetch(ctx, p.retry, fmt.Sprintf("fetch %s page %d", name, page),
			func() ([]domain.RemoteRecord, error) {
				return p.remote.FetchPage(ctx, name, filter, limit)
			})
		if err != nil {
			return p.fail(ctx, fmt.Errorf("fetch page %d: %w", page, err))
		}
		if len(rows) == 0 {
			break
		}

		records, last := p.decode(rows)
		if err := p.apply(ctx, records); err != nil {
			return p.fail(ctx, err)
		}
		synced += len(records)

		switch {
		case last.After(cursor):
			if err := p.metadata.AdvanceWatermark(ctx, name, last); err != nil {
				return p.fail(ctx, fmt.Errorf("advance watermark: %w", err))
			}
			cursor = last
		case len(rows) >= limit:
			return p.fail(ctx, fmt.Errorf("page %d did not advance past %s/%s",
				page, domain.FormatTime(cursor.UpdatedAt), cursor.ID))
		}

		if len(rows) < limit {
			break
		}
	}

	if err := p.metadata.SetStatus(ctx, name, domain.SyncStatusIdle, ""); err != nil {
		return p.fail(ctx, fmt.Errorf("mark idle: %w", err))
	}

	logger.Info("synced %d %s records", synced, name)
	return domain.SyncResult{Success: true, TableName: name, RecordsSynced: synced}
}

// decode validates rows, dropping invalid ones. It returns the survivors
// and the cursor of the last row that carried a usable position.
func (p *TablePipeline) decode(rows []domain.RemoteRecord) ([]domain.Record, domain.Cursor) {
	syncedAt := p.now().UTC()
	records := make([]domain.Record, 0, len(rows))
	var last domain.Cursor

	for _, raw := range rows {
		if id := raw.ID(); id != "" {
			if updatedAt, err := raw.UpdatedAt(); err == nil {
				last = domain.Cursor{UpdatedAt: updatedAt, ID: id}
			}
		}

		rec, warnings, err := p.table.Decode(raw, syncedAt)
		for _, w := range warnings {
			logger.Warn("%s row %s: %s", p.table.Name, raw.ID(), w)
		}
		if err != nil {
			logger.Warn("dropping row: %v", err)
			continue
		}
		records = append(records, rec)
	}

	return records, last
}

// apply upserts records in sub-batches sized to the store's bound
// parameter limit, one transaction per sub-batch.
func (p *TablePipeline) apply(ctx context.Context, records []domain.Record) error {
	size := SubBatchSize(p.records.ParamLimit(), len(p.table.Columns))
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		if err := p.records.Upsert(ctx, p.table.Name, records[start:end]); err != nil {
			return &domain.PersistenceError{Table: p.table.Name, Op: "upsert", Err: err}
		}
	}
	return nil
}

// fail marks the table as errored and builds the failure result.
func (p *TablePipeline) fail(ctx context.Context, err error) domain.SyncResult {
	logger.Error("sync %s failed: %v", p.table.Name, err)

	// The caller's context may already be done; the status write must still land.
	statusCtx := context.WithoutCancel(ctx)
	if setErr := p.metadata.SetStatus(statusCtx, p.table.Name, domain.SyncStatusError, err.Error()); setErr != nil {
		logger.Error("mark %s errored: %v", p.table.Name, setErr)
	}

	return domain.SyncResult{
		Success:   false,
		TableName: p.table.Name,
		Error:     err.Error(),
	}
}

// SubBatchSize returns how many rows of columns values fit under
// paramLimit bound parameters. It is at least 1.
func SubBatchSize(paramLimit, columns int) int {
	if columns <= 0 {
		return 1
	}
	return max(paramLimit/columns, 1)
}
