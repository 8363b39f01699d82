package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
	"github.com/custodia-labs/versesync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncService = (*SyncOrchestrator)(nil)

const tracerName = "github.com/custodia-labs/versesync/internal/core/services"

// SyncOrchestrator replicates the tables of one sync domain.
// At most one run is in flight at a time; concurrent callers get a
// warning result instead of waiting.
type SyncOrchestrator struct {
	domainName string
	tables     []domain.SyncableTable
	batchSize  int

	remote   driven.RemoteSource
	records  driven.RecordStore
	metadata driven.SyncMetadataStore

	cache    *VersionCache
	detector *ChangeDetector
	verifier *CompletenessVerifier
	retry    RetryPolicy
	tracer   trace.Tracer
	now      func() time.Time

	inFlight atomic.Bool

	mu             sync.Mutex
	listeners      []listenerEntry
	nextListenerID int
}

type listenerEntry struct {
	id int
	fn driving.SyncListener
}

// NewSyncOrchestrator creates an orchestrator for the named sync domain.
func NewSyncOrchestrator(
	domainName string,
	remote driven.RemoteSource,
	records driven.RecordStore,
	metadata driven.SyncMetadataStore,
	settings domain.SyncSettings,
) (*SyncOrchestrator, error) {
	tables := domain.TablesForDomain(domainName)
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, domainName)
	}

	ttl := settings.VersionCacheTTL
	if ttl <= 0 {
		ttl = domain.DefaultVersionCacheTTL
	}
	retry := DefaultRetryPolicy()
	if settings.MaxFetchAttempts > 0 {
		retry.MaxAttempts = settings.MaxFetchAttempts
	}

	cache := NewVersionCache(ttl)
	return &SyncOrchestrator{
		domainName: domainName,
		tables:     tables,
		batchSize:  domain.ClampBatchSize(settings.BatchSize),
		remote:     remote,
		records:    records,
		metadata:   metadata,
		cache:      cache,
		detector:   NewChangeDetector(remote, records, metadata, cache),
		verifier:   NewCompletenessVerifier(remote, records),
		retry:      retry,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}, nil
}

// Domain returns the sync domain this orchestrator replicates.
func (o *SyncOrchestrator) Domain() string {
	return o.domainName
}

// Tables returns the domain's tables in dependency order.
func (o *SyncOrchestrator) Tables() []string {
	return domain.TableNames(o.tables)
}

// IsSyncInProgress reports whether a run is active.
func (o *SyncOrchestrator) IsSyncInProgress() bool {
	return o.inFlight.Load()
}

// SyncAll brings the domain's tables up to date.
// The only errors returned are for invalid options.
func (o *SyncOrchestrator) SyncAll(ctx context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error) {
	tables, err := o.selectTables(opts.Tables)
	if err != nil {
		return nil, err
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		logger.Warn("%s sync requested while another run is in flight", o.domainName)
		return []domain.SyncResult{{
			Success:   true,
			TableName: domain.AllTablesName,
			Warning:   domain.ErrSyncInProgress.Error(),
		}}, nil
	}
	defer o.inFlight.Store(false)

	if opts.BatchSize <= 0 {
		opts.BatchSize = o.batchSize
	}

	runID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "sync.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sync.domain", o.domainName),
			attribute.String("sync.run_id", runID),
			attribute.Bool("sync.force", opts.ForceFullSync),
			attribute.Int("sync.batch_size", opts.BatchSize),
		),
	)
	defer span.End()

	logger.Section(fmt.Sprintf("Sync %s (%s)", o.domainName, runID))
	results := o.run(ctx, runID, tables, opts)

	for _, r := range results {
		if !r.Success {
			span.SetStatus(codes.Error, r.TableName+": "+r.Error)
			break
		}
	}

	o.notify(domain.SyncProgress{
		RunID:     runID,
		Domain:    o.domainName,
		Completed: len(tables),
		Total:     len(tables),
		Results:   slices.Clone(results),
		Running:   false,
	})
	return results, nil
}

// ForceFullSync refetches every row of every table, then verifies
// completeness with one bounded recovery attempt.
func (o *SyncOrchestrator) ForceFullSync(ctx context.Context) ([]domain.SyncResult, error) {
	return o.SyncAll(ctx, domain.SyncOptions{ForceFullSync: true})
}

// NeedsUpdate reports whether any table has changes to pull.
func (o *SyncOrchestrator) NeedsUpdate(ctx context.Context) (*domain.UpdateCheck, error) {
	return o.detector.NeedsUpdate(ctx, o.tables)
}

// VerifySyncCompleteness compares local and remote row counts.
func (o *SyncOrchestrator) VerifySyncCompleteness(ctx context.Context) (*domain.CompletenessReport, error) {
	return o.verifier.Verify(ctx, o.tables)
}

// run executes one sync run. The in-flight flag is held by the caller.
func (o *SyncOrchestrator) run(
	ctx context.Context,
	runID string,
	tables []domain.SyncableTable,
	opts domain.SyncOptions,
) []domain.SyncResult {
	var reconcile map[string]bool

	if !opts.ForceFullSync {
		check, err := o.detector.NeedsUpdate(ctx, tables)
		if err != nil {
			logger.Error("change detection failed: %v", err)
			return []domain.SyncResult{{TableName: domain.AllTablesName, Error: err.Error()}}
		}
		if !check.NeedsUpdate {
			logger.Info("%s is up to date", o.domainName)
			return []domain.SyncResult{{Success: true, TableName: domain.AllTablesName}}
		}

		reconcile = make(map[string]bool)
		for table, reason := range check.Reasons {
			if reason == domain.ReasonCountMismatch {
				reconcile[table] = true
			}
		}
	}

	results := o.syncTables(ctx, runID, tables, opts, reconcile)

	var succeeded []string
	for _, r := range results {
		if r.Success {
			succeeded = append(succeeded, r.TableName)
		}
	}
	if len(succeeded) > 0 {
		o.recordVersionCheck(ctx, succeeded, len(opts.IDs) == 0)
	}

	if opts.ForceFullSync && len(opts.IDs) == 0 {
		if r := o.verifyAndRecover(ctx, runID, tables, opts.BatchSize); r != nil {
			results = append(results, *r)
		}
	}

	return results
}

// syncTables runs the pipelines in dependency order. A table whose parent
// is part of the run but did not succeed is skipped without a result.
// A pass over a whole table from the start records its count gap. Tables
// in reconcile get their counts rechecked after an incremental pass.
func (o *SyncOrchestrator) syncTables(
	ctx context.Context,
	runID string,
	tables []domain.SyncableTable,
	opts domain.SyncOptions,
	reconcile map[string]bool,
) []domain.SyncResult {
	selected := make(map[string]bool, len(tables))
	for _, t := range tables {
		selected[t.Name] = true
	}
	succeeded := make(map[string]bool, len(tables))
	results := make([]domain.SyncResult, 0, len(tables))

	for i, table := range tables {
		if table.HasParent() && selected[table.Parent] && !succeeded[table.Parent] {
			logger.Warn("skipping %s: %s did not sync in this run", table.Name, table.Parent)
			continue
		}

		tableOpts := domain.SyncOptions{
			ForceFullSync: opts.ForceFullSync,
			BatchSize:     opts.BatchSize,
			IDs:           opts.IDs,
		}
		wholeTable := len(opts.IDs) == 0
		fromStart := wholeTable && (opts.ForceFullSync || o.atStart(ctx, table.Name))

		result := o.syncTable(ctx, table, tableOpts)
		if result.Success {
			switch {
			case fromStart:
				if tc := o.verifier.verifyTable(ctx, table.Name); tc.Error == "" {
					o.recordCountGap(ctx, tc)
				}
			case wholeTable && reconcile[table.Name]:
				result = o.reconcileTable(ctx, table, tableOpts, result)
			}
		}
		results = append(results, result)
		if result.Success {
			succeeded[table.Name] = true
		}

		o.notify(domain.SyncProgress{
			RunID:     runID,
			Domain:    o.domainName,
			Table:     table.Name,
			Completed: i + 1,
			Total:     len(tables),
			Results:   slices.Clone(results),
			Running:   true,
		})
	}

	return results
}

func (o *SyncOrchestrator) syncTable(ctx context.Context, table domain.SyncableTable, opts domain.SyncOptions) domain.SyncResult {
	ctx, span := o.tracer.Start(ctx, "sync.table",
		trace.WithAttributes(
			attribute.String("sync.table", table.Name),
			attribute.Bool("sync.full_range", opts.ForceFullSync),
		),
	)
	defer span.End()

	pipeline := NewTablePipeline(table, o.remote, o.records, o.metadata, o.retry)
	pipeline.now = o.now
	result := pipeline.Sync(ctx, opts)

	span.SetAttributes(attribute.Int("sync.records", result.RecordsSynced))
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

// atStart reports whether table's cursor is at the beginning, so the next
// pass covers the full range.
func (o *SyncOrchestrator) atStart(ctx context.Context, table string) bool {
	meta, err := o.metadata.Get(ctx, table)
	if err != nil {
		return false
	}
	return meta.LastSyncID == "" && !meta.LastSync.After(domain.EpochZero)
}

// reconcileTable resyncs table from the start when its row count still
// differs from the remote after an incremental pass. Rows backdated below
// the watermark are only reachable this way. The gap a full-range pass
// leaves is recorded so the same mismatch does not trigger another resync.
func (o *SyncOrchestrator) reconcileTable(
	ctx context.Context,
	table domain.SyncableTable,
	opts domain.SyncOptions,
	incremental domain.SyncResult,
) domain.SyncResult {
	tc := o.verifier.verifyTable(ctx, table.Name)
	if tc.Error != "" {
		return incremental
	}
	if tc.IsComplete {
		o.recordCountGap(ctx, tc)
		return incremental
	}

	logger.Info("%s differs from remote by %d rows, resyncing full range", table.Name, tc.Difference)
	opts.ForceFullSync = true
	full := o.syncTable(ctx, table, opts)
	if full.Success {
		if tc = o.verifier.verifyTable(ctx, table.Name); tc.Error == "" {
			o.recordCountGap(ctx, tc)
		}
	}
	return full
}

// recordCountGap stores the remote minus local count of a table that has
// just been read over its full range.
func (o *SyncOrchestrator) recordCountGap(ctx context.Context, tc domain.TableCompleteness) {
	gap := tc.RemoteCount - tc.LocalCount
	if gap != 0 {
		logger.Warn("%s keeps a gap of %d rows after a full-range sync", tc.TableName, gap)
	}
	if err := o.metadata.SetCountGap(ctx, tc.TableName, gap); err != nil {
		logger.Warn("store count gap of %s: %v", tc.TableName, err)
	}
}

// recordVersionCheck stamps last_version_check on every table and, when
// the run covered whole tables, stores the content version the
// successful tables now reflect.
func (o *SyncOrchestrator) recordVersionCheck(ctx context.Context, succeeded []string, storeVersions bool) {
	if err := o.metadata.TouchVersionCheck(ctx, domain.TableNames(o.tables), o.now().UTC()); err != nil {
		logger.Warn("stamp version check: %v", err)
	}
	if !storeVersions {
		return
	}

	for _, name := range succeeded {
		version, err := o.detector.RemoteVersion(ctx, name)
		if err != nil {
			logger.Warn("read content version of %s: %v", name, err)
			continue
		}
		if version == "" {
			continue
		}
		if err := o.metadata.SetContentVersion(ctx, name, version); err != nil {
			logger.Warn("store content version of %s: %v", name, err)
		}
	}
}

// verifyAndRecover checks completeness after a full sync. On a mismatch it
// resets every table and runs one more full sync before giving up.
// Returns nil when the first verification passes.
func (o *SyncOrchestrator) verifyAndRecover(
	ctx context.Context,
	runID string,
	tables []domain.SyncableTable,
	batchSize int,
) *domain.SyncResult {
	report, err := o.verifier.Verify(ctx, tables)
	if err != nil {
		return verificationFailure(fmt.Errorf("verify completeness: %w", err))
	}
	if report.IsComplete() {
		o.recordCountGaps(ctx, report)
		return nil
	}

	mismatched := strings.Join(report.IncompleteTableNames(), ", ")
	logger.Warn("%v in %s after full sync, retrying once", domain.ErrCompletenessMismatch, mismatched)

	for _, table := range tables {
		if err := o.metadata.Reset(ctx, table.Name); err != nil {
			return verificationFailure(fmt.Errorf("reset %s: %w", table.Name, err))
		}
		o.cache.Invalidate(table.Name)
	}

	for _, r := range o.syncTables(ctx, runID, tables, domain.SyncOptions{ForceFullSync: true, BatchSize: batchSize}, nil) {
		if !r.Success {
			logger.Warn("recovery sync of %s failed: %s", r.TableName, r.Error)
		}
	}

	report, err = o.verifier.Verify(ctx, tables)
	if err != nil {
		return verificationFailure(fmt.Errorf("verify completeness: %w", err))
	}
	o.recordCountGaps(ctx, report)
	if !report.IsComplete() {
		return verificationFailure(fmt.Errorf("%w in %s",
			domain.ErrCompletenessMismatch, strings.Join(report.IncompleteTableNames(), ", ")))
	}

	return &domain.SyncResult{
		Success:   true,
		TableName: domain.VerificationTableName,
		Warning:   fmt.Sprintf("%v in %s resolved by a full resync", domain.ErrCompletenessMismatch, mismatched),
	}
}

func (o *SyncOrchestrator) recordCountGaps(ctx context.Context, report *domain.CompletenessReport) {
	for _, tc := range report.Tables {
		if tc.Error == "" {
			o.recordCountGap(ctx, tc)
		}
	}
}

func verificationFailure(err error) *domain.SyncResult {
	logger.Error("%v", err)
	return &domain.SyncResult{TableName: domain.VerificationTableName, Error: err.Error()}
}

// OnSync registers a progress listener. Listeners run synchronously in
// registration order; a panicking listener does not affect the others.
func (o *SyncOrchestrator) OnSync(listener driving.SyncListener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextListenerID++
	id := o.nextListenerID
	o.listeners = append(o.listeners, listenerEntry{id: id, fn: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.listeners = slices.DeleteFunc(o.listeners, func(e listenerEntry) bool {
				return e.id == id
			})
		})
	}
}

func (o *SyncOrchestrator) notify(progress domain.SyncProgress) {
	o.mu.Lock()
	listeners := slices.Clone(o.listeners)
	o.mu.Unlock()

	for _, l := range listeners {
		callListener(l.fn, progress)
	}
}

func callListener(fn driving.SyncListener, progress domain.SyncProgress) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sync listener panicked: %v", r)
		}
	}()
	fn(progress)
}

// GetSyncMetadata returns the metadata of table, or of every table in the
// domain when table is empty.
func (o *SyncOrchestrator) GetSyncMetadata(ctx context.Context, table string) ([]domain.SyncMetadata, error) {
	if table != "" {
		t, err := o.lookupTable(table)
		if err != nil {
			return nil, err
		}
		meta, err := o.metadata.Get(ctx, t.Name)
		if err != nil {
			return nil, fmt.Errorf("get sync metadata: %w", err)
		}
		return []domain.SyncMetadata{*meta}, nil
	}

	all, err := o.metadata.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sync metadata: %w", err)
	}
	byName := make(map[string]domain.SyncMetadata, len(all))
	for _, m := range all {
		byName[m.TableName] = m
	}

	result := make([]domain.SyncMetadata, 0, len(o.tables))
	for _, t := range o.tables {
		if m, ok := byName[t.Name]; ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// LocalStats reports the local row count of table (every table when
// empty) and, when withChecksum is set, its content checksum.
func (o *SyncOrchestrator) LocalStats(ctx context.Context, table string, withChecksum bool) ([]domain.TableStats, error) {
	targets, err := o.targets(table)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.TableStats, 0, len(targets))
	for _, t := range targets {
		n, err := o.records.Count(ctx, t.Name)
		if err != nil {
			return nil, &domain.PersistenceError{Table: t.Name, Op: "count", Err: err}
		}
		st := domain.TableStats{TableName: t.Name, RowCount: n}
		if withChecksum {
			sum, err := o.records.Checksum(ctx, t.Name)
			if err != nil {
				return nil, &domain.PersistenceError{Table: t.Name, Op: "checksum", Err: err}
			}
			st.Checksum = sum
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// ResetSyncMetadata rewinds table (every table when empty) so the next
// sync refetches from the beginning.
func (o *SyncOrchestrator) ResetSyncMetadata(ctx context.Context, table string) error {
	targets, err := o.targets(table)
	if err != nil {
		return err
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return domain.ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	return o.reset(ctx, targets)
}

// ClearLocalData deletes the local rows of table (every table when empty),
// children first, and resets their metadata.
func (o *SyncOrchestrator) ClearLocalData(ctx context.Context, table string) error {
	targets, err := o.targets(table)
	if err != nil {
		return err
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return domain.ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	for _, t := range slices.Backward(targets) {
		if err := o.records.Clear(ctx, t.Name); err != nil {
			return &domain.PersistenceError{Table: t.Name, Op: "clear", Err: err}
		}
	}
	return o.reset(ctx, targets)
}

// reset rewinds the metadata of targets. The in-flight flag is held by
// the caller.
func (o *SyncOrchestrator) reset(ctx context.Context, targets []domain.SyncableTable) error {
	for _, t := range targets {
		if err := o.metadata.Reset(ctx, t.Name); err != nil {
			return fmt.Errorf("reset %s: %w", t.Name, err)
		}
		o.cache.Invalidate(t.Name)
	}
	logger.Info("reset sync metadata for %s", strings.Join(domain.TableNames(targets), ", "))
	return nil
}

// targets resolves an optional table name to the tables it addresses.
func (o *SyncOrchestrator) targets(table string) ([]domain.SyncableTable, error) {
	if table == "" {
		return o.tables, nil
	}
	t, err := o.lookupTable(table)
	if err != nil {
		return nil, err
	}
	return []domain.SyncableTable{t}, nil
}

// selectTables returns the named tables in dependency order.
func (o *SyncOrchestrator) selectTables(names []string) ([]domain.SyncableTable, error) {
	if len(names) == 0 {
		return o.tables, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := o.lookupTable(name); err != nil {
			return nil, err
		}
		wanted[name] = true
	}

	selected := make([]domain.SyncableTable, 0, len(wanted))
	for _, t := range o.tables {
		if wanted[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

func (o *SyncOrchestrator) lookupTable(name string) (domain.SyncableTable, error) {
	t, err := domain.LookupTable(name)
	if err != nil {
		return domain.SyncableTable{}, err
	}
	if t.Domain != o.domainName {
		return domain.SyncableTable{}, fmt.Errorf("%w: %s is not in %s", domain.ErrUnknownTable, name, o.domainName)
	}
	return t, nil
}
