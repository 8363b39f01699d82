package driving

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// SyncListener receives progress notifications from a sync run.
type SyncListener func(progress domain.SyncProgress)

// SyncService replicates one sync domain from the remote backend.
type SyncService interface {
	// Domain returns the sync domain this service replicates.
	Domain() string

	// Tables returns the domain's tables in dependency order.
	Tables() []string

	// SyncAll brings the local tables up to date. It never returns an
	// error for per-table failures; those are reported as results.
	SyncAll(ctx context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error)

	// ForceFullSync refetches every row and verifies completeness afterwards.
	ForceFullSync(ctx context.Context) ([]domain.SyncResult, error)

	// NeedsUpdate reports whether any table has changes to pull.
	NeedsUpdate(ctx context.Context) (*domain.UpdateCheck, error)

	// VerifySyncCompleteness compares local and remote row counts.
	VerifySyncCompleteness(ctx context.Context) (*domain.CompletenessReport, error)

	// GetSyncMetadata returns the metadata of table, or of every table in
	// the domain when table is empty.
	GetSyncMetadata(ctx context.Context, table string) ([]domain.SyncMetadata, error)

	// LocalStats reports row counts, and optionally checksums, of table
	// (every table when empty) without contacting the remote.
	LocalStats(ctx context.Context, table string, withChecksum bool) ([]domain.TableStats, error)

	// ResetSyncMetadata rewinds table (every table when empty) so the
	// next sync is full.
	ResetSyncMetadata(ctx context.Context, table string) error

	// ClearLocalData deletes the local rows of table (every table when
	// empty) and resets its metadata.
	ClearLocalData(ctx context.Context, table string) error

	// IsSyncInProgress reports whether a run is active.
	IsSyncInProgress() bool

	// OnSync registers a progress listener and returns a function that
	// removes it.
	OnSync(listener SyncListener) (unsubscribe func())
}

// BackgroundSync schedules periodic sync runs on the host.
type BackgroundSync interface {
	// Register registers the periodic task with the host. Repeated
	// calls are no-ops.
	Register(ctx context.Context) error

	// Unregister removes the periodic task.
	Unregister(ctx context.Context) error

	// IsRegistered reports whether the task is registered.
	IsRegistered() bool

	// Run executes one background cycle.
	Run(ctx context.Context) domain.BackgroundResult
}
