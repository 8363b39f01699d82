package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// SyncMetadataStore persists per-table sync watermarks and status.
// It is the only writer of sync metadata.
type SyncMetadataStore interface {
	// Get returns the metadata of one table.
	// Returns domain.ErrNotFound for tables without a record.
	Get(ctx context.Context, table string) (*domain.SyncMetadata, error)

	// List returns the metadata of every table.
	List(ctx context.Context) ([]domain.SyncMetadata, error)

	// SetStatus records the pipeline status and error message.
	SetStatus(ctx context.Context, table string, status domain.SyncStatus, errMsg string) error

	// AdvanceWatermark moves the resume cursor forward.
	// A cursor that is not after the stored one is ignored.
	AdvanceWatermark(ctx context.Context, table string, cursor domain.Cursor) error

	// SetContentVersion records the remote content version incorporated locally.
	SetContentVersion(ctx context.Context, table, version string) error

	// TouchVersionCheck stamps last_version_check on the given tables.
	TouchVersionCheck(ctx context.Context, tables []string, at time.Time) error

	// SetCountGap records the remote minus local row count a full-range
	// pass could not close.
	SetCountGap(ctx context.Context, table string, gap int) error

	// Reset rewinds a table to its initial state (epoch-zero watermark, idle, no count gap).
	Reset(ctx context.Context, table string) error
}
