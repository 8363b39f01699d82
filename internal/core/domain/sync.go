package domain

import "time"

// SyncStatus is the persisted state of a table's sync pipeline.
type SyncStatus string

// Sync statuses.
const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// IsValid returns true if the status is recognised.
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusIdle, SyncStatusSyncing, SyncStatusError:
		return true
	default:
		return false
	}
}

// SyncMetadata is the persisted per-table sync bookkeeping.
type SyncMetadata struct {
	// TableName identifies the table. Exactly one record exists per known table.
	TableName string

	// LastSync is the updated_at of the most recently consumed remote row.
	// It never regresses except on an explicit reset.
	LastSync time.Time

	// LastSyncID is the id of the most recently consumed remote row.
	// Together with LastSync it forms the resume cursor.
	LastSyncID string

	// SyncStatus is the pipeline state.
	SyncStatus SyncStatus

	// ErrorMessage holds the last failure, empty when idle.
	ErrorMessage string

	// ContentVersion is the remote content version last incorporated.
	ContentVersion string

	// LastVersionCheck is when remote versions were last confirmed.
	LastVersionCheck time.Time

	// CountGap is remote minus local row count as left by the last
	// full-range pass. It is non-zero when remote rows failed validation
	// or were deleted remotely, and a count mismatch equal to it is not
	// a reason to sync.
	CountGap int

	// UpdatedAt is when this record was last written.
	UpdatedAt time.Time
}

// Cursor is a position in the (updated_at, id) ordering of a remote table.
type Cursor struct {
	UpdatedAt time.Time
	ID        string
}

// Cursor returns the resume position stored in the metadata.
func (m SyncMetadata) Cursor() Cursor {
	return Cursor{UpdatedAt: m.LastSync, ID: m.LastSyncID}
}

// After reports whether c is strictly beyond other in (updated_at, id) order.
func (c Cursor) After(other Cursor) bool {
	if c.UpdatedAt.Equal(other.UpdatedAt) {
		return c.ID > other.ID
	}
	return c.UpdatedAt.After(other.UpdatedAt)
}

// SyncResult is the outcome of one table's sync attempt.
type SyncResult struct {
	Success       bool
	TableName     string
	RecordsSynced int
	Error         string
	Warning       string
}

// AllTablesName is the table name used for results that concern a whole run.
const AllTablesName = "*"

// VerificationTableName is the table name of completeness verification results.
const VerificationTableName = "sync_verification"

// SyncOptions controls a sync run.
type SyncOptions struct {
	// ForceFullSync ignores stored watermarks and refetches everything.
	ForceFullSync bool

	// BatchSize is the page size requested from the remote. Zero means default.
	BatchSize int

	// Tables restricts the run to a subset of the domain's tables. Empty means all.
	Tables []string

	// IDs restricts fetched rows to the given primary keys. Empty means all.
	IDs []string
}

// SyncProgress is the listener-facing view of a running sync.
type SyncProgress struct {
	// RunID identifies the sync run.
	RunID string

	// Domain is the sync domain being synced.
	Domain string

	// Table is the table that just completed.
	Table string

	// Completed is the number of tables finished so far.
	Completed int

	// Total is the number of tables scheduled in this run.
	Total int

	// Results holds the results collected so far.
	Results []SyncResult

	// Running is false on the final notification of a run.
	Running bool
}

// UpdateReason explains why a table was flagged for sync.
type UpdateReason string

// Update reasons, in the order the change detector evaluates them.
const (
	ReasonVersion       UpdateReason = "version_changed"
	ReasonCountMismatch UpdateReason = "count_mismatch"
	ReasonNewRows       UpdateReason = "new_rows"
)

// UpdateCheck is the result of a needs-update check.
type UpdateCheck struct {
	NeedsUpdate bool
	Tables      []string
	Reasons     map[string]UpdateReason
}

// TableCompleteness compares local and remote row counts for one table.
type TableCompleteness struct {
	TableName   string
	LocalCount  int
	RemoteCount int
	IsComplete  bool
	Difference  int
	Error       string
}

// CompletenessReport aggregates per-table completeness.
type CompletenessReport struct {
	Tables             []TableCompleteness
	TotalTables        int
	CompleteTables     int
	IncompleteTables   int
	TotalLocalRecords  int
	TotalRemoteRecords int
}

// IsComplete reports whether every table is complete.
func (r CompletenessReport) IsComplete() bool {
	return r.IncompleteTables == 0
}

// IncompleteTableNames lists tables whose counts differ.
func (r CompletenessReport) IncompleteTableNames() []string {
	var names []string
	for _, t := range r.Tables {
		if !t.IsComplete {
			names = append(names, t.TableName)
		}
	}
	return names
}

// PageFilter selects the next page of a remote table.
//
// With IDGt empty the page holds rows with updated_at >= UpdatedAtGte.
// With IDGt set it holds rows strictly after the cursor (UpdatedAtGte, IDGt).
type PageFilter struct {
	UpdatedAtGte time.Time
	IDGt         string
	IDs          []string
}

// Matches reports whether a row at (updatedAt, id) falls inside the filter.
func (f PageFilter) Matches(updatedAt time.Time, id string) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, want := range f.IDs {
			if want == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.IDGt == "" {
		return !updatedAt.Before(f.UpdatedAtGte)
	}
	return Cursor{UpdatedAt: updatedAt, ID: id}.After(Cursor{UpdatedAt: f.UpdatedAtGte, ID: f.IDGt})
}

// TableStats describes the local contents of one table.
type TableStats struct {
	TableName string
	RowCount  int

	// Checksum is empty unless it was requested.
	Checksum string
}
