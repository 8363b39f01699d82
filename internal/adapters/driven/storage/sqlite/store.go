package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/versesync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// DefaultParamLimit is the bound-parameter budget per statement. It matches
// the historical SQLITE_MAX_VARIABLE_NUMBER so batches stay portable.
const DefaultParamLimit = 999

// Ensure Store implements the gateway interface.
var _ driven.LocalStore = (*Store)(nil)

// dbtx is the subset of *sql.DB and *sql.Tx the executor needs.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the SQLite local store gateway. The record, sync metadata and
// scheduler stores are views over it.
type Store struct {
	db         *sql.DB
	path       string
	paramLimit int
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.versesync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".versesync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "versesync.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		paramLimit: DefaultParamLimit,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.seedSyncMetadata(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding sync metadata: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{gw: s}
}

// SyncMetadataStore returns a SyncMetadataStore interface backed by this store.
func (s *Store) SyncMetadataStore() driven.SyncMetadataStore {
	return &syncMetadataStore{gw: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{gw: s}
}

// ==================== Gateway ====================

// Execute runs a statement and returns the number of affected rows.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return execute(ctx, s.db, query, args...)
}

// Query runs a query and returns each row as a column-name keyed map.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return queryMaps(ctx, s.db, query, args...)
}

// Transaction runs fn inside a transaction. The transaction commits if fn
// returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx driven.Executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&txExecutor{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ParamLimit is the maximum number of bound parameters per statement.
func (s *Store) ParamLimit() int {
	return s.paramLimit
}

// txExecutor runs statements inside an open transaction.
type txExecutor struct {
	tx *sql.Tx
}

func (e *txExecutor) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return execute(ctx, e.tx, query, args...)
}

func (e *txExecutor) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return queryMaps(ctx, e.tx, query, args...)
}

func execute(ctx context.Context, q dbtx, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func queryMaps(ctx context.Context, q dbtx, query string, args ...any) ([]map[string]any, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []map[string]any //nolint:prealloc // size unknown from query
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// ==================== Migrations ====================

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = s.Transaction(context.Background(), func(tx driven.Executor) error {
			if _, err := tx.Execute(context.Background(), string(content)); err != nil {
				return err
			}
			_, err := tx.Execute(context.Background(), "INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// seedSyncMetadata inserts the initial record of every known table.
// Existing records are left untouched.
func (s *Store) seedSyncMetadata(ctx context.Context) error {
	now := domain.FormatTime(time.Now())
	epoch := domain.FormatTime(domain.EpochZero)

	return s.Transaction(ctx, func(tx driven.Executor) error {
		for _, table := range domain.AllTables() {
			_, err := tx.Execute(ctx, `
				INSERT OR IGNORE INTO sync_metadata (table_name, last_sync, last_sync_id, sync_status, updated_at)
				VALUES (?, ?, '', ?, ?)
			`, table.Name, epoch, string(domain.SyncStatusIdle), now)
			if err != nil {
				return fmt.Errorf("seeding %s: %w", table.Name, err)
			}
		}
		return nil
	})
}

// ==================== Helper Functions ====================

// asString converts a scanned column value to a string. NULL becomes "".
func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// asInt64 converts a scanned column value to an int64. NULL becomes 0.
func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

// parseTime parses a stored timestamp. Returns zero time for NULL or invalid values.
func parseTime(v any) time.Time {
	s := asString(v)
	if s == "" {
		return time.Time{}
	}
	t, err := domain.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatNullableTime formats a time for storage, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return domain.FormatTime(t)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
