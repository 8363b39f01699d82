// Package sqlite provides the embedded SQLite implementation of the local store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store is the local store gateway
// (driven.LocalStore) and every other store is built on top of it:
//
//   - RecordStore: Replicated rows, one local table per remote table
//   - SyncMetadataStore: Per-table watermarks and status
//   - SchedulerStore: Background task state and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Local tables carry no foreign keys: rows may arrive before their parents.
//
// # Data Location
//
// By default, the database is stored at ~/.versesync/data/versesync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
