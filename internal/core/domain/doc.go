// Package domain defines the core business entities for versesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SyncableTable: A replicated table and its dependency on a parent table
//   - Record: A validated row, one closed variant per table
//   - SyncMetadata: Persisted per-table watermark and status
//   - SyncResult: The outcome of one table's sync attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
