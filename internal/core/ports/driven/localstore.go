package driven

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// Executor runs parameterised statements.
type Executor interface {
	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a query and returns each row as a column-name keyed map.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// LocalStore is the gateway to the embedded relational store.
type LocalStore interface {
	Executor

	// Transaction runs fn inside a transaction. The transaction commits if fn
	// returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Executor) error) error

	// ParamLimit is the maximum number of bound parameters per statement.
	ParamLimit() int
}

// RecordStore persists validated records into their local tables.
type RecordStore interface {
	// Upsert writes records into table in a single transaction,
	// replacing rows with the same primary key.
	Upsert(ctx context.Context, table string, records []domain.Record) error

	// Count returns the number of local rows in table.
	Count(ctx context.Context, table string) (int, error)

	// Clear deletes all local rows of table.
	Clear(ctx context.Context, table string) error

	// Checksum returns an order-independent digest of the (id, updated_at)
	// pairs stored in table.
	Checksum(ctx context.Context, table string) (string, error)

	// ParamLimit is the maximum number of bound parameters per statement.
	ParamLimit() int
}
