package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// recordStore implements driven.RecordStore on the gateway.
type recordStore struct {
	gw driven.LocalStore
}

var _ driven.RecordStore = (*recordStore)(nil)

// NewRecordStore creates a record store on any local store gateway.
func NewRecordStore(gw driven.LocalStore) driven.RecordStore {
	return &recordStore{gw: gw}
}

// Upsert writes records into table in a single transaction using
// multi-row INSERT OR REPLACE statements sized to the parameter limit.
func (s *recordStore) Upsert(ctx context.Context, table string, records []domain.Record) error {
	st, err := domain.LookupTable(table)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if r.Table() != table {
			return fmt.Errorf("%w: %s record in %s batch", domain.ErrInvalidInput, r.Table(), table)
		}
	}

	perStatement := max(s.gw.ParamLimit()/len(st.Columns), 1)

	return s.gw.Transaction(ctx, func(tx driven.Executor) error {
		for start := 0; start < len(records); start += perStatement {
			end := min(start+perStatement, len(records))
			query, args := upsertStatement(st, records[start:end])
			if _, err := tx.Execute(ctx, query, args...); err != nil {
				return fmt.Errorf("upserting %s: %w", table, err)
			}
		}
		return nil
	})
}

// upsertStatement builds "INSERT OR REPLACE INTO t (cols) VALUES (?,..),(?,..)".
func upsertStatement(st domain.SyncableTable, records []domain.Record) (string, []any) {
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(st.Columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT OR REPLACE INTO %s (%s) VALUES ", st.Name, strings.Join(st.Columns, ", "))

	args := make([]any, 0, len(records)*len(st.Columns))
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, r.Values()...)
	}
	return b.String(), args
}

// Count returns the number of local rows in table.
func (s *recordStore) Count(ctx context.Context, table string) (int, error) {
	if _, err := domain.LookupTable(table); err != nil {
		return 0, err
	}
	rows, err := s.gw.Query(ctx, "SELECT COUNT(*) AS n FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(asInt64(rows[0]["n"])), nil
}

// Clear deletes all local rows of table.
func (s *recordStore) Clear(ctx context.Context, table string) error {
	if _, err := domain.LookupTable(table); err != nil {
		return err
	}
	if _, err := s.gw.Execute(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	return nil
}

// Checksum returns an order-independent digest of the (id, updated_at) pairs.
func (s *recordStore) Checksum(ctx context.Context, table string) (string, error) {
	if _, err := domain.LookupTable(table); err != nil {
		return "", err
	}
	rows, err := s.gw.Query(ctx, "SELECT id, updated_at FROM "+table)
	if err != nil {
		return "", fmt.Errorf("reading %s for checksum: %w", table, err)
	}

	stamps := make([]domain.RowStamp, len(rows))
	for i, row := range rows {
		stamps[i] = domain.RowStamp{ID: asString(row["id"]), UpdatedAt: asString(row["updated_at"])}
	}
	return domain.Checksum(stamps), nil
}

// ParamLimit is the maximum number of bound parameters per statement.
func (s *recordStore) ParamLimit() int {
	return s.gw.ParamLimit()
}
