package services

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/logger"
)

// CompletenessVerifier compares local and remote row counts.
type CompletenessVerifier struct {
	remote  driven.RemoteSource
	records driven.RecordStore
}

// NewCompletenessVerifier creates a completeness verifier.
func NewCompletenessVerifier(remote driven.RemoteSource, records driven.RecordStore) *CompletenessVerifier {
	return &CompletenessVerifier{remote: remote, records: records}
}

// Verify counts every table on both sides. A table whose count cannot be
// read is reported incomplete with the error attached.
func (v *CompletenessVerifier) Verify(ctx context.Context, tables []domain.SyncableTable) (*domain.CompletenessReport, error) {
	report := &domain.CompletenessReport{
		Tables:      make([]domain.TableCompleteness, 0, len(tables)),
		TotalTables: len(tables),
	}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tc := v.verifyTable(ctx, table.Name)
		if tc.IsComplete {
			report.CompleteTables++
		} else {
			report.IncompleteTables++
		}
		report.TotalLocalRecords += tc.LocalCount
		report.TotalRemoteRecords += tc.RemoteCount
		report.Tables = append(report.Tables, tc)
	}

	logger.Debug("completeness: %d/%d tables complete, %d local / %d remote records",
		report.CompleteTables, report.TotalTables, report.TotalLocalRecords, report.TotalRemoteRecords)
	return report, nil
}

func (v *CompletenessVerifier) verifyTable(ctx context.Context, table string) domain.TableCompleteness {
	tc := domain.TableCompleteness{TableName: table}

	local, err := v.records.Count(ctx, table)
	if err != nil {
		tc.Error = "local count: " + err.Error()
		return tc
	}
	tc.LocalCount = local

	remote, err := v.remote.Count(ctx, table)
	if err != nil {
		tc.Error = "remote count: " + err.Error()
		return tc
	}
	tc.RemoteCount = remote

	tc.Difference = remote - local
	if tc.Difference < 0 {
		tc.Difference = -tc.Difference
	}
	tc.IsComplete = tc.Difference == 0
	return tc
}
