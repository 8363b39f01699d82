package driven

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// RemoteSource is the read-only query API of the remote backend.
// Implementations report failures as *domain.FetchError so callers can
// decide whether a retry is worthwhile.
type RemoteSource interface {
	// FetchPage returns up to limit rows of table matching filter,
	// ordered by (updated_at ASC, id ASC).
	FetchPage(ctx context.Context, table string, filter domain.PageFilter, limit int) ([]domain.RemoteRecord, error)

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int, error)

	// ContentVersion returns the version the backend publishes for table.
	// Returns an empty string if the backend publishes none.
	ContentVersion(ctx context.Context, table string) (string, error)
}
