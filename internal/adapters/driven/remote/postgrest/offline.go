package postgrest

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

var _ driven.RemoteSource = Offline{}

// Offline stands in for the client while no backend URL is configured.
// Every call fails with a non-transient domain.ErrRemoteNotConfigured, so
// local commands keep working and syncs fail fast.
type Offline struct{}

// NewSource returns a client for cfg, or Offline when cfg has no URL.
func NewSource(cfg Config) (driven.RemoteSource, error) {
	if cfg.URL == "" {
		return Offline{}, nil
	}
	return NewClient(cfg)
}

func (Offline) FetchPage(_ context.Context, table string, _ domain.PageFilter, _ int) ([]domain.RemoteRecord, error) {
	return nil, &domain.FetchError{Table: table, Err: domain.ErrRemoteNotConfigured}
}

func (Offline) Count(_ context.Context, table string) (int, error) {
	return 0, &domain.FetchError{Table: table, Err: domain.ErrRemoteNotConfigured}
}

func (Offline) ContentVersion(_ context.Context, table string) (string, error) {
	return "", &domain.FetchError{Table: table, Err: domain.ErrRemoteNotConfigured}
}
