package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// BackgroundTask is the callback a host invokes periodically.
type BackgroundTask func(ctx context.Context) domain.BackgroundResult

// BackgroundHost is the host's periodic background execution facility.
// The host decides when tasks actually run; minInterval is only a hint.
type BackgroundHost interface {
	// RegisterPeriodicTask registers fn under id.
	RegisterPeriodicTask(ctx context.Context, id string, minInterval time.Duration, fn BackgroundTask) error

	// UnregisterTask removes a task. Unknown ids are ignored.
	UnregisterTask(ctx context.Context, id string) error

	// IsTaskRegistered reports whether id is registered.
	IsTaskRegistered(id string) bool

	// Status reports whether background execution is permitted.
	Status() domain.BackgroundStatus
}
