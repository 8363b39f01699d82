package driven

import (
	"context"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// SchedulerStore persists background task state so intervals and the
// sync cooldown survive restarts, along with a bounded run history.
type SchedulerStore interface {
	// GetTask returns the task with taskID, or nil and no error when
	// it has never been saved.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every saved task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces the task keyed by its ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task. Unknown IDs are not an error.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends one run to the history.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit runs of taskID, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}
