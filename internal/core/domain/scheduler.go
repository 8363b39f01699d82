package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled (e.g., records synced).
	ItemsProcessed int
}

// BackgroundStatus is the host's willingness to run background tasks.
type BackgroundStatus string

// Host background statuses.
const (
	BackgroundAvailable  BackgroundStatus = "available"
	BackgroundDenied     BackgroundStatus = "denied"
	BackgroundRestricted BackgroundStatus = "restricted"
)

// BackgroundResult is what a background callback reports to the host.
type BackgroundResult string

// Background callback outcomes.
const (
	BackgroundNewData BackgroundResult = "new_data"
	BackgroundNoData  BackgroundResult = "no_data"
	BackgroundFailed  BackgroundResult = "failed"
)

// Task identifiers.
const (
	// TaskIDBackgroundSync is the id of the periodic sync task.
	TaskIDBackgroundSync = "background-sync"

	// TaskIDBackgroundSyncCooldown holds the time of the last background
	// sync that actually ran. It is never scheduled itself.
	TaskIDBackgroundSyncCooldown = "background-sync.cooldown"
)

// BackgroundConfig holds background sync configuration.
type BackgroundConfig struct {
	// Enabled is the master switch for background execution.
	Enabled bool

	// Interval is the minimum interval hint given to the host.
	Interval time.Duration

	// Cooldown is the self-imposed minimum spacing between executions.
	Cooldown time.Duration

	// BatchSize is the fetch batch size used for background runs.
	BatchSize int
}

// DefaultBackgroundConfig returns conservative background defaults.
func DefaultBackgroundConfig() BackgroundConfig {
	return BackgroundConfig{
		Enabled:   true,
		Interval:  1 * time.Hour,
		Cooldown:  15 * time.Minute,
		BatchSize: 200,
	}
}
