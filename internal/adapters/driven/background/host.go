// Package background hosts periodic tasks for the long-running daemon.
//
// Host implements driven.BackgroundHost for the sync core and
// driving.Scheduler for the daemon command. Task state and execution
// history are persisted through a driven.SchedulerStore so due times
// survive restarts.
package background

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

// Ensure Host implements both interfaces.
var (
	_ driven.BackgroundHost = (*Host)(nil)
	_ driving.Scheduler     = (*Host)(nil)
)

const (
	// DefaultTick is how often the host checks for due tasks.
	DefaultTick = time.Minute

	// HistoryRetention is the number of results kept per task.
	HistoryRetention = 100
)

type registration struct {
	name     string
	interval time.Duration
	fn       driven.BackgroundTask
}

// Host runs registered tasks no more often than their minimum interval.
type Host struct {
	store driven.SchedulerStore
	tick  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	status   domain.BackgroundStatus
	tasks    map[string]registration
	inFlight map[string]bool
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewHost creates a host. When enabled is false the host reports
// domain.BackgroundDenied, and without a store domain.BackgroundRestricted.
// Either way it refuses registrations.
func NewHost(store driven.SchedulerStore, enabled bool) *Host {
	status := domain.BackgroundAvailable
	switch {
	case !enabled:
		status = domain.BackgroundDenied
	case store == nil:
		status = domain.BackgroundRestricted
	}
	return &Host{
		store:    store,
		tick:     DefaultTick,
		now:      time.Now,
		status:   status,
		tasks:    make(map[string]registration),
		inFlight: make(map[string]bool),
	}
}

// SetStatus changes the host's willingness to run background work.
func (h *Host) SetStatus(status domain.BackgroundStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
}

// Status reports whether background execution is permitted.
func (h *Host) Status() domain.BackgroundStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// RegisterPeriodicTask registers fn to run at most every minInterval.
// Re-registering an id replaces the previous callback.
func (h *Host) RegisterPeriodicTask(
	ctx context.Context,
	id string,
	minInterval time.Duration,
	fn driven.BackgroundTask,
) error {
	if id == "" || fn == nil || minInterval <= 0 {
		return fmt.Errorf("%w: task %q needs a callback and a positive interval", domain.ErrInvalidInput, id)
	}
	if status := h.Status(); status != domain.BackgroundAvailable {
		return fmt.Errorf("%w: host status %s", domain.ErrBackgroundUnavailable, status)
	}

	if err := h.ensureTask(ctx, id, id, minInterval); err != nil {
		return fmt.Errorf("persisting task %s: %w", id, err)
	}

	h.mu.Lock()
	h.tasks[id] = registration{name: id, interval: minInterval, fn: fn}
	h.mu.Unlock()
	return nil
}

// UnregisterTask removes a task. Unknown ids are ignored.
func (h *Host) UnregisterTask(ctx context.Context, id string) error {
	h.mu.Lock()
	_, ok := h.tasks[id]
	delete(h.tasks, id)
	h.mu.Unlock()

	if !ok || h.store == nil {
		return nil
	}
	if err := h.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// IsTaskRegistered reports whether id is registered.
func (h *Host) IsTaskRegistered(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.tasks[id]
	return ok
}

// Start begins the host loop. This method blocks until Stop is called
// or ctx is cancelled.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil // Already running
	}
	h.running = true
	h.stopCh = make(chan struct{})
	stopCh := h.stopCh
	h.mu.Unlock()

	return h.run(ctx, stopCh)
}

// Stop shuts down the loop and waits for running tasks to complete.
func (h *Host) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.stopCh)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

// ensureTask creates or updates a task in the store.
func (h *Host) ensureTask(ctx context.Context, id, name string, interval time.Duration) error {
	task, err := h.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// New tasks are due immediately.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			Enabled:  true,
		}
	} else {
		if task.Interval != interval {
			task.Interval = interval
			if !task.LastRun.IsZero() {
				task.NextRun = task.LastRun.Add(interval)
			}
		}
		task.Enabled = true
	}

	return h.store.SaveTask(ctx, task)
}

// run is the main host loop.
func (h *Host) run(ctx context.Context, stopCh <-chan struct{}) error {
	h.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			h.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every registered task that is due.
func (h *Host) checkAndRunDueTasks(ctx context.Context) {
	if h.Status() != domain.BackgroundAvailable {
		return
	}

	h.mu.Lock()
	due := make(map[string]registration, len(h.tasks))
	for id, reg := range h.tasks {
		if !h.inFlight[id] {
			due[id] = reg
		}
	}
	h.mu.Unlock()

	now := h.now()
	for id, reg := range due {
		task, err := h.store.GetTask(ctx, id)
		if err != nil {
			log.Printf("background: failed to load task %s: %v", id, err)
			continue
		}
		if task == nil {
			task = &domain.ScheduledTask{ID: id, Name: reg.name, Interval: reg.interval, Enabled: true}
		}
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			h.runTask(ctx, task, reg)
		}
	}
}

// runTask executes a single task in its own goroutine.
func (h *Host) runTask(ctx context.Context, task *domain.ScheduledTask, reg registration) {
	h.mu.Lock()
	h.inFlight[task.ID] = true
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.inFlight, task.ID)
			h.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: h.now(),
		}

		outcome := reg.fn(ctx)

		result.EndedAt = h.now()
		if outcome == domain.BackgroundFailed {
			result.Success = false
			result.Error = "task reported failure"
			task.LastError = result.Error
		} else {
			result.Success = true
			if outcome == domain.BackgroundNewData {
				result.ItemsProcessed = 1
			}
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.StartedAt.Add(reg.interval)
		task.Interval = reg.interval

		// Bookkeeping outlives a cancelled run.
		storeCtx := context.WithoutCancel(ctx)

		if saveErr := h.store.SaveTask(storeCtx, task); saveErr != nil {
			log.Printf("background: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := h.store.RecordResult(storeCtx, result); recordErr != nil {
			log.Printf("background: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := h.store.PruneHistory(storeCtx, HistoryRetention); pruneErr != nil {
			log.Printf("background: failed to prune history: %v", pruneErr)
		}
	}()
}
