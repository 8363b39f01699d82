package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
	"github.com/custodia-labs/versesync/internal/logger"
)

// Ensure BackgroundSync implements the interface.
var _ driving.BackgroundSync = (*BackgroundSync)(nil)

// BackgroundSync registers a periodic sync with the host. Each execution
// is rate limited by a cooldown that is independent of how often the host
// decides to call it.
type BackgroundSync struct {
	host     driven.BackgroundHost
	store    driven.SchedulerStore
	services []driving.SyncService
	config   domain.BackgroundConfig
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewBackgroundSync creates the background adapter. The store is optional;
// without it the cooldown does not survive restarts.
func NewBackgroundSync(
	host driven.BackgroundHost,
	store driven.SchedulerStore,
	config domain.BackgroundConfig,
	services ...driving.SyncService,
) *BackgroundSync {
	return &BackgroundSync{
		host:     host,
		store:    store,
		services: services,
		config:   config,
		now:      time.Now,
	}
}

// Register registers the periodic task. It is a no-op when the task is
// already registered, and when the host denies or restricts background
// execution the condition is logged and nil returned.
func (b *BackgroundSync) Register(ctx context.Context) error {
	if b.host == nil {
		logger.Warn("background sync unavailable: no host")
		return nil
	}

	switch status := b.host.Status(); status {
	case domain.BackgroundDenied, domain.BackgroundRestricted:
		logger.Warn("background sync not registered: host status %s", status)
		return nil
	}

	if b.host.IsTaskRegistered(domain.TaskIDBackgroundSync) {
		logger.Debug("background sync already registered")
		return nil
	}

	if err := b.host.RegisterPeriodicTask(ctx, domain.TaskIDBackgroundSync, b.config.Interval, b.Run); err != nil {
		return fmt.Errorf("register background sync: %w", err)
	}
	logger.Info("background sync registered every %s (cooldown %s)", b.config.Interval, b.config.Cooldown)
	return nil
}

// Unregister removes the periodic task.
func (b *BackgroundSync) Unregister(ctx context.Context) error {
	if b.host == nil {
		return nil
	}
	if err := b.host.UnregisterTask(ctx, domain.TaskIDBackgroundSync); err != nil {
		return fmt.Errorf("unregister background sync: %w", err)
	}
	return nil
}

// IsRegistered reports whether the periodic task is registered.
func (b *BackgroundSync) IsRegistered() bool {
	return b.host != nil && b.host.IsTaskRegistered(domain.TaskIDBackgroundSync)
}

// Run executes one background cycle: domains reporting changes are synced
// with the background batch size. Calls inside the cooldown return
// domain.BackgroundNoData without touching the network.
func (b *BackgroundSync) Run(ctx context.Context) domain.BackgroundResult {
	b.mu.Lock()
	now := b.now()
	last := b.lastExecution(ctx)
	if !last.IsZero() && now.Sub(last) < b.config.Cooldown {
		b.mu.Unlock()
		logger.Debug("background sync in cooldown, last ran %s ago", now.Sub(last).Round(time.Second))
		return domain.BackgroundNoData
	}
	b.recordExecution(ctx, now)
	b.mu.Unlock()

	newData, failed := false, false
	for _, svc := range b.services {
		check, err := svc.NeedsUpdate(ctx)
		if err != nil {
			logger.Error("background needs-update for %s: %v", svc.Domain(), err)
			failed = true
			continue
		}
		if !check.NeedsUpdate {
			continue
		}

		results, err := svc.SyncAll(ctx, domain.SyncOptions{BatchSize: b.config.BatchSize})
		if err != nil {
			logger.Error("background sync of %s: %v", svc.Domain(), err)
			failed = true
			continue
		}
		for _, r := range results {
			if !r.Success {
				failed = true
			}
			if r.RecordsSynced > 0 {
				newData = true
			}
		}
	}

	switch {
	case newData:
		return domain.BackgroundNewData
	case failed:
		return domain.BackgroundFailed
	default:
		return domain.BackgroundNoData
	}
}

// lastExecution returns when a background sync last ran. Callers hold b.mu.
func (b *BackgroundSync) lastExecution(ctx context.Context) time.Time {
	if b.store == nil {
		return b.lastRun
	}
	task, err := b.store.GetTask(ctx, domain.TaskIDBackgroundSyncCooldown)
	if err != nil {
		logger.Warn("read background cooldown: %v", err)
		return b.lastRun
	}
	if task == nil {
		return b.lastRun
	}
	return task.LastRun
}

// recordExecution stores the start time of a background sync. Callers hold b.mu.
func (b *BackgroundSync) recordExecution(ctx context.Context, at time.Time) {
	b.lastRun = at
	if b.store == nil {
		return
	}
	err := b.store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDBackgroundSyncCooldown,
		Name:     "Background sync cooldown",
		Interval: b.config.Cooldown,
		LastRun:  at,
	})
	if err != nil {
		logger.Warn("persist background cooldown: %v", err)
	}
}
