package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/versesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

// mockHost is a hand-written mock of driven.BackgroundHost.
type mockHost struct {
	status      domain.BackgroundStatus
	registerErr error
	tasks       map[string]driven.BackgroundTask
	intervals   map[string]time.Duration
	registers   int
}

func newMockHost() *mockHost {
	return &mockHost{
		status:    domain.BackgroundAvailable,
		tasks:     make(map[string]driven.BackgroundTask),
		intervals: make(map[string]time.Duration),
	}
}

func (h *mockHost) RegisterPeriodicTask(_ context.Context, id string, minInterval time.Duration, fn driven.BackgroundTask) error {
	h.registers++
	if h.registerErr != nil {
		return h.registerErr
	}
	h.tasks[id] = fn
	h.intervals[id] = minInterval
	return nil
}

func (h *mockHost) UnregisterTask(_ context.Context, id string) error {
	delete(h.tasks, id)
	return nil
}

func (h *mockHost) IsTaskRegistered(id string) bool {
	_, ok := h.tasks[id]
	return ok
}

func (h *mockHost) Status() domain.BackgroundStatus {
	return h.status
}

// mockSyncService is a hand-written mock of driving.SyncService.
type mockSyncService struct {
	driving.SyncService

	needsUpdate bool
	checkErr    error
	results     []domain.SyncResult
	syncCalls   []domain.SyncOptions
}

func (m *mockSyncService) Domain() string { return domain.DomainBible }

func (m *mockSyncService) NeedsUpdate(context.Context) (*domain.UpdateCheck, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	return &domain.UpdateCheck{NeedsUpdate: m.needsUpdate}, nil
}

func (m *mockSyncService) SyncAll(_ context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error) {
	m.syncCalls = append(m.syncCalls, opts)
	return m.results, nil
}

func testBackgroundConfig() domain.BackgroundConfig {
	return domain.BackgroundConfig{
		Enabled:   true,
		Interval:  time.Hour,
		Cooldown:  15 * time.Minute,
		BatchSize: 200,
	}
}

func TestBackgroundSync_Register(t *testing.T) {
	host := newMockHost()
	bg := NewBackgroundSync(host, nil, testBackgroundConfig())

	require.NoError(t, bg.Register(context.Background()))
	require.NoError(t, bg.Register(context.Background()))

	assert.True(t, bg.IsRegistered())
	assert.Equal(t, 1, host.registers, "registration is idempotent")
	assert.Equal(t, time.Hour, host.intervals[domain.TaskIDBackgroundSync])

	require.NoError(t, bg.Unregister(context.Background()))
	assert.False(t, bg.IsRegistered())
}

func TestBackgroundSync_Register_HostUnavailable(t *testing.T) {
	for _, status := range []domain.BackgroundStatus{domain.BackgroundDenied, domain.BackgroundRestricted} {
		t.Run(string(status), func(t *testing.T) {
			host := newMockHost()
			host.status = status
			bg := NewBackgroundSync(host, nil, testBackgroundConfig())

			assert.NoError(t, bg.Register(context.Background()))
			assert.False(t, bg.IsRegistered())
			assert.Zero(t, host.registers)
		})
	}

	bg := NewBackgroundSync(nil, nil, testBackgroundConfig())
	assert.NoError(t, bg.Register(context.Background()))
	assert.False(t, bg.IsRegistered())
	assert.NoError(t, bg.Unregister(context.Background()))
}

func TestBackgroundSync_Register_HostError(t *testing.T) {
	host := newMockHost()
	host.registerErr = errors.New("scheduler offline")
	bg := NewBackgroundSync(host, nil, testBackgroundConfig())

	err := bg.Register(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler offline")
}

func TestBackgroundSync_Run_UsesBackgroundBatchSize(t *testing.T) {
	svc := &mockSyncService{
		needsUpdate: true,
		results:     []domain.SyncResult{{Success: true, TableName: domain.TableBooks, RecordsSynced: 4}},
	}
	bg := NewBackgroundSync(newMockHost(), nil, testBackgroundConfig(), svc)

	assert.Equal(t, domain.BackgroundNewData, bg.Run(context.Background()))
	require.Len(t, svc.syncCalls, 1)
	assert.Equal(t, 200, svc.syncCalls[0].BatchSize)
	assert.False(t, svc.syncCalls[0].ForceFullSync)
}

func TestBackgroundSync_Run_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		svc  *mockSyncService
		want domain.BackgroundResult
	}{
		{"up to date", &mockSyncService{}, domain.BackgroundNoData},
		{"check failed", &mockSyncService{checkErr: errors.New("offline")}, domain.BackgroundFailed},
		{"sync failed", &mockSyncService{
			needsUpdate: true,
			results:     []domain.SyncResult{{TableName: domain.TableBooks, Error: "boom"}},
		}, domain.BackgroundFailed},
		{"synced nothing", &mockSyncService{
			needsUpdate: true,
			results:     []domain.SyncResult{{Success: true, TableName: domain.TableBooks}},
		}, domain.BackgroundNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bg := NewBackgroundSync(newMockHost(), nil, testBackgroundConfig(), tt.svc)
			assert.Equal(t, tt.want, bg.Run(context.Background()))
		})
	}
}

func TestBackgroundSync_Run_Cooldown(t *testing.T) {
	svc := &mockSyncService{needsUpdate: true}
	bg := NewBackgroundSync(newMockHost(), nil, testBackgroundConfig(), svc)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	bg.now = func() time.Time { return now }

	bg.Run(context.Background())
	now = now.Add(10 * time.Minute)
	assert.Equal(t, domain.BackgroundNoData, bg.Run(context.Background()))
	assert.Len(t, svc.syncCalls, 1, "second call inside cooldown does no work")

	now = now.Add(5 * time.Minute)
	bg.Run(context.Background())
	assert.Len(t, svc.syncCalls, 2)
}

func TestBackgroundSync_Run_CooldownSurvivesRestart(t *testing.T) {
	store := memory.NewSchedulerStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := &mockSyncService{needsUpdate: true}
	bg := NewBackgroundSync(newMockHost(), store, testBackgroundConfig(), first)
	bg.now = func() time.Time { return now }
	bg.Run(context.Background())
	require.Len(t, first.syncCalls, 1)

	task, err := store.GetTask(context.Background(), domain.TaskIDBackgroundSyncCooldown)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, now.Equal(task.LastRun))

	second := &mockSyncService{needsUpdate: true}
	restarted := NewBackgroundSync(newMockHost(), store, testBackgroundConfig(), second)
	restarted.now = func() time.Time { return now.Add(time.Minute) }

	assert.Equal(t, domain.BackgroundNoData, restarted.Run(context.Background()))
	assert.Empty(t, second.syncCalls)
}

func TestBackgroundSync_Run_WithOrchestrator(t *testing.T) {
	f := newFixture()
	f.remote.SeedBible(3, 9, 27, base)
	o := f.orchestrator(t, domain.DomainBible)
	bg := NewBackgroundSync(newMockHost(), nil, testBackgroundConfig(), o)

	assert.Equal(t, domain.BackgroundNewData, bg.Run(context.Background()))
	assert.Equal(t, 27, f.count(t, domain.TableVerses))
}
