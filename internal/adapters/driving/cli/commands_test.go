package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

func TestSyncCmd_SyncsEveryDomain(t *testing.T) {
	bible, media := newMockBible(), newMockMedia()
	bible.results = []domain.SyncResult{
		{Success: true, TableName: domain.TableBooks, RecordsSynced: 66},
		{Success: true, TableName: domain.TableChapters, RecordsSynced: 1189},
	}
	media.results = []domain.SyncResult{{Success: true, TableName: domain.AllTablesName}}
	useServices(t, Services{Sync: []driving.SyncService{bible, media}})

	out, err := executeCommand(t, "", "sync", "--batch-size", "250")

	require.NoError(t, err)
	assert.Contains(t, out, "Syncing bible")
	assert.Contains(t, out, "[1/2] books")
	assert.Contains(t, out, "1189")
	assert.Contains(t, out, "Syncing media")
	assert.Contains(t, out, "Already up to date.")
	assert.Equal(t, 250, bible.lastOpts.BatchSize)
	assert.False(t, bible.lastOpts.ForceFullSync)
}

func TestSyncCmd_Force(t *testing.T) {
	bible := newMockBible()
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	_, err := executeCommand(t, "", "sync", "--force")

	require.NoError(t, err)
	assert.True(t, bible.forceCalled)
	assert.True(t, bible.lastOpts.ForceFullSync)
}

func TestSyncCmd_DomainAndTables(t *testing.T) {
	bible, media := newMockBible(), newMockMedia()
	useServices(t, Services{Sync: []driving.SyncService{bible, media}})

	out, err := executeCommand(t, "", "sync", "--table", domain.TableVerses)

	require.NoError(t, err)
	assert.Equal(t, []string{domain.TableVerses}, bible.lastOpts.Tables)
	assert.NotContains(t, out, "Syncing media")

	_, err = executeCommand(t, "", "sync", "--domain", "hymns")
	assert.ErrorContains(t, err, "unknown sync domain")

	_, err = executeCommand(t, "", "sync", "--table", "psalms")
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
}

func TestSyncCmd_FailedTableReturnsError(t *testing.T) {
	bible := newMockBible()
	bible.results = []domain.SyncResult{
		{Success: true, TableName: domain.TableBooks, RecordsSynced: 3},
		{Success: false, TableName: domain.TableChapters, Error: "transient fetch error"},
	}
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	out, err := executeCommand(t, "", "sync")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 table(s) did not sync")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "transient fetch error")
}

func TestSyncCmd_ServiceError(t *testing.T) {
	bible := newMockBible()
	bible.syncErr = errBoom
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	_, err := executeCommand(t, "", "sync")

	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	useServices(t, Services{})

	_, err := executeCommand(t, "", "sync")

	assert.ErrorContains(t, err, "sync service not configured")
}

func TestStatusCmd(t *testing.T) {
	bible := newMockBible()
	synced := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	bible.metadata = []domain.SyncMetadata{
		{TableName: domain.TableBooks, LastSync: synced, SyncStatus: domain.SyncStatusIdle, ContentVersion: "7"},
		{TableName: domain.TableChapters, LastSync: domain.EpochZero, SyncStatus: domain.SyncStatusError, ErrorMessage: "timeout"},
	}
	bible.stats = []domain.TableStats{{TableName: domain.TableBooks, RowCount: 66}}
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	out, err := executeCommand(t, "", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-01 09:30:00")
	assert.Contains(t, out, "66")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "timeout")

	out, err = executeCommand(t, "", "status", domain.TableBooks)
	require.NoError(t, err)
	assert.NotContains(t, out, "timeout")

	_, err = executeCommand(t, "", "status", "psalms")
	assert.ErrorContains(t, err, "unknown table")
}

func TestNeedsUpdateCmd(t *testing.T) {
	bible, media := newMockBible(), newMockMedia()
	bible.check = &domain.UpdateCheck{
		NeedsUpdate: true,
		Tables:      []string{domain.TableVerses},
		Reasons:     map[string]domain.UpdateReason{domain.TableVerses: domain.ReasonNewRows},
	}
	useServices(t, Services{Sync: []driving.SyncService{bible, media}})

	out, err := executeCommand(t, "", "needs-update")

	require.NoError(t, err)
	assert.Contains(t, out, "bible: updates available")
	assert.Contains(t, out, "verses (new_rows)")
	assert.Contains(t, out, "media: up to date")
}

func TestVerifyCmd(t *testing.T) {
	bible := newMockBible()
	bible.report = &domain.CompletenessReport{
		Tables: []domain.TableCompleteness{
			{TableName: domain.TableBooks, LocalCount: 66, RemoteCount: 66, IsComplete: true},
		},
		TotalTables:    1,
		CompleteTables: 1,
	}
	bible.stats = []domain.TableStats{{TableName: domain.TableBooks, RowCount: 66, Checksum: "0123456789abcdef0123"}}
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	out, err := executeCommand(t, "", "verify", "--checksum")

	require.NoError(t, err)
	assert.Contains(t, out, "0123456789abcdef")
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.Contains(t, out, "All tables complete.")
}

func TestVerifyCmd_Incomplete(t *testing.T) {
	bible := newMockBible()
	bible.report = &domain.CompletenessReport{
		Tables: []domain.TableCompleteness{
			{TableName: domain.TableVerses, LocalCount: 31101, RemoteCount: 31102, Difference: 1},
		},
		TotalTables:      1,
		IncompleteTables: 1,
	}
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	out, err := executeCommand(t, "", "verify")

	assert.ErrorIs(t, err, domain.ErrCompletenessMismatch)
	assert.Contains(t, out, "31101")
	assert.Contains(t, out, "FAILED")
}

func TestResetCmd(t *testing.T) {
	bible, media := newMockBible(), newMockMedia()
	useServices(t, Services{Sync: []driving.SyncService{bible, media}})

	out, err := executeCommand(t, "", "reset", domain.TableChapters)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TableChapters}, bible.resetTables)
	assert.Empty(t, media.resetTables)
	assert.Contains(t, out, "Sync progress reset for chapters.")

	_, err = executeCommand(t, "", "reset")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TableChapters, ""}, bible.resetTables)
	assert.Equal(t, []string{""}, media.resetTables)
}

func TestClearCmd_Confirmation(t *testing.T) {
	bible := newMockBible()
	useServices(t, Services{Sync: []driving.SyncService{bible}})

	_, err := executeCommand(t, "no\n", "clear")
	assert.ErrorIs(t, err, errAborted)
	assert.Empty(t, bible.clearTables)

	out, err := executeCommand(t, "yes\n", "clear", domain.TableVerses)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TableVerses}, bible.clearTables)
	assert.Contains(t, out, "Local data cleared for verses.")

	_, err = executeCommand(t, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TableVerses, ""}, bible.clearTables)
}

// mockBackgroundSync implements driving.BackgroundSync for testing.
type mockBackgroundSync struct {
	registered   bool
	unregistered bool
	deny         bool
}

func (m *mockBackgroundSync) Register(context.Context) error {
	m.registered = !m.deny
	return nil
}

func (m *mockBackgroundSync) Unregister(context.Context) error {
	m.unregistered = true
	m.registered = false
	return nil
}

func (m *mockBackgroundSync) IsRegistered() bool { return m.registered }

func (m *mockBackgroundSync) Run(context.Context) domain.BackgroundResult {
	return domain.BackgroundNoData
}

// mockScheduler implements driving.Scheduler; Start returns immediately.
type mockScheduler struct {
	started bool
	stopped bool
}

func (m *mockScheduler) Start(context.Context) error {
	m.started = true
	return nil
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func TestDaemonCmd(t *testing.T) {
	bg := &mockBackgroundSync{}
	sched := &mockScheduler{}
	useServices(t, Services{Background: bg, Scheduler: sched})

	out, err := executeCommand(t, "", "daemon")

	require.NoError(t, err)
	assert.True(t, sched.started)
	assert.True(t, sched.stopped)
	assert.True(t, bg.unregistered)
	assert.Contains(t, out, "Daemon stopped.")
}

func TestDaemonCmd_Disabled(t *testing.T) {
	bg := &mockBackgroundSync{deny: true}
	sched := &mockScheduler{}
	useServices(t, Services{Background: bg, Scheduler: sched})

	out, err := executeCommand(t, "", "daemon")

	require.NoError(t, err)
	assert.False(t, sched.started)
	assert.Contains(t, out, "disabled")
}

func TestDaemonCmd_NotConfigured(t *testing.T) {
	useServices(t, Services{})

	_, err := executeCommand(t, "", "daemon")

	assert.ErrorContains(t, err, "background sync not configured")
}
