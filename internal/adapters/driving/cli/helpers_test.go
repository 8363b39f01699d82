package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	mu sync.Mutex

	domainName string
	tables     []string

	results   []domain.SyncResult
	syncErr   error
	check     *domain.UpdateCheck
	report    *domain.CompletenessReport
	metadata  []domain.SyncMetadata
	stats     []domain.TableStats
	listeners []driving.SyncListener

	lastOpts    domain.SyncOptions
	forceCalled bool
	resetTables []string
	clearTables []string
}

var _ driving.SyncService = (*mockSyncService)(nil)

func newMockBible() *mockSyncService {
	return &mockSyncService{
		domainName: domain.DomainBible,
		tables:     []string{domain.TableBooks, domain.TableChapters, domain.TableVerses},
	}
}

func newMockMedia() *mockSyncService {
	return &mockSyncService{
		domainName: domain.DomainMedia,
		tables:     []string{domain.TableLanguageEntities, domain.TableAvailableVersion, domain.TableMediaFilesVerses},
	}
}

func (m *mockSyncService) Domain() string   { return m.domainName }
func (m *mockSyncService) Tables() []string { return m.tables }

func (m *mockSyncService) SyncAll(_ context.Context, opts domain.SyncOptions) ([]domain.SyncResult, error) {
	m.mu.Lock()
	m.lastOpts = opts
	listeners := append([]driving.SyncListener(nil), m.listeners...)
	m.mu.Unlock()

	if m.syncErr != nil {
		return nil, m.syncErr
	}
	for i, r := range m.results {
		for _, l := range listeners {
			l(domain.SyncProgress{Domain: m.domainName, Table: r.TableName, Completed: i + 1, Total: len(m.results), Running: true})
		}
	}
	return m.results, nil
}

func (m *mockSyncService) ForceFullSync(ctx context.Context) ([]domain.SyncResult, error) {
	m.forceCalled = true
	return m.SyncAll(ctx, domain.SyncOptions{ForceFullSync: true})
}

func (m *mockSyncService) NeedsUpdate(_ context.Context) (*domain.UpdateCheck, error) {
	if m.check == nil {
		return &domain.UpdateCheck{}, nil
	}
	return m.check, nil
}

func (m *mockSyncService) VerifySyncCompleteness(_ context.Context) (*domain.CompletenessReport, error) {
	if m.report == nil {
		return &domain.CompletenessReport{}, nil
	}
	return m.report, nil
}

func (m *mockSyncService) GetSyncMetadata(_ context.Context, table string) ([]domain.SyncMetadata, error) {
	if table == "" {
		return m.metadata, nil
	}
	for _, md := range m.metadata {
		if md.TableName == table {
			return []domain.SyncMetadata{md}, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSyncService) LocalStats(_ context.Context, table string, withChecksum bool) ([]domain.TableStats, error) {
	var out []domain.TableStats
	for _, st := range m.stats {
		if table != "" && st.TableName != table {
			continue
		}
		if !withChecksum {
			st.Checksum = ""
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *mockSyncService) ResetSyncMetadata(_ context.Context, table string) error {
	m.resetTables = append(m.resetTables, table)
	return nil
}

func (m *mockSyncService) ClearLocalData(_ context.Context, table string) error {
	m.clearTables = append(m.clearTables, table)
	return nil
}

func (m *mockSyncService) IsSyncInProgress() bool { return false }

func (m *mockSyncService) OnSync(listener driving.SyncListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
	idx := len(m.listeners) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.listeners[idx] = func(domain.SyncProgress) {}
	}
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.Settings
	saved       *domain.Settings
	validateErr error
}

var _ driving.SettingsService = (*mockSettingsService)(nil)

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	s := *settings
	m.saved = &s
	m.settings = s
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

// useServices installs s for the duration of the test.
func useServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	syncForce, syncBatchSize, syncDomain, syncTables = false, 0, "", nil
	verifyChecksum, clearYes = false, false
	verboseFlag, noColorFlag = false, false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

var errBoom = errors.New("boom")
