package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/versesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/versesync/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("remote.url", "https://api.example.org/rest/v1")
	_ = store.Set("remote.requests_per_second", 2.5)
	_ = store.Set("remote.timeout_seconds", 10)
	_ = store.Set("sync.batch_size", 250)
	_ = store.Set("sync.version_cache_ttl_minutes", 5)
	_ = store.Set("background.enabled", false)
	_ = store.Set("background.cooldown_minutes", 60)
	_ = store.Set("tracing.exporter", "stdout")

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.org/rest/v1", settings.Remote.URL)
	assert.InDelta(t, 2.5, settings.Remote.RequestsPerSecond, 0.0001)
	assert.Equal(t, 10*time.Second, settings.Remote.Timeout)
	assert.Equal(t, 250, settings.Sync.BatchSize)
	assert.Equal(t, 5*time.Minute, settings.Sync.VersionCacheTTL)
	assert.False(t, settings.Background.Enabled)
	assert.Equal(t, time.Hour, settings.Background.Cooldown)
	assert.Equal(t, domain.TracingStdout, settings.Tracing)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("tracing.exporter", "zipkin")
	_ = store.Set("sync.batch_size", 100000)
	_ = store.Set("background.interval_minutes", -3)

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.TracingNone, settings.Tracing)
	assert.Equal(t, domain.MaxFetchBatchSize, settings.Sync.BatchSize)
	assert.Equal(t, time.Hour, settings.Background.Interval)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	settings.Remote.URL = "https://api.example.org"
	settings.Remote.APIKey = "anon-key"
	settings.Sync.BatchSize = 100
	settings.Background.Cooldown = 30 * time.Minute
	settings.Log.Verbose = true
	settings.Log.File = "/tmp/versesync.log"

	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *retrieved)
}

func TestSettingsService_Save_EmptyAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("remote.api_key", "existing-key")
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing-key", store.GetString("remote.api_key"))
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{"no remote", nil, domain.ErrRemoteNotConfigured},
		{"not a url", map[string]any{"remote.url": "localhost"}, domain.ErrInvalidInput},
		{"ftp scheme", map[string]any{"remote.url": "ftp://example.org"}, domain.ErrInvalidInput},
		{"negative rate", map[string]any{"remote.url": "https://example.org", "remote.requests_per_second": -1.0}, domain.ErrInvalidInput},
		{"negative attempts", map[string]any{"remote.url": "https://example.org", "sync.max_fetch_attempts": -2}, domain.ErrInvalidInput},
		{"valid", map[string]any{"remote.url": "https://example.org"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			for k, v := range tt.values {
				_ = store.Set(k, v)
			}

			err := NewSettingsService(store).Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSettingsService_GetBool_WithoutKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	assert.True(t, service.getBool("background.enabled", true))
	_ = store.Set("background.enabled", false)
	assert.False(t, service.getBool("background.enabled", true))
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}
