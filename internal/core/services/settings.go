package services

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRemoteURL           = "remote.url"
	keyRemoteAPIKey        = "remote.api_key"
	keyRemoteRPS           = "remote.requests_per_second"
	keyRemoteTimeout       = "remote.timeout_seconds"
	keySyncBatchSize       = "sync.batch_size"
	keySyncBackgroundBatch = "sync.background_batch_size"
	keySyncVersionTTL      = "sync.version_cache_ttl_minutes"
	keySyncMaxAttempts     = "sync.max_fetch_attempts"
	keyBackgroundEnabled   = "background.enabled"
	keyBackgroundInterval  = "background.interval_minutes"
	keyBackgroundCooldown  = "background.cooldown_minutes"
	keyLogVerbose          = "log.verbose"
	keyLogFile             = "log.file"
	keyTracingExporter     = "tracing.exporter"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Remote: domain.RemoteSettings{
			URL:               s.configStore.GetString(keyRemoteURL),
			APIKey:            s.configStore.GetString(keyRemoteAPIKey),
			RequestsPerSecond: s.getFloat(keyRemoteRPS, defaults.Remote.RequestsPerSecond),
			Timeout:           s.getSeconds(keyRemoteTimeout, defaults.Remote.Timeout),
		},
		Sync: domain.SyncSettings{
			BatchSize:        domain.ClampBatchSize(s.getInt(keySyncBatchSize, defaults.Sync.BatchSize)),
			MaxFetchAttempts: s.getInt(keySyncMaxAttempts, defaults.Sync.MaxFetchAttempts),
			VersionCacheTTL:  s.getMinutes(keySyncVersionTTL, defaults.Sync.VersionCacheTTL),
		},
		Background: domain.BackgroundConfig{
			Enabled:   s.getBool(keyBackgroundEnabled, defaults.Background.Enabled),
			Interval:  s.getMinutes(keyBackgroundInterval, defaults.Background.Interval),
			Cooldown:  s.getMinutes(keyBackgroundCooldown, defaults.Background.Cooldown),
			BatchSize: domain.ClampBatchSize(s.getInt(keySyncBackgroundBatch, defaults.Background.BatchSize)),
		},
		Log: domain.LogSettings{
			Verbose: s.getBool(keyLogVerbose, defaults.Log.Verbose),
			File:    s.configStore.GetString(keyLogFile),
		},
		Tracing: s.getTracingExporter(defaults.Tracing),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyRemoteURL, settings.Remote.URL},
		{keyRemoteRPS, settings.Remote.RequestsPerSecond},
		{keyRemoteTimeout, int(settings.Remote.Timeout / time.Second)},
		{keySyncBatchSize, settings.Sync.BatchSize},
		{keySyncMaxAttempts, settings.Sync.MaxFetchAttempts},
		{keySyncVersionTTL, int(settings.Sync.VersionCacheTTL / time.Minute)},
		{keyBackgroundEnabled, settings.Background.Enabled},
		{keyBackgroundInterval, int(settings.Background.Interval / time.Minute)},
		{keyBackgroundCooldown, int(settings.Background.Cooldown / time.Minute)},
		{keySyncBackgroundBatch, settings.Background.BatchSize},
		{keyLogVerbose, settings.Log.Verbose},
		{keyLogFile, settings.Log.File},
		{keyTracingExporter, string(settings.Tracing)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// An empty API key never overwrites a stored one.
	if settings.Remote.APIKey != "" {
		if err := s.configStore.Set(keyRemoteAPIKey, settings.Remote.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyRemoteAPIKey, err)
		}
	}

	return nil
}

// Validate checks that current settings are usable for syncing.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Remote.IsConfigured() {
		return fmt.Errorf("%w: set %s in %s", domain.ErrRemoteNotConfigured, keyRemoteURL, s.configStore.Path())
	}
	u, err := url.Parse(settings.Remote.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) URL", domain.ErrInvalidInput, keyRemoteURL)
	}

	var errs []error
	if settings.Remote.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keyRemoteRPS))
	}
	if settings.Sync.MaxFetchAttempts < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keySyncMaxAttempts))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMinutes(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Minute
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getTracingExporter(defaultVal domain.TracingExporter) domain.TracingExporter {
	val := s.configStore.GetString(keyTracingExporter)
	if val == "" {
		return defaultVal
	}
	exporter := domain.TracingExporter(val)
	if !exporter.IsValid() {
		return defaultVal
	}
	return exporter
}
