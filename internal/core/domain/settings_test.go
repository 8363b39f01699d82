package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.False(t, s.Remote.IsConfigured())
	assert.Equal(t, 30*time.Second, s.Remote.Timeout)
	assert.Equal(t, DefaultBatchSize, s.Sync.BatchSize)
	assert.Equal(t, DefaultMaxFetchAttempts, s.Sync.MaxFetchAttempts)
	assert.Equal(t, DefaultVersionCacheTTL, s.Sync.VersionCacheTTL)
	assert.Equal(t, TracingNone, s.Tracing)
	assert.Equal(t, DefaultBackgroundConfig(), s.Background)
}

func TestTracingExporter_IsValid(t *testing.T) {
	tests := []struct {
		exporter TracingExporter
		expected bool
	}{
		{TracingNone, true},
		{TracingStdout, true},
		{"jaeger", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.exporter), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.exporter.IsValid())
		})
	}
}

func TestRemoteSettings_IsConfigured(t *testing.T) {
	assert.False(t, RemoteSettings{}.IsConfigured())
	assert.True(t, RemoteSettings{URL: "https://example.test/rest/v1"}.IsConfigured())
}
