package domain

import "time"

// Sync batch bounds.
const (
	// DefaultBatchSize is the foreground fetch page size.
	DefaultBatchSize = 500

	// MaxFetchBatchSize caps the fetch page size to bound memory per page.
	MaxFetchBatchSize = 1000

	// DefaultMaxFetchAttempts is the number of tries per page fetch.
	DefaultMaxFetchAttempts = 3

	// DefaultVersionCacheTTL bounds how long a remote content version is trusted.
	DefaultVersionCacheTTL = 30 * time.Minute
)

// ClampBatchSize bounds a requested batch size to [1, MaxFetchBatchSize],
// substituting DefaultBatchSize for non-positive values.
func ClampBatchSize(n int) int {
	switch {
	case n <= 0:
		return DefaultBatchSize
	case n > MaxFetchBatchSize:
		return MaxFetchBatchSize
	default:
		return n
	}
}

// TracingExporter selects where trace spans are sent.
type TracingExporter string

// Available tracing exporters.
const (
	TracingNone   TracingExporter = "none"
	TracingStdout TracingExporter = "stdout"
)

// IsValid returns true if the exporter is recognised.
func (e TracingExporter) IsValid() bool {
	return e == TracingNone || e == TracingStdout
}

// RemoteSettings configures the remote query client.
type RemoteSettings struct {
	URL               string
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// IsConfigured returns true if a backend URL is set.
func (r RemoteSettings) IsConfigured() bool {
	return r.URL != ""
}

// SyncSettings configures the sync engine.
type SyncSettings struct {
	BatchSize        int
	MaxFetchAttempts int
	VersionCacheTTL  time.Duration
}

// LogSettings configures logging.
type LogSettings struct {
	Verbose bool
	File    string
}

// Settings is the typed view of the application configuration.
type Settings struct {
	Remote     RemoteSettings
	Sync       SyncSettings
	Background BackgroundConfig
	Log        LogSettings
	Tracing    TracingExporter
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Remote: RemoteSettings{
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
		},
		Sync: SyncSettings{
			BatchSize:        DefaultBatchSize,
			MaxFetchAttempts: DefaultMaxFetchAttempts,
			VersionCacheTTL:  DefaultVersionCacheTTL,
		},
		Background: DefaultBackgroundConfig(),
		Tracing:    TracingNone,
	}
}
