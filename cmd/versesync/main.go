// versesync CLI entry point
//
// versesync keeps a local SQLite replica of Bible text and media metadata
// in step with a remote PostgREST backend.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/versesync/internal/adapters/driven/background"
	"github.com/custodia-labs/versesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/versesync/internal/adapters/driven/remote/postgrest"
	"github.com/custodia-labs/versesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/versesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
	"github.com/custodia-labs/versesync/internal/core/services"
	"github.com/custodia-labs/versesync/internal/logger"
	"github.com/custodia-labs/versesync/internal/tracing"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	applyLogSettings(settings.Log)
	defer logger.Close()

	provider, err := tracing.New(context.Background(), tracing.Config{
		Exporter:       settings.Tracing,
		ServiceName:    "versesync",
		ServiceVersion: version,
		Output:         os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown: %v", err)
		}
	}()

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer store.Close()

	remote, err := postgrest.NewSource(postgrest.Config{
		URL:               settings.Remote.URL,
		APIKey:            settings.Remote.APIKey,
		RequestsPerSecond: settings.Remote.RequestsPerSecond,
		Timeout:           settings.Remote.Timeout,
	})
	if err != nil {
		return fmt.Errorf("configuring remote: %w", err)
	}
	if !settings.Remote.IsConfigured() {
		logger.Debug("remote backend not configured; running offline")
	}

	syncServices := make([]driving.SyncService, 0, len(domain.DomainNames()))
	for _, name := range domain.DomainNames() {
		orchestrator, err := services.NewSyncOrchestrator(
			name, remote, store.RecordStore(), store.SyncMetadataStore(), settings.Sync)
		if err != nil {
			return fmt.Errorf("creating %s sync: %w", name, err)
		}
		syncServices = append(syncServices, orchestrator)
	}

	schedulerStore := store.SchedulerStore()
	host := background.NewHost(schedulerStore, settings.Background.Enabled)
	backgroundSync := services.NewBackgroundSync(host, schedulerStore, settings.Background, syncServices...)

	cli.SetServices(cli.Services{
		Sync:          syncServices,
		Settings:      settingsService,
		Background:    backgroundSync,
		Scheduler:     host,
		ConfigWatcher: configStore,
		OnConfigChange: func() {
			reloaded, err := settingsService.Get()
			if err != nil {
				logger.Warn("reloading settings: %v", err)
				return
			}
			applyLogSettings(reloaded.Log)
		},
	})
	cli.SetVersion(version)

	return cli.Execute()
}

// applyLogSettings configures the logger from the settings file.
func applyLogSettings(s domain.LogSettings) {
	logger.SetVerbose(s.Verbose)
	if err := logger.SetFile(s.File); err != nil {
		logger.Warn("opening log file: %v", err)
	}
}
