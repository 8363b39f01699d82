// Package cli implements the versesync command line with cobra.
//
// Commands are package-level cobra.Command values registered in init
// functions. The services they drive are injected once at startup with
// SetServices.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/versesync/internal/core/ports/driven"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
	"github.com/custodia-labs/versesync/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services holds the core services the commands drive.
type Services struct {
	// Sync holds one service per sync domain, in sync order.
	Sync []driving.SyncService

	// Settings reads and writes the configuration file.
	Settings driving.SettingsService

	// Background registers the periodic sync with the scheduler.
	Background driving.BackgroundSync

	// Scheduler runs registered tasks for the daemon command.
	Scheduler driving.Scheduler

	// ConfigWatcher reports edits to the configuration file. Optional.
	ConfigWatcher driven.ConfigWatcher

	// OnConfigChange is called by the daemon after the configuration
	// file is reloaded. Optional.
	OnConfigChange func()
}

var (
	syncServices    []driving.SyncService
	settingsService driving.SettingsService
	backgroundSync  driving.BackgroundSync
	scheduler       driving.Scheduler
	configWatcher   driven.ConfigWatcher
	onConfigChange  func()
)

var (
	verboseFlag bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "versesync",
	Short: "Offline-first replication of Bible and media content",
	Long: `versesync keeps a local SQLite copy of Bible text and media metadata
in step with a remote PostgREST backend.

Each sync fetches only rows changed since the last run, in dependency
order, and can verify that local and remote row counts agree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verboseFlag {
			logger.SetVerbose(true)
		}
		output = newStyles(useColor(cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable coloured output")
	rootCmd.SetVersionTemplate("versesync version {{.Version}}\n")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	syncServices = s.Sync
	settingsService = s.Settings
	backgroundSync = s.Background
	scheduler = s.Scheduler
	configWatcher = s.ConfigWatcher
	onConfigChange = s.OnConfigChange
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// handed to commands.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, falling back to Background
// when the command runs without ExecuteContext (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// selectServices returns the sync services for domainName, or all of
// them when domainName is empty.
func selectServices(domainName string) ([]driving.SyncService, error) {
	if len(syncServices) == 0 {
		return nil, errors.New("sync service not configured")
	}
	if domainName == "" {
		return syncServices, nil
	}
	for _, svc := range syncServices {
		if svc.Domain() == domainName {
			return []driving.SyncService{svc}, nil
		}
	}
	return nil, fmt.Errorf("unknown sync domain %q", domainName)
}

// serviceForTable returns the sync service that owns table.
func serviceForTable(table string) (driving.SyncService, error) {
	if len(syncServices) == 0 {
		return nil, errors.New("sync service not configured")
	}
	for _, svc := range syncServices {
		for _, name := range svc.Tables() {
			if name == table {
				return svc, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown table %q", table)
}
