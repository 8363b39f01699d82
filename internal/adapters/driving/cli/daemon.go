package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/versesync/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run background sync until interrupted",
	Long: `Registers the periodic background sync and runs the scheduler in the
foreground until interrupted. Each run is skipped while the cooldown since
the previous run has not elapsed. Edits to the configuration file are
picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if backgroundSync == nil || scheduler == nil {
		return errors.New("background sync not configured")
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	if err := backgroundSync.Register(ctx); err != nil {
		return fmt.Errorf("failed to register background sync: %w", err)
	}
	if !backgroundSync.IsRegistered() {
		cmd.Println(output.Warning.Render("Background sync is disabled; nothing to run."))
		return nil
	}

	var wg sync.WaitGroup
	if configWatcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := configWatcher.Watch(ctx, func() {
				logger.Info("configuration reloaded")
				if onConfigChange != nil {
					onConfigChange()
				}
			})
			if err != nil {
				logger.Error("config watch stopped: %v", err)
			}
		}()
	}

	cmd.Println(output.Title.Render("versesync daemon running. Press Ctrl+C to stop."))

	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Error("stopping scheduler: %v", stopErr)
	}
	cancel()
	wg.Wait()

	// Unregister with a fresh context; ctx is already cancelled.
	if unregErr := backgroundSync.Unregister(context.WithoutCancel(ctx)); unregErr != nil {
		logger.Warn("unregistering background sync: %v", unregErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	cmd.Println("Daemon stopped.")
	return nil
}
