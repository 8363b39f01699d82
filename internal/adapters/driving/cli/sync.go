package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

var (
	syncForce     bool
	syncBatchSize int
	syncDomain    string
	syncTables    []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull remote changes into the local store",
	Long: `Fetches rows changed since the last sync for every table, parents
before children. Tables with nothing new are skipped.

With --force every row is refetched and local and remote counts are
verified afterwards.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "refetch every row and verify completeness")
	syncCmd.Flags().IntVarP(&syncBatchSize, "batch-size", "b", 0, "rows per fetch (default from config)")
	syncCmd.Flags().StringVarP(&syncDomain, "domain", "d", "", "sync only this domain (bible or media)")
	syncCmd.Flags().StringSliceVarP(&syncTables, "table", "t", nil, "sync only these tables")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	services, err := selectServices(syncDomain)
	if err != nil {
		return err
	}
	for _, name := range syncTables {
		if _, err := domain.LookupTable(name); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	failed := 0

	for _, svc := range services {
		tables := tablesFor(svc, syncTables)
		if len(syncTables) > 0 && len(tables) == 0 {
			continue
		}

		cmd.Println(output.Title.Render("Syncing " + svc.Domain()))
		unsubscribe := svc.OnSync(progressPrinter(cmd))

		var results []domain.SyncResult
		if syncForce && len(tables) == 0 && syncBatchSize == 0 {
			results, err = svc.ForceFullSync(ctx)
		} else {
			results, err = svc.SyncAll(ctx, domain.SyncOptions{
				ForceFullSync: syncForce,
				BatchSize:     syncBatchSize,
				Tables:        tables,
			})
		}
		unsubscribe()
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		printResults(cmd, results)
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("sync failed: %d table(s) did not sync", failed)
	}
	return nil
}

// tablesFor keeps the names that belong to svc.
func tablesFor(svc driving.SyncService, names []string) []string {
	owned := svc.Tables()
	var out []string //nolint:prealloc // usually empty
	for _, name := range names {
		if slices.Contains(owned, name) {
			out = append(out, name)
		}
	}
	return out
}

// progressPrinter prints one line per finished table.
func progressPrinter(cmd *cobra.Command) driving.SyncListener {
	return func(p domain.SyncProgress) {
		if !p.Running || p.Table == "" {
			return
		}
		cmd.Println(output.Muted.Render(fmt.Sprintf("  [%d/%d] %s", p.Completed, p.Total, p.Table)))
	}
}

func printResults(cmd *cobra.Command, results []domain.SyncResult) {
	if len(results) == 1 && results[0].TableName == domain.AllTablesName {
		r := results[0]
		switch {
		case !r.Success:
			cmd.Println(output.Error.Render("Sync failed: " + r.Error))
		case r.Warning != "":
			cmd.Println(output.Warning.Render(r.Warning))
		default:
			cmd.Println(output.Success.Render("Already up to date."))
		}
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TABLE", "STATUS", "RECORDS", "DETAIL")
	for _, r := range results {
		detail := r.Error
		if detail == "" {
			detail = r.Warning
		}
		t.Row(r.TableName, statusLabel(r.Success), strconv.Itoa(r.RecordsSynced), detail)
	}
	cmd.Println(t.String())
}
