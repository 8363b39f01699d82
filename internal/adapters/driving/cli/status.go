package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/versesync/internal/core/domain"
	"github.com/custodia-labs/versesync/internal/core/ports/driving"
)

var statusCmd = &cobra.Command{
	Use:   "status [table]",
	Short: "Show sync state of local tables",
	Long: `Shows the sync watermark, status, content version and local row
count of every table, or of a single table. Does not contact the remote.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	services, tableArg, err := servicesForArgs(args)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	for _, svc := range services {
		metas, err := svc.GetSyncMetadata(ctx, tableArg)
		if err != nil {
			return fmt.Errorf("failed to read sync metadata: %w", err)
		}
		stats, err := svc.LocalStats(ctx, tableArg, false)
		if err != nil {
			return fmt.Errorf("failed to count local rows: %w", err)
		}
		counts := make(map[string]int, len(stats))
		for _, st := range stats {
			counts[st.TableName] = st.RowCount
		}

		cmd.Println(output.Title.Render(svc.Domain()))
		if svc.IsSyncInProgress() {
			cmd.Println(output.Warning.Render("  sync in progress"))
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TABLE", "STATUS", "ROWS", "LAST SYNC", "VERSION", "ERROR")
		for _, m := range metas {
			t.Row(
				m.TableName,
				statusText(m.SyncStatus),
				strconv.Itoa(counts[m.TableName]),
				lastSyncText(m),
				m.ContentVersion,
				m.ErrorMessage,
			)
		}
		cmd.Println(t.String())
	}
	return nil
}

// servicesForArgs resolves an optional table argument to the services
// that should handle it.
func servicesForArgs(args []string) ([]driving.SyncService, string, error) {
	if len(args) == 0 {
		services, err := selectServices("")
		return services, "", err
	}
	svc, err := serviceForTable(args[0])
	if err != nil {
		return nil, "", err
	}
	return []driving.SyncService{svc}, args[0], nil
}

func statusText(s domain.SyncStatus) string {
	switch s {
	case domain.SyncStatusError:
		return output.Error.Render(string(s))
	case domain.SyncStatusSyncing:
		return output.Warning.Render(string(s))
	default:
		return string(s)
	}
}

func lastSyncText(m domain.SyncMetadata) string {
	if !m.LastSync.After(domain.EpochZero) {
		return output.Muted.Render("never")
	}
	return m.LastSync.UTC().Format("2006-01-02 15:04:05")
}
