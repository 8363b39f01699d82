package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

var verifyChecksum bool

var needsUpdateCmd = &cobra.Command{
	Use:   "needs-update",
	Short: "Check whether the remote has changes to pull",
	Long: `Compares content versions, row counts and watermarks with the remote
and lists the tables that a sync would fetch.`,
	Args: cobra.NoArgs,
	RunE: runNeedsUpdate,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare local and remote row counts",
	Long: `Counts the rows of every table locally and remotely and reports
tables whose counts differ. With --checksum a digest of each local table
is printed so copies on different devices can be compared.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyChecksum, "checksum", false, "print a checksum of each local table")
	rootCmd.AddCommand(needsUpdateCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runNeedsUpdate(cmd *cobra.Command, _ []string) error {
	services, err := selectServices("")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	for _, svc := range services {
		check, err := svc.NeedsUpdate(ctx)
		if err != nil {
			return fmt.Errorf("update check failed for %s: %w", svc.Domain(), err)
		}
		if !check.NeedsUpdate {
			cmd.Printf("%s: %s\n", svc.Domain(), output.Success.Render("up to date"))
			continue
		}
		cmd.Printf("%s: %s\n", svc.Domain(), output.Warning.Render("updates available"))
		for _, table := range check.Tables {
			cmd.Printf("  %s (%s)\n", table, check.Reasons[table])
		}
	}
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	services, err := selectServices("")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	incomplete := 0
	for _, svc := range services {
		report, err := svc.VerifySyncCompleteness(ctx)
		if err != nil {
			return fmt.Errorf("verification failed for %s: %w", svc.Domain(), err)
		}

		sums := map[string]string{}
		if verifyChecksum {
			stats, err := svc.LocalStats(ctx, "", true)
			if err != nil {
				return fmt.Errorf("checksum failed for %s: %w", svc.Domain(), err)
			}
			for _, st := range stats {
				sums[st.TableName] = st.Checksum
			}
		}

		cmd.Println(output.Title.Render(svc.Domain()))
		cmd.Println(completenessTable(report, sums))
		incomplete += report.IncompleteTables
	}

	if incomplete > 0 {
		return fmt.Errorf("%w: %d table(s) differ from the remote", domain.ErrCompletenessMismatch, incomplete)
	}
	cmd.Println(output.Success.Render("All tables complete."))
	return nil
}

func completenessTable(report *domain.CompletenessReport, sums map[string]string) string {
	headers := []string{"TABLE", "LOCAL", "REMOTE", "STATUS"}
	if len(sums) > 0 {
		headers = append(headers, "CHECKSUM")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, tc := range report.Tables {
		status := statusLabel(tc.IsComplete)
		if tc.Error != "" {
			status = output.Error.Render(tc.Error)
		}
		row := []string{tc.TableName, strconv.Itoa(tc.LocalCount), strconv.Itoa(tc.RemoteCount), status}
		if len(sums) > 0 {
			row = append(row, shortSum(sums[tc.TableName]))
		}
		t.Row(row...)
	}
	return t.String()
}

// shortSum abbreviates a hex digest for display.
func shortSum(sum string) string {
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}
