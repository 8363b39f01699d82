package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// errAborted is returned when the user declines a confirmation prompt.
var errAborted = errors.New("aborted")

var clearYes bool

var resetCmd = &cobra.Command{
	Use:   "reset [table]",
	Short: "Forget sync progress so the next sync is full",
	Long: `Rewinds the sync watermark of a table, or of every table, to the
beginning. Local rows are kept and overwritten by the next sync.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

var clearCmd = &cobra.Command{
	Use:   "clear [table]",
	Short: "Delete local rows and reset sync progress",
	Long: `Deletes the local rows of a table, or of every table, and rewinds
its sync watermark. Child tables are cleared before their parents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(clearCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	services, table, err := servicesForArgs(args)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	for _, svc := range services {
		if err := svc.ResetSyncMetadata(ctx, table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", svc.Domain(), err)
		}
	}

	cmd.Printf("Sync progress reset for %s.\n", target(table))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	services, table, err := servicesForArgs(args)
	if err != nil {
		return err
	}

	if !clearYes {
		cmd.Printf("Delete all local rows of %s? Type 'yes' to continue: ", target(table))
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n') //nolint:errcheck // EOF means no
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			return errAborted
		}
	}

	ctx := commandContext(cmd)
	for _, svc := range services {
		if err := svc.ClearLocalData(ctx, table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", svc.Domain(), err)
		}
	}

	cmd.Printf("Local data cleared for %s.\n", target(table))
	return nil
}

func target(table string) string {
	if table == "" {
		return "all tables"
	}
	return table
}
