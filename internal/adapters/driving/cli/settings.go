package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the remote backend, sync tuning, background sync,
logging and tracing.

Settings are stored in ~/.versesync/config.toml and may also be edited by
hand.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Configure the remote backend",
	Long:  `Set the REST endpoint URL, API key and request rate of the remote backend.`,
	RunE:  runSettingsRemote,
}

var settingsTracingCmd = &cobra.Command{
	Use:   "tracing",
	Short: "Select the trace exporter",
	RunE:  runSettingsTracing,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsRemoteCmd)
	settingsCmd.AddCommand(settingsTracingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(output.Title.Render("Current Settings"))
	cmd.Println()

	cmd.Println(output.Header.Render("[Remote]"))
	if settings.Remote.IsConfigured() {
		cmd.Printf("  URL: %s\n", settings.Remote.URL)
	} else {
		cmd.Printf("  URL: (not set)\n")
	}
	if settings.Remote.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Remote.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Printf("  Requests/second: %g\n", settings.Remote.RequestsPerSecond)
	cmd.Printf("  Timeout: %s\n", settings.Remote.Timeout)
	cmd.Println()

	cmd.Println(output.Header.Render("[Sync]"))
	cmd.Printf("  Batch size: %d\n", settings.Sync.BatchSize)
	cmd.Printf("  Fetch attempts: %d\n", settings.Sync.MaxFetchAttempts)
	cmd.Printf("  Version cache TTL: %s\n", settings.Sync.VersionCacheTTL)
	cmd.Println()

	cmd.Println(output.Header.Render("[Background]"))
	if settings.Background.Enabled {
		cmd.Printf("  Enabled: yes\n")
		cmd.Printf("  Interval: %s\n", settings.Background.Interval)
		cmd.Printf("  Cooldown: %s\n", settings.Background.Cooldown)
		cmd.Printf("  Batch size: %d\n", settings.Background.BatchSize)
	} else {
		cmd.Printf("  Enabled: no\n")
	}
	cmd.Println()

	cmd.Println(output.Header.Render("[Logging]"))
	cmd.Printf("  Verbose: %t\n", settings.Log.Verbose)
	if settings.Log.File != "" {
		cmd.Printf("  File: %s\n", settings.Log.File)
	}
	cmd.Printf("  Tracing: %s\n", settings.Tracing)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(output.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'versesync settings remote' to configure the backend.")
	} else {
		cmd.Println(output.Success.Render("Configuration is valid."))
	}

	return nil
}

func runSettingsRemote(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Printf("REST endpoint URL [%s]: ", settings.Remote.URL)
	if url := readLine(reader); url != "" {
		settings.Remote.URL = url
	}

	cmd.Print("API key (leave empty to keep current): ")
	if key := readPassword(cmd.InOrStdin(), reader); key != "" {
		settings.Remote.APIKey = key
	}
	cmd.Println()

	cmd.Printf("Requests per second [%g]: ", settings.Remote.RequestsPerSecond)
	if input := readLine(reader); input != "" {
		rps, err := strconv.ParseFloat(input, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("invalid requests per second %q", input)
		}
		settings.Remote.RequestsPerSecond = rps
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println(output.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		return nil
	}
	cmd.Printf("Remote backend configured: %s\n", settings.Remote.URL)
	return nil
}

func runSettingsTracing(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	exporters := []domain.TracingExporter{domain.TracingNone, domain.TracingStdout}
	cmd.Println("Select Trace Exporter")
	for i, e := range exporters {
		cmd.Printf("  %d. %s\n", i+1, e)
	}
	cmd.Print("\nEnter choice [1]: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	idx := parseChoice(readLine(reader), len(exporters), 1)
	settings.Tracing = exporters[idx-1]

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Trace exporter set to: %s\n", settings.Tracing)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a line without echo when in is a terminal, and
// falls back to the buffered reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
