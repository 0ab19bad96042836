package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"driftsync/internal/api"
	"driftsync/pkg/logging"
)

// Exit codes for CLI commands. These follow common conventions so scripts
// can distinguish configuration mistakes from sync conflicts.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates invalid or incomplete configuration.
	ExitCodeConfig = 2
	// ExitCodeConflict indicates the run stopped on a sync conflict (missing
	// resource under FAIL policy, rejected push).
	ExitCodeConflict = 3
)

// rootConfigPath specifies a custom configuration directory path.
// When unset, configuration loads from ~/.config/driftsync.
var rootConfigPath string

// rootDebug enables verbose logging across the application.
var rootDebug bool

// rootQuiet suppresses informational logging, leaving warnings and errors.
var rootQuiet bool

// rootCmd represents the base command for the driftsync application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "driftsync",
	Short: "Reconcile workflow resources between a git tree and a live instance",
	Long: `driftsync keeps workflow definitions, namespace files and dashboards
in sync between a git repository and a live orchestration instance.

One side is declared the source of truth; driftsync plans the difference,
applies it to the other side, commits and pushes tree changes, and records
every decision in a reproducible diff artifact.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupFromFlags(rootDebug, rootQuiet)
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It initializes
// and executes the root command, which in turn handles subcommands and
// flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "driftsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if api.IsConfiguration(err) {
		return ExitCodeConfig
	}
	if api.IsConflict(err) {
		return ExitCodeConflict
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory (default is $HOME/.config/driftsync)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&rootQuiet, "quiet", false, "Only log warnings and errors")

	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
