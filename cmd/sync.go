package cmd

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"driftsync/internal/formatting"
)

// syncDryRun plans and records without applying, like the plan command but
// through the sync entry point.
var syncDryRun bool

// syncOutput selects the output format for the sync command.
var syncOutput string

// syncOverrides carries the shared sync flags for the sync command.
var syncOverrides runOverrides

// newSyncCmd creates the Cobra command that executes a full reconciliation
// run.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the tree and the instance, applying all planned changes",
		Long: `Runs one full reconciliation: checkout, plan, apply, commit and push
tree-side changes, and record the diff artifact. The source of truth and
the handling of missing or invalid resources come from the configuration
and can be overridden per invocation.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}

	registerOverrideFlags(cmd, &syncOverrides)
	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Plan and record only, without applying")
	cmd.Flags().StringVarP(&syncOutput, "output", "o", "table", "Output format: table or json")
	return cmd
}

// runSync executes the reconciliation run with a progress spinner on
// interactive terminals.
func runSync(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseFormat(syncOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfiguration(syncOverrides)
	if err != nil {
		return err
	}

	var s *spinner.Spinner
	if format == formatting.FormatTable && !rootQuiet && isatty.IsTerminal(os.Stdout.Fd()) {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Reconciling..."
		s.Start()
	}

	result, err := executeRun(cmd.Context(), cfg, syncDryRun, false)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatting.FormatJSON {
		return formatting.WriteJSON(out, result)
	}
	formatting.PlanTable(out, result.Decisions)
	formatting.Summary(out, result)
	return nil
}
