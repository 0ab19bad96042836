package cmd

import (
	"github.com/spf13/cobra"

	"driftsync/internal/formatting"
)

// planOutput selects the output format for the plan command.
var planOutput string

// planOverrides carries the shared sync flags for the plan command.
var planOverrides runOverrides

// newPlanCmd creates the Cobra command that computes a reconciliation plan
// without applying it.
func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the reconciliation plan without changing anything",
		Long: `Checks out the resource tree, reads both sides and prints the decision
for every resource in scope. Nothing is written to either side; the plan is
still recorded as a diff artifact so it can be reviewed later.`,
		Args: cobra.NoArgs,
		RunE: runPlan,
	}

	registerOverrideFlags(cmd, &planOverrides)
	cmd.Flags().StringVarP(&planOutput, "output", "o", "table", "Output format: table or json")
	return cmd
}

// runPlan executes a dry-run reconciliation and prints the decisions.
func runPlan(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfiguration(planOverrides)
	if err != nil {
		return err
	}

	result, err := executeRun(cmd.Context(), cfg, true, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatting.FormatJSON {
		return formatting.WriteJSON(out, struct {
			RunID     string      `json:"runId"`
			Decisions interface{} `json:"decisions"`
			Diff      interface{} `json:"diff"`
		}{result.RunID, result.Decisions, result.Diff})
	}

	formatting.PlanTable(out, result.Decisions)
	formatting.Summary(out, result)
	return nil
}
