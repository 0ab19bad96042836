// Package formatting renders plans and run results for the CLI.
//
// Output comes in two flavors: rich tables for humans (go-pretty, colors
// keyed to the action) and compact JSON for scripting. The --output flag on
// the plan and sync commands selects between them.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"driftsync/internal/reconciler"
	pkgstrings "driftsync/pkg/strings"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

// ParseFormat validates an --output flag value.
func ParseFormat(value string) (OutputFormat, error) {
	switch OutputFormat(value) {
	case FormatTable, FormatJSON:
		return OutputFormat(value), nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", value)
	}
}

// PlanTable renders the decision list as a table. Decisions arrive already
// in their deterministic order and are printed as-is.
func PlanTable(w io.Writer, decisions []reconciler.Decision) {
	if len(decisions) == 0 {
		fmt.Fprintln(w, text.FgYellow.Sprint("No resources in scope."))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("RESOURCE"),
		text.FgHiCyan.Sprint("KIND"),
		text.FgHiCyan.Sprint("PATH"),
		text.FgHiCyan.Sprint("ACTION"),
	})

	for _, d := range decisions {
		path := pkgstrings.TruncatePath(d.TreePath, pkgstrings.DefaultPathMaxLen)
		if path == "" {
			path = "-"
		}
		t.AppendRow(table.Row{
			d.Key.String(),
			string(d.Key.Kind),
			path,
			actionColor(d.Action).Sprint(string(d.Action)),
		})
	}

	t.Render()
}

// Summary prints the per-action counts and artifact location of a finished
// run.
func Summary(w io.Writer, result *reconciler.Result) {
	actions := make([]reconciler.Action, 0, len(result.Counts))
	for action := range result.Counts {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	mode := "sync"
	if result.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(w, "Run %s (%s) finished in phase %s\n", result.RunID, mode, result.Phase)
	for _, action := range actions {
		if result.Counts[action] == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s %d\n", actionColor(action).Sprintf("%-22s", string(action)), result.Counts[action])
	}
	if result.Diff.Path != "" {
		fmt.Fprintf(w, "Diff artifact: %s\n", result.Diff.Path)
	}
	if result.CommitID != "" {
		fmt.Fprintf(w, "Commit: %s", result.CommitID)
		if result.CommitURL != "" {
			fmt.Fprintf(w, " (%s)", result.CommitURL)
		}
		fmt.Fprintln(w)
		for _, stat := range result.FileStats {
			fmt.Fprintf(w, "  %s %s %s\n",
				pkgstrings.TruncatePath(stat.Path, pkgstrings.DefaultPathMaxLen),
				text.FgGreen.Sprintf("+%d", stat.Added),
				text.FgRed.Sprintf("-%d", stat.Deleted))
		}
	}
}

// WriteJSON renders any CLI payload as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// actionColor maps an action to its display color: green for additions,
// yellow for updates, red for deletions, dim for everything passive.
func actionColor(action reconciler.Action) text.Color {
	switch action {
	case reconciler.ActionAdded:
		return text.FgGreen
	case reconciler.ActionUpdatedToTree, reconciler.ActionUpdatedToInstance:
		return text.FgYellow
	case reconciler.ActionDeletedFromTree, reconciler.ActionDeletedFromInstance:
		return text.FgRed
	case reconciler.ActionSkippedProtected:
		return text.FgHiMagenta
	default:
		return text.FgHiBlack
	}
}
