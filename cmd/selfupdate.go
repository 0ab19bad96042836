package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// releaseSlug is the GitHub repository (owner/repo) that publishes releases.
const releaseSlug = "driftsync-io/driftsync"

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update driftsync to the latest release",
		Long: `Checks GitHub for a newer driftsync release and replaces the
running binary when one is available.`,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	// Development builds carry no comparable version.
	if current == "" || current == "dev" {
		return fmt.Errorf("cannot self-update a development build")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current version: %s\n", current)

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("creating updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(cmd.Context(), selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return fmt.Errorf("checking for releases: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", releaseSlug)
	}

	if !latest.GreaterThan(current) {
		fmt.Fprintln(cmd.OutOrStdout(), "Already up to date.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updating to %s (published %s)\n", latest.Version(), latest.PublishedAt)

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	if err := updater.UpdateTo(cmd.Context(), latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated to %s\n", latest.Version())
	return nil
}
