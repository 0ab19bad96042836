package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"driftsync/internal/api"
	"driftsync/internal/config"
	"driftsync/internal/mcpserver"
	"driftsync/internal/reconciler"
	"driftsync/internal/watch"
	"driftsync/pkg/logging"
)

// serveStandalone replaces the live instance with an in-memory store. Useful
// for demos and for exploring policies without a real instance.
var serveStandalone bool

// serveWatch enables filesystem watching of the local resource tree named by
// watch.path.
var serveWatch bool

// serveOverrides carries the shared sync flags for the serve command.
var serveOverrides runOverrides

// newServeCmd creates the Cobra command that runs driftsync as a long-lived
// MCP server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reconciliation tools over MCP and keep both sides in sync",
		Long: `Runs driftsync as a long-lived process. It exposes the sync_plan,
sync_apply and sync_status tools over MCP stdio so AI assistants and other
MCP clients can drive reconciliation.

With watch.interval configured, a full reconciliation also runs on a timer.
With --watch and watch.path configured, changes to that local tree trigger
a run as soon as they settle.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	registerOverrideFlags(cmd, &serveOverrides)
	cmd.Flags().BoolVar(&serveStandalone, "standalone", false, "Use an in-memory instance store instead of the configured endpoint")
	cmd.Flags().BoolVar(&serveWatch, "watch", false, "Trigger runs on local tree changes (requires watch.path)")
	return cmd
}

// runServe starts the background triggers and serves MCP until the client
// disconnects.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration(serveOverrides)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	run := func(ctx context.Context, dryRun bool) (*reconciler.Result, error) {
		return executeRun(ctx, cfg, dryRun, serveStandalone)
	}

	if interval := cfg.Watch.Interval.Std(); interval > 0 {
		go runPeriodically(ctx, run, interval)
	}

	if serveWatch {
		watcher, err := startTreeWatcher(ctx, cfg, run)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	server := mcpserver.NewServer(run, cfg.Artifacts.Dir, GetVersion())
	return server.Start(ctx)
}

// runPeriodically executes full reconciliation runs on a fixed cadence until
// the context is cancelled.
func runPeriodically(ctx context.Context, run mcpserver.RunFunc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := run(ctx, false); err != nil {
				logging.Error("Serve", err, "Periodic reconciliation failed")
			}
		}
	}
}

// startTreeWatcher watches the configured local tree and triggers a run
// whenever it settles after a change. The watched tree must not be the
// checkout directory: every run clears and re-clones the checkout, which
// would destroy the watches and retrigger the run it came from.
func startTreeWatcher(ctx context.Context, cfg config.Config, run mcpserver.RunFunc) (*watch.TreeWatcher, error) {
	if cfg.Watch.Path == "" {
		return nil, api.NewConfigurationError("watch.path", "must be set when --watch is enabled")
	}
	if cfg.Git.CheckoutDir != "" && filepath.Clean(cfg.Watch.Path) == filepath.Clean(cfg.Git.CheckoutDir) {
		return nil, api.NewConfigurationError("watch.path", "must differ from git.checkoutDir: runs re-clone the checkout directory")
	}

	watcher := watch.NewTreeWatcher(watch.TreeWatcherConfig{
		Root:     cfg.Watch.Path,
		Debounce: cfg.Watch.Debounce.Std(),
		OnChange: func() {
			if _, err := run(ctx, false); err != nil {
				logging.Error("Serve", err, "Watch-triggered reconciliation failed")
			}
		},
	})
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}
