package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"driftsync/internal/config"
	"driftsync/internal/instance"
	"driftsync/internal/kinds"
	"driftsync/internal/reconciler"
	"driftsync/internal/template"
	"driftsync/internal/tree"
	"driftsync/internal/vcs"
)

// runOverrides carries per-invocation flag values that take precedence over
// the configuration file.
type runOverrides struct {
	repository      string
	branch          string
	namespaces      []string
	kinds           []string
	sourceOfTruth   string
	missingInSource string
	protectedScopes []string
}

// applyTo merges the set flags into the loaded configuration.
func (o runOverrides) applyTo(cfg *config.Config) {
	if o.repository != "" {
		cfg.Sync.Repository = o.repository
	}
	if o.branch != "" {
		cfg.Sync.Branch = o.branch
	}
	if len(o.namespaces) > 0 {
		cfg.Sync.Namespaces = o.namespaces
	}
	if len(o.kinds) > 0 {
		cfg.Sync.Kinds = o.kinds
	}
	if o.sourceOfTruth != "" {
		cfg.Sync.SourceOfTruth = o.sourceOfTruth
	}
	if o.missingInSource != "" {
		cfg.Sync.WhenMissingInSource = o.missingInSource
	}
	if len(o.protectedScopes) > 0 {
		cfg.Sync.ProtectedScopes = o.protectedScopes
	}
}

// registerOverrideFlags wires the shared sync flags onto a command.
func registerOverrideFlags(cmd *cobra.Command, o *runOverrides) {
	cmd.Flags().StringVar(&o.repository, "repository", "", "Git remote holding the resource tree")
	cmd.Flags().StringVar(&o.branch, "branch", "", "Branch to reconcile against")
	cmd.Flags().StringSliceVar(&o.namespaces, "namespace", nil, "Namespace to reconcile (repeatable)")
	cmd.Flags().StringSliceVar(&o.kinds, "kind", nil, "Resource kind to reconcile: workflows, files, dashboards (repeatable)")
	cmd.Flags().StringVar(&o.sourceOfTruth, "source-of-truth", "", "Which side wins on conflict: TREE or INSTANCE")
	cmd.Flags().StringVar(&o.missingInSource, "when-missing", "", "Handling of resources missing in the source: DELETE, KEEP or FAIL")
	cmd.Flags().StringSliceVar(&o.protectedScopes, "protected-scope", nil, "Namespace prefix exempt from deletion (repeatable)")
}

// loadConfiguration loads config.yaml from --config-path or the user
// default and merges the overrides over it.
func loadConfiguration(overrides runOverrides) (config.Config, error) {
	path := rootConfigPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, err
	}
	overrides.applyTo(&cfg)
	return cfg, nil
}

// buildOrchestrator wires one reconciliation run from the configuration.
// With standalone the instance side is an in-memory store instead of the
// HTTP API, which is useful for demos and local experiments.
func buildOrchestrator(cfg config.Config, dryRun, standalone bool) (*reconciler.Orchestrator, error) {
	cfg.Sync.DryRun = dryRun

	runCfg, err := cfg.RunConfig()
	if err != nil {
		return nil, err
	}

	var store reconciler.InstanceStore
	if standalone {
		memory := instance.NewMemoryStore()
		memory.Validating = true
		store = memory
	} else {
		clientCfg, err := cfg.ClientConfig()
		if err != nil {
			return nil, err
		}
		client, err := instance.NewAPIClient(clientCfg)
		if err != nil {
			return nil, err
		}
		store = client
	}

	vcsOpts, err := cfg.VCSOptions()
	if err != nil {
		return nil, err
	}

	renderer, err := template.NewRenderer(cfg.Commit.MessageTemplate)
	if err != nil {
		return nil, err
	}

	prefix := cfg.Sync.DirectoryPrefix
	orchestrator := reconciler.NewOrchestrator(
		runCfg,
		reconciler.NewPlanner(kinds.Hooks()),
		reconciler.NewRecorder(cfg.Artifacts.Dir),
		vcs.New(vcsOpts),
		store,
		func(root string) reconciler.TreeSide { return tree.NewSide(root, prefix) },
		kinds.GlobalKinds(),
		func(plan *reconciler.Plan) (string, error) {
			// The run id is not known to the plan; the message carries the
			// branch and counts, which is what reviewers read.
			return renderer.Render(template.ContextFor("", runCfg, plan.Counts()))
		},
	)
	return orchestrator, nil
}

// executeRun builds and runs one reconciliation pass.
func executeRun(ctx context.Context, cfg config.Config, dryRun, standalone bool) (*reconciler.Result, error) {
	orchestrator, err := buildOrchestrator(cfg, dryRun, standalone)
	if err != nil {
		return nil, err
	}
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return result, fmt.Errorf("reconciliation run failed: %w", err)
	}
	return result, nil
}
