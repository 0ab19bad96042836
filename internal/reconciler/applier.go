package reconciler

import (
	"context"
	"fmt"

	"driftsync/internal/api"
	"driftsync/pkg/logging"
)

// TreeWriter mutates the checked-out working tree. Paths are relative to the
// tree root.
type TreeWriter interface {
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error
}

// InstanceWriter mutates the live instance store.
type InstanceWriter interface {
	Write(ctx context.Context, key ResourceKey, content []byte) error
	Delete(ctx context.Context, key ResourceKey) error
}

// Applier executes the pending actions of a plan. Each action maps 1:1 to a
// write or delete call; actions run sequentially in planner emission order,
// with no retries and no rollback of earlier actions when a later one fails.
type Applier struct {
	tree     TreeWriter
	instance InstanceWriter
}

// NewApplier creates an applier over the two mutation surfaces.
func NewApplier(tree TreeWriter, instance InstanceWriter) *Applier {
	return &Applier{tree: tree, instance: instance}
}

// Apply executes the action list. A failing action that is content-related
// (a ValidationError from the instance store) surfaces per the
// onInvalidContent policy; any other failure is fatal to the run.
//
// Earlier, already-applied actions are intentionally left in place when a
// later action fails. The caller's diff artifact reflects the full plan, not
// the subset that was applied.
func (a *Applier) Apply(ctx context.Context, actions []PendingAction, policy SyncPolicy) error {
	for _, action := range actions {
		if err := a.applyOne(ctx, action); err != nil {
			if api.IsValidation(err) {
				switch policy.OnInvalidContent {
				case InvalidSkip:
					logging.Debug("Applier", "Skipping %s: %v", action.Key, err)
					continue
				case InvalidWarn:
					logging.Warn("Applier", "Continuing after invalid content for %s: %v", action.Key, err)
					continue
				}
			}
			return fmt.Errorf("applying %s %s to %s: %w", action.Op, action.Key, action.Destination, err)
		}
		logging.Debug("Applier", "Applied %s %s to %s", action.Op, action.Key, action.Destination)
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, action PendingAction) error {
	switch action.Destination {
	case DestinationTree:
		if a.tree == nil {
			return fmt.Errorf("no tree writer configured")
		}
		if action.Op == OpWrite {
			return a.tree.WriteFile(action.TreePath, action.Content)
		}
		return a.tree.DeleteFile(action.TreePath)
	case DestinationInstance:
		if a.instance == nil {
			return fmt.Errorf("no instance writer configured")
		}
		if action.Op == OpWrite {
			return a.instance.Write(ctx, action.Key, action.Content)
		}
		return a.instance.Delete(ctx, action.Key)
	default:
		return fmt.Errorf("unknown destination %q", action.Destination)
	}
}
