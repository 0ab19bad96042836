package reconciler

import (
	"fmt"
	"strings"
)

// Kind identifies the resource kind a record belongs to.
type Kind string

const (
	// KindDefinition is a workflow definition, stored as YAML text.
	KindDefinition Kind = "DEFINITION"
	// KindFile is an opaque namespace file, compared byte-exact.
	KindFile Kind = "FILE"
	// KindDashboard is a dashboard specification, stored as JSON text.
	KindDashboard Kind = "DASHBOARD"
)

// Origin identifies which side a record was read from.
type Origin string

const (
	// OriginTree marks records read from the version-controlled checkout.
	OriginTree Origin = "TREE"
	// OriginInstance marks records read from the live instance store.
	OriginInstance Origin = "INSTANCE"
)

// Destination identifies which side a pending action mutates.
type Destination string

const (
	// DestinationTree targets the checked-out working tree.
	DestinationTree Destination = "TREE"
	// DestinationInstance targets the live instance store.
	DestinationInstance Destination = "INSTANCE"
)

// ResourceKey uniquely identifies a resource across both sides.
//
// Scope is the namespace the resource lives in, or "" for globally-scoped
// kinds (dashboards). For KindFile the ID is itself a relative path.
type ResourceKey struct {
	Scope string
	ID    string
	Kind  Kind
}

// String renders the key as "<scope>/<kind>/<id>" (or "<kind>/<id>" for
// global kinds). This form is used in logs and in the diff artifact.
func (k ResourceKey) String() string {
	if k.Scope == "" {
		return fmt.Sprintf("%s/%s", k.Kind, k.ID)
	}
	return fmt.Sprintf("%s/%s/%s", k.Scope, k.Kind, k.ID)
}

// ResourceRecord is one side's snapshot of a single resource.
//
// ChangeMarker is an opaque revision number, timestamp, or content hash used
// only for equality checks, never for ordering. TreePath is the path of the
// resource relative to the tree root; it is set for tree-side records and
// left empty for instance-side ones.
type ResourceRecord struct {
	Key          ResourceKey
	Content      []byte
	Origin       Origin
	ChangeMarker string
	TreePath     string
}

// Action is the reconciliation outcome decided for a single resource.
type Action string

const (
	ActionAdded               Action = "ADDED"
	ActionUpdatedToTree       Action = "UPDATED_TO_TREE"
	ActionUpdatedToInstance   Action = "UPDATED_TO_INSTANCE"
	ActionUnchanged           Action = "UNCHANGED"
	ActionDeletedFromTree     Action = "DELETED_FROM_TREE"
	ActionDeletedFromInstance Action = "DELETED_FROM_INSTANCE"
	ActionSkippedProtected    Action = "SKIPPED_PROTECTED"
)

// Decision records the planner's verdict for one resource. TreePath is ""
// when the resource has no tree-side path (a pure instance-side deletion).
type Decision struct {
	Key      ResourceKey
	TreePath string
	Action   Action
}

// PendingOp is the discriminator of the PendingAction tagged union.
type PendingOp string

const (
	// OpWrite writes content to the destination side.
	OpWrite PendingOp = "WRITE"
	// OpDelete removes the resource from the destination side.
	OpDelete PendingOp = "DELETE"
)

// PendingAction is one side effect implied by a Decision. The planner emits
// these as plain values so that planning stays a pure function and the
// applier is a thin interpreter over the list.
type PendingAction struct {
	Op          PendingOp
	Key         ResourceKey
	Destination Destination

	// Content is the payload for OpWrite; nil for OpDelete.
	Content []byte

	// TreePath is the tree-relative target path for tree-destined actions.
	TreePath string
}

// Plan is the full, side-effect-free output of one planning pass.
type Plan struct {
	// Decisions is sorted ascending by tree-side path, entries without a
	// tree-side path last. This ordering is used for the diff artifact.
	Decisions []Decision

	// Actions is in execution order: shallow paths before deep ones, so
	// parent directories exist before children are written.
	Actions []PendingAction
}

// Counts tallies decisions per action, for run summaries and commit messages.
func (p *Plan) Counts() map[Action]int {
	counts := make(map[Action]int)
	for _, d := range p.Decisions {
		counts[d.Action]++
	}
	return counts
}

// HasChanges reports whether the plan implies any mutation on either side.
func (p *Plan) HasChanges() bool {
	return len(p.Actions) > 0
}

// pathDepth counts the path separators in a tree path; it orders shallow
// paths before nested ones.
func pathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/")
}
