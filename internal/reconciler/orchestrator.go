package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"driftsync/internal/api"
	"driftsync/pkg/logging"
)

// Phase names the step a run is currently executing. It appears in logs and
// in the persisted run status.
type Phase string

const (
	PhaseInit       Phase = "INIT"
	PhaseAcquire    Phase = "ACQUIRE_TREE"
	PhaseReadBoth   Phase = "READ_BOTH"
	PhasePlan       Phase = "PLAN"
	PhaseApply      Phase = "APPLY"
	PhaseCommitPush Phase = "COMMIT_PUSH"
	PhaseRecordDiff Phase = "RECORD_DIFF"
	PhaseDone       Phase = "DONE"
	PhaseFailed     Phase = "FAILED"
)

// ErrNoChanges is returned by VersionControl.Commit when the working tree is
// clean. The orchestrator treats it as "nothing to commit", not a failure.
var ErrNoChanges = errors.New("no changes to commit")

// CommitAuthor identifies the author of sync commits.
type CommitAuthor struct {
	Name  string
	Email string
}

// FileStat is a per-file change summary from the version-control side.
type FileStat struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

// VersionControl is the narrow contract the orchestrator consumes from the
// version-control collaborator. Checkout returns the root directory of the
// acquired working tree.
type VersionControl interface {
	Checkout(ctx context.Context, url, branch string, depth int) (string, error)
	StageAll(pattern string) error
	Commit(message string, author CommitAuthor) (string, error)
	Push(ctx context.Context) error
	DiffStats(cached bool) ([]FileStat, error)
}

// ResourceReader produces one side's snapshot for a (scope, kind) pair.
// Readers are side-effect-free.
type ResourceReader interface {
	Read(ctx context.Context, scope string, kind Kind) (map[ResourceKey]ResourceRecord, error)
}

// TreeSide is the checked-out tree: readable and writable, rooted at the
// directory Checkout returned.
type TreeSide interface {
	ResourceReader
	TreeWriter
}

// InstanceStore is the live instance's resource store: readable and
// writable.
type InstanceStore interface {
	ResourceReader
	InstanceWriter
}

// RunConfig carries everything one reconciliation run needs.
type RunConfig struct {
	// RepositoryURL is the git remote to check out.
	RepositoryURL string

	// Branch is the branch to reconcile against. Required.
	Branch string

	// CloneDepth limits history depth; 0 means full history.
	CloneDepth int

	// Namespaces are the scopes to reconcile for namespaced kinds.
	Namespaces []string

	// Kinds selects the resource kinds to reconcile.
	Kinds []Kind

	// Policy is the ownership policy for the run.
	Policy SyncPolicy

	// Author is used for sync commits.
	Author CommitAuthor
}

// Validate checks required fields. It runs before any I/O; a missing branch
// or scope is a fatal configuration error.
func (c *RunConfig) Validate(globalKinds map[Kind]bool) error {
	if c.RepositoryURL == "" {
		return api.NewConfigurationError("sync.repository", "must be set")
	}
	if c.Branch == "" {
		return api.NewConfigurationError("sync.branch", "must be set")
	}
	if len(c.Kinds) == 0 {
		return api.NewConfigurationError("sync.kinds", "at least one resource kind must be selected")
	}
	needsNamespace := false
	for _, kind := range c.Kinds {
		if !globalKinds[kind] {
			needsNamespace = true
		}
	}
	if needsNamespace && len(c.Namespaces) == 0 {
		return api.NewConfigurationError("sync.namespaces", "at least one namespace must be set for namespaced kinds")
	}
	return c.Policy.Validate()
}

// Result is what a finished run reports back to the caller.
type Result struct {
	RunID      string         `json:"runId"`
	Phase      Phase          `json:"phase"`
	DryRun     bool           `json:"dryRun"`
	Counts     map[Action]int `json:"counts"`
	Diff       ArtifactHandle `json:"diff"`
	CommitID   string         `json:"commitId,omitempty"`
	CommitURL  string         `json:"commitUrl,omitempty"`
	FileStats  []FileStat     `json:"fileStats,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`

	// Decisions is not persisted in the status file; the diff artifact is
	// the durable record.
	Decisions []Decision `json:"-"`
}

// Orchestrator sequences one reconciliation run: acquire tree, read both
// sides, plan, optionally apply and commit, always record the diff.
// Execution is single-threaded and synchronous; concurrent runs against the
// same branch or scope are not coordinated here.
type Orchestrator struct {
	cfg      RunConfig
	planner  *Planner
	recorder *Recorder
	vcs      VersionControl
	instance InstanceStore

	// newTreeSide builds the tree-side reader/writer over a checkout root.
	newTreeSide func(root string) TreeSide

	// globalKinds marks kinds that are not namespace-scoped.
	globalKinds map[Kind]bool

	// message renders the commit message for a plan. When nil a plain
	// default is used.
	message func(*Plan) (string, error)
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(
	cfg RunConfig,
	planner *Planner,
	recorder *Recorder,
	vcs VersionControl,
	instance InstanceStore,
	newTreeSide func(root string) TreeSide,
	globalKinds map[Kind]bool,
	message func(*Plan) (string, error),
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		planner:     planner,
		recorder:    recorder,
		vcs:         vcs,
		instance:    instance,
		newTreeSide: newTreeSide,
		globalKinds: globalKinds,
		message:     message,
	}
}

// Run executes one reconciliation pass. On a fatal error the returned Result
// has Phase == PhaseFailed and records the phase that failed in its Error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		Phase:     PhaseInit,
		DryRun:    o.cfg.Policy.DryRun,
		StartedAt: time.Now(),
	}
	logging.Info("Orchestrator", "Run %s starting (dryRun=%t, sourceOfTruth=%s)",
		result.RunID, o.cfg.Policy.DryRun, o.cfg.Policy.SourceOfTruth)

	if err := o.cfg.Validate(o.globalKinds); err != nil {
		return o.fail(result, err)
	}

	result.Phase = PhaseAcquire
	root, err := o.vcs.Checkout(ctx, o.cfg.RepositoryURL, o.cfg.Branch, o.cfg.CloneDepth)
	if err != nil {
		return o.fail(result, err)
	}
	treeSide := o.newTreeSide(root)

	result.Phase = PhaseReadBoth
	treeMap, instanceMap, err := o.readBoth(ctx, treeSide)
	if err != nil {
		return o.fail(result, err)
	}

	result.Phase = PhasePlan
	plan, err := o.planner.Plan(treeMap, instanceMap, o.cfg.Policy)
	if err != nil {
		return o.fail(result, err)
	}
	result.Decisions = plan.Decisions
	result.Counts = plan.Counts()

	if !o.cfg.Policy.DryRun {
		result.Phase = PhaseApply
		applier := NewApplier(treeSide, o.instance)
		if err := applier.Apply(ctx, plan.Actions, o.cfg.Policy); err != nil {
			return o.failWithDiff(result, plan, err)
		}

		result.Phase = PhaseCommitPush
		if err := o.commitAndPush(ctx, plan, result); err != nil {
			return o.failWithDiff(result, plan, err)
		}
	}

	result.Phase = PhaseRecordDiff
	handle, err := o.recorder.Record(result.RunID, plan.Decisions)
	if err != nil {
		return o.fail(result, err)
	}
	result.Diff = handle

	result.Phase = PhaseDone
	result.FinishedAt = time.Now()
	if err := writeStatus(o.recorder.dir, result); err != nil {
		logging.Warn("Orchestrator", "Could not persist run status: %v", err)
	}
	logging.Info("Orchestrator", "Run %s finished: %s", result.RunID, summarize(result.Counts))
	return result, nil
}

// readBoth builds the two snapshots across all configured scopes and kinds.
func (o *Orchestrator) readBoth(ctx context.Context, treeSide TreeSide) (map[ResourceKey]ResourceRecord, map[ResourceKey]ResourceRecord, error) {
	treeMap := make(map[ResourceKey]ResourceRecord)
	instanceMap := make(map[ResourceKey]ResourceRecord)

	for _, kind := range o.cfg.Kinds {
		scopes := o.cfg.Namespaces
		if o.globalKinds[kind] {
			scopes = []string{""}
		}
		for _, scope := range scopes {
			fromTree, err := treeSide.Read(ctx, scope, kind)
			if err != nil {
				return nil, nil, fmt.Errorf("reading tree side (%s, %s): %w", scope, kind, err)
			}
			for key, rec := range fromTree {
				treeMap[key] = rec
			}

			fromInstance, err := o.instance.Read(ctx, scope, kind)
			if err != nil {
				return nil, nil, fmt.Errorf("reading instance side (%s, %s): %w", scope, kind, err)
			}
			for key, rec := range fromInstance {
				instanceMap[key] = rec
			}
		}
	}
	return treeMap, instanceMap, nil
}

// commitAndPush stages, commits and pushes tree-side changes. A clean tree
// (ErrNoChanges) just skips the push.
func (o *Orchestrator) commitAndPush(ctx context.Context, plan *Plan, result *Result) error {
	treeChanged := false
	for _, action := range plan.Actions {
		if action.Destination == DestinationTree {
			treeChanged = true
			break
		}
	}
	if !treeChanged {
		logging.Debug("Orchestrator", "No tree-side changes, skipping commit")
		return nil
	}

	if err := o.vcs.StageAll("."); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	msg, err := o.commitMessage(plan)
	if err != nil {
		return fmt.Errorf("rendering commit message: %w", err)
	}

	commitID, err := o.vcs.Commit(msg, o.cfg.Author)
	if errors.Is(err, ErrNoChanges) {
		logging.Info("Orchestrator", "Working tree already clean, nothing to commit")
		return nil
	}
	if err != nil {
		return fmt.Errorf("committing changes: %w", err)
	}
	result.CommitID = commitID
	result.CommitURL = commitURL(o.cfg.RepositoryURL, commitID)

	// Per-file line counts of the commit, for the run summary.
	if stats, statsErr := o.vcs.DiffStats(true); statsErr != nil {
		logging.Debug("Orchestrator", "Could not collect diff stats: %v", statsErr)
	} else {
		result.FileStats = stats
	}

	// A rejected push (non-fast-forward, remote changed) is fatal and never
	// retried or rebased.
	if err := o.vcs.Push(ctx); err != nil {
		return err
	}
	logging.Info("Orchestrator", "Pushed commit %s to %s", commitID, o.cfg.Branch)
	return nil
}

func (o *Orchestrator) commitMessage(plan *Plan) (string, error) {
	if o.message != nil {
		return o.message(plan)
	}
	return fmt.Sprintf("chore(sync): reconcile resources (%s)", summarize(plan.Counts())), nil
}

// failWithDiff records the diff artifact before failing. A run that dies
// mid-apply or during commit/push may have applied only a prefix of its
// actions; the artifact still reflects the full plan, so operators can see
// everything the run intended.
func (o *Orchestrator) failWithDiff(result *Result, plan *Plan, err error) (*Result, error) {
	handle, recErr := o.recorder.Record(result.RunID, plan.Decisions)
	if recErr != nil {
		logging.Warn("Orchestrator", "Could not record diff artifact for failed run %s: %v", result.RunID, recErr)
	} else {
		result.Diff = handle
	}
	return o.fail(result, err)
}

// fail marks the result failed at its current phase and persists the status
// so callers can inspect what went wrong.
func (o *Orchestrator) fail(result *Result, err error) (*Result, error) {
	logging.Error("Orchestrator", err, "Run %s failed in phase %s", result.RunID, result.Phase)
	result.Error = fmt.Sprintf("%s: %v", result.Phase, err)
	result.Phase = PhaseFailed
	result.FinishedAt = time.Now()
	if statusErr := writeStatus(o.recorder.dir, result); statusErr != nil {
		logging.Warn("Orchestrator", "Could not persist run status: %v", statusErr)
	}
	return result, err
}

// commitURL derives a browsable commit URL for HTTP(S) remotes; other
// transports yield "".
func commitURL(repoURL, commitID string) string {
	if !strings.HasPrefix(repoURL, "http://") && !strings.HasPrefix(repoURL, "https://") {
		return ""
	}
	return strings.TrimSuffix(repoURL, ".git") + "/commit/" + commitID
}

// summarize renders decision counts in a stable order for logs and commit
// messages.
func summarize(counts map[Action]int) string {
	order := []Action{
		ActionAdded,
		ActionUpdatedToTree,
		ActionUpdatedToInstance,
		ActionDeletedFromTree,
		ActionDeletedFromInstance,
		ActionSkippedProtected,
		ActionUnchanged,
	}
	parts := make([]string, 0, len(order))
	for _, action := range order {
		if n := counts[action]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(string(action))))
		}
	}
	if len(parts) == 0 {
		return "no resources"
	}
	return strings.Join(parts, ", ")
}
