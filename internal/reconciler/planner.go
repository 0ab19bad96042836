package reconciler

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"driftsync/internal/api"
	"driftsync/pkg/logging"
)

// ValidateFunc checks resource content for structural validity before it is
// imported into the instance. A nil ValidateFunc disables validation for the
// kind (opaque files).
type ValidateFunc func(content []byte) error

// LayoutFunc computes the tree-relative path a key maps to under the
// directory convention of its kind.
type LayoutFunc func(key ResourceKey) string

// KindHooks is the per-kind capability surface the planner needs. One value
// is registered per resource kind; there is no kind-specific planning code.
type KindHooks struct {
	// Validate parses content before import; nil disables validation.
	Validate ValidateFunc

	// TreePath maps a key to its path under the tree root.
	TreePath LayoutFunc

	// Binary selects byte-exact comparison instead of normalized text
	// comparison.
	Binary bool
}

// Planner computes a Plan from two snapshots and a policy. Planning is a
// pure function of its inputs: it performs no I/O and holds no state across
// calls.
type Planner struct {
	hooks map[Kind]KindHooks
}

// NewPlanner creates a planner with the given per-kind hooks.
func NewPlanner(hooks map[Kind]KindHooks) *Planner {
	return &Planner{hooks: hooks}
}

// Plan decides, for every key in the union of both snapshots, whether the
// resource is added, updated, deleted, or left unchanged under the policy.
//
// Keys are visited in ascending path-depth order so that application of
// tree-side writes creates parent directories before nested files. The
// returned Decision list is sorted for the diff artifact: ascending by
// tree-side path, entries without one last.
func (p *Planner) Plan(tree, instance map[ResourceKey]ResourceRecord, policy SyncPolicy) (*Plan, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	keys := p.unionKeys(tree, instance)
	logging.Debug("Planner", "Comparing %d keys (%d tree, %d instance)", len(keys), len(tree), len(instance))

	plan := &Plan{}
	for _, key := range keys {
		treeRec, inTree := tree[key]
		instRec, inInstance := instance[key]

		var err error
		switch {
		case inTree && !inInstance:
			err = p.decideTreeOnly(plan, treeRec, policy)
		case !inTree && inInstance:
			err = p.decideInstanceOnly(plan, instRec, policy)
		default:
			err = p.decideBoth(plan, treeRec, instRec, policy)
		}
		if err != nil {
			return nil, err
		}
	}

	sortDecisions(plan.Decisions)
	return plan, nil
}

// decideTreeOnly handles a key present only in the tree snapshot.
func (p *Planner) decideTreeOnly(plan *Plan, rec ResourceRecord, policy SyncPolicy) error {
	path := p.treePath(rec)

	if policy.SourceOfTruth == SourceTree {
		// The tree is authoritative: import the resource into the instance.
		emit, err := p.checkImport(rec.Key, rec.Content, policy)
		if err != nil || !emit {
			return err
		}
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, TreePath: path, Action: ActionAdded})
		plan.Actions = append(plan.Actions, PendingAction{
			Op:          OpWrite,
			Key:         rec.Key,
			Destination: DestinationInstance,
			Content:     rec.Content,
		})
		return nil
	}

	switch policy.WhenMissingInSource {
	case MissingKeep:
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, TreePath: path, Action: ActionUnchanged})
	case MissingDelete:
		if policy.IsProtected(rec.Key.Scope) {
			logging.Warn("Planner", "Namespace %s is protected, not deleting %s from tree", rec.Key.Scope, rec.Key)
			plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, TreePath: path, Action: ActionSkippedProtected})
			return nil
		}
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, TreePath: path, Action: ActionDeletedFromTree})
		plan.Actions = append(plan.Actions, PendingAction{
			Op:          OpDelete,
			Key:         rec.Key,
			Destination: DestinationTree,
			TreePath:    path,
		})
	case MissingFail:
		return api.NewConflictError(
			fmt.Sprintf("resource %s exists only in the tree and whenMissingInSource=FAIL", rec.Key), nil)
	}
	return nil
}

// decideInstanceOnly handles a key present only in the instance snapshot.
// It mirrors decideTreeOnly with the sides swapped.
func (p *Planner) decideInstanceOnly(plan *Plan, rec ResourceRecord, policy SyncPolicy) error {
	if policy.SourceOfTruth == SourceInstance {
		// The instance is authoritative: write the resource into the tree.
		path := p.treePath(rec)
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, TreePath: path, Action: ActionAdded})
		plan.Actions = append(plan.Actions, PendingAction{
			Op:          OpWrite,
			Key:         rec.Key,
			Destination: DestinationTree,
			Content:     rec.Content,
			TreePath:    path,
		})
		return nil
	}

	switch policy.WhenMissingInSource {
	case MissingKeep:
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, Action: ActionUnchanged})
	case MissingDelete:
		if policy.IsProtected(rec.Key.Scope) {
			logging.Warn("Planner", "Namespace %s is protected, not deleting %s from instance", rec.Key.Scope, rec.Key)
			plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, Action: ActionSkippedProtected})
			return nil
		}
		plan.Decisions = append(plan.Decisions, Decision{Key: rec.Key, Action: ActionDeletedFromInstance})
		plan.Actions = append(plan.Actions, PendingAction{
			Op:          OpDelete,
			Key:         rec.Key,
			Destination: DestinationInstance,
		})
	case MissingFail:
		return api.NewConflictError(
			fmt.Sprintf("resource %s exists only in the instance and whenMissingInSource=FAIL", rec.Key), nil)
	}
	return nil
}

// decideBoth handles a key present on both sides.
func (p *Planner) decideBoth(plan *Plan, treeRec, instRec ResourceRecord, policy SyncPolicy) error {
	path := p.treePath(treeRec)

	if p.contentEqual(treeRec.Key.Kind, treeRec.Content, instRec.Content) {
		plan.Decisions = append(plan.Decisions, Decision{Key: treeRec.Key, TreePath: path, Action: ActionUnchanged})
		return nil
	}

	if policy.SourceOfTruth == SourceTree {
		emit, err := p.checkImport(treeRec.Key, treeRec.Content, policy)
		if err != nil || !emit {
			return err
		}
		plan.Decisions = append(plan.Decisions, Decision{Key: treeRec.Key, TreePath: path, Action: ActionUpdatedToInstance})
		plan.Actions = append(plan.Actions, PendingAction{
			Op:          OpWrite,
			Key:         treeRec.Key,
			Destination: DestinationInstance,
			Content:     treeRec.Content,
		})
		return nil
	}

	plan.Decisions = append(plan.Decisions, Decision{Key: treeRec.Key, TreePath: path, Action: ActionUpdatedToTree})
	plan.Actions = append(plan.Actions, PendingAction{
		Op:          OpWrite,
		Key:         instRec.Key,
		Destination: DestinationTree,
		Content:     instRec.Content,
		TreePath:    path,
	})
	return nil
}

// checkImport validates content that is about to be imported into the
// instance. It reports whether the decision and action should be emitted;
// with OnInvalidContent=SKIP an invalid resource is treated as
// not-yet-decided and produces neither.
func (p *Planner) checkImport(key ResourceKey, content []byte, policy SyncPolicy) (bool, error) {
	hooks := p.hooks[key.Kind]
	if hooks.Validate == nil {
		return true, nil
	}
	err := hooks.Validate(content)
	if err == nil {
		return true, nil
	}

	switch policy.OnInvalidContent {
	case InvalidSkip:
		logging.Debug("Planner", "Skipping %s: invalid content: %v", key, err)
		return false, nil
	case InvalidWarn:
		logging.Warn("Planner", "Importing %s despite invalid content: %v", key, err)
		return true, nil
	default:
		return false, api.NewValidationError(key.String(), err)
	}
}

// contentEqual compares content per kind: byte-exact for binary kinds,
// normalized (line endings, trailing whitespace) for text kinds.
func (p *Planner) contentEqual(kind Kind, a, b []byte) bool {
	if p.hooks[kind].Binary {
		return bytes.Equal(a, b)
	}
	return normalizeText(a) == normalizeText(b)
}

// treePath returns the record's tree path, computing it from the kind layout
// when the record came from the instance side.
func (p *Planner) treePath(rec ResourceRecord) string {
	if rec.TreePath != "" {
		return rec.TreePath
	}
	if hooks, ok := p.hooks[rec.Key.Kind]; ok && hooks.TreePath != nil {
		return hooks.TreePath(rec.Key)
	}
	return ""
}

// unionKeys collects the union of both snapshots' keys, ordered shallow
// paths first, ties broken by path then key string for determinism.
func (p *Planner) unionKeys(tree, instance map[ResourceKey]ResourceRecord) []ResourceKey {
	seen := make(map[ResourceKey]bool, len(tree)+len(instance))
	keys := make([]ResourceKey, 0, len(tree)+len(instance))
	for key := range tree {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for key := range instance {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	pathOf := func(key ResourceKey) string {
		if rec, ok := tree[key]; ok && rec.TreePath != "" {
			return rec.TreePath
		}
		if hooks, ok := p.hooks[key.Kind]; ok && hooks.TreePath != nil {
			return hooks.TreePath(key)
		}
		return ""
	}

	sort.Slice(keys, func(i, j int) bool {
		pi, pj := pathOf(keys[i]), pathOf(keys[j])
		di, dj := pathDepth(pi), pathDepth(pj)
		if di != dj {
			return di < dj
		}
		if pi != pj {
			return pi < pj
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// sortDecisions orders decisions for the diff artifact: ascending by
// tree-side path, entries without one last, ties broken by key string.
func sortDecisions(decisions []Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		pi, pj := decisions[i].TreePath, decisions[j].TreePath
		if (pi == "") != (pj == "") {
			return pi != ""
		}
		if pi != pj {
			return pi < pj
		}
		return decisions[i].Key.String() < decisions[j].Key.String()
	})
}

// normalizeText normalizes line endings to LF and strips trailing whitespace
// from every line and from the end of the document, so that editor and
// platform noise does not register as a content change.
func normalizeText(content []byte) string {
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
