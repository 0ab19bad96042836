package reconciler

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftsync/internal/api"
)

// stubVCS is a VersionControl that hands out a fixed root and records the
// lifecycle calls.
type stubVCS struct {
	root        string
	checkoutErr error

	staged    bool
	commitMsg string
	commitID  string
	commitErr error
	pushed    bool
	pushErr   error
	stats     []FileStat
}

func (v *stubVCS) Checkout(ctx context.Context, url, branch string, depth int) (string, error) {
	if v.checkoutErr != nil {
		return "", v.checkoutErr
	}
	return v.root, nil
}

func (v *stubVCS) StageAll(pattern string) error { v.staged = true; return nil }

func (v *stubVCS) Commit(message string, author CommitAuthor) (string, error) {
	if v.commitErr != nil {
		return "", v.commitErr
	}
	v.commitMsg = message
	if v.commitID == "" {
		v.commitID = "abc123"
	}
	return v.commitID, nil
}

func (v *stubVCS) Push(ctx context.Context) error {
	if v.pushErr != nil {
		return v.pushErr
	}
	v.pushed = true
	return nil
}

func (v *stubVCS) DiffStats(cached bool) ([]FileStat, error) { return v.stats, nil }

// stubTreeSide serves a fixed snapshot and records mutations.
type stubTreeSide struct {
	records map[ResourceKey]ResourceRecord
	writes  []string
	deletes []string
}

func (s *stubTreeSide) Read(ctx context.Context, scope string, kind Kind) (map[ResourceKey]ResourceRecord, error) {
	out := make(map[ResourceKey]ResourceRecord)
	for key, rec := range s.records {
		if key.Scope == scope && key.Kind == kind {
			out[key] = rec
		}
	}
	return out, nil
}

func (s *stubTreeSide) WriteFile(path string, content []byte) error {
	s.writes = append(s.writes, path)
	return nil
}

func (s *stubTreeSide) DeleteFile(path string) error {
	s.deletes = append(s.deletes, path)
	return nil
}

// stubInstanceStore serves a fixed snapshot and records mutations.
type stubInstanceStore struct {
	records  map[ResourceKey]ResourceRecord
	writes   []ResourceKey
	deletes  []ResourceKey
	readErr  error
	writeErr error
}

func (s *stubInstanceStore) Read(ctx context.Context, scope string, kind Kind) (map[ResourceKey]ResourceRecord, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make(map[ResourceKey]ResourceRecord)
	for key, rec := range s.records {
		if key.Scope == scope && key.Kind == kind {
			out[key] = rec
		}
	}
	return out, nil
}

func (s *stubInstanceStore) Write(ctx context.Context, key ResourceKey, content []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, key)
	return nil
}

func (s *stubInstanceStore) Delete(ctx context.Context, key ResourceKey) error {
	s.deletes = append(s.deletes, key)
	return nil
}

func testRunConfig(policy SyncPolicy) RunConfig {
	return RunConfig{
		RepositoryURL: "https://git.example.com/resources.git",
		Branch:        "main",
		Namespaces:    []string{"team-a"},
		Kinds:         []Kind{KindDefinition},
		Policy:        policy,
		Author:        CommitAuthor{Name: "bot", Email: "bot@example.com"},
	}
}

func newTestOrchestrator(t *testing.T, cfg RunConfig, vcs *stubVCS, treeSide *stubTreeSide, store *stubInstanceStore) *Orchestrator {
	t.Helper()

	return NewOrchestrator(
		cfg,
		NewPlanner(testHooks()),
		NewRecorder(t.TempDir()),
		vcs,
		store,
		func(root string) TreeSide { return treeSide },
		map[Kind]bool{KindDashboard: true},
		nil,
	)
}

func TestRunDryRunNeverMutates(t *testing.T) {
	key := defKey("team-a", "deploy")
	vcs := &stubVCS{root: t.TempDir()}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{key: treeRec(key, "id: deploy\n")}}
	store := &stubInstanceStore{}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceTree, DryRun: true}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Counts[ActionAdded])
	assert.Empty(t, store.writes)
	assert.False(t, vcs.staged)
	assert.NotEmpty(t, result.Diff.Path)

	// The status file reflects the finished run.
	status, err := ReadStatus(o.recorder.dir)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, status.RunID)
	assert.Equal(t, PhaseDone, status.Phase)
}

func TestRunAppliesToInstanceWithoutCommit(t *testing.T) {
	key := defKey("team-a", "deploy")
	vcs := &stubVCS{root: t.TempDir()}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{key: treeRec(key, "id: deploy\n")}}
	store := &stubInstanceStore{}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceTree}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.Equal(t, []ResourceKey{key}, store.writes)
	// Instance-destined changes do not touch the tree, so nothing commits.
	assert.False(t, vcs.staged)
	assert.Empty(t, result.CommitID)
}

func TestRunCommitsAndPushesTreeChanges(t *testing.T) {
	key := defKey("team-a", "deploy")
	vcs := &stubVCS{root: t.TempDir(), stats: []FileStat{{Path: "team-a/workflows/deploy.yaml", Added: 1, Deleted: 1}}}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{key: treeRec(key, "id: deploy\nsteps: [old]\n")}}
	store := &stubInstanceStore{records: map[ResourceKey]ResourceRecord{key: instRec(key, "id: deploy\nsteps: [new]\n")}}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceInstance}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.Equal(t, []string{"team-a/workflows/deploy.yaml"}, treeSide.writes)
	assert.True(t, vcs.staged)
	assert.True(t, vcs.pushed)
	assert.Equal(t, "abc123", result.CommitID)
	assert.Equal(t, "https://git.example.com/resources/commit/abc123", result.CommitURL)
	assert.Equal(t, []FileStat{{Path: "team-a/workflows/deploy.yaml", Added: 1, Deleted: 1}}, result.FileStats)
	assert.True(t, strings.Contains(vcs.commitMsg, "1 updated_to_tree"), "commit message %q", vcs.commitMsg)
}

func TestRunCleanTreeSkipsPush(t *testing.T) {
	key := defKey("team-a", "deploy")
	vcs := &stubVCS{root: t.TempDir(), commitErr: ErrNoChanges}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{key: treeRec(key, "id: old\n")}}
	store := &stubInstanceStore{records: map[ResourceKey]ResourceRecord{key: instRec(key, "id: new\n")}}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceInstance}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, result.Phase)
	assert.False(t, vcs.pushed)
	assert.Empty(t, result.CommitID)
}

func TestRunCheckoutFailure(t *testing.T) {
	vcs := &stubVCS{checkoutErr: api.NewResolutionError("main", errors.New("reference not found"))}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceTree}), vcs, &stubTreeSide{}, &stubInstanceStore{})
	result, err := o.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.Error, string(PhaseAcquire))

	// The failure is persisted for later inspection.
	status, statusErr := ReadStatus(o.recorder.dir)
	require.NoError(t, statusErr)
	assert.Equal(t, PhaseFailed, status.Phase)
}

func TestRunMidApplyFailureStillRecordsDiff(t *testing.T) {
	keyA := defKey("team-a", "alpha")
	keyB := defKey("team-a", "beta")
	vcs := &stubVCS{root: t.TempDir()}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{
		keyA: treeRec(keyA, "id: alpha\n"),
		keyB: treeRec(keyB, "id: beta\n"),
	}}
	store := &stubInstanceStore{writeErr: errors.New("store unavailable")}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceTree}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.Error, string(PhaseApply))

	// Only a prefix of the actions applied, but the artifact reflects the
	// full plan: one line per decision.
	require.NotEmpty(t, result.Diff.Path)
	data, readErr := os.ReadFile(result.Diff.Path)
	require.NoError(t, readErr)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, len(result.Decisions))

	// The persisted status carries the artifact handle too.
	status, statusErr := ReadStatus(o.recorder.dir)
	require.NoError(t, statusErr)
	assert.Equal(t, result.Diff.Path, status.Diff.Path)
}

func TestRunPushFailureStillRecordsDiff(t *testing.T) {
	key := defKey("team-a", "deploy")
	vcs := &stubVCS{root: t.TempDir(), pushErr: api.NewConflictError("push rejected by remote", errors.New("non-fast-forward"))}
	treeSide := &stubTreeSide{records: map[ResourceKey]ResourceRecord{key: treeRec(key, "id: old\n")}}
	store := &stubInstanceStore{records: map[ResourceKey]ResourceRecord{key: instRec(key, "id: new\n")}}

	o := newTestOrchestrator(t, testRunConfig(SyncPolicy{SourceOfTruth: SourceInstance}), vcs, treeSide, store)
	result, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsConflict(err))

	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.Error, string(PhaseCommitPush))
	assert.NotEmpty(t, result.Diff.Path)
}

func TestRunPlanConflictFailsRun(t *testing.T) {
	key := defKey("team-a", "orphan")
	vcs := &stubVCS{root: t.TempDir()}
	store := &stubInstanceStore{records: map[ResourceKey]ResourceRecord{key: instRec(key, "id: orphan\n")}}

	cfg := testRunConfig(SyncPolicy{SourceOfTruth: SourceTree, WhenMissingInSource: MissingFail})
	o := newTestOrchestrator(t, cfg, vcs, &stubTreeSide{}, store)

	result, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsConflict(err))
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.Error, string(PhasePlan))
	// A run that never got past planning leaves no artifact behind.
	assert.Empty(t, result.Diff.Path)
}

func TestRunInvalidConfigFailsBeforeIO(t *testing.T) {
	vcs := &stubVCS{checkoutErr: errors.New("must not be called")}
	cfg := testRunConfig(SyncPolicy{SourceOfTruth: SourceTree})
	cfg.Branch = ""

	o := newTestOrchestrator(t, cfg, vcs, &stubTreeSide{}, &stubInstanceStore{})
	result, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.Error, string(PhaseInit))
}

func TestRunConfigValidateGlobalKindsNeedNoNamespace(t *testing.T) {
	cfg := RunConfig{
		RepositoryURL: "https://git.example.com/r.git",
		Branch:        "main",
		Kinds:         []Kind{KindDashboard},
	}
	require.NoError(t, cfg.Validate(map[Kind]bool{KindDashboard: true}))

	cfg.Kinds = []Kind{KindDashboard, KindDefinition}
	err := cfg.Validate(map[Kind]bool{KindDashboard: true})
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

func TestReadStatusMissingIsNotFound(t *testing.T) {
	_, err := ReadStatus(t.TempDir())
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestCommitURL(t *testing.T) {
	assert.Equal(t, "https://git.example.com/r/commit/abc", commitURL("https://git.example.com/r.git", "abc"))
	assert.Equal(t, "", commitURL("git@git.example.com:r.git", "abc"))
}
