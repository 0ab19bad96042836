// Package reconciler implements the bidirectional reconciliation engine of
// driftsync.
//
// The engine compares two independently-mutable resource sets, a
// version-controlled checkout ("tree side") and a live instance's resource
// store ("instance side"), and decides, per resource, whether to add,
// update, delete, or leave it unchanged under a configurable ownership
// policy.
//
// # Components
//
//   - Planner: a pure function from two snapshots and a SyncPolicy to a
//     Plan (a Decision list plus a PendingAction list). No I/O happens
//     during planning.
//   - Applier: a thin interpreter over the PendingAction list. Actions run
//     sequentially, 1:1 with store calls, no retries, no rollback.
//   - Recorder: serializes the Decision list into a deterministic
//     newline-delimited JSON artifact.
//   - Orchestrator: sequences checkout, reading, planning, applying,
//     committing and recording for one run.
//
// # Genericity
//
// There is one engine for all resource kinds. Kind-specific behavior
// (structural validation, tree layout, binary-vs-text comparison) is
// injected through KindHooks values, one per kind, registered with the
// planner. The adapters live in the kinds package.
//
// # Known limitation
//
// Resource writes and deletes are independent I/O operations. When an
// action fails mid-apply, earlier actions stay applied and the diff
// artifact still reflects the full plan. Runs are not coordinated with each
// other; the only safety net against concurrent runs is the remote
// rejecting a conflicting push.
package reconciler
