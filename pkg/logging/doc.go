// Package logging provides a structured logging system for driftsync with
// unified log handling and level filtering.
//
// This package is a thin wrapper around Go's standard slog package. All log
// entries carry a subsystem identifier so that output from the planner, the
// applier, the tree and instance readers, and the git client can be told
// apart and filtered.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Orchestrator", "Run %s finished", runID)
//	logging.Debug("Planner", "Comparing %d keys", n)
//	logging.Warn("Planner", "Skipping protected namespace %s", ns)
//	logging.Error("Applier", err, "Failed to write %s", key)
//
// # Thread Safety
//
// The package-level functions are safe for concurrent use once InitForCLI
// has been called.
package logging
