package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"driftsync/internal/api"
)

const statusFileName = "status.json"

// writeStatus persists the last-run summary next to the diff artifacts.
func writeStatus(dir string, result *Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run status: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, statusFileName), append(data, '\n'), 0644)
}

// ReadStatus loads the last-run summary from the artifact directory. It
// returns a NotFoundError when no run has been recorded yet.
func ReadStatus(dir string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(dir, statusFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, api.NewNotFoundError("run status", dir)
	}
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing run status: %w", err)
	}
	return &result, nil
}
