package reconciler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"driftsync/pkg/logging"
)

// DiffRecord is one line of the diff artifact. File is null when the
// resource has no tree-side path.
type DiffRecord struct {
	File   *string `json:"file"`
	Key    string  `json:"key"`
	Kind   string  `json:"kind"`
	Action string  `json:"action"`
}

// ArtifactHandle identifies a persisted diff artifact.
type ArtifactHandle struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Recorder persists decision lists as newline-delimited JSON artifacts.
// Given the same decision list the produced artifact is byte-for-byte
// identical, regardless of input order.
type Recorder struct {
	dir string
}

// NewRecorder creates a recorder that stores artifacts under dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Render serializes the decisions without persisting them. Records are
// ordered ascending by file, null-file records last.
func (r *Recorder) Render(decisions []Decision) ([]byte, error) {
	sorted := make([]Decision, len(decisions))
	copy(sorted, decisions)
	sortDecisions(sorted)

	var buf bytes.Buffer
	for _, d := range sorted {
		rec := DiffRecord{
			Key:    d.Key.String(),
			Kind:   string(d.Key.Kind),
			Action: string(d.Action),
		}
		if d.TreePath != "" {
			file := d.TreePath
			rec.File = &file
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling diff record for %s: %w", d.Key, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Record serializes the decisions and persists them as <runID>.jsonl in the
// artifact directory, returning the artifact handle.
func (r *Recorder) Record(runID string, decisions []Decision) (ArtifactHandle, error) {
	data, err := r.Render(decisions)
	if err != nil {
		return ArtifactHandle{}, err
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return ArtifactHandle{}, fmt.Errorf("creating artifact directory %s: %w", r.dir, err)
	}

	path := filepath.Join(r.dir, runID+".jsonl")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ArtifactHandle{}, fmt.Errorf("writing diff artifact %s: %w", path, err)
	}

	logging.Info("DiffRecorder", "Recorded %d decisions to %s", len(decisions), path)
	return ArtifactHandle{ID: runID, Path: path}, nil
}
