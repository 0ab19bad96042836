package tree

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"driftsync/internal/kinds"
	"driftsync/internal/reconciler"
	"driftsync/pkg/logging"
)

// Side is the tree side of a reconciliation run: a checked-out working copy
// read and written through the directory convention
// <scope>/<kindDir>/<id>.<ext> (flat <kindDir>/<id>.<ext> for global kinds).
//
// An optional directory prefix scopes all resource paths to a subdirectory
// of the repository; tree paths in decisions and the diff artifact stay
// relative to that prefix.
type Side struct {
	root   string
	prefix string
	ignore *ignoreMatcher
}

// NewSide creates a tree side rooted at the checkout root. prefix is the
// configured treeDirectoryPrefix; "" means the repository root.
func NewSide(root, prefix string) *Side {
	effective := root
	if prefix != "" {
		effective = filepath.Join(root, filepath.FromSlash(prefix))
	}
	return &Side{
		root:   effective,
		prefix: prefix,
		ignore: loadIgnore(effective),
	}
}

// Read enumerates the resources of one (scope, kind) pair. It never writes;
// a missing kind directory yields an empty snapshot.
func (s *Side) Read(ctx context.Context, scope string, kind reconciler.Kind) (map[reconciler.ResourceKey]reconciler.ResourceRecord, error) {
	adapter, ok := kinds.ByKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	dir := filepath.Join(s.root, filepath.FromSlash(kindDirFor(adapter, scope)))
	records := make(map[reconciler.ResourceKey]reconciler.ResourceRecord)

	walkErr := filepath.WalkDir(dir, func(fullPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && fullPath != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		relPath, err := filepath.Rel(s.root, fullPath)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if s.ignore.Match(relPath) {
			logging.Debug("TreeReader", "Ignoring %s", relPath)
			return nil
		}

		key, ok := adapter.KeyFor(scope, relPath)
		if !ok {
			return nil
		}

		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", relPath, err)
		}

		records[key] = reconciler.ResourceRecord{
			Key:          key,
			Content:      content,
			Origin:       reconciler.OriginTree,
			ChangeMarker: contentHash(content),
			TreePath:     relPath,
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	logging.Debug("TreeReader", "Read %d %s resources from %s", len(records), kind, dir)
	return records, nil
}

// WriteFile writes content at the tree-relative path, creating parent
// directories as needed.
func (s *Side) WriteFile(relPath string, content []byte) error {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", relPath, err)
	}
	return nil
}

// DeleteFile removes the file at the tree-relative path. Deleting an
// already-absent file is not an error.
func (s *Side) DeleteFile(relPath string) error {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", relPath, err)
	}
	return nil
}

// Root returns the effective tree root (checkout root plus prefix).
func (s *Side) Root() string {
	return s.root
}

// resolve maps a tree-relative path to an absolute one, refusing paths that
// escape the tree root.
func (s *Side) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path %q escapes the tree root", relPath)
	}
	return filepath.Join(s.root, cleaned), nil
}

// kindDirFor returns the tree-relative kind directory for a scope.
func kindDirFor(adapter kinds.Adapter, scope string) string {
	if adapter.Global {
		return adapter.TreeDir
	}
	return scope + "/" + adapter.TreeDir
}

// contentHash is the tree side's change marker: a content digest used only
// for equality checks.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8])
}
