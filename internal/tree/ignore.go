package tree

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"driftsync/pkg/logging"
)

// IgnoreFileName is looked up at the effective tree root. One glob pattern
// per line, '#' starts a comment; a pattern ending in '/' ignores a whole
// directory subtree.
const IgnoreFileName = ".syncignore"

// ignoreMatcher filters tree entries against the ignore-file convention.
type ignoreMatcher struct {
	patterns []string
	dirs     []string
}

// loadIgnore reads the ignore file under root. A missing file yields an
// empty matcher.
func loadIgnore(root string) *ignoreMatcher {
	m := &ignoreMatcher{}
	data, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return m
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "/") {
			m.dirs = append(m.dirs, strings.TrimSuffix(line, "/"))
			continue
		}
		m.patterns = append(m.patterns, line)
	}
	logging.Debug("TreeReader", "Loaded %d ignore patterns from %s", len(m.patterns)+len(m.dirs), IgnoreFileName)
	return m
}

// Match reports whether the path (relative to the effective tree root, with
// forward slashes) is ignored.
func (m *ignoreMatcher) Match(relPath string) bool {
	base := path.Base(relPath)
	for _, dir := range m.dirs {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}
	for _, pattern := range m.patterns {
		if ok, _ := path.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
