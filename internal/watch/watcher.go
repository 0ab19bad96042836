// Package watch detects changes to a local resource tree and triggers
// reconciliation runs in serve mode.
//
// Detection uses fsnotify with a debounce window so a burst of writes (an
// editor save, a git checkout) collapses into a single run. Directories are
// watched recursively; dot-directories such as .git stay out of scope.
package watch

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"driftsync/pkg/logging"
)

// DefaultDebounce is the quiet period after the last event before the
// change callback fires.
const DefaultDebounce = 2 * time.Second

// TreeWatcherConfig holds configuration for the tree watcher.
type TreeWatcherConfig struct {
	// Root is the directory tree to watch.
	Root string

	// Debounce is the quiet period before OnChange fires. Zero selects
	// DefaultDebounce.
	Debounce time.Duration

	// OnChange is called once per settled burst of tree changes.
	OnChange func()
}

// TreeWatcher monitors a resource tree for changes. Each directory under
// the root is watched individually because fsnotify is not recursive;
// directories created while watching are added on the fly.
type TreeWatcher struct {
	mu sync.Mutex

	config    TreeWatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewTreeWatcher creates a tree watcher.
func NewTreeWatcher(config TreeWatcherConfig) *TreeWatcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	return &TreeWatcher{config: config}
}

// Start begins watching. It is a no-op when already running.
func (w *TreeWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addRecursive(watcher, w.config.Root); err != nil {
		watcher.Close()
		return err
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Info("TreeWatcher", "Watching %s for resource changes", w.config.Root)
	return nil
}

// processEvents handles fsnotify events. The channels are passed as
// parameters to avoid race conditions with Stop().
func (w *TreeWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("TreeWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *TreeWatcher) handleEvent(event fsnotify.Event) {
	if isHiddenPath(w.config.Root, event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories need their own watch before their contents can be
	// seen.
	if event.Op&fsnotify.Create != 0 {
		w.mu.Lock()
		watcher := w.fsWatcher
		w.mu.Unlock()
		if watcher != nil {
			if err := addRecursive(watcher, event.Name); err != nil {
				logging.Debug("TreeWatcher", "Could not watch %s: %v", event.Name, err)
			}
		}
	}

	logging.Debug("TreeWatcher", "Tree changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

// triggerDebounced fires OnChange after the debounce window, restarting the
// window on every new event.
func (w *TreeWatcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// Stop gracefully stops the watcher.
func (w *TreeWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("TreeWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("TreeWatcher", "Stopped tree watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *TreeWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// addRecursive registers path and every non-hidden directory below it. A
// path that is a plain file registers nothing; its parent already covers it.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The entry can be gone by the time we walk it.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isHiddenPath reports whether any component of the path relative to the
// root starts with a dot.
func isHiddenPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
