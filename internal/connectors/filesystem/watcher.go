package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/qagent/internal/logger"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports file changes under a directory tree.
type Watcher struct {
	root     string
	accepts  func(path string) bool
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before changes are reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. Only paths for which accepts
// returns true are reported.
func NewWatcher(root string, accepts func(path string) bool, opts ...WatcherOption) *Watcher {
	w := &Watcher{root: root, accepts: accepts, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done. Changes are batched and onChange is
// called with the sorted changed paths once no event has arrived for the
// debounce period. onChange runs on the watch goroutine.
func (w *Watcher) Watch(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, changed := w.handleEvent(fsw, event); changed {
				pending[path] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", w.root, err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(ctx, changed)
		}
	}
}

// handleEvent filters an fsnotify event down to a reportable path.
// New directories are added to the watch.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if rel, err := filepath.Rel(w.root, event.Name); err == nil && isHidden(rel) {
		return "", false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
			return "", false
		}
	case event.Has(fsnotify.Write), event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
	default:
		return "", false
	}

	if !w.accepts(event.Name) {
		return "", false
	}
	return event.Name, true
}

// addTree watches dir and its non-hidden subdirectories.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
