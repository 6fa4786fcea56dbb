// Package watcher reports batches of changed files under a directory tree.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before
// reporting a batch
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher
type Options struct {
	Debounce time.Duration
	// SkipDirs are directory names never watched (e.g. node_modules)
	SkipDirs []string
	// Filter reports whether a changed file is relevant; nil accepts all
	Filter func(path string) bool
	Logger *slog.Logger
}

// Watcher collects file system events and calls onChange with the sorted,
// de-duplicated paths once events stop arriving for the debounce interval
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	skipDirs  map[string]bool
	filter    func(string) bool
	logger    *slog.Logger
	onChange  func([]string)

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]struct{}
	timer      *time.Timer
}

// New creates a watcher. onChange must not be nil.
func New(opts Options, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  opts.Debounce,
		skipDirs:  make(map[string]bool, len(opts.SkipDirs)),
		filter:    opts.Filter,
		logger:    opts.Logger,
		onChange:  onChange,
		pending:   make(map[string]struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	for _, dir := range opts.SkipDirs {
		w.skipDirs[dir] = true
	}
	return w, nil
}

// Add watches root and every directory below it
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Run delivers change batches until ctx is done, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watcher event overflow, rescanning")
				w.scheduleChange("")
				continue
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.skipDirs[filepath.Base(event.Name)] {
				return
			}
			if err := w.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			// Files written before the directory was watched produced no events
			w.scheduleChange("")
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.filter != nil && !w.filter(event.Name) {
		return
	}
	w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
	w.scheduleChange(event.Name)
}

// scheduleChange records path and restarts the debounce timer.
// An empty path requests a run without naming a file.
func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if path != "" {
		w.pending[path] = struct{}{}
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	slices.Sort(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) stop() {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	_ = w.fsWatcher.Close()
}
