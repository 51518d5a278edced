package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hflor/livedex/internal/scan"
	"github.com/hflor/livedex/internal/util"
)

// DebounceInterval is how long a path must stay quiet before it is
// rescanned. Live writes project files in several bursts on save.
const DebounceInterval = 2 * time.Second

// Watcher rescans project files as they change on disk
type Watcher struct {
	scanner  *scan.Scanner
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Config holds watcher configuration
type Config struct {
	Scanner  *scan.Scanner
	Debounce time.Duration
}

// New creates a new Watcher
func New(cfg *Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DebounceInterval
	}
	return &Watcher{
		scanner:  cfg.Scanner,
		debounce: cfg.Debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Watch blocks watching roots until ctx is cancelled. Every directory
// under each root is watched recursively; new subdirectories are added
// as they appear.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, root := range roots {
		if err := addRecursive(fw, root); err != nil {
			return err
		}
	}
	util.InfoLog("Watching %d root(s) for project changes", len(roots))

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("Watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	// New directories must be picked up so sets saved into them later
	// are seen
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Base(event.Name) == "Backup" {
				return
			}
			if err := addRecursive(fw, event.Name); err != nil {
				util.WarnLog("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if !scan.IsEligible(event.Name) {
		return
	}

	w.schedule(ctx, event.Name)
}

// schedule arms (or re-arms) the per-path debounce timer
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}

	util.DebugLog("Change detected, debouncing: %s", path)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.rescan(ctx, path)
	})
}

func (w *Watcher) rescan(ctx context.Context, path string) {
	summary, err := w.scanner.Scan(ctx, []string{path}, false)
	if err != nil {
		util.ErrorLog("Rescan of %s failed: %v", path, err)
		return
	}
	switch {
	case summary.Created > 0:
		util.SuccessLog("Indexed new project: %s", path)
	case summary.Updated > 0:
		util.SuccessLog("Re-indexed project: %s", path)
	case summary.Failed > 0:
		util.WarnLog("Project could not be read: %s", path)
	default:
		util.DebugLog("Project unchanged after save burst: %s", path)
	}
}

// drainTimers stops every armed timer on shutdown
func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// addRecursive watches dir and every subdirectory except Live's Backup
// folders
func addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base == "Backup" || strings.HasPrefix(base, ".") && path != dir {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
