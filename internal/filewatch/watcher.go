package filewatch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/pricelens/pricelens/internal/errors"
	"github.com/pricelens/pricelens/internal/logging"
)

// DefaultSettle is the debounce quiet period applied when Config leaves
// Settle unset. Editors often emit several events for one save.
const DefaultSettle = 50 * time.Millisecond

// DefaultExtensions are the document extensions watched when Config leaves
// Extensions empty.
var DefaultExtensions = []string{".html", ".htm", ".xhtml"}

// Change describes one document path that settled after filesystem
// activity.
type Change struct {
	Path string
	Op   fsnotify.Op
	At   time.Time
}

// Config configures a Watcher.
type Config struct {
	// Extensions filters directory events to these file extensions
	// (dot included, case-insensitive). Paths added directly with Add
	// bypass the filter. Empty means DefaultExtensions.
	Extensions []string

	// IgnorePatterns are glob patterns matched against the event path's
	// base name and its slash-separated form. Matching paths never reach
	// the callback.
	IgnorePatterns []string

	// Settle is the debounce quiet period. Zero means DefaultSettle.
	Settle time.Duration

	// Logger receives watch diagnostics.
	Logger *logging.Logger
}

// Watcher batches filesystem events for watched documents and delivers
// them through a single callback once activity settles.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *logging.Logger

	extensions map[string]struct{}
	ignores    []glob.Glob
	settle     time.Duration

	mu sync.RWMutex

	// Watched roots: directories watch their whole subtree, files watch
	// exactly themselves (through their parent directory).
	dirRoots  map[string]struct{}
	fileRoots map[string]struct{}

	onChange func([]Change)
	started  bool
	closed   bool

	stopCh chan struct{}
}

// New creates a Watcher. Ignore patterns are compiled eagerly so a bad
// pattern fails here rather than silently matching nothing later.
func New(cfg Config) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewWatchError("failed to create filesystem watcher", err)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extensions := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		extensions[strings.ToLower(e)] = struct{}{}
	}

	ignores := make([]glob.Glob, 0, len(cfg.IgnorePatterns))
	for _, pattern := range cfg.IgnorePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			_ = watcher.Close()
			return nil, errors.NewValidationError("invalid ignore pattern").
				WithField("watch.ignore_patterns").
				WithValue(pattern).
				WithCause(err)
		}
		ignores = append(ignores, g)
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NopLogger()
	}

	return &Watcher{
		watcher:    watcher,
		log:        log.WithComponent("filewatch"),
		extensions: extensions,
		ignores:    ignores,
		settle:     settle,
		dirRoots:   make(map[string]struct{}),
		fileRoots:  make(map[string]struct{}),
		stopCh:     make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the callback invoked with each settled batch.
func (w *Watcher) SetChangeCallback(cb func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// Add starts watching a file or directory. Directories are watched
// recursively; files are watched through their parent directory so editor
// replace-on-save cycles stay visible.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.NewWatchError("failed to resolve watch path", err).WithPath(path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return errors.NewWatchError("cannot watch missing path", err).WithPath(abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.ErrWatcherClosed
	}

	if info.IsDir() {
		if err := w.watcher.Add(abs); err != nil {
			return errors.NewWatchError("failed to watch directory", err).WithPath(abs)
		}
		w.dirRoots[abs] = struct{}{}
		w.watchDirRecursive(abs)
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.NewWatchError("failed to watch parent directory", err).WithPath(abs)
	}
	w.fileRoots[abs] = struct{}{}
	return nil
}

// watchDirRecursive adds all non-ignored subdirectories to the watcher.
// The caller must hold the mutex.
func (w *Watcher) watchDirRecursive(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("failed to watch subdirectory", "path", path, "error", err)
		}
		return nil
	})
}

// Remove stops watching a previously added path.
func (w *Watcher) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.fileRoots[abs]; ok {
		delete(w.fileRoots, abs)
		// The parent directory may serve other file roots; leave it.
		return
	}
	if _, ok := w.dirRoots[abs]; ok {
		delete(w.dirRoots, abs)
		_ = w.watcher.Remove(abs)
	}
}

// Roots returns the watched file and directory roots.
func (w *Watcher) Roots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	roots := make([]string, 0, len(w.dirRoots)+len(w.fileRoots))
	for r := range w.dirRoots {
		roots = append(roots, r)
	}
	for r := range w.fileRoots {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// Start begins delivering batches. It fails when nothing has been added
// yet, since a watcher with no roots can only ever stay silent.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWatcherClosed
	}
	if len(w.dirRoots)+len(w.fileRoots) == 0 {
		return errors.ErrNothingToWatch
	}
	if w.started {
		return nil
	}
	w.started = true

	go w.watchLoop()
	return nil
}

// Close stops the watcher and releases its filesystem resources. It is
// safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.stopCh)
	return w.watcher.Close()
}

// watchLoop processes filesystem events, debouncing bursts into batches.
func (w *Watcher) watchLoop() {
	settleTimer := time.NewTimer(0)
	<-settleTimer.C // drain initial timer

	pending := make(map[string]Change)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Directories created inside a watched root join the watch
			// set; they never become changes themselves.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.mu.Lock()
					if !w.ignored(event.Name) {
						w.watchDirRecursive(event.Name)
					}
					w.mu.Unlock()
					continue
				}
			}

			if !w.eligible(event.Name) {
				continue
			}

			pending[event.Name] = Change{Path: event.Name, Op: event.Op, At: time.Now()}
			settleTimer.Reset(w.settle)

		case <-settleTimer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]Change, 0, len(pending))
			for _, c := range pending {
				batch = append(batch, c)
			}
			pending = make(map[string]Change)

			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

			w.mu.RLock()
			cb := w.onChange
			w.mu.RUnlock()

			w.log.Debug("change batch settled", "paths", len(batch))
			if cb != nil {
				cb(batch)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watcher error", "error", err)
		}
	}
}

// eligible reports whether an event path should reach the callback.
func (w *Watcher) eligible(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.ignored(path) {
		return false
	}

	// Explicit file roots match exactly, extension filter bypassed.
	if _, ok := w.fileRoots[path]; ok {
		return true
	}

	for root := range w.dirRoots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
			return ok
		}
	}
	return false
}

// ignored reports whether any ignore pattern matches the path. The caller
// must hold the mutex.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, g := range w.ignores {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}
