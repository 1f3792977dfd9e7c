package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jesspatton/lazyexplorer/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reporting it.
const DefaultDebounce = 300 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a batch is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnorer replaces the Ignorer built from the root's .gitignore.
func WithIgnorer(i *Ignorer) WatcherOption {
	return func(w *Watcher) { w.ignorer = i }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logging.Component(l, "watcher") }
}

// Watcher monitors a directory tree and reports changed Go and config files
// in debounced batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	ignorer   *Ignorer
	debounce  time.Duration
	logger    *log.Logger

	// Events carries each settled batch of changed paths, sorted.
	Events chan []string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWatcher creates a Watcher for root and every directory below it.
func NewWatcher(root string, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debounce:  DefaultDebounce,
		logger:    logging.Discard(),
		Events:    make(chan []string, 10),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.ignorer == nil {
		w.ignorer = NewIgnorer(root)
	}

	// fsnotify is not recursive, so every directory is added explicitly.
	if err := w.addTree(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.startLoop()

	return w, nil
}

// Close stops the watcher and releases resources. Events is closed once the
// loop has exited.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fsWatcher.Close()
		w.wg.Wait()
		close(w.Events)
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignorer.ShouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// relevant reports whether a change to path can affect discovery.
func (w *Watcher) relevant(path string) bool {
	if w.ignorer.ShouldIgnore(path) {
		return false
	}
	return IsSourceFile(path) || IsConfigFile(path)
}

func (w *Watcher) startLoop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// CHMOD-only events are noise from editors and indexers.
			if event.Op == fsnotify.Chmod {
				continue
			}

			// New directories are watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.ignorer.ShouldIgnore(event.Name) {
						if err := w.addTree(event.Name); err != nil {
							w.logger.Warn("could not watch new directory", "path", event.Name, "err", err)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			slices.Sort(batch)
			clear(pending)

			w.logger.Debug("files changed", "count", len(batch))
			select {
			case w.Events <- batch:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}
