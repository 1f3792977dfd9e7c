// Package store keeps the authoritative, identity-keyed collections of
// discovered tests and reconciles them against discovery runs.
//
// A Store has a single owner goroutine. Coordinator events and the commit
// step of every source mutation are queued on the same mailbox, so they are
// applied in the order they happened and no two mutations overlap.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/jesspatton/lazyexplorer/discovery"
	"github.com/jesspatton/lazyexplorer/event"
	"github.com/jesspatton/lazyexplorer/filesystem"
	"github.com/jesspatton/lazyexplorer/logging"
	"github.com/jesspatton/lazyexplorer/testobject"
)

var (
	// ErrInvalidArgument marks caller errors. It is the same value as
	// discovery.ErrInvalidArgument.
	ErrInvalidArgument = discovery.ErrInvalidArgument
	// ErrNotFound is wrapped by GetEntry for unknown identities.
	ErrNotFound = errors.New("no entry with the given id")
	// ErrAlreadyTracked is wrapped when adding a source that is tracked.
	ErrAlreadyTracked = errors.New("source is already tracked")
	// ErrNotTracked is wrapped when removing or refreshing an untracked source.
	ErrNotTracked = errors.New("source is not tracked")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")

	errEmptyPath = errors.New("path is empty")
)

// ArgumentError is discovery.ArgumentError.
type ArgumentError = discovery.ArgumentError

const sourcePathParam = "sourceAssemblyPath"

// Entry is what a Store indexes.
type Entry interface {
	ID() testobject.ID
	Source() string
}

// Discoverer is the part of discovery.Coordinator a Store depends on.
type Discoverer interface {
	IsDiscoveryInProgress() bool
	WaitForDiscoveryComplete() *discovery.Run
	TryDiscoverTestCases(sources []string) (*discovery.Run, bool, error)
	Subscribe(l event.Listener[discovery.Event]) (unsubscribe func())
}

// BuildFunc produces the entry to index for a discovered test case. prior and
// exists describe the entry currently indexed under the same identity.
type BuildFunc[T Entry] func(tc *testobject.TestCase, prior T, exists bool) T

// Option configures a Store.
type Option func(*options)

type options struct {
	normalizer filesystem.Normalizer
	logger     *log.Logger
	name       string
}

// WithNormalizer sets the path normalizer. The default is filesystem.AbsNormalizer.
func WithNormalizer(n filesystem.Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName sets the name used as the log prefix.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Store is the reconciliation store for one kind of entry.
type Store[T Entry] struct {
	discoverer Discoverer
	normalizer filesystem.Normalizer
	build      BuildFunc[T]
	logger     *log.Logger
	topic      event.Topic[Change[T]]

	// mu guards entries and tracked for readers. Only the owner goroutine
	// writes them.
	mu      sync.RWMutex
	entries map[testobject.ID]T
	tracked map[string]struct{}

	inbox       *event.Mailbox[func()]
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// New creates a Store that follows d's discovery runs.
func New[T Entry](d Discoverer, build BuildFunc[T], opts ...Option) *Store[T] {
	o := options{
		normalizer: filesystem.AbsNormalizer{},
		name:       "store",
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		discoverer: d,
		normalizer: o.normalizer,
		build:      build,
		logger:     logging.Component(o.logger, o.name),
		entries:    make(map[testobject.ID]T),
		tracked:    make(map[string]struct{}),
		inbox:      event.NewMailbox[func()](),
		done:       make(chan struct{}),
	}
	s.unsubscribe = d.Subscribe(func(e discovery.Event) {
		s.inbox.Put(func() { s.handleEvent(e) })
	})
	go s.loop()

	return s
}

// Subscribe registers a listener for Added, Modified and Removed batches.
// Listeners run on the store's owner goroutine and must not call blocking
// Store methods.
func (s *Store[T]) Subscribe(l event.Listener[Change[T]]) (unsubscribe func()) {
	return s.topic.Subscribe(l)
}

// Close stops following discovery and releases the owner goroutine.
func (s *Store[T]) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.inbox.Close()
		<-s.done
	})
}

func (s *Store[T]) loop() {
	defer close(s.done)
	for fn := range s.inbox.Out() {
		fn()
	}
}

// Accessors

// Entries returns a snapshot of every entry, ordered by source then identity.
func (s *Store[T]) Entries() []T {
	s.mu.RLock()
	out := make([]T, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b T) int {
		return cmp.Or(
			cmp.Compare(a.Source(), b.Source()),
			cmp.Compare(a.ID().String(), b.ID().String()),
		)
	})
	return out
}

// TrackedSourcePaths returns the sorted set of tracked source paths.
func (s *Store[T]) TrackedSourcePaths() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.tracked))
	for p := range s.tracked {
		out = append(out, p)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TryGetEntry looks up an entry by identity.
func (s *Store[T]) TryGetEntry(id testobject.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// GetEntry looks up an entry by identity and fails if it is absent.
func (s *Store[T]) GetEntry(id testobject.ID) (T, error) {
	e, ok := s.TryGetEntry(id)
	if !ok {
		return e, &ArgumentError{Param: "id", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
	}
	return e, nil
}

// IsTracked reports whether path, after normalization, is tracked.
func (s *Store[T]) IsTracked(path string) bool {
	norm, err := s.normalizer.Normalize(path)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tracked[norm]
	return ok
}

// Actions

// AddSourceAssemblyPath starts tracking path and discovers its tests. It waits
// for any in-flight run first, and returns once its own run has completed and
// been applied.
func (s *Store[T]) AddSourceAssemblyPath(ctx context.Context, path string) error {
	norm, err := s.normalizeArg(path)
	if err != nil {
		return err
	}
	if s.isTracked(norm) {
		return &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrAlreadyTracked, norm)}
	}

	run, err := s.commitWhenIdle(ctx, func() (*discovery.Run, bool, error) {
		if _, ok := s.tracked[norm]; ok {
			return nil, false, &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrAlreadyTracked, norm)}
		}

		s.mu.Lock()
		s.tracked[norm] = struct{}{}
		s.mu.Unlock()

		run, started, err := s.discoverer.TryDiscoverTestCases([]string{norm})
		if err != nil || !started {
			s.mu.Lock()
			delete(s.tracked, norm)
			s.mu.Unlock()
		}
		return run, started, err
	})
	if err != nil {
		return err
	}

	s.logger.Info("tracking source", "path", norm)
	return s.awaitApplied(ctx, run)
}

// RemoveSourceAssemblyPath stops tracking path and removes its entries. It
// waits for any in-flight run first.
func (s *Store[T]) RemoveSourceAssemblyPath(ctx context.Context, path string) error {
	norm, err := s.normalizeArg(path)
	if err != nil {
		return err
	}
	if !s.isTracked(norm) {
		return &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrNotTracked, norm)}
	}

	_, err = s.commitWhenIdle(ctx, func() (*discovery.Run, bool, error) {
		if _, ok := s.tracked[norm]; !ok {
			return nil, false, &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrNotTracked, norm)}
		}

		removed := make(map[testobject.ID]T)
		s.mu.Lock()
		delete(s.tracked, norm)
		for id, e := range s.entries {
			if s.sourceKey(e.Source()) == norm {
				removed[id] = e
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()

		s.publish(Removed, removed)
		return nil, true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("stopped tracking source", "path", norm)
	return nil
}

// Refresh re-discovers the given tracked paths, or every tracked path when
// none are given. It returns once the run has completed and been applied.
func (s *Store[T]) Refresh(ctx context.Context, paths ...string) error {
	targets := make([]string, 0, len(paths))
	for _, p := range paths {
		norm, err := s.normalizeArg(p)
		if err != nil {
			return err
		}
		if !s.isTracked(norm) {
			return &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrNotTracked, norm)}
		}
		targets = append(targets, norm)
	}

	var nothing bool
	run, err := s.commitWhenIdle(ctx, func() (*discovery.Run, bool, error) {
		sources := targets
		if len(sources) == 0 {
			for p := range s.tracked {
				sources = append(sources, p)
			}
			slices.Sort(sources)
		}
		if len(sources) == 0 {
			nothing = true
			return nil, true, nil
		}
		for _, p := range sources {
			if _, ok := s.tracked[p]; !ok {
				return nil, false, &ArgumentError{Param: sourcePathParam, Err: fmt.Errorf("%w: %q", ErrNotTracked, p)}
			}
		}
		return s.discoverer.TryDiscoverTestCases(sources)
	})
	if err != nil || nothing {
		return err
	}
	return s.awaitApplied(ctx, run)
}

// commitWhenIdle waits until no run is in flight and then runs commit on the
// owner goroutine. commit reports started=false when a run began in the
// meantime, in which case the wait is repeated.
func (s *Store[T]) commitWhenIdle(ctx context.Context, commit func() (*discovery.Run, bool, error)) (*discovery.Run, error) {
	for {
		if err := s.waitIdle(ctx); err != nil {
			return nil, err
		}

		var (
			run     *discovery.Run
			started bool
			err     error
		)
		doErr := s.do(ctx, func() {
			if ctx.Err() != nil {
				err = ctx.Err()
				return
			}
			if s.discoverer.IsDiscoveryInProgress() {
				return
			}
			run, started, err = commit()
		})
		if doErr != nil {
			return nil, doErr
		}
		if err != nil {
			return nil, err
		}
		if started {
			return run, nil
		}
		s.logger.Debug("discovery started by another caller, waiting again")
	}
}

// waitIdle blocks until the discoverer has no run in flight. The current run
// is re-read after every wake-up because another caller may have started a
// new one in between.
func (s *Store[T]) waitIdle(ctx context.Context) error {
	for s.discoverer.IsDiscoveryInProgress() {
		run := s.discoverer.WaitForDiscoveryComplete()
		if err := run.Wait(ctx); err != nil {
			return fmt.Errorf("wait for discovery: %w", err)
		}
	}
	return nil
}

// awaitApplied waits for run to complete and for its events to be applied.
func (s *Store[T]) awaitApplied(ctx context.Context, run *discovery.Run) error {
	if run == nil {
		return nil
	}
	if err := run.Wait(ctx); err != nil {
		return fmt.Errorf("wait for discovery: %w", err)
	}
	// The completion event was queued before the run resolved.
	return s.do(ctx, func() {})
}

// do runs fn on the owner goroutine and waits for it. ctx only bounds the wait
// before fn starts: a started fn is always waited for, and one the caller gave
// up on never runs.
func (s *Store[T]) do(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	finished := make(chan struct{})
	if !s.inbox.Put(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-finished
		return nil
	}
}

func (s *Store[T]) normalizeArg(path string) (string, error) {
	if path == "" {
		return "", &ArgumentError{Param: sourcePathParam, Err: errEmptyPath}
	}
	norm, err := s.normalizer.Normalize(path)
	if err != nil {
		return "", &ArgumentError{Param: sourcePathParam, Err: err}
	}
	return norm, nil
}

func (s *Store[T]) isTracked(norm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tracked[norm]
	return ok
}

// sourceKey maps an entry's source to the form used in the tracked set.
func (s *Store[T]) sourceKey(source string) string {
	if norm, err := s.normalizer.Normalize(source); err == nil {
		return norm
	}
	return filepath.Clean(source)
}

// Event handlers (owner goroutine only)

func (s *Store[T]) handleEvent(e discovery.Event) {
	switch e := e.(type) {
	case discovery.TestCasesDiscovered:
		s.applyChunk(e.TestCases)
	case discovery.DiscoveryCompleted:
		s.applyCompletion(e)
	}
}

func (s *Store[T]) applyChunk(testCases []*testobject.TestCase) {
	added := make(map[testobject.ID]T)
	modified := make(map[testobject.ID]T)

	s.mu.Lock()
	for _, tc := range testCases {
		if _, ok := s.tracked[s.sourceKey(tc.Source())]; !ok {
			s.logger.Debug("skipping test case from untracked source", "id", tc.ID(), "source", tc.Source())
			continue
		}

		id := tc.ID()
		prior, exists := s.entries[id]
		entry := s.build(tc, prior, exists)
		s.entries[id] = entry

		switch {
		case !exists:
			added[id] = entry
		case hasKey(added, id):
			// Repeated within this chunk: still a single addition.
			added[id] = entry
		default:
			modified[id] = entry
		}
	}
	s.mu.Unlock()

	s.publish(Added, added)
	s.publish(Modified, modified)
}

func (s *Store[T]) applyCompletion(e discovery.DiscoveryCompleted) {
	if e.Aborted {
		s.logger.Warn("discovery aborted, keeping previous entries", "sources", e.Sources)
		return
	}

	sources := make(map[string]struct{}, len(e.Sources))
	for _, src := range e.Sources {
		sources[s.sourceKey(src)] = struct{}{}
	}

	removed := make(map[testobject.ID]T)
	s.mu.Lock()
	for id, entry := range s.entries {
		if _, inRun := sources[s.sourceKey(entry.Source())]; !inRun {
			continue
		}
		if _, seen := e.Observed[id]; seen {
			continue
		}
		removed[id] = entry
		delete(s.entries, id)
	}
	s.mu.Unlock()

	s.publish(Removed, removed)
}

func (s *Store[T]) publish(kind ChangeKind, batch map[testobject.ID]T) {
	if len(batch) == 0 {
		return
	}
	s.logger.Debug("publishing change", "kind", kind, "count", len(batch))
	s.topic.Publish(Change[T]{Kind: kind, Batch: batch})
}

func hasKey[K comparable, V any](m map[K]V, k K) bool {
	_, ok := m[k]
	return ok
}
