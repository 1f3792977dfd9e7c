// Package explorer is the application engine behind the terminal view. It
// owns the discovery coordinator, the result store and the source watcher,
// and folds their events into State through Bubble Tea messages.
package explorer

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jesspatton/lazyexplorer/discovery"
	"github.com/jesspatton/lazyexplorer/event"
	"github.com/jesspatton/lazyexplorer/filesystem"
	"github.com/jesspatton/lazyexplorer/logging"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/store"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the settings document passed to the platform engine.
func WithSettings(settings string) Option {
	return func(e *Engine) { e.settings = settings }
}

// WithWatch enables re-discovery when files under the root change.
func WithWatch(debounce time.Duration) Option {
	return func(e *Engine) {
		e.watch = true
		e.debounce = debounce
	}
}

// WithWatchIgnore adds .gitignore-style patterns the watcher skips.
func WithWatchIgnore(patterns ...string) Option {
	return func(e *Engine) { e.ignore = append(e.ignore, patterns...) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine manages the application logic and side effects.
type Engine struct {
	State State

	settings string
	watch    bool
	debounce time.Duration
	ignore   []string
	logger   *log.Logger

	coordinator *discovery.Coordinator
	results     *store.TestResultStore
	watcher     *filesystem.Watcher

	// updates carries coordinator and store events to the Bubble Tea loop.
	updates     *event.Mailbox[tea.Msg]
	unsubscribe []func()

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an Engine that discovers tests under rootPath with p.
func New(rootPath string, p platform.Engine, opts ...Option) *Engine {
	e := &Engine{
		State:   NewState(rootPath),
		updates: event.NewMailbox[tea.Msg](),
	}
	for _, opt := range opts {
		opt(e)
	}
	root := e.logger
	e.logger = logging.Component(root, "explorer")
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.coordinator = discovery.NewCoordinator(p,
		discovery.WithSettings(e.settings),
		discovery.WithLogger(root),
	)
	e.results = store.NewTestResultStore(e.coordinator, testobject.NewFactory(), store.WithLogger(root))

	e.unsubscribe = append(e.unsubscribe,
		e.coordinator.Subscribe(e.onDiscoveryEvent),
		e.results.Subscribe(func(c store.Change[*testobject.TestResult]) {
			e.updates.Put(ChangeMsg(c))
		}),
	)
	return e
}

// onDiscoveryEvent runs on the coordinator's delivery path and must not block.
func (e *Engine) onDiscoveryEvent(ev discovery.Event) {
	switch ev := ev.(type) {
	case discovery.DiscoveryStarted:
		e.updates.Put(DiscoveryStartedMsg{Generation: ev.Run.Generation(), Sources: ev.Sources})
	case discovery.MessageReceived:
		e.updates.Put(LogMsg{Level: ev.Level, Text: ev.Text})
	case discovery.DiscoveryCompleted:
		e.updates.Put(DiscoveryFinishedMsg{
			Generation: ev.Run.Generation(),
			Aborted:    ev.Aborted,
			Count:      int64(len(ev.Observed)),
		})
	}
}

// Init adds the initial sources and starts listening for updates.
func (e *Engine) Init(sources ...string) tea.Cmd {
	cmds := []tea.Cmd{e.waitForUpdates}
	for _, s := range sources {
		cmds = append(cmds, e.AddSource(s))
	}
	if e.watch {
		cmds = append(cmds, e.startWatcher)
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the engine state.
func (e *Engine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ChangeMsg:
		e.State.Apply(store.Change[*testobject.TestResult](msg))
		return e.waitForUpdates

	case DiscoveryStartedMsg:
		e.State.Discovering = true
		e.State.Generation = msg.Generation
		e.State.Running = msg.Sources
		return e.waitForUpdates

	case DiscoveryFinishedMsg:
		if msg.Generation == e.State.Generation {
			e.State.Discovering = false
			e.State.Running = nil
		}
		e.State.LastAborted = msg.Aborted
		e.State.LastCount = msg.Count
		if msg.Aborted {
			e.State.AddMessage(platform.Warning, "discovery was aborted")
		}
		return e.waitForUpdates

	case LogMsg:
		e.State.AddMessage(msg.Level, msg.Text)
		return e.waitForUpdates

	case ActionDoneMsg:
		e.State.LastErr = msg.Err
		if msg.Err != nil {
			e.State.AddMessage(platform.Error, string(msg.Action)+": "+msg.Err.Error())
		}
		e.State.SetSources(e.results.TrackedSourcePaths())
		return nil

	case WatcherReadyMsg:
		e.watcher = msg.watcher
		return e.waitForWatcherEvents

	case WatcherFailedMsg:
		e.State.AddMessage(platform.Warning, "file watching disabled: "+msg.Err.Error())
		return nil

	case WatcherMsg:
		var cmd tea.Cmd
		if affected := AffectedSources(msg, e.results.TrackedSourcePaths()); len(affected) > 0 {
			e.logger.Debug("sources changed", "sources", affected)
			cmd = e.Refresh(affected...)
		}
		return tea.Batch(cmd, e.waitForWatcherEvents)
	}

	return nil
}

// Actions

// AddSource starts tracking path.
func (e *Engine) AddSource(path string) tea.Cmd {
	return func() tea.Msg {
		err := e.results.AddSourceAssemblyPath(e.ctx, path)
		return ActionDoneMsg{Action: ActionAdd, Paths: []string{path}, Err: err}
	}
}

// RemoveSource stops tracking path.
func (e *Engine) RemoveSource(path string) tea.Cmd {
	return func() tea.Msg {
		err := e.results.RemoveSourceAssemblyPath(e.ctx, path)
		return ActionDoneMsg{Action: ActionRemove, Paths: []string{path}, Err: err}
	}
}

// Refresh re-discovers paths, or every tracked source when none are given.
func (e *Engine) Refresh(paths ...string) tea.Cmd {
	return func() tea.Msg {
		err := e.results.Refresh(e.ctx, paths...)
		return ActionDoneMsg{Action: ActionRefresh, Paths: paths, Err: err}
	}
}

// Cancel asks the in-flight run, if any, to stop.
func (e *Engine) Cancel() {
	run := e.coordinator.CancelDiscovery()
	e.logger.Debug("cancel requested", "generation", run.Generation())
}

// Close stops the watcher, the store and the coordinator. Pending actions
// return with a context error.
func (e *Engine) Close() {
	e.cancel()
	for _, unsubscribe := range e.unsubscribe {
		unsubscribe()
	}
	if e.watcher != nil {
		e.watcher.Close()
	}
	e.results.Close()
	e.coordinator.Close()
	// Nothing reads updates once the program has quit.
	e.updates.Discard()
}

// Accessors

// Results exposes the result store.
func (e *Engine) Results() *store.TestResultStore {
	return e.results
}

// IsTracked reports whether path is a tracked source.
func (e *Engine) IsTracked(path string) bool {
	return e.results.IsTracked(path)
}

// Internal Commands

func (e *Engine) startWatcher() tea.Msg {
	w, err := filesystem.NewWatcher(e.State.RootPath,
		filesystem.WithDebounce(e.debounce),
		filesystem.WithIgnorer(filesystem.NewIgnorer(e.State.RootPath, e.ignore...)),
		filesystem.WithWatcherLogger(e.logger),
	)
	if err != nil {
		return WatcherFailedMsg{Err: err}
	}
	return WatcherReadyMsg{watcher: w}
}

func (e *Engine) waitForWatcherEvents() tea.Msg {
	if e.watcher == nil {
		return nil
	}
	batch, ok := <-e.watcher.Events
	if !ok {
		return nil
	}
	return WatcherMsg(batch)
}

func (e *Engine) waitForUpdates() tea.Msg {
	msg, ok := <-e.updates.Out()
	if !ok {
		return nil
	}
	return msg
}
