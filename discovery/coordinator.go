// Package discovery drives test discovery against an external engine, one run
// at a time, and republishes the engine's callbacks as events.
package discovery

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jesspatton/lazyexplorer/event"
	"github.com/jesspatton/lazyexplorer/logging"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

var errNilSources = errors.New("source list is nil")

// Coordinator owns the single-flight relationship with a platform.Engine.
//
// It is Idle until DiscoverTestCases starts a run and Discovering until the
// engine reports completion. Requests made while Discovering share the
// in-flight run instead of starting another.
type Coordinator struct {
	engine   platform.Engine
	factory  testobject.Factory
	settings string
	logger   *log.Logger
	topic    event.Topic[Event]

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	current    *Run
	last       *Run
	generation uint64
	closed     bool

	// deliver serializes engine callbacks and completion.
	deliver sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFactory sets the translation factory. The default is testobject.NewFactory().
func WithFactory(f testobject.Factory) Option {
	return func(c *Coordinator) { c.factory = f }
}

// WithSettings sets the settings document passed to the engine on every run.
func WithSettings(settings string) Option {
	return func(c *Coordinator) { c.settings = settings }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logging.Component(l, "discovery") }
}

// NewCoordinator creates an idle Coordinator for engine.
func NewCoordinator(engine platform.Engine, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		engine:  engine,
		factory: testobject.NewFactory(),
		logger:  logging.Discard(),
		ctx:     ctx,
		cancel:  cancel,
		last:    completedRun(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a listener for coordinator events. Listeners run on the
// engine's callback goroutine (or the caller's, for DiscoveryStarted), in
// delivery order, and must neither block nor call back into the Coordinator.
func (c *Coordinator) Subscribe(l event.Listener[Event]) (unsubscribe func()) {
	return c.topic.Subscribe(l)
}

// IsDiscoveryInProgress reports whether a run is in flight.
func (c *Coordinator) IsDiscoveryInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// DiscoverTestCases starts a run over sources, or returns the in-flight run
// if one exists.
func (c *Coordinator) DiscoverTestCases(sources []string) (*Run, error) {
	run, _, err := c.TryDiscoverTestCases(sources)
	return run, err
}

// TryDiscoverTestCases is DiscoverTestCases that also reports whether this
// call started the returned run.
func (c *Coordinator) TryDiscoverTestCases(sources []string) (*Run, bool, error) {
	if sources == nil {
		return nil, false, &ArgumentError{Param: "sources", Err: errNilSources}
	}

	c.mu.Lock()
	if c.current != nil {
		run := c.current
		c.mu.Unlock()
		return run, false, nil
	}
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrClosed
	}
	c.generation++
	run := newRun(c.generation, slices.Clone(sources))
	c.current = run
	c.mu.Unlock()

	c.logger.Debug("discovery started", "generation", run.generation, "sources", run.sources)
	c.deliver.Lock()
	c.topic.Publish(DiscoveryStarted{Run: run, Sources: slices.Clone(run.sources)})
	c.deliver.Unlock()

	go c.discover(run)

	return run, true, nil
}

// CancelDiscovery asks the engine to stop and returns the current run, or a
// completed run when Idle. Cancellation is advisory: wait on the returned run
// to observe the outcome.
func (c *Coordinator) CancelDiscovery() *Run {
	c.engine.CancelDiscovery()
	return c.WaitForDiscoveryComplete()
}

// WaitForDiscoveryComplete returns the current run, or the most recently
// completed one when Idle. It has no side effects.
func (c *Coordinator) WaitForDiscoveryComplete() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return c.current
	}
	return c.last
}

// Close cancels any in-flight run and rejects new ones. The in-flight run, if
// any, completes as aborted.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	run := c.current
	c.mu.Unlock()

	c.cancel()
	if run != nil {
		c.engine.CancelDiscovery()
		c.abandon(run)
	}
}

func (c *Coordinator) discover(run *Run) {
	sink := &runSink{c: c, run: run}
	if err := c.engine.DiscoverTests(c.ctx, run.sources, c.settings, sink); err != nil {
		c.logger.Error("engine could not run discovery", "generation", run.generation, "err", err)
		c.abandon(run)
	}
}

// abandon completes run as aborted unless the engine already completed it.
func (c *Coordinator) abandon(run *Run) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	if !c.isCurrent(run) {
		return
	}
	c.finish(run, true)
}

func (c *Coordinator) isCurrent(run *Run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == run
}

// publishChunk translates raw and publishes the result. Caller holds deliver.
func (c *Coordinator) publishChunk(run *Run, raw []platform.RawTestCase) {
	testCases := make([]*testobject.TestCase, 0, len(raw))
	for _, r := range raw {
		tc, err := c.factory.TranslateTestCase(r)
		if err != nil {
			c.logger.Warn("dropping untranslatable test case", "generation", run.generation, "err", err)
			continue
		}
		testCases = append(testCases, tc)
		run.observed[tc.ID()] = struct{}{}
	}
	run.count += int64(len(testCases))

	c.topic.Publish(TestCasesDiscovered{Run: run, TestCases: testCases})
}

// finish publishes completion, returns to Idle and resolves run. Caller holds
// deliver. Completion is published before the run resolves so that listeners
// have queued it before any waiter wakes up.
func (c *Coordinator) finish(run *Run, aborted bool) {
	run.aborted = aborted
	c.topic.Publish(DiscoveryCompleted{
		Run:      run,
		Sources:  slices.Clone(run.sources),
		Aborted:  aborted,
		Observed: maps.Clone(run.observed),
	})

	c.mu.Lock()
	c.current = nil
	c.last = run
	c.mu.Unlock()

	close(run.done)
	c.logger.Debug("discovery finished", "generation", run.generation, "count", run.count, "aborted", aborted)
}

// runSink receives engine callbacks for a single run. Callbacks for a run
// that is no longer current are dropped.
type runSink struct {
	c   *Coordinator
	run *Run
}

func (s *runSink) HandleDiscoveredTests(tests []platform.RawTestCase) {
	s.c.deliver.Lock()
	defer s.c.deliver.Unlock()

	if !s.c.isCurrent(s.run) {
		s.c.logger.Warn("engine reported tests outside a discovery run", "generation", s.run.generation)
		return
	}
	if tests == nil {
		s.c.logger.Warn("engine reported a nil chunk", "generation", s.run.generation)
		return
	}
	s.c.publishChunk(s.run, tests)
}

func (s *runSink) HandleDiscoveryComplete(totalTests int64, lastChunk []platform.RawTestCase, aborted bool) {
	s.c.deliver.Lock()
	defer s.c.deliver.Unlock()

	if !s.c.isCurrent(s.run) {
		s.c.logger.Warn("engine completed a discovery run that is not in flight", "generation", s.run.generation)
		return
	}

	if lastChunk == nil {
		s.c.logger.Warn("engine completed without a last chunk", "generation", s.run.generation)
		aborted = true
	} else {
		s.c.publishChunk(s.run, lastChunk)
		if totalTests != s.run.count {
			s.c.logger.Warn("engine total does not match discovered tests",
				"generation", s.run.generation, "reported", totalTests, "observed", s.run.count)
			aborted = true
		}
	}

	s.c.finish(s.run, aborted)
}

func (s *runSink) HandleLogMessage(level platform.MessageLevel, message *string) {
	s.publishMessage(level, message)
}

func (s *runSink) HandleRawMessage(message *string) {
	s.publishMessage(platform.Informational, message)
}

func (s *runSink) publishMessage(level platform.MessageLevel, message *string) {
	s.c.deliver.Lock()
	defer s.c.deliver.Unlock()

	if !s.c.isCurrent(s.run) || message == nil {
		return
	}
	s.c.topic.Publish(MessageReceived{Run: s.run, Level: level, Text: *message})
}
