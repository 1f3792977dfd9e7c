// Package platformtest provides an in-memory platform.Engine for tests.
package platformtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// Call records one DiscoverTests invocation.
type Call struct {
	Sources  []string
	Settings string
	Handler  platform.DiscoveryEventsHandler
}

// Script plays the engine's side of a discovery call.
type Script func(ctx context.Context, sources []string, h platform.DiscoveryEventsHandler)

// Engine is a fake engine. With a nil Script, calls are left open and the
// test drives the handler obtained from NextCall.
type Engine struct {
	// Script, if set, runs synchronously inside DiscoverTests.
	Script Script
	// Err, if set, is returned from DiscoverTests without calling the handler.
	Err error

	mu      sync.Mutex
	calls   []Call
	cancels int
	pending chan Call
}

// New creates an Engine that leaves calls open.
func New() *Engine {
	return &Engine{pending: make(chan Call, 1024)}
}

// NewScripted creates an Engine that plays script on every call.
func NewScripted(script Script) *Engine {
	e := New()
	e.Script = script
	return e
}

func (e *Engine) DiscoverTests(ctx context.Context, sources []string, settings string, h platform.DiscoveryEventsHandler) error {
	call := Call{Sources: slices.Clone(sources), Settings: settings, Handler: h}

	e.mu.Lock()
	e.calls = append(e.calls, call)
	script, err := e.Script, e.Err
	e.mu.Unlock()

	select {
	case e.pending <- call:
	default:
	}

	if err != nil {
		return err
	}
	if script != nil {
		script(ctx, sources, h)
	}
	return nil
}

func (e *Engine) CancelDiscovery() {
	e.mu.Lock()
	e.cancels++
	e.mu.Unlock()
}

// Calls returns every DiscoverTests invocation so far.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// Cancels returns how many times CancelDiscovery was called.
func (e *Engine) Cancels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels
}

// NextCall waits for the next DiscoverTests invocation. ok is false on timeout.
func (e *Engine) NextCall(timeout time.Duration) (call Call, ok bool) {
	select {
	case call = <-e.pending:
		return call, true
	case <-time.After(timeout):
		return Call{}, false
	}
}

// Case builds a raw test case with a deterministic identity.
func Case(source, name string) platform.RawTestCase {
	return platform.RawTestCase{
		ID:                 testobject.NewID(source, name),
		DisplayName:        name,
		FullyQualifiedName: name,
		Source:             source,
		ExecutorURI:        "executor://platformtest",
	}
}

// Reply returns a script that reports each chunk in order and then completes
// with an empty last chunk and a matching total.
func Reply(chunks ...[]platform.RawTestCase) Script {
	return func(_ context.Context, _ []string, h platform.DiscoveryEventsHandler) {
		var total int64
		for _, chunk := range chunks {
			total += int64(len(chunk))
			h.HandleDiscoveredTests(chunk)
		}
		h.HandleDiscoveryComplete(total, []platform.RawTestCase{}, false)
	}
}

// PerSource returns a script that reports, for each requested source, the
// cases produced by cases(source) in a single chunk.
func PerSource(cases func(source string) []platform.RawTestCase) Script {
	return func(_ context.Context, sources []string, h platform.DiscoveryEventsHandler) {
		var total int64
		for _, src := range sources {
			chunk := cases(src)
			if chunk == nil {
				chunk = []platform.RawTestCase{}
			}
			total += int64(len(chunk))
			h.HandleDiscoveredTests(chunk)
		}
		h.HandleDiscoveryComplete(total, []platform.RawTestCase{}, false)
	}
}
