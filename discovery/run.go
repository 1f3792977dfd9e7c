package discovery

import (
	"context"
	"slices"

	"github.com/jesspatton/lazyexplorer/testobject"
)

// Run is one discovery session and its completion handle. Every run owns its
// own Done channel, so waiters can re-read the coordinator's current run after
// each wake-up instead of polling a flag.
type Run struct {
	generation uint64
	sources    []string
	done       chan struct{}

	// Guarded by the coordinator's delivery lock until done is closed.
	observed map[testobject.ID]struct{}
	count    int64
	aborted  bool
}

func newRun(generation uint64, sources []string) *Run {
	return &Run{
		generation: generation,
		sources:    sources,
		done:       make(chan struct{}),
		observed:   make(map[testobject.ID]struct{}),
	}
}

// completedRun is the handle returned while no run has happened yet.
func completedRun() *Run {
	r := newRun(0, nil)
	close(r.done)
	return r
}

// Generation numbers runs of one coordinator starting at 1.
func (r *Run) Generation() uint64 { return r.generation }

// Sources returns the source paths requested for this run.
func (r *Run) Sources() []string { return slices.Clone(r.sources) }

// Done is closed when the run completes.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run completes or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Aborted reports whether the run ended without a complete, consistent
// result. It is only meaningful after Done is closed.
func (r *Run) Aborted() bool {
	select {
	case <-r.done:
		return r.aborted
	default:
		return false
	}
}

// Count returns the number of test cases reported by a completed run.
func (r *Run) Count() int64 {
	select {
	case <-r.done:
		return r.count
	default:
		return 0
	}
}
