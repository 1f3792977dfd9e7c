package explorer

import (
	"cmp"
	"slices"
	"time"

	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/store"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// maxMessages bounds the message log kept for display.
const maxMessages = 200

// Message is an engine or application message shown in the log pane.
type Message struct {
	Time  time.Time
	Level platform.MessageLevel
	Text  string
}

// State represents the core business state of the application.
type State struct {
	RootPath string

	// Data
	Sources []string
	Results map[testobject.ID]*testobject.TestResult
	Tree    *Node

	// Discovery
	Discovering bool
	Generation  uint64
	Running     []string
	LastAborted bool
	LastCount   int64

	Messages []Message
	LastErr  error
}

// NewState creates a new State instance.
func NewState(rootPath string) State {
	s := State{
		RootPath: rootPath,
		Results:  make(map[testobject.ID]*testobject.TestResult),
	}
	s.rebuild()
	return s
}

// Apply folds one store change into the state.
func (s *State) Apply(c store.Change[*testobject.TestResult]) {
	for id, r := range c.Batch {
		if c.Kind == store.Removed {
			delete(s.Results, id)
			continue
		}
		s.Results[id] = r
	}
	s.rebuild()
}

// SetSources replaces the tracked source list.
func (s *State) SetSources(sources []string) {
	s.Sources = slices.Clone(sources)
	s.rebuild()
}

// AddMessage appends to the message log, dropping the oldest past the limit.
func (s *State) AddMessage(level platform.MessageLevel, text string) {
	s.Messages = append(s.Messages, Message{Time: time.Now(), Level: level, Text: text})
	if over := len(s.Messages) - maxMessages; over > 0 {
		s.Messages = slices.Delete(s.Messages, 0, over)
	}
}

// SortedResults returns every result ordered by source then name.
func (s *State) SortedResults() []*testobject.TestResult {
	out := make([]*testobject.TestResult, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *testobject.TestResult) int {
		return cmp.Or(
			cmp.Compare(a.Source(), b.Source()),
			cmp.Compare(a.TestCase().FullyQualifiedName(), b.TestCase().FullyQualifiedName()),
		)
	})
	return out
}

// Counts tallies results by outcome.
func (s *State) Counts() map[testobject.Outcome]int {
	counts := make(map[testobject.Outcome]int)
	for _, r := range s.Results {
		counts[r.Outcome()]++
	}
	return counts
}

func (s *State) rebuild() {
	s.Tree = BuildTree(s.Sources, s.SortedResults())
}
