package discovery

import (
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// Event is published by a Coordinator. The concrete types are
// DiscoveryStarted, TestCasesDiscovered, MessageReceived and
// DiscoveryCompleted.
type Event interface {
	discoveryEvent()
}

// DiscoveryStarted is published once per run, before any other event of
// that run.
type DiscoveryStarted struct {
	Run     *Run
	Sources []string
}

// TestCasesDiscovered carries one translated chunk.
type TestCasesDiscovered struct {
	Run       *Run
	TestCases []*testobject.TestCase
}

// MessageReceived carries a diagnostic message from the engine.
type MessageReceived struct {
	Run   *Run
	Level platform.MessageLevel
	Text  string
}

// DiscoveryCompleted is published once per run, before the run's Done channel
// is closed. Observed holds every identity reported during the run.
type DiscoveryCompleted struct {
	Run      *Run
	Sources  []string
	Aborted  bool
	Observed map[testobject.ID]struct{}
}

func (DiscoveryStarted) discoveryEvent() {}
func (TestCasesDiscovered) discoveryEvent() {}
func (MessageReceived) discoveryEvent() {}
func (DiscoveryCompleted) discoveryEvent() {}
