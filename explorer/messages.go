package explorer

import (
	"github.com/jesspatton/lazyexplorer/filesystem"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/store"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// ChangeMsg carries a batch published by the result store.
type ChangeMsg store.Change[*testobject.TestResult]

// DiscoveryStartedMsg reports that a discovery run began.
type DiscoveryStartedMsg struct {
	Generation uint64
	Sources    []string
}

// DiscoveryFinishedMsg reports that a discovery run completed.
type DiscoveryFinishedMsg struct {
	Generation uint64
	Aborted    bool
	Count      int64
}

// LogMsg carries an engine message.
type LogMsg struct {
	Level platform.MessageLevel
	Text  string
}

// WatcherMsg carries a settled batch of changed files.
type WatcherMsg []string

// WatcherReadyMsg carries the initialized watcher.
type WatcherReadyMsg struct {
	watcher *filesystem.Watcher
}

// WatcherFailedMsg reports that the watcher could not be started.
type WatcherFailedMsg struct {
	Err error
}

// Action names a user-initiated store operation.
type Action string

const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionRefresh Action = "refresh"
)

// ActionDoneMsg reports the end of an Add, Remove or Refresh.
type ActionDoneMsg struct {
	Action Action
	Paths  []string
	Err    error
}
