// Package platform defines the contract between the explorer and an external
// test-execution engine that performs discovery.
package platform

import (
	"context"

	"github.com/google/uuid"
)

// MessageLevel is the severity of a diagnostic message reported by an engine.
type MessageLevel int

const (
	// Informational is a plain progress or diagnostic message.
	Informational MessageLevel = iota
	// Warning indicates a recoverable problem, usually with a single source.
	Warning
	// Error indicates the engine failed to process something.
	Error
)

// String returns the lower-case name of the level.
func (l MessageLevel) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "informational"
	}
}

// ParseMessageLevel converts a level name to a MessageLevel. Unknown names map
// to Informational.
func ParseMessageLevel(s string) MessageLevel {
	switch s {
	case "warning", "warn":
		return Warning
	case "error":
		return Error
	default:
		return Informational
	}
}

// Property is an engine-native key/value pair attached to a test case.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RawTestCase is the engine-native shape of a discovered test. It is
// translated into a testobject.TestCase before the rest of the system sees it.
type RawTestCase struct {
	ID                 uuid.UUID  `json:"id"`
	DisplayName        string     `json:"displayName"`
	FullyQualifiedName string     `json:"fullyQualifiedName"`
	Source             string     `json:"source"`
	CodeFilePath       string     `json:"codeFilePath,omitempty"`
	LineNumber         int        `json:"lineNumber,omitempty"`
	ExecutorURI        string     `json:"executorUri,omitempty"`
	Traits             []Property `json:"traits,omitempty"`
}

// DiscoveryEventsHandler receives discovery callbacks from an Engine.
//
// A nil slice passed to HandleDiscoveredTests or as lastChunk models a missing
// chunk, and a nil message pointer models a missing message. Implementations
// must tolerate both.
type DiscoveryEventsHandler interface {
	HandleDiscoveredTests(tests []RawTestCase)
	HandleDiscoveryComplete(totalTests int64, lastChunk []RawTestCase, aborted bool)
	HandleLogMessage(level MessageLevel, message *string)
	HandleRawMessage(message *string)
}

// Engine is an external test-execution engine capable of discovery.
//
// DiscoverTests invokes the handler zero or more times with chunks, then once
// with HandleDiscoveryComplete. Callbacks for a single call are never delivered
// concurrently. A returned error means the engine could not run discovery at all.
type Engine interface {
	DiscoverTests(ctx context.Context, sources []string, settings string, handler DiscoveryEventsHandler) error
	CancelDiscovery()
}
