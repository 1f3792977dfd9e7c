package process

import (
	"encoding/json"
	"strings"

	"github.com/jesspatton/lazyexplorer/platform"
)

// Event names on the discovery protocol. Each stdout line is one JSON object:
//
//	{"event":"tests","tests":[...]}
//	{"event":"complete","total":3,"tests":[...],"aborted":false}
//	{"event":"log","level":"warning","message":"..."}
//
// The tests array of a complete event is the last chunk. It must be present,
// possibly empty; a missing or null array marks the run as aborted.
const (
	EventTests    = "tests"
	EventComplete = "complete"
	EventLog      = "log"
)

// Line is one decoded protocol line.
type Line struct {
	Event   string                 `json:"event"`
	Tests   []platform.RawTestCase `json:"tests"`
	Total   int64                  `json:"total"`
	Aborted bool                   `json:"aborted"`
	Level   string                 `json:"level"`
	Message *string                `json:"message"`
}

// ParseLine decodes a protocol line. ok is false for anything that is not a
// JSON object with a known event; such lines are passed on as raw output.
func ParseLine(text string) (Line, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return Line{}, false
	}
	var l Line
	if err := json.Unmarshal([]byte(trimmed), &l); err != nil {
		return Line{}, false
	}
	switch l.Event {
	case EventTests, EventComplete, EventLog:
		return l, true
	default:
		return Line{}, false
	}
}
