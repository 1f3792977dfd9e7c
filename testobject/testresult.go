package testobject

import (
	"slices"
	"time"
)

// Outcome is the result of the last execution of a test.
type Outcome int

const (
	// OutcomeNone means the test has not been run.
	OutcomeNone Outcome = iota
	// OutcomePassed means the last run passed.
	OutcomePassed
	// OutcomeFailed means the last run failed.
	OutcomeFailed
	// OutcomeSkipped means the last run skipped the test.
	OutcomeSkipped
	// OutcomeNotFound means the engine could not locate the test when running it.
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotFound:
		return "not-found"
	default:
		return "not-run"
	}
}

// Message is one line of console output captured during a run.
type Message struct {
	Category string `json:"category" yaml:"category"`
	Text     string `json:"text" yaml:"text"`
}

// Attachment is a file produced by a run, grouped under a collector name.
type Attachment struct {
	Collector   string `json:"collector" yaml:"collector"`
	URI         string `json:"uri" yaml:"uri"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Execution holds the facts of the most recent run of a test. These are the
// only values carried from one discovery run to the next.
type Execution struct {
	Outcome         Outcome
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	Messages        []Message
	ErrorMessage    string
	ErrorStackTrace string
	Attachments     []Attachment
	ComputerName    string
}

func (e Execution) clone() Execution {
	e.Messages = slices.Clone(e.Messages)
	e.Attachments = slices.Clone(e.Attachments)
	return e
}

// TestResult pairs a TestCase with its last execution facts.
type TestResult struct {
	testCase  *TestCase
	execution Execution
}

// NewTestResult builds a result for tc with the given execution facts.
func NewTestResult(tc *TestCase, exec Execution) *TestResult {
	return &TestResult{testCase: tc, execution: exec.clone()}
}

// TestCase returns the shape this result belongs to.
func (r *TestResult) TestCase() *TestCase { return r.testCase }

// ID returns the identity of the underlying test case.
func (r *TestResult) ID() ID { return r.testCase.ID() }

// Source returns the source path of the underlying test case.
func (r *TestResult) Source() string { return r.testCase.Source() }

// DisplayName returns the display name of the underlying test case.
func (r *TestResult) DisplayName() string { return r.testCase.DisplayName() }

func (r *TestResult) Outcome() Outcome { return r.execution.Outcome }
func (r *TestResult) StartTime() time.Time { return r.execution.StartTime }
func (r *TestResult) EndTime() time.Time { return r.execution.EndTime }
func (r *TestResult) Duration() time.Duration { return r.execution.Duration }
func (r *TestResult) ErrorMessage() string { return r.execution.ErrorMessage }
func (r *TestResult) ErrorStackTrace() string { return r.execution.ErrorStackTrace }
func (r *TestResult) ComputerName() string { return r.execution.ComputerName }
func (r *TestResult) Messages() []Message { return slices.Clone(r.execution.Messages) }
func (r *TestResult) Attachments() []Attachment { return slices.Clone(r.execution.Attachments) }

// Execution returns a copy of the execution facts.
func (r *TestResult) Execution() Execution {
	return r.execution.clone()
}
