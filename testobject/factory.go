package testobject

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jesspatton/lazyexplorer/platform"
)

// ErrIncompleteRecord is returned when an engine record lacks the fields
// needed to identify a test.
var ErrIncompleteRecord = errors.New("incomplete test record")

// Factory converts engine records into test objects. It is the only place
// that knows the engine's record shape.
type Factory interface {
	TranslateTestCase(raw platform.RawTestCase) (*TestCase, error)
	CreateTestResult(tc *TestCase) *TestResult
	CloneTestResult(prior *TestResult, tc *TestCase) *TestResult
}

// DefaultFactory is the standard Factory.
type DefaultFactory struct{}

// NewFactory returns a DefaultFactory.
func NewFactory() DefaultFactory {
	return DefaultFactory{}
}

// TranslateTestCase builds a TestCase from a raw engine record. Records without
// an ID get one derived from their source and fully qualified name.
func (DefaultFactory) TranslateTestCase(raw platform.RawTestCase) (*TestCase, error) {
	if raw.Source == "" {
		return nil, fmt.Errorf("%w: %q has no source", ErrIncompleteRecord, raw.FullyQualifiedName)
	}

	id := raw.ID
	if id == uuid.Nil {
		if raw.FullyQualifiedName == "" {
			return nil, fmt.Errorf("%w: no id and no fully qualified name in %s", ErrIncompleteRecord, raw.Source)
		}
		id = NewID(raw.Source, raw.FullyQualifiedName)
	}

	displayName := raw.DisplayName
	if displayName == "" {
		displayName = raw.FullyQualifiedName
	}

	traits := make([]Trait, 0, len(raw.Traits))
	for _, p := range raw.Traits {
		traits = append(traits, Trait{Name: p.Key, Value: p.Value})
	}

	return &TestCase{
		id:                 id,
		displayName:        displayName,
		fullyQualifiedName: raw.FullyQualifiedName,
		source:             raw.Source,
		codeFilePath:       raw.CodeFilePath,
		lineNumber:         raw.LineNumber,
		executorURI:        raw.ExecutorURI,
		traits:             traits,
	}, nil
}

// CreateTestResult returns a never-run result for tc.
func (DefaultFactory) CreateTestResult(tc *TestCase) *TestResult {
	return &TestResult{testCase: tc}
}

// CloneTestResult returns a result with tc's shape and prior's execution facts.
func (DefaultFactory) CloneTestResult(prior *TestResult, tc *TestCase) *TestResult {
	if prior == nil {
		return &TestResult{testCase: tc}
	}
	return &TestResult{testCase: tc, execution: prior.execution.clone()}
}
