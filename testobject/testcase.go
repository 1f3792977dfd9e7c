// Package testobject holds the explorer's own immutable view of discovered
// tests and their results, and the factory that translates engine records.
package testobject

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ID is the stable identity of a test case across discovery runs.
type ID = uuid.UUID

// identityNamespace seeds name-based identities so the same source and name
// always hash to the same ID.
var identityNamespace = uuid.MustParse("6f1c2b8e-52d4-4a5e-9a57-1f3b0c7de1a4")

// NewID derives a deterministic identity from a source path and a fully
// qualified test name.
func NewID(source, fullyQualifiedName string) ID {
	return uuid.NewSHA1(identityNamespace, []byte(source+"\x00"+fullyQualifiedName))
}

// Trait is a key/value tag on a test case. Traits are neither ordered nor unique.
type Trait struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// TestCase is a discovered test. It is immutable once constructed.
type TestCase struct {
	id                 ID
	displayName        string
	fullyQualifiedName string
	source             string
	codeFilePath       string
	lineNumber         int
	executorURI        string
	traits             []Trait
}

// TestCaseInfo carries the fields used to build a TestCase.
type TestCaseInfo struct {
	ID                 ID
	DisplayName        string
	FullyQualifiedName string
	Source             string
	CodeFilePath       string
	LineNumber         int
	ExecutorURI        string
	Traits             []Trait
}

// NewTestCase builds a TestCase from info, copying the trait slice.
func NewTestCase(info TestCaseInfo) *TestCase {
	return &TestCase{
		id:                 info.ID,
		displayName:        info.DisplayName,
		fullyQualifiedName: info.FullyQualifiedName,
		source:             info.Source,
		codeFilePath:       info.CodeFilePath,
		lineNumber:         info.LineNumber,
		executorURI:        info.ExecutorURI,
		traits:             slices.Clone(info.Traits),
	}
}

func (tc *TestCase) ID() ID { return tc.id }
func (tc *TestCase) DisplayName() string { return tc.displayName }
func (tc *TestCase) FullyQualifiedName() string { return tc.fullyQualifiedName }
func (tc *TestCase) Source() string { return tc.source }
func (tc *TestCase) CodeFilePath() string { return tc.codeFilePath }
func (tc *TestCase) LineNumber() int { return tc.lineNumber }
func (tc *TestCase) ExecutorURI() string { return tc.executorURI }

// Traits returns a copy of the trait tags.
func (tc *TestCase) Traits() []Trait {
	return slices.Clone(tc.traits)
}

// Class returns the segment of the fully qualified name that precedes the
// display name, e.g. "Widget" for "pkg.Widget.TestSpin".
func (tc *TestCase) Class() string {
	prefix := tc.qualifier()
	if i := strings.LastIndex(prefix, "."); i >= 0 {
		return prefix[i+1:]
	}
	return prefix
}

// Namespace returns everything before the class, including the trailing dot.
func (tc *TestCase) Namespace() string {
	prefix := tc.qualifier()
	if i := strings.LastIndex(prefix, "."); i >= 0 {
		return prefix[:i+1]
	}
	return ""
}

// qualifier is the FQN with the display name and its separating dot removed.
func (tc *TestCase) qualifier() string {
	fqn := tc.fullyQualifiedName
	i := strings.LastIndex(fqn, tc.displayName)
	if tc.displayName == "" || i <= 0 {
		return ""
	}
	return strings.TrimSuffix(fqn[:i], ".")
}
