package store

import "github.com/jesspatton/lazyexplorer/testobject"

// TestCaseStore indexes discovered test cases.
type TestCaseStore = Store[*testobject.TestCase]

// TestResultStore indexes one result per discovered test case.
type TestResultStore = Store[*testobject.TestResult]

// NewTestCaseStore creates a store of test cases. A rediscovered case replaces
// the indexed one.
func NewTestCaseStore(d Discoverer, opts ...Option) *TestCaseStore {
	opts = append([]Option{WithName("cases")}, opts...)
	return New(d, func(tc *testobject.TestCase, _ *testobject.TestCase, _ bool) *testobject.TestCase {
		return tc
	}, opts...)
}

// NewTestResultStore creates a store of results. A new case gets a fresh
// result from factory; a rediscovered case keeps the execution data of its
// prior result.
func NewTestResultStore(d Discoverer, factory testobject.Factory, opts ...Option) *TestResultStore {
	if factory == nil {
		factory = testobject.NewFactory()
	}
	opts = append([]Option{WithName("results")}, opts...)
	return New(d, func(tc *testobject.TestCase, prior *testobject.TestResult, exists bool) *testobject.TestResult {
		if exists {
			return factory.CloneTestResult(prior, tc)
		}
		return factory.CreateTestResult(tc)
	}, opts...)
}
