package explorer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/store"
	"github.com/jesspatton/lazyexplorer/testobject"
)

func result(source, fqn, file string, line int, outcome testobject.Outcome) *testobject.TestResult {
	tc := testobject.NewTestCase(testobject.TestCaseInfo{
		ID:                 testobject.NewID(source, fqn),
		DisplayName:        filepath.Ext(fqn)[1:],
		FullyQualifiedName: fqn,
		Source:             source,
		CodeFilePath:       file,
		LineNumber:         line,
	})
	return testobject.NewTestResult(tc, testobject.Execution{Outcome: outcome})
}

func batch(rs ...*testobject.TestResult) map[testobject.ID]*testobject.TestResult {
	m := make(map[testobject.ID]*testobject.TestResult, len(rs))
	for _, r := range rs {
		m[r.ID()] = r
	}
	return m
}

func TestState_Apply(t *testing.T) {
	s := NewState("/repo")
	a := result("/repo/a", "p.TestA", "/repo/a/a_test.go", 1, testobject.OutcomeNone)
	b := result("/repo/a", "p.TestB", "/repo/a/a_test.go", 5, testobject.OutcomePassed)

	s.Apply(store.Change[*testobject.TestResult]{Kind: store.Added, Batch: batch(a, b)})
	assert.Len(t, s.Results, 2)

	failed := result("/repo/a", "p.TestB", "/repo/a/a_test.go", 5, testobject.OutcomeFailed)
	s.Apply(store.Change[*testobject.TestResult]{Kind: store.Modified, Batch: batch(failed)})
	assert.Same(t, failed, s.Results[b.ID()])

	s.Apply(store.Change[*testobject.TestResult]{Kind: store.Removed, Batch: batch(a)})
	assert.Len(t, s.Results, 1)

	assert.Equal(t, map[testobject.Outcome]int{testobject.OutcomeFailed: 1}, s.Counts())
	assert.Len(t, s.Tree.Tests(), 1, "the tree follows the results")
}

func TestState_MessagesAreBounded(t *testing.T) {
	s := NewState("/repo")
	for i := range maxMessages + 10 {
		s.AddMessage(platform.Informational, fmt.Sprint(i))
	}
	require.Len(t, s.Messages, maxMessages)
	assert.Equal(t, "10", s.Messages[0].Text)
	assert.Equal(t, fmt.Sprint(maxMessages+9), s.Messages[maxMessages-1].Text)
}

func TestBuildTree(t *testing.T) {
	src := t.TempDir()
	results := []*testobject.TestResult{
		result(src, "p.TestLate", filepath.Join(src, "p", "p_test.go"), 20, testobject.OutcomeNone),
		result(src, "p.TestEarly", filepath.Join(src, "p", "p_test.go"), 4, testobject.OutcomeNone),
		result(src, "q.TestQ", filepath.Join(src, "q_test.go"), 1, testobject.OutcomeNone),
		result(src, "x.TestNoFile", "", 0, testobject.OutcomeNone),
	}

	root := BuildTree([]string{src, "/empty"}, results)
	require.Len(t, root.Children, 2)

	bySource := map[string]*Node{}
	for _, c := range root.Children {
		assert.Equal(t, NodeSource, c.Kind)
		bySource[c.Name] = c
	}
	assert.Empty(t, bySource["/empty"].Children, "a tracked source without tests still shows")

	source := bySource[src]
	require.NotNil(t, source)

	var names []string
	for _, c := range source.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"p", "q_test.go", "TestNoFile"}, names)

	dir := source.Children[0]
	assert.Equal(t, NodeDir, dir.Kind)
	require.Len(t, dir.Children, 1)
	file := dir.Children[0]
	assert.Equal(t, NodeFile, file.Kind)
	assert.Equal(t, filepath.Join(src, "p", "p_test.go"), file.Path)
	assert.Same(t, dir, file.Parent)

	require.Len(t, file.Children, 2)
	assert.Equal(t, "TestEarly", file.Children[0].Name, "tests are ordered by line")
	assert.Equal(t, "TestLate", file.Children[1].Name)

	assert.Len(t, root.Tests(), 4)
}

func TestBuildTree_SingleFileSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a_test.go")
	require.NoError(t, writeFile(file))

	root := BuildTree([]string{file}, []*testobject.TestResult{
		result(file, "a.TestA", file, 3, testobject.OutcomeNone),
	})

	source := root.Children[0]
	require.Len(t, source.Children, 1)
	assert.Equal(t, NodeFile, source.Children[0].Kind)
	assert.Equal(t, "a_test.go", source.Children[0].Name)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("package a\n"), 0644)
}
