package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

const sample = `package widget

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestSpin(t *testing.T) {
	t.Parallel()
}

func TestStop(t *testing.T) {
	t.Run("sub", func(t *testing.T) { t.Parallel() })
}

func Test(t *testing.T) {}

func Testify(t *testing.T) {}

func TestMain(m *testing.M) {}

func TestWrongParam(x int) {}

func BenchmarkSpin(b *testing.B) {}

func FuzzParse(f *testing.F) {}

func ExampleWidget() {}

func ExampleWithArgs(t *testing.T) {}

func helper(t *testing.T) {}

type WidgetSuite struct{ suite.Suite }

func (s *WidgetSuite) TestColour() {}

func (s *WidgetSuite) SetupTest() {}

func (s *WidgetSuite) TestWithArg(x int) {}
`

func TestParser_ParseFile(t *testing.T) {
	funcs, err := NewParser().ParseFile("widget_test.go", sample)
	require.NoError(t, err)

	type found struct {
		name     string
		kind     Kind
		parallel bool
	}
	var got []found
	for _, f := range funcs {
		got = append(got, found{f.QualifiedName(), f.Kind, f.Parallel})
	}

	assert.Equal(t, []found{
		{"widget.TestSpin", KindTest, true},
		{"widget.TestStop", KindTest, false},
		{"widget.Test", KindTest, false},
		{"widget.BenchmarkSpin", KindBenchmark, false},
		{"widget.FuzzParse", KindFuzz, false},
		{"widget.ExampleWidget", KindExample, false},
		{"widget.WidgetSuite.TestColour", KindSuite, false},
	}, got)

	assert.Equal(t, 9, funcs[0].Line)
}

func TestParser_RenamedTestingImport(t *testing.T) {
	src := `package p

import tst "testing"

func TestA(t *tst.T) {}

func TestB(t *testing.T) {}
`
	funcs, err := NewParser().ParseFile("p_test.go", src)
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, "TestA", funcs[0].Name)
}

func TestParser_SyntaxError(t *testing.T) {
	_, err := NewParser().ParseFile("bad_test.go", "package p\nfunc {")
	assert.Error(t, err)
}

func TestIsTestName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Test", true},
		{"TestX", true},
		{"Test_x", true},
		{"Test1", true},
		{"Testify", false},
		{"Tester", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTestName(tt.name, "Test"), tt.name)
	}
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings("kinds: [Test, Fuzz]\nskip: ['*_integration_test.go']\n")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindTest, KindFuzz}, s.Kinds)
	assert.True(t, s.skips("db_integration_test.go"))
	assert.False(t, s.skips("db_test.go"))

	empty, err := ParseSettings("")
	require.NoError(t, err)
	assert.True(t, empty.wants(Func{Kind: KindExample}))

	_, err = ParseSettings("kinds: {")
	assert.Error(t, err)

	_, err = ParseSettings("skip: ['[']")
	assert.Error(t, err)
}

// sink records handler callbacks.
type sink struct {
	mu       sync.Mutex
	chunks   [][]platform.RawTestCase
	total    int64
	last     []platform.RawTestCase
	aborted  bool
	complete int
	logs     []string
}

func (s *sink) HandleDiscoveredTests(tests []platform.RawTestCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, tests)
}

func (s *sink) HandleDiscoveryComplete(total int64, last []platform.RawTestCase, aborted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.last, s.aborted = total, last, aborted
	s.complete++
}

func (s *sink) HandleLogMessage(_ platform.MessageLevel, msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *msg)
}

func (s *sink) HandleRawMessage(*string) {}

func (s *sink) all() []platform.RawTestCase {
	var out []platform.RawTestCase
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return append(out, s.last...)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestEngine_DiscoverTests(t *testing.T) {
	root := writeTree(t, map[string]string{
		"widget_test.go":     sample,
		"widget.go":          "package widget\n\nfunc TestNotInTestFile() {}\n",
		"sub/sub_test.go":    "package sub\n\nimport \"testing\"\n\nfunc TestDeep(t *testing.T) {}\n",
		"broken/bad_test.go": "package broken\nfunc {",
	})

	h := &sink{}
	e := New(WithChunkSize(3))
	require.NoError(t, e.DiscoverTests(context.Background(), []string{root}, "", h))

	assert.Equal(t, 1, h.complete)
	assert.False(t, h.aborted)
	assert.NotNil(t, h.last)

	all := h.all()
	assert.Len(t, all, 8)
	assert.Equal(t, int64(8), h.total)
	for _, c := range h.chunks {
		assert.Len(t, c, 3)
	}
	require.Len(t, h.logs, 1, "the unparsable file is reported")
	assert.Contains(t, h.logs[0], "bad_test.go")

	byName := make(map[string]platform.RawTestCase)
	for _, tc := range all {
		byName[tc.FullyQualifiedName] = tc
	}

	deep, ok := byName["sub/sub.TestDeep"]
	require.True(t, ok, "nested packages are qualified by directory")
	assert.Equal(t, "TestDeep", deep.DisplayName)
	assert.Equal(t, root, deep.Source)
	assert.Equal(t, testobject.NewID(root, "sub/sub.TestDeep"), deep.ID)
	assert.Equal(t, filepath.Join(root, "sub", "sub_test.go"), deep.CodeFilePath)

	spin := byName["widget.TestSpin"]
	assert.Contains(t, spin.Traits, platform.Property{Key: TraitKind, Value: "Test"})
	assert.Contains(t, spin.Traits, platform.Property{Key: TraitParallel, Value: "true"})
	assert.Equal(t, ExecutorURI, spin.ExecutorURI)
}

func TestEngine_SingleFileSource(t *testing.T) {
	root := writeTree(t, map[string]string{"widget_test.go": sample})
	file := filepath.Join(root, "widget_test.go")

	h := &sink{}
	require.NoError(t, New().DiscoverTests(context.Background(), []string{file}, "kinds: [Suite]", h))

	all := h.all()
	require.Len(t, all, 1)
	assert.Equal(t, "widget.WidgetSuite.TestColour", all[0].FullyQualifiedName)
	assert.Equal(t, file, all[0].Source)
	assert.Empty(t, h.chunks, "a single partial chunk goes out with completion")
}

func TestEngine_MissingSourceCompletes(t *testing.T) {
	h := &sink{}
	missing := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, New().DiscoverTests(context.Background(), []string{missing}, "", h))

	assert.Equal(t, 1, h.complete)
	assert.False(t, h.aborted)
	assert.Equal(t, int64(0), h.total)
	assert.Len(t, h.logs, 1)
}

func TestEngine_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"widget_test.go": sample})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &sink{}
	require.NoError(t, New().DiscoverTests(ctx, []string{root}, "", h))
	assert.True(t, h.aborted)
	assert.Equal(t, 1, h.complete)
}

func TestEngine_BadSettings(t *testing.T) {
	h := &sink{}
	err := New().DiscoverTests(context.Background(), []string{t.TempDir()}, "kinds: {", h)
	assert.Error(t, err)
	assert.Zero(t, h.complete)
}

func TestEngine_CancelAfterOverlappingRun(t *testing.T) {
	e := New()

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	release1 := e.track(cancel1)
	release2 := e.track(cancel2)
	release1()

	e.CancelDiscovery()
	assert.ErrorIs(t, ctx2.Err(), context.Canceled, "the newer run stays cancellable")
	assert.NoError(t, ctx1.Err())

	release2()
	e.CancelDiscovery()
	assert.NoError(t, ctx1.Err())
}
