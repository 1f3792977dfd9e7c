//go:build !windows

package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesspatton/lazyexplorer/discovery"
	"github.com/jesspatton/lazyexplorer/platform"
)

type sink struct {
	mu       sync.Mutex
	chunks   [][]platform.RawTestCase
	total    int64
	last     []platform.RawTestCase
	aborted  bool
	complete int
	logs     []string
	levels   []platform.MessageLevel
	raw      []string
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

func (s *sink) HandleLogMessage(level platform.MessageLevel, msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg != nil {
		s.logs = append(s.logs, *msg)
	}
	s.levels = append(s.levels, level)
}

func (s *sink) HandleRawMessage(msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, *msg)
}

// script writes a shell script and returns a template that runs it.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "discover.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return "sh " + path + " <sources>"
}

func TestEngine_Protocol(t *testing.T) {
	template := script(t, `
echo "starting $#"
echo '{"event":"tests","tests":[{"DisplayName":"A","FullyQualifiedName":"p.A","Source":"'$1'"}]}'
echo '{"event":"log","level":"warning","message":"slow"}'
echo "oops" >&2
echo '{"event":"complete","total":2,"tests":[{"DisplayName":"B","FullyQualifiedName":"p.B","Source":"'$1'"}],"aborted":false}'
`)

	h := &sink{}
	require.NoError(t, New(template).DiscoverTests(context.Background(), []string{"/src/pkg/a"}, "", h))

	require.Len(t, h.chunks, 1)
	assert.Equal(t, "p.A", h.chunks[0][0].FullyQualifiedName)
	assert.Equal(t, "/src/pkg/a", h.chunks[0][0].Source)

	assert.Equal(t, 1, h.complete)
	assert.Equal(t, int64(2), h.total)
	assert.False(t, h.aborted)
	require.Len(t, h.last, 1)
	assert.Equal(t, "p.B", h.last[0].FullyQualifiedName)

	assert.Equal(t, []string{"slow"}, h.logs)
	assert.Equal(t, []platform.MessageLevel{platform.Warning}, h.levels)
	assert.ElementsMatch(t, []string{"starting 1", "oops"}, h.raw)
}

func TestEngine_ExitWithoutComplete(t *testing.T) {
	template := script(t, `
echo '{"event":"tests","tests":[{"FullyQualifiedName":"p.A","Source":"s"}]}'
exit 3
`)

	h := &sink{}
	require.NoError(t, New(template).DiscoverTests(context.Background(), []string{"s"}, "", h))

	assert.Equal(t, 1, h.complete)
	assert.True(t, h.aborted)
	assert.Nil(t, h.last)
	assert.Equal(t, int64(1), h.total)
	require.Len(t, h.logs, 1)
	assert.Contains(t, h.logs[0], "without completing")
}

func TestEngine_LinesAfterCompleteAreRaw(t *testing.T) {
	template := script(t, `
echo '{"event":"complete","total":0,"tests":[]}'
echo '{"event":"complete","total":5,"tests":[]}'
`)

	h := &sink{}
	require.NoError(t, New(template).DiscoverTests(context.Background(), []string{"s"}, "", h))

	assert.Equal(t, 1, h.complete)
	assert.Equal(t, int64(0), h.total)
	assert.Len(t, h.raw, 1)
}

func TestEngine_StartFailure(t *testing.T) {
	h := &sink{}
	err := New("definitely-not-a-real-binary-xyz <sources>").DiscoverTests(context.Background(), []string{"s"}, "", h)
	assert.Error(t, err)
	assert.Zero(t, h.complete)
}

func TestEngine_Cancel(t *testing.T) {
	template := script(t, `
echo '{"event":"tests","tests":[]}'
sleep 10 &
wait
`)

	e := New(template)
	h := &sink{}
	done := make(chan error, 1)
	go func() { done <- e.DiscoverTests(context.Background(), []string{"s"}, "", h) }()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.chunks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	e.CancelDiscovery()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not stop the process group")
	}
	assert.True(t, h.aborted)
	assert.Empty(t, h.logs, "cancellation is not reported as an error")
}

// A tool that lingers after completing must not leave the next run
// uncancellable.
func TestEngine_CancelWhilePreviousToolLingers(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "started")
	template := script(t, `
if [ ! -f `+marker+` ]; then
  touch `+marker+`
  echo '{"event":"complete","total":0,"tests":[]}'
  sleep 1
else
  echo '{"event":"tests","tests":[]}'
  sleep 30 &
  wait
fi
`)

	c := discovery.NewCoordinator(New(template))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := c.DiscoverTestCases([]string{"s"})
	require.NoError(t, err)
	require.NoError(t, first.Wait(ctx))
	assert.False(t, first.Aborted())

	second, err := c.DiscoverTestCases([]string{"s"})
	require.NoError(t, err)

	// Let the first tool exit while the second is still running.
	time.Sleep(1500 * time.Millisecond)
	require.True(t, c.IsDiscoveryInProgress())

	c.CancelDiscovery()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, second.Wait(waitCtx), "cancel did not stop the second run")
	assert.True(t, second.Aborted())
	assert.False(t, c.IsDiscoveryInProgress())
}

func TestEngine_WithCoordinator(t *testing.T) {
	template := script(t, `
for src in "$@"; do
  echo '{"event":"tests","tests":[{"FullyQualifiedName":"p.T","Source":"'$src'"}]}'
done
echo '{"event":"complete","total":'$#',"tests":[]}'
`)

	c := discovery.NewCoordinator(New(template))
	defer c.Close()

	var mu sync.Mutex
	var names []string
	c.Subscribe(func(ev discovery.Event) {
		if chunk, ok := ev.(discovery.TestCasesDiscovered); ok {
			mu.Lock()
			for _, tc := range chunk.TestCases {
				names = append(names, tc.Source())
			}
			mu.Unlock()
		}
	})

	run, err := c.DiscoverTestCases([]string{"a", "b"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, run.Wait(ctx))

	assert.False(t, run.Aborted())
	assert.Equal(t, int64(2), run.Count())
	mu.Lock()
	assert.Equal(t, "a,b", strings.Join(names, ","))
	mu.Unlock()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
	}{
		{`{"event":"tests","tests":[]}`, true},
		{`  {"event":"log","message":"x"}  `, true},
		{`{"event":"bogus"}`, false},
		{`{"event":`, false},
		{`PASS`, false},
		{``, false},
	}
	for _, tt := range tests {
		_, ok := ParseLine(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
	}

	l, ok := ParseLine(`{"event":"complete","total":3}`)
	require.True(t, ok)
	assert.Nil(t, l.Tests, "a missing last chunk decodes as nil")
}
