// Package process is an Engine that runs an external discovery tool and
// reads its results as JSON lines from stdout.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jesspatton/lazyexplorer/logging"
	"github.com/jesspatton/lazyexplorer/platform"
)

// waitDelay bounds how long Wait blocks on pipes held open by orphaned
// children after the process itself has exited.
const waitDelay = 2 * time.Second

// maxLine is the longest protocol line accepted; a chunk of tests can be large.
const maxLine = 16 << 20

// Option configures an Engine.
type Option func(*Engine)

// WithDir sets the working directory of the discovery tool.
func WithDir(dir string) Option {
	return func(e *Engine) { e.dir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = logging.Component(l, "process") }
}

// Engine launches one discovery process per run.
type Engine struct {
	template string
	dir      string
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	run    uint64
}

// New creates an Engine that runs template; see BuildCommand.
func New(template string, opts ...Option) *Engine {
	e := &Engine{
		template: template,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DiscoverTests runs the discovery tool for sources and blocks until it has
// exited. It returns an error only when the tool could not be started; once
// running, every outcome is reported through h. A tool that exits without a
// complete event is reported as aborted.
func (e *Engine) DiscoverTests(ctx context.Context, sources []string, settings string, h platform.DiscoveryEventsHandler) error {
	name, args, err := BuildCommand(e.template, sources, settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer e.track(cancel)()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.dir
	prepareCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	e.logger.Debug("discovery process started", "pid", cmd.Process.Pid, "cmd", name, "args", args)

	// Handler callbacks are serialized; stderr lines interleave with stdout
	// events in arrival order.
	var deliver sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		streamReader(stderr, func(line string) {
			deliver.Lock()
			defer deliver.Unlock()
			h.HandleRawMessage(&line)
		})
	}()

	d := &decoder{handler: h}
	streamReader(stdout, func(line string) {
		deliver.Lock()
		defer deliver.Unlock()
		d.line(line)
	})
	wg.Wait()

	waitErr := cmd.Wait()
	if d.completed {
		if waitErr != nil {
			e.logger.Warn("discovery process failed after completing", "err", waitErr)
		}
		return nil
	}

	if ctx.Err() != nil {
		e.logger.Info("discovery process cancelled")
	} else {
		msg := fmt.Sprintf("discovery process exited without completing: %v", waitErr)
		if waitErr == nil {
			msg = "discovery process exited without completing"
		}
		e.logger.Error(msg)
		h.HandleLogMessage(platform.Error, &msg)
	}
	h.HandleDiscoveryComplete(d.count, nil, true)
	return nil
}

// CancelDiscovery kills the running discovery process, if any.
func (e *Engine) CancelDiscovery() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// track makes cancel the one CancelDiscovery calls. The returned func releases
// it unless a later run has replaced it. A tool can keep running after its
// complete event, so runs of one Engine may overlap.
func (e *Engine) track(cancel context.CancelFunc) (release func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.run++
	run := e.run
	e.cancel = cancel
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.run == run {
			e.cancel = nil
		}
	}
}

// decoder turns protocol lines into handler calls.
type decoder struct {
	handler   platform.DiscoveryEventsHandler
	count     int64
	completed bool
}

func (d *decoder) line(text string) {
	l, ok := ParseLine(text)
	if !ok || d.completed {
		d.handler.HandleRawMessage(&text)
		return
	}

	switch l.Event {
	case EventTests:
		if l.Tests == nil {
			l.Tests = []platform.RawTestCase{}
		}
		d.count += int64(len(l.Tests))
		d.handler.HandleDiscoveredTests(l.Tests)
	case EventComplete:
		d.completed = true
		d.handler.HandleDiscoveryComplete(l.Total, l.Tests, l.Aborted)
	case EventLog:
		d.handler.HandleLogMessage(platform.ParseMessageLevel(l.Level), l.Message)
	}
}

func streamReader(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	// Keep the pipe drained so the child never blocks on a full buffer.
	_, _ = io.Copy(io.Discard, r)
}
