// Package scanner is an Engine that discovers Go tests by parsing _test.go
// files, without building or running anything.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/jesspatton/lazyexplorer/filesystem"
	"github.com/jesspatton/lazyexplorer/logging"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// ExecutorURI identifies test cases produced by this engine.
const ExecutorURI = "executor://lazyexplorer/scanner"

// DefaultChunkSize is the number of tests reported per callback.
const DefaultChunkSize = 50

// Trait names attached to every test case.
const (
	TraitKind     = "kind"
	TraitParallel = "parallel"
)

// Settings is the YAML settings document accepted by DiscoverTests.
type Settings struct {
	// Kinds limits discovery to these kinds. Empty means all.
	Kinds []Kind `yaml:"kinds"`
	// Skip holds glob patterns matched against file base names.
	Skip []string `yaml:"skip"`
}

// ParseSettings decodes a settings document. Blank input yields zero Settings.
func ParseSettings(doc string) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		return Settings{}, fmt.Errorf("parse scanner settings: %w", err)
	}
	for _, pattern := range s.Skip {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return Settings{}, fmt.Errorf("parse scanner settings: skip pattern %q: %w", pattern, err)
		}
	}
	return s, nil
}

func (s Settings) wants(f Func) bool {
	return len(s.Kinds) == 0 || slices.Contains(s.Kinds, f.Kind)
}

func (s Settings) skips(name string) bool {
	for _, pattern := range s.Skip {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets how many tests are reported per callback.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = logging.Component(l, "scanner") }
}

// Engine walks each source (a directory tree or a single test file) and
// reports the test functions it finds.
type Engine struct {
	chunkSize int
	logger    *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	run    uint64
}

// New creates a scanner Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		chunkSize: DefaultChunkSize,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DiscoverTests scans sources and reports through h. It blocks until the run
// has completed. settings is a YAML Settings document.
func (e *Engine) DiscoverTests(ctx context.Context, sources []string, settings string, h platform.DiscoveryEventsHandler) error {
	s, err := ParseSettings(settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer e.track(cancel)()

	r := &scan{
		engine:   e,
		settings: s,
		handler:  h,
		parser:   NewParser(),
		chunk:    make([]platform.RawTestCase, 0, e.chunkSize),
	}
	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		r.source(ctx, source)
	}

	aborted := ctx.Err() != nil
	e.logger.Debug("scan finished", "sources", len(sources), "tests", r.total, "aborted", aborted)
	h.HandleDiscoveryComplete(r.total+int64(len(r.chunk)), r.chunk, aborted)
	return nil
}

// CancelDiscovery stops the current scan between files. The run completes as
// aborted.
func (e *Engine) CancelDiscovery() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// track makes cancel the one CancelDiscovery calls. The returned func releases
// it unless a later run has replaced it.
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

// scan is the state of one DiscoverTests call.
type scan struct {
	engine   *Engine
	settings Settings
	handler  platform.DiscoveryEventsHandler
	parser   *Parser

	chunk []platform.RawTestCase
	// total counts tests already flushed.
	total int64
}

func (r *scan) source(ctx context.Context, source string) {
	root := source
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		root = filepath.Dir(source)
	}

	files, wait := filesystem.StreamFiles(ctx, source, "go")
	for f := range files {
		if ctx.Err() != nil {
			continue // drain
		}
		if !filesystem.IsTestFile(f.Filename) || r.settings.skips(f.Filename) {
			continue
		}
		r.file(source, root, f.Location)
	}
	if err := wait(); err != nil && ctx.Err() == nil {
		r.warn(fmt.Sprintf("cannot scan %s: %v", source, err))
	}
}

func (r *scan) file(source, root, path string) {
	funcs, err := r.parser.ParseFile(path, nil)
	if err != nil {
		r.warn(fmt.Sprintf("cannot parse %s: %v", path, err))
		return
	}

	// Packages below the source root are qualified by their relative directory.
	qualifier := ""
	if rel, err := filepath.Rel(root, filepath.Dir(path)); err == nil && rel != "." {
		qualifier = filepath.ToSlash(rel) + "/"
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for _, fn := range funcs {
		if !r.settings.wants(fn) {
			continue
		}
		fqn := qualifier + fn.QualifiedName()
		r.add(platform.RawTestCase{
			ID:                 testobject.NewID(source, fqn),
			DisplayName:        fn.Name,
			FullyQualifiedName: fqn,
			Source:             source,
			CodeFilePath:       abs,
			LineNumber:         fn.Line,
			ExecutorURI:        ExecutorURI,
			Traits: []platform.Property{
				{Key: TraitKind, Value: string(fn.Kind)},
				{Key: TraitParallel, Value: strconv.FormatBool(fn.Parallel)},
			},
		})
	}
}

func (r *scan) add(tc platform.RawTestCase) {
	r.chunk = append(r.chunk, tc)
	if len(r.chunk) < r.engine.chunkSize {
		return
	}
	r.handler.HandleDiscoveredTests(r.chunk)
	r.total += int64(len(r.chunk))
	r.chunk = make([]platform.RawTestCase, 0, r.engine.chunkSize)
}

func (r *scan) warn(msg string) {
	r.engine.logger.Warn(msg)
	r.handler.HandleLogMessage(platform.Warning, &msg)
}
