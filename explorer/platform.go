package explorer

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/jesspatton/lazyexplorer/config"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/platform/process"
	"github.com/jesspatton/lazyexplorer/platform/scanner"
)

// NewPlatformEngine builds the engine selected by cfg. dir is the working
// directory of a process engine.
func NewPlatformEngine(cfg config.Config, dir string, logger *log.Logger) (platform.Engine, error) {
	switch cfg.Engine {
	case config.EngineScanner:
		return scanner.New(
			scanner.WithChunkSize(cfg.Scanner.ChunkSize),
			scanner.WithLogger(logger),
		), nil
	case config.EngineProcess:
		return process.New(cfg.Process.Command,
			process.WithDir(dir),
			process.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// FromConfig creates an Engine for rootPath configured by cfg.
func FromConfig(cfg config.Config, rootPath string, logger *log.Logger) (*Engine, error) {
	p, err := NewPlatformEngine(cfg, rootPath, logger)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithSettings(cfg.Settings), WithLogger(logger)}
	if cfg.Watch.Enabled {
		opts = append(opts, WithWatch(cfg.Watch.Debounce), WithWatchIgnore(cfg.Watch.Ignore...))
	}
	return New(rootPath, p, opts...), nil
}
