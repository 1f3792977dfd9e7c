// Package cli contains the lazyexplorer commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jesspatton/lazyexplorer/config"
	"github.com/jesspatton/lazyexplorer/logging"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// app is the state shared by every command of one invocation.
type app struct {
	dir      string
	logLevel string
	engine   string

	cfg     config.Config
	cfgPath string
	logger  *log.Logger
	closer  io.Closer
}

// load reads the configuration for a.dir and applies flag overrides.
func (a *app) load() error {
	dir, err := filepath.Abs(a.dir)
	if err != nil {
		return fmt.Errorf("resolve --dir: %w", err)
	}
	a.dir = dir

	cfg, path, err := config.Load(dir)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.engine != "" {
		cfg.Engine = a.engine
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg, a.cfgPath = cfg, path
	return nil
}

// startLogger builds the logger. The explorer passes tui=true so that log
// output never reaches the terminal it draws on.
func (a *app) startLogger(tui bool) error {
	cfg := a.cfg.Log
	if tui && cfg.File == "" {
		a.logger = logging.Discard()
		return nil
	}
	logger, closer, err := logging.New(cfg)
	if err != nil {
		return err
	}
	a.logger, a.closer = logger, closer
	if a.cfgPath != "" {
		logger.Debug("loaded config", "path", a.cfgPath)
	}
	return nil
}

// sources resolves args against the project directory. No args means the
// project directory itself.
func (a *app) sources(args []string) []string {
	if len(args) == 0 {
		return []string{a.dir}
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !filepath.IsAbs(arg) {
			arg = filepath.Join(a.dir, arg)
		}
		out = append(out, filepath.Clean(arg))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// NewRootCommand builds the command tree. Running it without a subcommand
// opens the explorer.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lazyexplorer [sources...]",
		Short: "Discover and browse Go tests",
		Long: `lazyexplorer discovers the tests in one or more sources and keeps them in
sync as the sources change.

A source is a Go package directory (searched recursively) or a single
_test.go file. With the process engine, sources are whatever the
configured discovery command accepts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, a, args)
		},
	}

	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "project directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.engine, "engine", "", "discovery engine (scanner or process)")

	root.AddCommand(newListCommand(a))
	root.AddCommand(newExploreCommand(a))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
