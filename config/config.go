// Package config loads lazyexplorer settings from .lazyexplorer.{yaml,json}
// and LAZYEXPLORER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jesspatton/lazyexplorer/logging"
)

const (
	// FileName is the config file base name, without extension.
	FileName = ".lazyexplorer"
	// EnvPrefix prefixes environment overrides, e.g. LAZYEXPLORER_ENGINE.
	EnvPrefix = "LAZYEXPLORER"

	// EngineScanner selects the built-in Go test scanner.
	EngineScanner = "scanner"
	// EngineProcess selects an external discovery command.
	EngineProcess = "process"
)

// Config is the full application configuration.
type Config struct {
	Engine   string         `mapstructure:"engine"`
	Settings string         `mapstructure:"settings"`
	Process  ProcessConfig  `mapstructure:"process"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Log      logging.Config `mapstructure:"log"`
}

// ProcessConfig configures the external discovery command.
type ProcessConfig struct {
	// Command is a template; <sources> and <settings> are substituted.
	Command string `mapstructure:"command"`
}

// ScannerConfig configures the built-in scanner.
type ScannerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

// WatchConfig configures re-discovery when a tracked source changes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
	// Ignore lists extra .gitignore-style patterns the watcher skips.
	Ignore []string `mapstructure:"ignore"`
}

// DefaultConfig returns the configuration used when no file or env is set.
func DefaultConfig() Config {
	return Config{
		Engine: EngineScanner,
		Process: ProcessConfig{
			Command: "go-test-discover --json <sources>",
		},
		Scanner: ScannerConfig{
			ChunkSize: 50,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads configuration for a project rooted at dir. It looks for a config
// file in dir and each parent, stopping at the first one found. A missing file
// is not an error.
func Load(dir string) (Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("settings", defaults.Settings)
	v.SetDefault("process.command", defaults.Process.Command)
	v.SetDefault("scanner.chunk_size", defaults.Scanner.ChunkSize)
	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", defaults.Log.File)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := FindFile(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// FindFile walks up from dir looking for a config file.
func FindFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, ext := range []string{"yaml", "yml", "json"} {
			candidate := filepath.Join(dir, FileName+"."+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine {
	case EngineScanner, EngineProcess:
	default:
		errs = append(errs, fmt.Errorf("engine: unknown engine %q (want %q or %q)", c.Engine, EngineScanner, EngineProcess))
	}
	if c.Engine == EngineProcess && strings.TrimSpace(c.Process.Command) == "" {
		errs = append(errs, errors.New("process.command: must not be empty"))
	}
	if c.Scanner.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("scanner.chunk_size: must be positive, got %d", c.Scanner.ChunkSize))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}
