package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create a temporary directory structure
	// /tmp/test-monorepo
	// ├── .lazyexplorer.yaml
	// └── services
	//     └── api (working dir)
	tmpDir := t.TempDir()

	configContent := `
engine: process
settings: "kinds: [Test]"
process:
  command: "go run ./tools/discover <sources>"
scanner:
  chunk_size: 10
watch:
  enabled: false
  debounce: 1s
  ignore:
    - testdata/
    - "*.golden"
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".lazyexplorer.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	appDir := filepath.Join(tmpDir, "services", "api")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := Load(appDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != filepath.Join(tmpDir, ".lazyexplorer.yaml") {
		t.Errorf("Expected config path in root, got %q", path)
	}
	if cfg.Engine != EngineProcess {
		t.Errorf("Expected engine %q, got %q", EngineProcess, cfg.Engine)
	}
	if cfg.Process.Command != "go run ./tools/discover <sources>" {
		t.Errorf("Unexpected command %q", cfg.Process.Command)
	}
	if cfg.Settings != "kinds: [Test]" {
		t.Errorf("Unexpected settings %q", cfg.Settings)
	}
	if cfg.Scanner.ChunkSize != 10 {
		t.Errorf("Expected chunk size 10, got %d", cfg.Scanner.ChunkSize)
	}
	if cfg.Watch.Enabled {
		t.Error("Expected watch to be disabled")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected 1s debounce, got %s", cfg.Watch.Debounce)
	}
	if want := []string{"testdata/", "*.golden"}; !slices.Equal(cfg.Watch.Ignore, want) {
		t.Errorf("Expected watch ignore %v, got %v", want, cfg.Watch.Ignore)
	}
	// Unset keys keep their defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoad_Default(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, path, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" {
		t.Errorf("Expected no config file, got %q", path)
	}

	want := DefaultConfig()
	if cfg.Engine != want.Engine || cfg.Scanner.ChunkSize != want.Scanner.ChunkSize || cfg.Watch.Enabled != want.Watch.Enabled || cfg.Watch.Debounce != want.Watch.Debounce || !slices.Equal(cfg.Watch.Ignore, want.Watch.Ignore) {
		t.Errorf("Expected defaults %+v, got %+v", want, cfg)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LAZYEXPLORER_SCANNER_CHUNK_SIZE", "7")
	t.Setenv("LAZYEXPLORER_LOG_LEVEL", "debug")

	cfg, _, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scanner.ChunkSize != 7 {
		t.Errorf("Expected chunk size from env, got %d", cfg.Scanner.ChunkSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level from env, got %q", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"engine": "nunit", "scanner": {"chunk_size": 0}}`
	if err := os.WriteFile(filepath.Join(tmpDir, ".lazyexplorer.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(tmpDir); err == nil {
		t.Error("Expected validation error, got nil")
	}
}
