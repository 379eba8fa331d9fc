package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maalaph/voicematch/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
catalog:
  provider: file
  seed_file: voices.yaml
`

const watcherUpdatedYAML = `
server:
  log_level: debug
catalog:
  provider: file
  seed_file: voices.yaml
matcher:
  strict_gender: true
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()
	_, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	events := make(chan *config.Config, 4)
	w, err := config.NewWatcher(cfgPath, func(_, new *config.Config) {
		events <- new
	}, config.WithInterval(25*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeFile(t, cfgPath, watcherUpdatedYAML)

	select {
	case cfg := <-events:
		if cfg.Server.LogLevel != config.LogDebug {
			t.Errorf("reloaded log_level = %q, want %q", cfg.Server.LogLevel, config.LogDebug)
		}
		if !cfg.Matcher.StrictGender {
			t.Error("reloaded strict_gender should be true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the config change")
	}

	if got := w.Current(); !got.Matcher.StrictGender {
		t.Error("Current() should return the reloaded config")
	}
}

func TestWatcher_InvalidEditKeepsCurrent(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	events := make(chan *config.Config, 4)
	w, err := config.NewWatcher(cfgPath, func(_, new *config.Config) {
		events <- new
	}, config.WithInterval(25*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeFile(t, cfgPath, watcherInvalidYAML)
	time.Sleep(150 * time.Millisecond)

	select {
	case <-events:
		t.Fatal("invalid config should not trigger onChange")
	default:
	}
	if cfg := w.Current(); cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("Current() should keep the last valid config, got log_level %q", cfg.Server.LogLevel)
	}
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	events := make(chan *config.Config, 4)
	w, err := config.NewWatcher(cfgPath, func(_, new *config.Config) {
		events <- new
	}, config.WithInterval(25*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	// Rewriting identical bytes bumps the mtime but not the hash.
	time.Sleep(20 * time.Millisecond)
	writeFile(t, cfgPath, watcherValidYAML)
	time.Sleep(150 * time.Millisecond)

	select {
	case <-events:
		t.Fatal("unchanged content should not trigger onChange")
	default:
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.Stop()
	w.Stop()
}
