package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrDefaultFallsBackWhenMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Fatalf("metrics port = %d, want default 9090", cfg.Server.MetricsPort)
	}
	if cfg.PTY.DefaultRows != 40 || cfg.PTY.DefaultCols != 120 {
		t.Fatalf("pty defaults = %+v, want 40x120", cfg.PTY)
	}
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := "server:\n  metrics_port: 7070\nloop_detector:\n  window_size: 20\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.MetricsPort != 7070 {
		t.Fatalf("metrics port = %d, want 7070", cfg.Server.MetricsPort)
	}
	if cfg.LoopDetector.WindowSize != 20 {
		t.Fatalf("window size = %d, want 20", cfg.LoopDetector.WindowSize)
	}
	// Unspecified fields keep their reference defaults.
	if cfg.LoopDetector.RepeatThreshold != 3 {
		t.Fatalf("repeat threshold = %d, want unchanged default 3", cfg.LoopDetector.RepeatThreshold)
	}
	if cfg.PTY.DefaultCols != 120 {
		t.Fatalf("pty default cols = %d, want unchanged default 120", cfg.PTY.DefaultCols)
	}
}

func TestLoopDetectorConfigLimitsConversion(t *testing.T) {
	c := LoopDetectorConfig{WindowSize: 5, RepeatThreshold: 2, MinChunkLength: 10}
	limits := c.Limits()
	if limits.WindowSize != 5 || limits.RepeatThreshold != 2 || limits.MinChunkLength != 10 {
		t.Fatalf("Limits() = %+v, want matching fields", limits)
	}
}

func TestDefaultConfigPathUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	got := DefaultConfigPath()
	want := filepath.Join("/custom/config", "open-sonar", "config.yaml")
	if got != want {
		t.Fatalf("DefaultConfigPath() = %q, want %q", got, want)
	}
}
