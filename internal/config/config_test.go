package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8617" {
		t.Errorf("addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Query.MaxConcurrent != 100 || cfg.Query.MaxLimit != 10000 || cfg.Query.PlanCacheSize != 512 {
		t.Errorf("query defaults: %+v", cfg.Query)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout: got %v", cfg.HTTP.ShutdownTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "data_dir: /tmp/zt\nhttp:\n  addr: \":9000\"\nquery:\n  max_concurrent: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/zt" {
		t.Errorf("data_dir: got %q", cfg.DataDir)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Query.MaxConcurrent != 7 {
		t.Errorf("max_concurrent: got %d", cfg.Query.MaxConcurrent)
	}
	// Untouched keys keep their defaults.
	if cfg.Query.MaxLimit != 10000 {
		t.Errorf("max_limit: got %d", cfg.Query.MaxLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ZEROTABLE_HTTP_ADDR", ":7777")
	t.Setenv("ZEROTABLE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":7777" {
		t.Errorf("env addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("env log level: got %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing explicit config file should fail")
	}
}
