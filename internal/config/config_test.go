package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 0 {
		t.Errorf("port = %d, want 0 (random)", cfg.Server.Port)
	}
	if cfg.Discovery.EditorPattern != "nvim" {
		t.Errorf("editor_pattern = %q, want nvim", cfg.Discovery.EditorPattern)
	}
	if cfg.Discovery.Heartbeat != 2*time.Second {
		t.Errorf("heartbeat = %v, want 2s", cfg.Discovery.Heartbeat)
	}
	if cfg.Session.TombstoneRetention != 5*time.Minute {
		t.Errorf("tombstone_retention = %v, want 5m", cfg.Session.TombstoneRetention)
	}
	if cfg.Events.QueueSize != 16 {
		t.Errorf("queue_size = %d, want 16", cfg.Events.QueueSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9100
discovery:
  editor_pattern: vim
  heartbeat: 5s
session:
  tombstone_retention: 30s
events:
  queue_size: 4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default", cfg.Server.Host)
	}
	if cfg.Discovery.EditorPattern != "vim" {
		t.Errorf("editor_pattern = %q, want vim", cfg.Discovery.EditorPattern)
	}
	if cfg.Discovery.Heartbeat != 5*time.Second {
		t.Errorf("heartbeat = %v, want 5s", cfg.Discovery.Heartbeat)
	}
	if cfg.Session.TombstoneRetention != 30*time.Second {
		t.Errorf("tombstone_retention = %v, want 30s", cfg.Session.TombstoneRetention)
	}
	if cfg.Events.QueueSize != 4 {
		t.Errorf("queue_size = %d, want 4", cfg.Events.QueueSize)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load succeeded on invalid yaml")
	}
}
