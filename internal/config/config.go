// Package config loads server settings from a yaml file, falling back to
// defaults for anything unset. A missing file means pure defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Session   SessionConfig   `yaml:"session"`
	Events    EventsConfig    `yaml:"events"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	// Host must stay loopback; the only authentication is a bearer token.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DiscoveryConfig struct {
	// Dir overrides the shared descriptor directory.
	Dir string `yaml:"dir"`
	// EditorPattern is matched against process command lines when
	// publishing parent/child descriptors.
	EditorPattern string `yaml:"editor_pattern"`
	// Heartbeat is the owner-liveness poll interval.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type SessionConfig struct {
	// TombstoneRetention is how long terminated sessions keep absorbing
	// late finalize calls before eviction.
	TombstoneRetention time.Duration `yaml:"tombstone_retention"`
}

type EventsConfig struct {
	// QueueSize bounds each subscriber's event queue.
	QueueSize int `yaml:"queue_size"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Discovery: DiscoveryConfig{
			EditorPattern: "nvim",
			Heartbeat:     2 * time.Second,
		},
		Session: SessionConfig{
			TombstoneRetention: 5 * time.Minute,
		},
		Events: EventsConfig{
			QueueSize: 16,
		},
		LogLevel: "info",
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
