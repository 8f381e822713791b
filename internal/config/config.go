// Package config loads and validates the docsync service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Sync      SyncConfig      `yaml:"sync"`
	Events    EventsConfig    `yaml:"events"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	PublicBasePath string `yaml:"public_base_path"` // prefix for docs_url, may be empty
}

// DatabaseConfig controls the SQLite job record store.
type DatabaseConfig struct {
	Path string `yaml:"path"` // file path or ":memory:"
}

// StorageConfig controls the object storage destination for published docs.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// SyncConfig controls pipeline behavior.
// Durations are strings in time.ParseDuration format (e.g. "2m").
type SyncConfig struct {
	WorkspaceDir  string `yaml:"workspace_dir"`  // base dir for run workspaces, empty = os.TempDir
	CloneTimeout  string `yaml:"clone_timeout"`  // bound on the shallow clone
	MkDocsBinary  string `yaml:"mkdocs_binary"`  // external generator, default "mkdocs"
	MaxConcurrent int    `yaml:"max_concurrent"` // 0 = unbounded
}

// CloneTimeoutDuration returns the parsed clone timeout.
func (s SyncConfig) CloneTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.CloneTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// EventsConfig controls optional NATS lifecycle event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// SchedulerConfig controls optional periodic re-sync of known repositories.
type SchedulerConfig struct {
	Enabled      bool             `yaml:"enabled"`
	Interval     string           `yaml:"interval"` // time.ParseDuration format
	Repositories []RepositorySpec `yaml:"repositories"`
}

// IntervalDuration returns the parsed scheduler interval.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RepositorySpec identifies a repository eligible for scheduled syncs.
type RepositorySpec struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
}

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields after defaults and env overrides.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if _, err := time.ParseDuration(c.Sync.CloneTimeout); err != nil {
		return fmt.Errorf("sync.clone_timeout: %w", err)
	}
	if c.Sync.MaxConcurrent < 0 {
		return fmt.Errorf("sync.max_concurrent must not be negative")
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return fmt.Errorf("events.nats_url is required when events are enabled")
	}
	if c.Scheduler.Enabled {
		if _, err := time.ParseDuration(c.Scheduler.Interval); err != nil {
			return fmt.Errorf("scheduler.interval: %w", err)
		}
		for i, r := range c.Scheduler.Repositories {
			if r.Name == "" || r.URL == "" {
				return fmt.Errorf("scheduler.repositories[%d]: name and url are required", i)
			}
		}
	}
	return nil
}
