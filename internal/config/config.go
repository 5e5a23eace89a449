// Package config loads runtime configuration for the Plume client. Defaults
// are overridden first by an optional YAML file, then by environment
// variables, so a checked-in config file and ad hoc env tweaks coexist.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ObjectStoreConfig points media staging at an S3-compatible bucket. Leaving
// Bucket empty disables staging: attachments are then submitted as the URIs
// the caller provided.
type ObjectStoreConfig struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Config captures the runtime configuration for the Plume client.
type Config struct {
	BaseURL        string            `yaml:"base_url"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	StateDir       string            `yaml:"state_dir"`
	LogLevel       string            `yaml:"log_level"`
	ToggleInterval time.Duration     `yaml:"toggle_interval"`
	ViewQueueSize  int               `yaml:"view_queue_size"`
	ViewWorkers    int               `yaml:"view_workers"`
	ObjectStore    ObjectStoreConfig `yaml:"object_store"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        "http://localhost:3000",
		RequestTimeout: 15 * time.Second,
		StateDir:       defaultStateDir(),
		LogLevel:       "info",
		ToggleInterval: 300 * time.Millisecond,
		ViewQueueSize:  64,
		ViewWorkers:    2,
	}
}

// Load builds the effective configuration. The file at path is optional
// unless explicitly requested elsewhere; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall through to env overrides
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.BaseURL = getString("PLUME_BASE_URL", cfg.BaseURL)
	cfg.RequestTimeout = getDuration("PLUME_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.StateDir = getString("PLUME_STATE_DIR", cfg.StateDir)
	cfg.LogLevel = getString("PLUME_LOG_LEVEL", cfg.LogLevel)
	cfg.ToggleInterval = getDuration("PLUME_TOGGLE_INTERVAL", cfg.ToggleInterval)
	cfg.ViewQueueSize = getInt("PLUME_VIEW_QUEUE_SIZE", cfg.ViewQueueSize)
	cfg.ViewWorkers = getInt("PLUME_VIEW_WORKERS", cfg.ViewWorkers)
	cfg.ObjectStore.Bucket = getString("PLUME_S3_BUCKET", cfg.ObjectStore.Bucket)
	cfg.ObjectStore.Region = getString("PLUME_S3_REGION", cfg.ObjectStore.Region)
	cfg.ObjectStore.Endpoint = getString("PLUME_S3_ENDPOINT", cfg.ObjectStore.Endpoint)
	cfg.ObjectStore.PublicBaseURL = getString("PLUME_S3_PUBLIC_URL", cfg.ObjectStore.PublicBaseURL)

	return cfg, nil
}

// CredentialPath returns the location of the local credential database.
func (c Config) CredentialPath() string {
	return filepath.Join(c.StateDir, "credentials.db")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".plume"
	}
	return filepath.Join(home, ".plume")
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
