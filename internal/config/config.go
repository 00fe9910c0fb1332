// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Errors returned by Load wrap this package's sentinel kinds.
package config

import (
	"context"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// SchedulePath points at the YAML schedule document.
	SchedulePath string `koanf:"schedule_path"`

	// RebuildOnStart replaces the stored schedule from SchedulePath at startup.
	RebuildOnStart bool `koanf:"rebuild_on_start"`

	// QueueSize bounds the storage job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of storage workers.
	WorkerCount int `koanf:"worker_count"`

	// LogBufferSize caps the entries kept for the admin log view.
	LogBufferSize int `koanf:"log_buffer_size"`

	// HubBufferSize is the per-subscriber live update buffer.
	HubBufferSize int `koanf:"hub_buffer_size"`

	// SessionHashKey signs the session cookie; SessionBlockKey optionally encrypts it.
	SessionHashKey  string `koanf:"session_hash_key"`
	SessionBlockKey string `koanf:"session_block_key"`

	// LoginSecret is the shared secret users present alongside their email.
	LoginSecret string `koanf:"login_secret"`

	// AdminEmail is created or promoted to admin at startup when set.
	AdminEmail string `koanf:"admin_email"`

	// CORSOrigins is a comma separated allow-list for the JSON API.
	CORSOrigins string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8080",
		DBPath:         "./db.sqlite",
		SchedulePath:   "./config.yaml",
		RebuildOnStart: false,
		QueueSize:      1024,
		WorkerCount:    1,
		LogBufferSize:  1000,
		HubBufferSize:  16,
		LoginSecret:    "",
		CORSOrigins:    "http://localhost:*",
	}
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
