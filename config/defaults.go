package config

import (
	"path/filepath"
	"time"

	"github.com/grovetools/pantry/pkg/paths"
)

const (
	defaultAuthURL      = "http://localhost:8080"
	defaultAuthTimeout  = 10 * time.Second
	defaultStreamBuffer = 100
	defaultRedisPrefix  = "pantry:"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendDiskv
	}
	if c.Storage.Backend == BackendDiskv && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(paths.DataDir(), "store")
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Prefix == "" {
		c.Storage.Prefix = defaultRedisPrefix
	}

	if c.Auth.URL == "" {
		c.Auth.URL = defaultAuthURL
	}
	if c.Auth.Timeout == "" {
		c.Auth.Timeout = defaultAuthTimeout.String()
	}
	if c.Auth.SessionFile == "" {
		if state := paths.StateDir(); state != "" {
			c.Auth.SessionFile = filepath.Join(state, "session.json")
		}
	}
	if c.Auth.ProbeOnStart == nil {
		probe := true
		c.Auth.ProbeOnStart = &probe
	}

	if c.Daemon.Socket == "" {
		c.Daemon.Socket = paths.SocketPath()
	}
	if c.Daemon.StreamBuffer == 0 {
		c.Daemon.StreamBuffer = defaultStreamBuffer
	}

	if c.Access.EnforceTiers == nil {
		enforce := true
		c.Access.EnforceTiers = &enforce
	}
}
