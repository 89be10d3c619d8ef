package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Storage backends understood by the snapshot store.
const (
	BackendDiskv  = "diskv"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// Config represents the pantry.yml configuration
type Config struct {
	Storage StorageConfig `yaml:"storage,omitempty" toml:"storage,omitempty" json:"storage" jsonschema:"description=Where the inventory snapshot is persisted"`
	Auth    AuthConfig    `yaml:"auth,omitempty" toml:"auth,omitempty" json:"auth" jsonschema:"description=External authentication service"`
	Daemon  DaemonConfig  `yaml:"daemon,omitempty" toml:"daemon,omitempty" json:"daemon" jsonschema:"description=Configuration for the pantry daemon"`
	Access  AccessConfig  `yaml:"access,omitempty" toml:"access,omitempty" json:"access" jsonschema:"description=Access control on mutations"`

	// Extensions captures all other top-level keys, such as "logging".
	Extensions map[string]interface{} `yaml:"-" toml:"-" json:"-" jsonschema:"-"`

	// Sources lists the files merged into this configuration, lowest precedence first.
	Sources []string `yaml:"-" toml:"-" json:"-" jsonschema:"-"`
}

// StorageConfig selects and configures the key-value bucket.
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=diskv,enum=memory,enum=redis,enum=mysql,description=Bucket backend"`
	Path    string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Directory for the diskv backend"`
	Addr    string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty" jsonschema:"description=Redis address (host:port)"`
	DSN     string `yaml:"dsn,omitempty" toml:"dsn,omitempty" json:"dsn,omitempty" jsonschema:"description=MySQL data source name"`
	Prefix  string `yaml:"prefix,omitempty" toml:"prefix,omitempty" json:"prefix,omitempty" jsonschema:"description=Key prefix for the redis backend"`
}

// AuthConfig points at the authentication service.
type AuthConfig struct {
	URL          string `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty" jsonschema:"description=Base URL of the authentication service"`
	Timeout      string `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Per-request timeout (e.g. 10s)"`
	ProbeOnStart *bool  `yaml:"probe_on_start,omitempty" toml:"probe_on_start,omitempty" json:"probe_on_start,omitempty" jsonschema:"description=Query the session status when the service starts"`
	SessionFile  string `yaml:"session_file,omitempty" toml:"session_file,omitempty" json:"session_file,omitempty" jsonschema:"description=File holding the auth service session cookies between runs"`
}

// DaemonConfig configures pantryd.
type DaemonConfig struct {
	Socket       string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Unix socket path"`
	StreamBuffer int    `yaml:"stream_buffer,omitempty" toml:"stream_buffer,omitempty" json:"stream_buffer,omitempty" jsonschema:"minimum=1,description=Per-subscriber buffered updates before drops"`
}

// AccessConfig configures authorization of mutations.
type AccessConfig struct {
	EnforceTiers *bool `yaml:"enforce_tiers,omitempty" toml:"enforce_tiers,omitempty" json:"enforce_tiers,omitempty" jsonschema:"description=Require owner/admin/writer tiers in addition to a logged in session"`
}

// TimeoutDuration returns the parsed auth timeout. Invalid values were
// rejected at load time.
func (a AuthConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return defaultAuthTimeout
	}
	return d
}

// ShouldProbe reports whether the session service probes on start.
func (a AuthConfig) ShouldProbe() bool {
	return a.ProbeOnStart == nil || *a.ProbeOnStart
}

// TiersEnforced reports whether tier checks apply to mutations.
func (a AccessConfig) TiersEnforced() bool {
	return a.EnforceTiers == nil || *a.EnforceTiers
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded pantry.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// The target simply remains zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
