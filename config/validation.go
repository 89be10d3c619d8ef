package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/grovetools/pantry/errors"
)

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendRedis:
		if c.Storage.Addr == "" {
			return errors.ConfigInvalid("storage.addr is required for the redis backend")
		}
	case BackendMySQL:
		if c.Storage.DSN == "" {
			return errors.ConfigInvalid("storage.dsn is required for the mysql backend")
		}
	case BackendDiskv:
		if c.Storage.Path == "" {
			return errors.ConfigInvalid("storage.path is required for the diskv backend")
		}
	}

	u, err := url.Parse(c.Auth.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid(fmt.Sprintf("auth.url %q is not an absolute URL", c.Auth.URL)).
			WithDetail("field", "auth.url")
	}

	d, err := time.ParseDuration(c.Auth.Timeout)
	if err != nil || d <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("auth.timeout %q is not a positive duration", c.Auth.Timeout)).
			WithDetail("field", "auth.timeout")
	}

	return nil
}
