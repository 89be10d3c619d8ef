// Package authhttp talks to the authentication service over HTTP.
package authhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/pkg/models"
)

const basePath = "/api/v1/authentication/"

// Client implements session.Authenticator. Session credentials set by the
// service are kept in a cookie jar and sent on every later request.
type Client struct {
	base    *url.URL
	http    *http.Client
	jar     http.CookieJar
	cookies *cookieFile
	logger  *logrus.Entry
}

// Option configures a Client.
type Option func(*Client) error

// WithSessionFile keeps the session cookies in path, so a client created
// later by another process resumes the same session.
func WithSessionFile(path string) Option {
	return func(c *Client) error {
		u, err := url.Parse(c.endpoint("status"))
		if err != nil {
			return err
		}
		c.cookies = &cookieFile{path: path, url: u}
		return nil
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration, logger *logrus.Entry, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid auth url").WithDetail("url", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Jar: jar, Timeout: timeout},
		jar:    jar,
		logger: logger,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid auth client option")
		}
	}
	if c.cookies != nil {
		if err := c.cookies.load(jar); err != nil {
			logger.WithError(err).WithField("file", c.cookies.path).Warn("Ignoring unreadable session file")
		}
	}
	return c, nil
}

// HasSession reports whether the client holds session credentials. Without
// them a status query can only answer logged out.
func (c *Client) HasSession() bool {
	u, err := url.Parse(c.endpoint("status"))
	if err != nil {
		return false
	}
	return len(c.jar.Cookies(u)) > 0
}

// Status returns the user of the current session.
func (c *Client) Status(ctx context.Context) (models.UserInfo, error) {
	var user models.UserInfo
	err := c.do(ctx, http.MethodGet, "status", nil, &user)
	return user, err
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, login models.UserLogin) (models.UserInfo, error) {
	var user models.UserInfo
	err := c.do(ctx, http.MethodPost, "login", login, &user)
	return user, err
}

// Signup registers a user and starts a session.
func (c *Client) Signup(ctx context.Context, signup models.UserSignup) (models.UserInfo, error) {
	var user models.UserInfo
	err := c.do(ctx, http.MethodPost, "signup", signup, &user)
	return user, err
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) (models.StatusNotice, error) {
	var notice models.StatusNotice
	err := c.do(ctx, http.MethodGet, "logout", nil, &notice)
	return notice, err
}

func (c *Client) endpoint(name string) string {
	return c.base.String() + basePath + name
}

func (c *Client) do(ctx context.Context, method, name string, body, out interface{}) error {
	endpoint := c.endpoint(name)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.AuthFailed(endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.AuthFailed(endpoint, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.AuthFailed(endpoint, err)
	}
	defer resp.Body.Close()

	if c.cookies != nil {
		if err := c.cookies.save(c.jar); err != nil {
			c.logger.WithError(err).WithField("file", c.cookies.path).Warn("Failed to save session file")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": name,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("Auth request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.AuthFailed(endpoint, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))).
			WithDetail("status", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.AuthFailed(endpoint, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
