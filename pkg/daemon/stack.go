package daemon

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/internal/session/authhttp"
	"github.com/grovetools/pantry/internal/storage"
	"github.com/grovetools/pantry/logging"
)

// Stack is the set of services that make up pantry: the snapshot store,
// the session machine and the agent, wired from one Config.
type Stack struct {
	Snapshots *storage.Snapshots
	Session   *session.Machine
	Agent     *agent.Agent
	Auth      session.Authenticator

	closeBucket func() error
}

// StackOption adjusts how a Stack is built.
type StackOption func(*stackOptions)

type stackOptions struct {
	auth   session.Authenticator
	logger func(component string) *logrus.Entry
}

// WithAuthenticator replaces the HTTP client for the auth service.
func WithAuthenticator(auth session.Authenticator) StackOption {
	return func(o *stackOptions) { o.auth = auth }
}

// WithLoggers replaces logging.NewLogger as the source of component loggers.
func WithLoggers(fn func(component string) *logrus.Entry) StackOption {
	return func(o *stackOptions) { o.logger = fn }
}

// OpenStack connects the configured bucket and builds the services. Nothing
// runs until the Session and Agent runners are started.
func OpenStack(ctx context.Context, cfg *config.Config, opts ...StackOption) (*Stack, error) {
	o := stackOptions{logger: logging.NewLogger}
	for _, opt := range opts {
		opt(&o)
	}

	bucket, closeBucket, err := storage.OpenBucket(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	auth := o.auth
	if auth == nil {
		var authOpts []authhttp.Option
		if cfg.Auth.SessionFile != "" {
			authOpts = append(authOpts, authhttp.WithSessionFile(cfg.Auth.SessionFile))
		}
		client, err := authhttp.New(cfg.Auth.URL, cfg.Auth.TimeoutDuration(), o.logger("auth"), authOpts...)
		if err != nil {
			_ = closeBucket()
			return nil, fmt.Errorf("creating auth client: %w", err)
		}
		auth = client
	}

	buffer := cfg.Daemon.StreamBuffer
	snapshots := storage.New(bucket, o.logger("storage"))
	machine := session.New(auth, o.logger("session"),
		session.WithProbeOnStart(cfg.Auth.ShouldProbe()),
		session.WithBuffer(buffer),
	)
	a := agent.New(snapshots, machine, o.logger("agent"),
		agent.WithTierEnforcement(cfg.Access.TiersEnforced()),
		agent.WithBuffer(buffer),
	)

	return &Stack{
		Snapshots:   snapshots,
		Session:     machine,
		Agent:       a,
		Auth:        auth,
		closeBucket: closeBucket,
	}, nil
}

// Close releases the bucket connection. Call it after the runners stop.
func (s *Stack) Close() error {
	return s.closeBucket()
}
