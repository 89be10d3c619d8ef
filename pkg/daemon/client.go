// Package daemon provides a client interface for talking to the pantry
// daemon (pantryd). If the daemon is running requests go over its socket;
// if not, an in-process agent serves them directly.
package daemon

import (
	"context"
	"time"

	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
)

// SubscriptionHeader carries a stream's subscription token on requests so
// the daemon answers that subscriber directly and leaves it out of the
// broadcast.
const SubscriptionHeader = "X-Pantry-Subscription"

// Client defines the interface for interacting with the pantry daemon.
// Both RemoteClient (socket) and LocalClient (in-process) implement it.
type Client interface {
	// Do executes an agent request. token identifies the caller's stream
	// subscription; pass 0 for a one-shot request.
	Do(ctx context.Context, token registry.Token, req agent.Request) (agent.Response, error)

	// Session returns the current session state. With wait set it blocks
	// until no auth operation is in flight.
	Session(ctx context.Context, wait bool) (session.State, error)

	// Auth starts a session operation and waits for it to settle.
	Auth(ctx context.Context, req session.Request) (session.State, error)

	// StreamState subscribes to updates on topic. The first update carries
	// the subscription token.
	StreamState(ctx context.Context, topic registry.Topic) (<-chan StateUpdate, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// Update types carried in StateUpdate.UpdateType.
const (
	UpdateSubscribed   = "subscribed"
	UpdateInitial      = "initial"
	UpdateSnapshot     = "snapshot"
	UpdateChange       = "change"
	UpdateSession      = "session"
	UpdateConfigReload = "config_reload"
	UpdateReply        = "reply"
	UpdateError        = "error"
)

// StateUpdate represents an update pushed from the daemon to subscribers.
type StateUpdate struct {
	UpdateType string          `json:"update_type"`
	Token      registry.Token  `json:"token,omitempty"`
	Topic      registry.Topic  `json:"topic,omitempty"`
	Response   *agent.Envelope `json:"response,omitempty"`
	Session    *session.State  `json:"session,omitempty"`
	ConfigFile string          `json:"config_file,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Decode returns the agent response carried by the update, if any.
func (u StateUpdate) Decode() (agent.Response, error) {
	if u.Response == nil {
		return nil, nil
	}
	return agent.DecodeResponse(*u.Response)
}

// RunningConfig is what the daemon reports from /api/config.
type RunningConfig struct {
	Backend       string    `json:"backend"`
	AuthURL       string    `json:"auth_url"`
	Socket        string    `json:"socket"`
	TiersEnforced bool      `json:"tiers_enforced"`
	Sources       []string  `json:"sources,omitempty"`
	StartedAt     time.Time `json:"started_at"`
}
