// Package agent owns the inventory collection. Every request is executed
// on a single goroutine, persisted after each mutation and fanned out to
// subscribers.
package agent

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/internal/storage"
	"github.com/grovetools/pantry/pkg/ident"
	"github.com/grovetools/pantry/pkg/models"
)

// ErrStopped is returned when the agent is not running.
var ErrStopped = errors.New("agent stopped")

// Session is the view of the session the agent needs. *session.Machine
// satisfies it.
type Session interface {
	Current() session.State
	Subscribe() *registry.Subscription[session.State]
	Unsubscribe(token registry.Token)
}

type call struct {
	req   Request
	from  registry.Token
	reply chan Response
}

// Agent executes Requests against the inventory collection.
type Agent struct {
	store   *storage.Snapshots
	session Session
	ids     ident.IDer
	logger  *logrus.Entry
	enforce bool

	subs     *registry.Registry[Response]
	requests chan call
	done     chan struct{}
	running  atomic.Bool

	// owned by Run
	inventories []models.Inventory
	viewer      *models.UserInfo
}

// Option configures an Agent.
type Option func(*Agent)

// WithIDs replaces the UUID generator.
func WithIDs(ids ident.IDer) Option {
	return func(a *Agent) { a.ids = ids }
}

// WithTierEnforcement toggles access tier checks on mutations. A logged in
// session is required either way.
func WithTierEnforcement(enforce bool) Option {
	return func(a *Agent) { a.enforce = enforce }
}

// WithBuffer sets the per-subscriber buffer.
func WithBuffer(n int) Option {
	return func(a *Agent) { a.subs = registry.New[Response](n, a.logger) }
}

// New creates an Agent. The collection is loaded from store when Run starts.
func New(store *storage.Snapshots, sess Session, logger *logrus.Entry, opts ...Option) *Agent {
	a := &Agent{
		store:    store,
		session:  sess,
		ids:      ident.NewUUID(),
		logger:   logger,
		enforce:  true,
		requests: make(chan call),
		done:     make(chan struct{}),
	}
	a.subs = registry.New[Response](registry.DefaultBuffer, logger)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements the engine runner interface.
func (a *Agent) Name() string { return "agent" }

// Subscribe registers for updates on topic.
func (a *Agent) Subscribe(topic registry.Topic) *registry.Subscription[Response] {
	return a.subs.Subscribe(topic)
}

// Unsubscribe removes a subscription.
func (a *Agent) Unsubscribe(token registry.Token) {
	a.subs.Unsubscribe(token)
}

// Live reports whether token is a registered subscriber.
func (a *Agent) Live(token registry.Token) bool {
	return a.subs.Live(token)
}

// Send executes req as a one-shot caller.
func (a *Agent) Send(ctx context.Context, req Request) (Response, error) {
	return a.SendAs(ctx, 0, req)
}

// SendAs executes req on behalf of the subscriber holding token. The reply
// is returned directly; a live subscriber is left out of the broadcast the
// request triggers. Tokens that are not live are treated as one-shot.
func (a *Agent) SendAs(ctx context.Context, token registry.Token, req Request) (Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	c := call{req: req, from: token, reply: make(chan Response, 1)}
	select {
	case a.requests <- c:
	case <-a.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-c.reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run loads the persisted collection and serves requests until ctx is
// cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("agent already running")
	}
	defer close(a.done)
	defer a.subs.Close()

	a.inventories = []models.Inventory{}
	if loaded, ok := a.store.Load(ctx); ok {
		a.inventories = loaded
	}
	a.logger.WithField("inventories", len(a.inventories)).Info("Agent started")

	var sessions <-chan session.State
	if a.session != nil {
		sub := a.session.Subscribe()
		defer a.session.Unsubscribe(sub.Token)
		sessions = sub.C
		a.observe(a.session.Current())
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Agent stopped")
			return nil
		case st, ok := <-sessions:
			if !ok {
				sessions = nil
				continue
			}
			a.observe(st)
		case c := <-a.requests:
			a.serve(ctx, c)
		}
	}
}

// observe tracks the session user for logging.
func (a *Agent) observe(st session.State) {
	user, ok := st.CurrentUser()
	switch {
	case ok:
		a.viewer = &user
		a.logger.WithField("user", user.Name).Debug("Session user changed")
	case a.viewer != nil && !st.Transitional():
		a.logger.WithField("user", a.viewer.Name).Debug("Session ended, dropping user")
		a.viewer = nil
	}
}

func (a *Agent) serve(ctx context.Context, c call) {
	resp, changed := a.execute(c.req)

	fields := logrus.Fields{
		"request":  RequestType(c.req),
		"response": ResponseType(resp),
	}
	if c.from != 0 {
		fields["token"] = c.from
	}
	if a.viewer != nil {
		fields["user"] = a.viewer.Name
	}
	log := a.logger.WithFields(fields)

	if !changed {
		if Failed(resp) {
			log.Info("Request rejected")
		} else {
			log.Debug("Request served")
		}
		c.reply <- resp
		return
	}

	// The reply does not wait on the outcome of the save.
	_ = a.store.Save(ctx, a.inventories)
	c.reply <- resp

	exclude := c.from
	if !a.subs.Live(exclude) {
		exclude = 0
	}
	// Every subscriber gets its own copy.
	n := a.subs.Broadcast(exclude, func(topic registry.Topic) (Response, bool) {
		switch topic {
		case registry.TopicSnapshots:
			return Inventories{Inventories: models.CloneAll(a.inventories)}, true
		case registry.TopicChanges:
			return cloneResponse(resp), true
		}
		return nil, false
	})
	log.WithField("subscribers", n).Info("Collection changed")
}
