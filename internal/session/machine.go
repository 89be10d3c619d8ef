package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/pkg/models"
)

// Topic is the registry topic session subscribers are registered under.
const Topic registry.Topic = "session"

var (
	// ErrStopped is returned when the machine is not running.
	ErrStopped = errors.New("session machine stopped")

	errNoAuthenticator = errors.New("no authentication service configured")
)

type call struct {
	req   Request
	reply chan State
}

type outcome struct {
	gen   uint64
	state State
}

// Machine serializes auth operations and publishes the resulting State.
// Current is safe to call from any goroutine; everything else that changes
// state happens on the Run goroutine.
type Machine struct {
	auth   Authenticator
	logger *logrus.Entry
	probe  bool

	state    atomic.Pointer[State]
	subs     *registry.Registry[State]
	requests chan call
	results  chan outcome
	done     chan struct{}
	running  atomic.Bool

	// owned by Run
	gen    uint64
	cancel context.CancelFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithProbeOnStart controls whether Run begins with GetAuthStatus.
func WithProbeOnStart(probe bool) Option {
	return func(m *Machine) { m.probe = probe }
}

// WithBuffer sets the per-subscriber buffer.
func WithBuffer(n int) Option {
	return func(m *Machine) { m.subs = registry.New[State](n, m.logger) }
}

// New creates a Machine in the Unknown state. auth may be nil, in which
// case every operation fails immediately with an Error state.
func New(auth Authenticator, logger *logrus.Entry, opts ...Option) *Machine {
	m := &Machine{
		auth:     auth,
		logger:   logger,
		probe:    true,
		requests: make(chan call),
		results:  make(chan outcome),
		done:     make(chan struct{}),
	}
	m.subs = registry.New[State](registry.DefaultBuffer, logger)
	for _, opt := range opts {
		opt(m)
	}
	initial := Unknown()
	m.state.Store(&initial)
	return m
}

// Name implements the engine runner interface.
func (m *Machine) Name() string { return "session" }

// Current returns the latest published state.
func (m *Machine) Current() State {
	return *m.state.Load()
}

// Subscribe registers for every subsequent state change.
func (m *Machine) Subscribe() *registry.Subscription[State] {
	return m.subs.Subscribe(Topic)
}

// Unsubscribe removes a subscription created by Subscribe.
func (m *Machine) Unsubscribe(token registry.Token) {
	m.subs.Unsubscribe(token)
}

// Send starts req and returns the state it moved the session into, which
// is transitional unless the operation could not start.
func (m *Machine) Send(ctx context.Context, req Request) (State, error) {
	c := call{req: req, reply: make(chan State, 1)}
	select {
	case m.requests <- c:
	case <-m.done:
		return m.Current(), ErrStopped
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	}
	select {
	case st := <-c.reply:
		return st, nil
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	}
}

// Settle waits until no operation is in flight and returns that state.
func (m *Machine) Settle(ctx context.Context) (State, error) {
	sub := m.Subscribe()
	defer m.Unsubscribe(sub.Token)

	if st := m.Current(); !st.Transitional() {
		return st, nil
	}
	for {
		select {
		case st, ok := <-sub.C:
			if !ok {
				return m.Current(), ErrStopped
			}
			if !st.Transitional() {
				return st, nil
			}
		case <-m.done:
			return m.Current(), ErrStopped
		case <-ctx.Done():
			return m.Current(), ctx.Err()
		}
	}
}

// Do sends req and waits for the session to settle.
func (m *Machine) Do(ctx context.Context, req Request) (State, error) {
	st, err := m.Send(ctx, req)
	if err != nil || !st.Transitional() {
		return st, err
	}
	return m.Settle(ctx)
}

// Run processes requests until ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("session machine already running")
	}
	defer close(m.done)
	defer m.subs.Close()

	if m.probe {
		m.begin(ctx, GetAuthStatus{})
	}

	for {
		select {
		case <-ctx.Done():
			if m.cancel != nil {
				m.cancel()
			}
			return nil
		case c := <-m.requests:
			c.reply <- m.begin(ctx, c.req)
		case o := <-m.results:
			if o.gen != m.gen {
				m.logger.WithFields(logrus.Fields{"gen": o.gen, "current": m.gen}).Debug("Discarding superseded auth result")
				continue
			}
			m.cancel()
			m.cancel = nil
			m.publish(o.state)
		}
	}
}

// begin supersedes any in-flight operation and starts req.
func (m *Machine) begin(ctx context.Context, req Request) State {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	gen := m.gen

	if m.auth == nil {
		return m.publish(Failed(errNoAuthenticator))
	}

	var (
		pending State
		op      func(context.Context) State
	)
	switch r := req.(type) {
	case GetAuthStatus:
		pending = State{Status: StatusProbing}
		op = func(ctx context.Context) State {
			user, err := m.auth.Status(ctx)
			if err != nil {
				return LoggedOut()
			}
			return LoggedIn(user)
		}
	case Login:
		pending = State{Status: StatusLoggingIn}
		op = func(ctx context.Context) State {
			return userState(m.auth.Login(ctx, r.UserLogin))
		}
	case Signup:
		pending = State{Status: StatusLoggingIn}
		op = func(ctx context.Context) State {
			return userState(m.auth.Signup(ctx, r.UserSignup))
		}
	case Logout:
		pending = State{Status: StatusLoggingOut}
		op = func(ctx context.Context) State {
			notice, err := m.auth.Logout(ctx)
			if err != nil {
				return Failed(err)
			}
			m.logger.WithField("notice", notice.Message).Debug("Logged out")
			return LoggedOut()
		}
	default:
		return m.publish(Failed(fmt.Errorf("unsupported session request %T", req)))
	}

	taskCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.publish(pending)

	go func() {
		st := op(taskCtx)
		select {
		case m.results <- outcome{gen: gen, state: st}:
		case <-m.done:
		}
	}()
	return pending
}

func userState(user models.UserInfo, err error) State {
	if err != nil {
		return Failed(err)
	}
	return LoggedIn(user)
}

func (m *Machine) publish(st State) State {
	prev := m.state.Swap(&st)
	m.logger.WithFields(logrus.Fields{"from": prev.String(), "to": st.String()}).Info("Session state changed")
	m.subs.Broadcast(0, func(registry.Topic) (State, bool) { return st, true })
	return st
}
