package daemon

import (
	"context"
	"sync"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
)

// LocalClient implements Client by running the services in-process. It is
// used when the daemon is not running and serves the same API.
type LocalClient struct {
	stack  *Stack
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalClient builds a Stack from cfg and starts its services. When cfg
// asks for a probe and a saved session exists, the probe completes before
// NewLocalClient returns, so the first request already sees that session.
func NewLocalClient(cfg *config.Config, opts ...StackOption) (*LocalClient, error) {
	noProbe := false
	local := *cfg
	local.Auth.ProbeOnStart = &noProbe

	stack, err := OpenStack(context.Background(), &local, opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LocalClient{stack: stack, cancel: cancel}
	for _, run := range []func(context.Context) error{stack.Session.Run, stack.Agent.Run} {
		c.wg.Add(1)
		go func(run func(context.Context) error) {
			defer c.wg.Done()
			_ = run(ctx)
		}(run)
	}
	if cfg.Auth.ShouldProbe() && hasSession(stack.Auth) {
		_, _ = stack.Session.Do(ctx, session.GetAuthStatus{})
	}
	return c, nil
}

// hasSession reports false only for authenticators that know they hold no
// credentials.
func hasSession(auth session.Authenticator) bool {
	if s, ok := auth.(interface{ HasSession() bool }); ok {
		return s.HasSession()
	}
	return true
}

// Do executes req on the in-process agent.
func (c *LocalClient) Do(ctx context.Context, token registry.Token, req agent.Request) (agent.Response, error) {
	return c.stack.Agent.SendAs(ctx, token, req)
}

// Session returns the in-process session state.
func (c *LocalClient) Session(ctx context.Context, wait bool) (session.State, error) {
	if wait {
		return c.stack.Session.Settle(ctx)
	}
	return c.stack.Session.Current(), nil
}

// Auth runs req on the in-process session machine and waits for it.
func (c *LocalClient) Auth(ctx context.Context, req session.Request) (session.State, error) {
	return c.stack.Session.Do(ctx, req)
}

// StreamState forwards in-process updates. The channel closes when ctx
// ends or the client is closed.
func (c *LocalClient) StreamState(ctx context.Context, topic registry.Topic) (<-chan StateUpdate, error) {
	sub := c.stack.Agent.Subscribe(topic)
	sess := c.stack.Session.Subscribe()
	ch := make(chan StateUpdate, 10)

	kind := UpdateSnapshot
	if topic == registry.TopicChanges {
		kind = UpdateChange
	}
	send := func(u StateUpdate) bool {
		select {
		case ch <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fromResponse := func(kind string, resp agent.Response) (StateUpdate, bool) {
		env, err := agent.EncodeResponse(resp)
		if err != nil {
			return StateUpdate{}, false
		}
		return StateUpdate{UpdateType: kind, Response: &env}, true
	}

	go func() {
		defer close(ch)
		defer c.stack.Agent.Unsubscribe(sub.Token)
		defer c.stack.Session.Unsubscribe(sess.Token)

		if !send(StateUpdate{UpdateType: UpdateSubscribed, Token: sub.Token, Topic: topic}) {
			return
		}
		if resp, err := c.stack.Agent.SendAs(ctx, sub.Token, agent.GetInventories{}); err == nil {
			if u, ok := fromResponse(UpdateInitial, resp); ok && !send(u) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-sub.C:
				if !ok {
					return
				}
				if u, ok := fromResponse(kind, resp); ok && !send(u) {
					return
				}
			case st, ok := <-sess.C:
				if !ok {
					return
				}
				if !send(StateUpdate{UpdateType: UpdateSession, Session: &st}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close stops the services and releases the bucket.
func (c *LocalClient) Close() error {
	c.cancel()
	c.wg.Wait()
	return c.stack.Close()
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
