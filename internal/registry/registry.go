// Package registry tracks live subscribers and fans updates out to them.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Token identifies a subscription. The zero Token means "not a subscriber",
// which is what one-shot requesters carry.
type Token uint64

// Topic selects which view of an update a subscriber receives.
type Topic string

const (
	// TopicSnapshots subscribers receive the full collection after every change.
	TopicSnapshots Topic = "snapshots"
	// TopicChanges subscribers receive the response of each change.
	TopicChanges Topic = "changes"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// Subscription is a live registration. Updates arrive on C until the
// subscription is removed, at which point C is closed.
type Subscription[T any] struct {
	Token Token
	Topic Topic
	C     <-chan T

	ch      chan T
	dropped atomic.Int64
}

// Dropped returns how many updates were discarded because C was full.
func (s *Subscription[T]) Dropped() int64 {
	return s.dropped.Load()
}

// Registry is a set of subscriptions safe for concurrent use.
type Registry[T any] struct {
	mu     sync.RWMutex
	subs   map[Token]*Subscription[T]
	next   Token
	buffer int
	logger *logrus.Entry
}

// New creates a registry whose subscriptions buffer up to buffer updates.
func New[T any](buffer int, logger *logrus.Entry) *Registry[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry[T]{
		subs:   make(map[Token]*Subscription[T]),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber on topic.
func (r *Registry[T]) Subscribe(topic Topic) *Subscription[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ch := make(chan T, r.buffer)
	sub := &Subscription[T]{Token: r.next, Topic: topic, C: ch, ch: ch}
	r.subs[sub.Token] = sub
	r.logger.WithFields(logrus.Fields{"token": sub.Token, "topic": topic}).Debug("Subscriber registered")
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Unknown
// tokens are ignored.
func (r *Registry[T]) Unsubscribe(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[token]
	if !ok {
		return
	}
	delete(r.subs, token)
	close(sub.ch)
	r.logger.WithField("token", token).Debug("Subscriber removed")
}

// Live reports whether token belongs to a registered subscription.
func (r *Registry[T]) Live(token Token) bool {
	if token == 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[token]
	return ok
}

// Len returns the number of live subscriptions.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Send delivers v to a single subscriber. It reports false when token is not
// live or its buffer is full.
func (r *Registry[T]) Send(token Token, v T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[token]
	if !ok {
		return false
	}
	return r.deliver(sub, v)
}

// Broadcast delivers to every live subscription except exclude. pick is
// called once per delivery and maps the subscription's topic to the value
// it receives; returning false skips every subscription on that topic.
// Delivery never blocks: a full subscriber loses the update and its drop
// counter grows. Broadcast returns how many subscriptions received the
// update.
func (r *Registry[T]) Broadcast(exclude Token, pick func(Topic) (T, bool)) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := make(map[Topic]bool, 2)
	delivered := 0
	for token, sub := range r.subs {
		if token == exclude || skip[sub.Topic] {
			continue
		}
		v, ok := pick(sub.Topic)
		if !ok {
			skip[sub.Topic] = true
			continue
		}
		if r.deliver(sub, v) {
			delivered++
		}
	}
	return delivered
}

// deliver must be called with r.mu held.
func (r *Registry[T]) deliver(sub *Subscription[T], v T) bool {
	select {
	case sub.ch <- v:
		return true
	default:
		n := sub.dropped.Add(1)
		r.logger.WithFields(logrus.Fields{"token": sub.Token, "dropped": n}).Warn("Subscriber buffer full, update dropped")
		return false
	}
}

// Close removes every subscription.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, sub := range r.subs {
		delete(r.subs, token)
		close(sub.ch)
	}
}
