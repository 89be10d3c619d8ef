package registry

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(buffer int) *Registry[string] {
	logger, _ := test.NewNullLogger()
	return New[string](buffer, logrus.NewEntry(logger))
}

func byTopic(topic Topic) (string, bool) {
	return string(topic), true
}

func TestSubscribeAssignsDistinctTokens(t *testing.T) {
	r := newRegistry(1)
	a := r.Subscribe(TopicSnapshots)
	b := r.Subscribe(TopicChanges)

	assert.NotZero(t, a.Token)
	assert.NotEqual(t, a.Token, b.Token)
	assert.True(t, r.Live(a.Token))
	assert.False(t, r.Live(0))
	assert.Equal(t, 2, r.Len())
}

func TestBroadcastExcludesRequesterAndPicksPerTopic(t *testing.T) {
	r := newRegistry(4)
	requester := r.Subscribe(TopicSnapshots)
	snap := r.Subscribe(TopicSnapshots)
	changes := r.Subscribe(TopicChanges)

	n := r.Broadcast(requester.Token, byTopic)
	assert.Equal(t, 2, n)

	assert.Equal(t, "snapshots", <-snap.C)
	assert.Equal(t, "changes", <-changes.C)
	assert.Len(t, requester.C, 0)
}

func TestBroadcastPickCanSkipTopic(t *testing.T) {
	r := newRegistry(4)
	snap := r.Subscribe(TopicSnapshots)
	changes := r.Subscribe(TopicChanges)

	calls := 0
	r.Broadcast(0, func(topic Topic) (string, bool) {
		calls++
		return "full", topic == TopicSnapshots
	})
	assert.Equal(t, "full", <-snap.C)
	assert.Len(t, changes.C, 0)
	assert.Equal(t, 2, calls)
}

func TestBroadcastPicksOncePerDelivery(t *testing.T) {
	r := newRegistry(4)
	a := r.Subscribe(TopicSnapshots)
	b := r.Subscribe(TopicSnapshots)
	c := r.Subscribe(TopicChanges)

	calls := 0
	n := r.Broadcast(0, func(topic Topic) (string, bool) {
		calls++
		return string(topic), true
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "snapshots", <-a.C)
	assert.Equal(t, "snapshots", <-b.C)
	assert.Equal(t, "changes", <-c.C)
}

func TestFullSubscriberDropsWithoutBlocking(t *testing.T) {
	r := newRegistry(1)
	sub := r.Subscribe(TopicChanges)

	assert.Equal(t, 1, r.Broadcast(0, byTopic))
	assert.Equal(t, 0, r.Broadcast(0, byTopic))
	assert.Equal(t, int64(1), sub.Dropped())
	assert.Equal(t, "changes", <-sub.C)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	r := newRegistry(1)
	sub := r.Subscribe(TopicSnapshots)
	r.Unsubscribe(sub.Token)
	r.Unsubscribe(sub.Token)

	_, open := <-sub.C
	assert.False(t, open)
	assert.False(t, r.Live(sub.Token))
	assert.False(t, r.Send(sub.Token, "x"))
}

func TestSendTargetsOneSubscriber(t *testing.T) {
	r := newRegistry(1)
	a := r.Subscribe(TopicSnapshots)
	b := r.Subscribe(TopicSnapshots)

	require.True(t, r.Send(a.Token, "direct"))
	assert.Equal(t, "direct", <-a.C)
	assert.Len(t, b.C, 0)
}

func TestCloseRemovesAll(t *testing.T) {
	r := newRegistry(1)
	a := r.Subscribe(TopicSnapshots)
	r.Close()
	_, open := <-a.C
	assert.False(t, open)
	assert.Zero(t, r.Len())
}

func TestConcurrentSubscribeAndBroadcast(t *testing.T) {
	r := newRegistry(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := r.Subscribe(TopicChanges)
			r.Unsubscribe(sub.Token)
		}()
		go func() {
			defer wg.Done()
			r.Broadcast(0, byTopic)
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
