package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/testutil"
)

type blockingRunner struct {
	name    string
	started atomic.Bool
}

func (r *blockingRunner) Name() string { return r.name }

func (r *blockingRunner) Run(ctx context.Context) error {
	r.started.Store(true)
	<-ctx.Done()
	return nil
}

type failingRunner struct{}

func (failingRunner) Name() string { return "broken" }
func (failingRunner) Run(context.Context) error { return errors.New("cannot bind") }

func TestStartRunsUntilCancelled(t *testing.T) {
	logger, _ := testutil.NullLogger("engine")
	e := New(logger)
	a, b := &blockingRunner{name: "a"}, &blockingRunner{name: "b"}
	e.Register(a)
	e.Register(b)
	assert.Equal(t, []string{"a", "b"}, e.Runners())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Start(ctx) }()

	require.Eventually(t, func() bool { return a.started.Load() && b.started.Load() }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestFailingRunnerStopsTheRest(t *testing.T) {
	logger, hook := testutil.NullLogger("engine")
	e := New(logger)
	e.Register(&blockingRunner{name: "agent"})
	e.Register(failingRunner{})

	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: cannot bind")

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Runner failed" && entry.Data["runner"] == "broken" {
			logged = true
		}
	}
	assert.True(t, logged)
}
