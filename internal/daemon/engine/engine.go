// Package engine runs the daemon's long-lived services side by side.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Runner is a service with a blocking Run loop.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// Engine manages and runs all registered runners.
type Engine struct {
	runners []Runner
	logger  *logrus.Entry
}

// New creates a new Engine instance.
func New(logger *logrus.Entry) *Engine {
	return &Engine{logger: logger}
}

// Register adds a runner to the engine. Runners registered after Start
// are not started.
func (e *Engine) Register(r Runner) {
	e.runners = append(e.runners, r)
}

// Runners returns the names of the registered runners.
func (e *Engine) Runners() []string {
	names := make([]string, len(e.runners))
	for i, r := range e.runners {
		names[i] = r.Name()
	}
	return names
}

// Start runs all runners and blocks until every one has returned. A runner
// that fails cancels the others. The failures are joined into the result.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, r := range e.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			log := e.logger.WithField("runner", r.Name())
			log.Info("Starting runner")
			if err := r.Run(ctx); err != nil {
				log.WithError(err).Error("Runner failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
				mu.Unlock()
				cancel()
				return
			}
			log.Debug("Runner stopped")
		}(r)
	}

	wg.Wait()
	return errors.Join(errs...)
}
