// Package engine runs the reconciliation loop together with the triggers
// that feed it.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/gcpd/internal/daemon/trigger"
	"github.com/sirupsen/logrus"
)

// Loop is the reconciliation loop driven by the engine.
type Loop interface {
	Run(ctx context.Context) error
	RequestCheck()
}

// Engine manages the loop and all registered triggers.
type Engine struct {
	loop     Loop
	triggers []trigger.Trigger
	logger   *logrus.Entry
}

// New creates a new Engine instance.
func New(loop Loop, logger *logrus.Entry) *Engine {
	return &Engine{
		loop:   loop,
		logger: logger,
	}
}

// Register adds a trigger to the engine.
func (e *Engine) Register(t trigger.Trigger) {
	e.triggers = append(e.triggers, t)
}

// Start requests an initial pass, runs the loop and every trigger, and
// blocks until ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.loop.Run(ctx)
	}()
	e.loop.RequestCheck()

	for _, t := range e.triggers {
		wg.Add(1)
		go func(tr trigger.Trigger) {
			defer wg.Done()
			e.logger.WithField("trigger", tr.Name()).Info("Starting trigger")
			if err := tr.Run(ctx, e.loop); err != nil {
				e.logger.WithField("trigger", tr.Name()).WithError(err).Error("Trigger failed")
			}
		}(t)
	}

	wg.Wait()
}
