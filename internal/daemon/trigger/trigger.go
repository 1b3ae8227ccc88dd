// Package trigger provides background sources of reconciliation requests.
package trigger

import (
	"context"
	"time"
)

// Requester receives reconciliation requests.
type Requester interface {
	RequestCheck()
}

// Trigger is a background worker that requests reconciliation passes.
type Trigger interface {
	// Name returns the trigger's name for logging.
	Name() string

	// Run blocks until ctx is canceled, calling req.RequestCheck whenever
	// the trigger fires.
	Run(ctx context.Context, req Requester) error
}

// Poller requests a pass on a fixed interval.
type Poller struct {
	interval time.Duration
}

// NewPoller creates a Poller firing every interval.
func NewPoller(interval time.Duration) *Poller {
	return &Poller{interval: interval}
}

// Name returns the trigger's name.
func (p *Poller) Name() string { return "poll" }

// Run starts the polling loop.
func (p *Poller) Run(ctx context.Context, req Requester) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			req.RequestCheck()
		}
	}
}
