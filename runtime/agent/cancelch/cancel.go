// Package cancelch implements the Cancellation Channel component (spec
// §4.3): a TTL-scoped keyed signal polled cooperatively by running agents.
// cancel(runId) writes the signal and returns immediately; it does not
// synchronously interrupt execution.
package cancelch

import (
	"context"
	"time"

	"goa.design/agentcore/runtime/agent"
)

// Signal records one cancellation request.
type Signal struct {
	RunId       agent.RunId
	CancelledAt time.Time
	Reason      string
}

// Channel is the Cancellation Channel contract.
type Channel interface {
	// Cancel writes the signal for id with the given reason. Idempotent:
	// calling it again refreshes CancelledAt/Reason without error.
	Cancel(ctx context.Context, id agent.RunId, reason string) error
	// Check reports whether a cancellation signal exists for id.
	Check(ctx context.Context, id agent.RunId) (*Signal, bool, error)
	// Clear removes the signal, called once a cancelled run has unwound.
	Clear(ctx context.Context, id agent.RunId) error
}

// key builds the canonical key for a run's cancellation signal.
func key(id agent.RunId) string { return "agent-cancellation:" + string(id) }

// Poller wraps a Channel with the cooperative poll cadence described in
// §4.3 and §5: callers invoke ShouldStop at step boundaries and the poller
// internally rate-limits actual Channel.Check calls to Interval.
type Poller struct {
	ch       Channel
	interval time.Duration
	last     time.Time
	cached   *Signal
}

// NewPoller constructs a Poller for one run's lifetime. Pollers are not
// safe for concurrent use by design: one Agent Loop owns one Poller.
func NewPoller(ch Channel, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{ch: ch, interval: interval}
}

// ShouldStop checks the channel at most once per Interval (always checking
// on the first call and whenever forced is true, e.g. at a step boundary)
// and returns the signal if a cancellation is pending.
func (p *Poller) ShouldStop(ctx context.Context, id agent.RunId, forced bool) (*Signal, error) {
	now := time.Now()
	if p.cached != nil {
		return p.cached, nil
	}
	if !forced && !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return nil, nil
	}
	p.last = now
	sig, found, err := p.ch.Check(ctx, id)
	if err != nil {
		return nil, err
	}
	if found {
		p.cached = sig
		return sig, nil
	}
	return nil, nil
}
