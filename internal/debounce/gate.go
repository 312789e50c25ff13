// Package debounce decides whether the working tree has been quiet long
// enough for a sync cycle to run.
//
// Change signals travel through a bounded channel into the Gate; the Gate
// keeps only the newest timestamp. Settled is evaluated at the start of each
// tick and never blocks on the signal producers.
package debounce

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultQueueSize bounds the number of pending change signals.
const DefaultQueueSize = 100

// Gate tracks the most recent change signal.
type Gate struct {
	quiet  time.Duration
	events chan time.Time

	// last is the newest change time in UnixNano, 0 when nothing has
	// ever been signalled.
	last atomic.Int64
}

// New returns a Gate that considers the tree settled once quiet has passed
// since the last signal. queueSize <= 0 selects DefaultQueueSize.
func New(quiet time.Duration, queueSize int) *Gate {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Gate{
		quiet:  quiet,
		events: make(chan time.Time, queueSize),
	}
}

// QuietPeriod returns the configured threshold.
func (g *Gate) QuietPeriod() time.Duration {
	return g.quiet
}

// Signal records a change at t without blocking. When the queue is full
// the timestamp is folded in directly so the newest change is never lost.
func (g *Gate) Signal(t time.Time) {
	select {
	case g.events <- t:
	default:
		g.observe(t)
	}
}

// observe keeps the newest timestamp. Signals may arrive out of order.
func (g *Gate) observe(t time.Time) {
	n := t.UnixNano()
	for {
		cur := g.last.Load()
		if n <= cur {
			return
		}
		if g.last.CompareAndSwap(cur, n) {
			return
		}
	}
}

// drain folds every queued signal into the timestamp.
func (g *Gate) drain() {
	for {
		select {
		case t := <-g.events:
			g.observe(t)
		default:
			return
		}
	}
}

// Run consumes signals until ctx is cancelled. Running it is optional;
// Settled drains the queue itself.
func (g *Gate) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-g.events:
			g.observe(t)
		}
	}
}

// LastChange returns the newest signal time, and false if none arrived.
func (g *Gate) LastChange() (time.Time, bool) {
	g.drain()
	n := g.last.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// Settled reports whether now is at least the quiet period after the last
// change. The boundary is inclusive. A gate that never saw a change is
// settled.
func (g *Gate) Settled(now time.Time) bool {
	last, ok := g.LastChange()
	if !ok {
		return true
	}
	return now.Sub(last) >= g.quiet
}

// Remaining returns how long until Settled would be true, or 0.
func (g *Gate) Remaining(now time.Time) time.Duration {
	last, ok := g.LastChange()
	if !ok {
		return 0
	}
	if d := g.quiet - now.Sub(last); d > 0 {
		return d
	}
	return 0
}
