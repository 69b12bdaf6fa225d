package fwtimer

import (
	"sync"
	"time"
)

// OneShot is a single-shot, re-armable timer whose expiry is delivered
// exactly once per arm, even in the presence of a race between the timer
// goroutine firing and a concurrent Stop/Start from the owning agent.
//
// OneShot is safe for concurrent use. The callback passed to Start
// runs on the Go runtime's own timer goroutine, exactly like a raw
// time.AfterFunc; callers that need the callback to run on a particular
// agent's loop should have it post an event (e.g. onto a channel) rather
// than do work directly, mirroring the "callbacks never block, they only
// set a flag or post an event" rule in spec.md §5.
type OneShot struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	armed      bool
}

// Start arms the timer to fire after d, invoking fn if no intervening
// Stop or re-Start has occurred. A prior pending fire is superseded: its
// generation no longer matches and its invocation of fn is suppressed.
func (o *OneShot) Start(d time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		o.timer.Stop()
	}

	o.generation++
	gen := o.generation
	o.armed = true

	o.timer = time.AfterFunc(d, func() {
		o.mu.Lock()
		fire := o.armed && o.generation == gen
		if fire {
			o.armed = false
		}
		o.mu.Unlock()

		if fire {
			fn()
		}
	})
}

// Stop disarms the timer. Any fire already in flight is discarded by the
// generation check rather than by racing with the runtime timer's
// internal state. Stop is idempotent.
func (o *OneShot) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.generation++
	o.armed = false
	if o.timer != nil {
		o.timer.Stop()
	}
}

// Running reports whether the timer is currently armed and has not yet
// fired or been stopped.
func (o *OneShot) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}
