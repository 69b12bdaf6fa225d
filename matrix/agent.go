package matrix

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/pkg"
)

// ScanPeriod is the interval between periodic scans while any key is
// considered pressed (≈1 kHz).
const ScanPeriod = 997 * time.Microsecond

// Agent owns the matrix debounce state and drives the three-mode scan
// loop: sleeping, first scan (a short uninterrupted burst right after a
// wakeup interrupt), and periodic scan.
type Agent struct {
	hal   HAL
	queue *keyevent.Queue

	states    [NumSlots]bounceState
	firstScan int
	nextWake  time.Time

	// pressed mirrors state.pressed for lock-free reads by other agents
	// (the scan loop is the sole writer).
	pressed [NumSlots]atomic.Bool
}

// NewAgent returns an Agent that scans through hal and commits debounced
// transitions to queue.
func NewAgent(hal HAL, queue *keyevent.Queue) *Agent {
	return &Agent{hal: hal, queue: queue}
}

// IsPressed reports the last value committed upstream for slot, i.e. the
// matrix agent's own view of what the keymap agent currently believes.
// Safe to call from any goroutine.
func (a *Agent) IsPressed(slot int) bool {
	return a.pressed[slot].Load()
}

// IsAnyPressed reports whether any slot is currently committed as pressed.
// The keymap agent uses this to decide whether it is safe to act on a
// pending USB-hub switchover request.
func (a *Agent) IsAnyPressed() bool {
	for i := range a.pressed {
		if a.pressed[i].Load() {
			return true
		}
	}
	return false
}

// Run drives the scan loop until ctx is cancelled. It never returns nil;
// callers should treat ctx.Err() as a normal shutdown.
func (a *Agent) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.scanOnce()

		anyActive := false
		for slot := 0; slot < NumSlots; slot++ {
			state := &a.states[slot]
			if state.pressing != state.pressed {
				err := a.queue.Push(keyevent.Event{Slot: uint8(slot), Press: state.pressing}, ScanPeriod)
				if err != nil {
					// Leave the slot wanting to change; retry next tick.
					// Stop processing this scan's remaining slots so we
					// don't get further ahead of a queue that isn't
					// draining.
					pkg.LogWarn(pkg.ComponentMatrix, "key-event enqueue timed out, retrying next tick",
						"slot", slot, "press", state.pressing)
					anyActive = true
					break
				}
				state.pressed = state.pressing
				a.pressed[slot].Store(state.pressed)
			}
			if state.active() {
				anyActive = true
			}
		}

		switch {
		case anyActive:
			a.firstScan = 0
			if err := a.sleepUntilNextPeriod(ctx); err != nil {
				return err
			}

		case a.firstScan > 0:
			a.firstScan--
			// No delay: burst-scan to catch a definite press through
			// contact ringing.

		default:
			pkg.LogDebug(pkg.ComponentMatrix, "sleeping")
			a.hal.EnableInterrupt()
			if err := a.hal.WaitInterrupt(ctx); err != nil {
				return err
			}
			a.hal.DisableInterrupt()
			a.firstScan = FirstScanMaxCount - 1
			a.nextWake = time.Time{}
		}
	}
}

func (a *Agent) scanOnce() {
	a.hal.Scan(func(slot int, instantaneous bool) {
		a.states[slot].debounce(instantaneous)
	})
}

// sleepUntilNextPeriod sleeps until the next scheduled scan tick, tracking
// an absolute schedule rather than a fixed relative delay so that a
// delayed wakeup does not push out every subsequent tick.
func (a *Agent) sleepUntilNextPeriod(ctx context.Context) error {
	if a.nextWake.IsZero() {
		a.nextWake = time.Now()
	}
	a.nextWake = a.nextWake.Add(ScanPeriod)

	d := time.Until(a.nextWake)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
