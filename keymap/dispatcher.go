package keymap

import (
	"context"
	"time"

	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/matrix"
	"github.com/dropalt/keyboard-core/pkg"
)

// LampNotifier is told about every key event so it can drive the
// per-slot RGB lamp independently of the node's own HID behavior.
type LampNotifier interface {
	SignalKeyEvent(slot uint8, press bool)
}

// SwitchoverRequester performs the actual host/extra USB-port switchover
// once the dispatcher has confirmed it is safe to do so.
type SwitchoverRequester interface {
	RequestSwitchover()
}

// IdleChecker reports whether any matrix slot is currently considered
// pressed, independent of this package's own node state.
type IdleChecker interface {
	IsAnyPressed() bool
}

// eventQueueCapacity bounds the generic-event channel (lamp/timer
// callbacks); it does not need to be large since a full channel just
// means the dispatcher hasn't gotten around to draining yet, not that
// work is lost beyond this bound.
const eventQueueCapacity = 8

// Dispatcher is the keymap agent: it owns the slot table and drives the
// control loop described by handleKeyEvent, servicing generic events
// (timer callbacks, lamp-state changes) with priority over key events,
// and processing at most one key event per loop iteration so generic
// events never wait behind a burst of typing.
type Dispatcher struct {
	queue *keyevent.Queue
	slots [matrix.NumSlots]Node

	lamps LampNotifier
	hub   SwitchoverRequester
	idle  IdleChecker

	events chan func()

	switchoverRequested bool
}

// NewDispatcher returns a Dispatcher with every slot bound to NoOp.
func NewDispatcher(queue *keyevent.Queue, lamps LampNotifier, hub SwitchoverRequester, idle IdleChecker) *Dispatcher {
	d := &Dispatcher{
		queue:  queue,
		lamps:  lamps,
		hub:    hub,
		idle:   idle,
		events: make(chan func(), eventQueueCapacity),
	}
	for i := range d.slots {
		d.slots[i] = NO
	}
	return d
}

// Bind assigns node to slot.
func (d *Dispatcher) Bind(slot uint8, node Node) {
	d.slots[slot] = node
}

// Node returns the node currently bound to slot.
func (d *Dispatcher) Node(slot uint8) Node {
	return d.slots[slot]
}

// PostEvent schedules fn to run on the dispatcher's own goroutine ahead
// of the next key event. Callbacks from timers must use this instead of
// acting directly, since they run on their own goroutine (see
// fwtimer.OneShot); if the event channel is full the event is dropped and
// logged, which only happens under a pathological backlog of unserviced
// timers.
func (d *Dispatcher) PostEvent(fn func()) {
	select {
	case d.events <- fn:
	default:
		pkg.LogWarn(pkg.ComponentKeymap, "generic event dropped, dispatcher backlog full")
	}
}

// RequestSwitchover marks a host/extra USB-port switchover as pending; it
// is serviced once the key-event queue is empty, no deferrer is active,
// and no matrix slot is pressed. Must be called from the dispatcher's own
// goroutine (i.e. from within a node's Press/Release hook).
func (d *Dispatcher) RequestSwitchover() {
	d.switchoverRequested = true
}

// Run drives the control loop until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.drainEvents() {
			continue
		}

		if ev, ok := d.queue.NextEvent(); ok {
			d.handleKeyEvent(ev.Slot, ev.Press)
			continue
		}

		if d.switchoverRequested && d.queue.Deferrer() == nil && !d.idle.IsAnyPressed() {
			d.hub.RequestSwitchover()
			d.switchoverRequested = false
			continue
		}

		// While a switchover is pending, re-check the matrix periodically:
		// it can become idle without any further key event to wake us.
		var idlePoll <-chan time.Time
		if d.switchoverRequested {
			idlePoll = time.After(5 * time.Millisecond)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-d.events:
			fn()
		case <-d.queue.Ready():
		case <-idlePoll:
		}
	}
}

// drainEvents runs every generic event currently pending without
// blocking, giving timers and lamp-state changes strict priority over key
// events. It reports whether it ran anything.
func (d *Dispatcher) drainEvents() bool {
	ran := false
	for {
		select {
		case fn := <-d.events:
			fn()
			ran = true
		default:
			return ran
		}
	}
}

// handleKeyEvent implements the defer-aware dispatch protocol: with no
// deferrer active, the target node's own hook fires directly. With a
// deferrer active, the deferrer's own further events still fire directly;
// every other slot's event is first offered to the deferrer via
// OnOtherPress/OnOtherRelease, and only proceeds (and is dropped from the
// deferred window) if that returns true.
func (d *Dispatcher) handleKeyEvent(slot uint8, press bool) {
	deferrer, _ := d.queue.Deferrer().(Deferrer)

	if deferrer == nil {
		d.lamps.SignalKeyEvent(slot, press)
		d.dispatch(slot, press)
		return
	}

	if deferrer.Slot() != slot {
		var proceed bool
		if press {
			proceed = deferrer.OnOtherPress(slot)
		} else {
			proceed = deferrer.OnOtherRelease(slot)
		}
		if !proceed {
			return
		}
	}

	d.lamps.SignalKeyEvent(slot, press)
	d.dispatch(slot, press)
	if err := d.queue.DiscardLastDeferred(); err != nil {
		pkg.LogWarn(pkg.ComponentKeymap, "discard last deferred failed", "error", err)
	}
}

func (d *Dispatcher) dispatch(slot uint8, press bool) {
	node := d.slots[slot]
	if press {
		node.Press(slot)
	} else {
		node.Release(slot)
	}
}
