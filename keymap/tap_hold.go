package keymap

import (
	"time"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/pkg"
)

// DefaultTappingTerm is the timeout used when a TapHold is constructed
// without an explicit one.
const DefaultTappingTerm = 200 * time.Millisecond

// TapHold distinguishes a tap from a hold by time and/or other-key
// activity. Two decision policies are supported:
//
//   - Hold-preferred: any other key pressed while this one is held down
//     decides "hold" immediately, without waiting to see whether that
//     other key is released first.
//   - Balanced (a.k.a. permissive hold): a full press-and-release of
//     another key while this one is held also decides "hold"; a lone
//     press with no release before this key's own release or its timeout
//     is not enough. This catches fast rolling typists who overlap two
//     taps without meaning to hold either one.
//
// Either way, the timer alone deciding "hold" after tappingTerm is shared
// between the two.
type TapHold struct {
	Base

	tapCode  uint8
	holdCode uint8
	term     time.Duration
	balanced bool

	hid        Reporter
	queue      *keyevent.Queue
	dispatcher *Dispatcher

	timer fwtimer.OneShot

	slot    uint8
	holding bool

	// otherSlot is the slot of the other key seen pressed during a
	// balanced defer window, awaited for its matching release.
	otherSlot     uint8
	haveOtherSlot bool
}

// NewTapHold returns a hold-preferred TapHold node.
func NewTapHold(queue *keyevent.Queue, dispatcher *Dispatcher, hid Reporter, tapCode, holdCode uint8, term time.Duration) *TapHold {
	return newTapHold(queue, dispatcher, hid, tapCode, holdCode, term, false)
}

// NewTapHoldBalanced returns a balanced (permissive-hold) TapHold node.
func NewTapHoldBalanced(queue *keyevent.Queue, dispatcher *Dispatcher, hid Reporter, tapCode, holdCode uint8, term time.Duration) *TapHold {
	return newTapHold(queue, dispatcher, hid, tapCode, holdCode, term, true)
}

func newTapHold(queue *keyevent.Queue, dispatcher *Dispatcher, hid Reporter, tapCode, holdCode uint8, term time.Duration, balanced bool) *TapHold {
	if term <= 0 {
		term = DefaultTappingTerm
	}
	t := &TapHold{
		tapCode:  tapCode,
		holdCode: holdCode,
		term:     term,
		balanced:   balanced,
		hid:        hid,
		queue:      queue,
		dispatcher: dispatcher,
	}
	t.Base = NewBase(t)
	return t
}

// Slot returns the slot this node is currently deferring for.
func (t *TapHold) Slot() uint8 { return t.slot }

// IsPressing reports whether the hold behavior has been committed, as
// opposed to Base.IsPressed which also covers the undecided window.
func (t *TapHold) IsPressing() bool { return t.holding }

func (t *TapHold) OnPress(slot uint8) {
	if t.holding {
		pkg.LogWarn(pkg.ComponentKeymap, "tap-hold pressed again while already holding", "slot", slot)
	}
	t.slot = slot
	t.haveOtherSlot = false
	if err := t.queue.StartDefer(t); err != nil {
		pkg.LogWarn(pkg.ComponentKeymap, "tap-hold could not start deferring", "slot", slot, "error", err)
	}
	t.timer.Start(t.term, func() {
		t.dispatcher.PostEvent(t.helpHolding)
	})
}

func (t *TapHold) OnRelease(uint8) {
	if t.holding {
		t.holding = false
		t.hid.ReportRelease(t.holdCode)
		return
	}

	t.timer.Stop()
	if err := t.queue.StopDefer(t); err != nil {
		pkg.LogWarn(pkg.ComponentKeymap, "tap-hold stop defer", "error", err)
	}
	t.hid.ReportPress(t.tapCode)
	t.hid.ReportRelease(t.tapCode)
}

// OnOtherPress is called by the dispatcher while this node is the active
// deferrer and a different slot goes down.
func (t *TapHold) OnOtherPress(other uint8) bool {
	if !t.balanced {
		t.helpHolding()
		return true
	}
	t.otherSlot = other
	t.haveOtherSlot = true
	return false
}

// OnOtherRelease is called by the dispatcher while this node is the
// active deferrer and a different slot comes back up.
func (t *TapHold) OnOtherRelease(other uint8) bool {
	if t.balanced && t.haveOtherSlot && t.otherSlot == other {
		t.helpHolding()
		return true
	}
	return false
}

// helpHolding commits the hold decision, whether reached via the timer or
// via other-key activity.
func (t *TapHold) helpHolding() {
	if t.holding {
		return
	}
	t.timer.Stop()
	if err := t.queue.StopDefer(t); err != nil {
		// Already stopped by a race between the timer and an other-key
		// decision; both paths converging on the same outcome is fine.
		pkg.LogDebug(pkg.ComponentKeymap, "tap-hold stop defer during help_holding", "error", err)
	}
	t.holding = true
	t.hid.ReportPress(t.holdCode)
}
