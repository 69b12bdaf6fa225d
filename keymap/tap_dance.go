package keymap

import (
	"time"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/pkg"
)

// TapDance counts consecutive taps of its own slot within tappingTerm of
// each other, resolving to a keycode chosen by resolve(step) once the
// dance finishes: on a timeout, on any other key going down, or
// immediately if the onTap callback calls Finish.
type TapDance struct {
	Base

	term    time.Duration
	resolve func(step uint8) uint8
	onTap   func(step uint8) // optional; called on every tap before finish
	hid     Reporter

	queue      *keyevent.Queue
	dispatcher *Dispatcher

	timer fwtimer.OneShot

	slot           uint8
	step           uint8
	finished       bool
	releasePending bool
	chosenCode     uint8
}

// NewTapDance returns a TapDance that resolves to resolve(step) once the
// dance finishes. onTap may be nil.
func NewTapDance(queue *keyevent.Queue, dispatcher *Dispatcher, hid Reporter, term time.Duration, resolve func(step uint8) uint8, onTap func(step uint8)) *TapDance {
	if term <= 0 {
		term = DefaultTappingTerm
	}
	d := &TapDance{
		term:       term,
		resolve:    resolve,
		onTap:      onTap,
		hid:        hid,
		queue:      queue,
		dispatcher: dispatcher,
		finished:   true,
	}
	d.Base = NewBase(d)
	return d
}

func (d *TapDance) Slot() uint8 { return d.slot }

// Step reports the current tap count; always >= 1 once a dance is active.
func (d *TapDance) Step() uint8 { return d.step }

func (d *TapDance) OnPress(slot uint8) {
	d.slot = slot
	d.step++
	d.finished = false
	d.releasePending = false

	if d.step == 1 {
		if err := d.queue.StartDefer(d); err != nil {
			pkg.LogWarn(pkg.ComponentKeymap, "tap-dance could not start deferring", "slot", slot, "error", err)
		}
	}

	if d.onTap != nil {
		d.onTap(d.step)
	}

	d.timer.Start(d.term, func() {
		d.dispatcher.PostEvent(d.finish)
	})
}

func (d *TapDance) OnRelease(uint8) {
	if d.finished {
		d.hid.ReportRelease(d.chosenCode)
		d.step = 0
		return
	}
	d.releasePending = true
}

// OnOtherPress is called while this node is the active deferrer; any
// other key going down ends the dance.
func (d *TapDance) OnOtherPress(uint8) bool {
	d.finish()
	return true
}

func (d *TapDance) OnOtherRelease(uint8) bool {
	return false
}

// Finish ends the dance early; intended to be called from onTap when the
// caller already knows no further tap is possible.
func (d *TapDance) Finish() {
	d.finish()
}

func (d *TapDance) finish() {
	if d.finished {
		return
	}
	d.timer.Stop()
	if err := d.queue.StopDefer(d); err != nil {
		pkg.LogDebug(pkg.ComponentKeymap, "tap-dance stop defer during finish", "error", err)
	}
	d.finished = true
	d.chosenCode = d.resolve(d.step)
	d.hid.ReportPress(d.chosenCode)

	if d.releasePending {
		d.hid.ReportRelease(d.chosenCode)
		d.step = 0
		d.releasePending = false
	}
}
