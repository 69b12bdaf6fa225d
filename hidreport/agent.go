package hidreport

import (
	"context"
	"sync"

	"github.com/dropalt/keyboard-core/device/class/hid"
	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/pkg"
)

// Transport is the subset of *hid.HID that Agent drives. Extracted as an
// interface so tests can exercise the coalescing/suspend logic without a
// configured device.Stack behind it.
type Transport interface {
	SetOnOutputReport(cb func(data []byte))
	SetOnSetProtocol(cb func(protocol uint8))
	Protocol() uint8
	SendReport(ctx context.Context, data []byte) error
	SendKeyboardReport(ctx context.Context, report *hid.KeyboardReport) error
}

// RemoteWakeupSender requests that the link signal remote wakeup. Injected
// rather than reached for directly, since the transport's HAL has no
// primitive for it; *device.Device exposes EnableRemoteWakeup and the
// caller wiring Agent up owns deciding how (or whether) to drive it.
type RemoteWakeupSender func()

// LampObserver is notified whenever the host's LED output report changes,
// so indicator-driving code (e.g. the RGB controller) can react without
// polling the transport itself.
type LampObserver interface {
	SetLampState(bits uint8)
}

// Agent adapts keymap key events into USB HID input reports over a
// *hid.HID transport, implementing keymap.Reporter. ReportPress and
// ReportRelease are called synchronously from the keymap dispatcher's
// goroutine; Agent only ever touches the shared report under its mutex
// and hands submission off to its own goroutine, so the dispatcher never
// blocks on a USB transfer.
type Agent struct {
	transport Transport
	wakeup    RemoteWakeupSender

	queue *ring

	mu         sync.Mutex
	keyboard   hid.KeyboardReport
	nkro       hid.NkroReport
	useNKRO    bool
	touched    map[uint8]struct{} // keycodes already applied since the last submit
	suspended  bool
	lampState  uint8
	lampObs    LampObserver
	suspendTmo fwtimer.OneShot
	accessTmo  fwtimer.OneShot
	accessible bool
	wakeupSent bool
}

// NewAgent creates an Agent driving reports over transport. The NKRO
// report format is used whenever the transport is in Report protocol,
// starting from the protocol it reports at construction (hid.New starts
// in Report protocol); in Boot protocol the 8-byte boot report is used.
func NewAgent(transport Transport, wakeup RemoteWakeupSender) *Agent {
	a := &Agent{
		transport:  transport,
		wakeup:     wakeup,
		queue:      newRing(),
		touched:    make(map[uint8]struct{}),
		accessible: true,
		useNKRO:    transport.Protocol() == hid.ProtocolReport,
	}
	transport.SetOnOutputReport(a.handleOutputReport)
	transport.SetOnSetProtocol(a.handleSetProtocol)
	return a
}

// Run drains the pending-event queue and submits reports until ctx is
// done. It is meant to run on a dedicated goroutine for the lifetime of
// the device.
func (a *Agent) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.queue.Ready():
		}
		a.drainAndSubmit(ctx)
	}
}

// ReportPress implements keymap.Reporter.
func (a *Agent) ReportPress(keycode uint8) {
	a.enqueue(event{keycode: keycode, press: true})
}

// ReportRelease implements keymap.Reporter.
func (a *Agent) ReportRelease(keycode uint8) {
	a.enqueue(event{keycode: keycode, press: false})
}

func (a *Agent) enqueue(ev event) {
	a.mu.Lock()
	suspended := a.suspended
	blocked := suspended || !a.accessible
	if suspended && !a.wakeupSent && a.wakeup != nil {
		a.wakeupSent = true
		a.suspendTmo.Start(suspendedEventLifetime, a.dropSuspendedEvents)
	}
	a.mu.Unlock()

	// While suspended (or not yet accessible after a resume), buffer
	// without blocking: a held key must not stall the dispatcher goroutine
	// waiting for a host that may never resume.
	a.queue.Push(ev, !blocked)

	if suspended && a.wakeup != nil {
		a.wakeup()
	}
}

func (a *Agent) dropSuspendedEvents() {
	a.queue.Clear()
}

// drainAndSubmit pops events and applies each to the shared report,
// coalescing multiple events into one submission where it is safe to do
// so. It stops coalescing just before it would merge a press with its own
// matching release into a single unsent report, which would hide that
// key's transition from the host entirely; that event is left at the
// front of the queue for the next report instead.
func (a *Agent) drainAndSubmit(ctx context.Context) {
	for {
		ev, ok := a.queue.Peek()
		if !ok {
			return
		}

		a.mu.Lock()
		if a.suspended || !a.accessible {
			a.mu.Unlock()
			return
		}

		if a.wouldCollapseWithPending(ev) {
			err := a.submitLocked(ctx)
			a.mu.Unlock()
			if err != nil {
				pkg.LogWarn(pkg.ComponentHID, "report submission failed", "err", err)
			}
			continue
		}

		a.queue.Pop()
		a.applyLocked(ev)
		a.mu.Unlock()

		// Keep coalescing while more events are already queued; otherwise
		// submit immediately for lowest latency on an isolated event.
		if a.queue.Len() == 0 {
			a.mu.Lock()
			err := a.submitLocked(ctx)
			a.mu.Unlock()
			if err != nil {
				pkg.LogWarn(pkg.ComponentHID, "report submission failed", "err", err)
			}
			return
		}
	}
}

// wouldCollapseWithPending reports whether ev's keycode has already had a
// transition applied to the shared report since the last submission: if
// so, applying ev now (its opposite transition, since UpdateKey already
// refuses a same-direction duplicate) would erase that earlier change from
// the host's view entirely instead of reporting both. Caller holds a.mu.
func (a *Agent) wouldCollapseWithPending(ev event) bool {
	_, touched := a.touched[ev.keycode]
	return touched
}

func (a *Agent) applyLocked(ev event) {
	if a.useNKRO {
		if a.transport.Protocol() == hid.ProtocolBoot {
			a.nkro.UpdateKeyBoot(ev.keycode, ev.press)
		} else {
			a.nkro.UpdateKey(ev.keycode, ev.press)
		}
	} else {
		a.keyboard.UpdateKey(ev.keycode, ev.press)
	}
	a.touched[ev.keycode] = struct{}{}
}

func (a *Agent) submitLocked(ctx context.Context) error {
	var err error
	if a.useNKRO {
		buf := make([]byte, hid.NKROReportSize)
		a.nkro.MarshalTo(buf)
		err = a.transport.SendReport(ctx, buf)
	} else {
		err = a.transport.SendKeyboardReport(ctx, &a.keyboard)
	}
	clear(a.touched)
	return err
}

func (a *Agent) handleOutputReport(data []byte) {
	if len(data) == 0 {
		return
	}
	a.mu.Lock()
	a.lampState = data[0]
	obs := a.lampObs
	a.mu.Unlock()
	if obs != nil {
		obs.SetLampState(data[0])
	}
}

// SetLampObserver registers obs to be notified of lamp-state (LED output
// report) changes from the host.
func (a *Agent) SetLampObserver(obs LampObserver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lampObs = obs
}

// LampState returns the most recently received LED output report byte.
func (a *Agent) LampState() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lampState
}

func (a *Agent) handleSetProtocol(protocol uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.useNKRO = protocol == hid.ProtocolReport
	a.keyboard.Clear()
	a.nkro.Clear()
}

// HandleSuspend puts the agent into suspend-buffering mode: further key
// events are queued instead of submitted, and each one raises a
// remote-wakeup request (the first also starts the suspended-event
// lifetime timer).
func (a *Agent) HandleSuspend() {
	a.mu.Lock()
	a.suspended = true
	a.wakeupSent = false
	a.accessible = false
	a.mu.Unlock()
	a.suspendTmo.Stop()
}

// HandleResume exits suspend-buffering mode. Live submission does not
// resume until delayAfterResumed has elapsed, giving the host time to
// finish re-enumerating the link before it sees input reports again.
func (a *Agent) HandleResume() {
	a.suspendTmo.Stop()
	a.accessTmo.Start(delayAfterResumed, a.markAccessible)
	a.mu.Lock()
	a.suspended = false
	a.mu.Unlock()
	a.queue.wake()
}

func (a *Agent) markAccessible() {
	a.mu.Lock()
	a.accessible = true
	a.mu.Unlock()
	a.queue.wake()
}

var _ Transport = (*hid.HID)(nil)
