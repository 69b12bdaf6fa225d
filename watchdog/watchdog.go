package watchdog

import (
	"sync/atomic"
	"time"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/pkg"
)

// heartbeatPeriod is how often Watchdog checks for liveness and, if
// present, kicks the hardware peripheral.
const heartbeatPeriod = time.Second

// HAL is the hardware watchdog peripheral: Kick postpones its reset
// deadline, ResetToBootloader forces an immediate reset that lands in
// the DFU bootloader rather than the application.
type HAL interface {
	Kick()
	ResetToBootloader()
}

// BootReasonRecorder persists why a deliberate reset is about to
// happen, so it is observable after reboot. Satisfied by
// *settings.Store.
type BootReasonRecorder interface {
	SetBootReason(reason string)
}

// Watchdog tracks liveness of whatever loop calls Touch and kicks hal
// once per heartbeatPeriod only while that loop keeps up.
type Watchdog struct {
	hal   HAL
	alive atomic.Bool
	timer fwtimer.OneShot
}

// New returns a Watchdog that has not yet been armed.
func New(hal HAL) *Watchdog {
	return &Watchdog{hal: hal}
}

// Touch marks the protected loop as having made progress since the
// last heartbeat tick. Call this once per iteration of the loop being
// guarded.
func (w *Watchdog) Touch() {
	w.alive.Store(true)
}

// Arm starts the heartbeat timer. The first tick always kicks, giving
// the protected loop a full period to call Touch before being judged.
func (w *Watchdog) Arm() {
	w.alive.Store(true)
	w.timer.Start(heartbeatPeriod, w.tick)
}

// Disarm stops the heartbeat timer, after which the hardware
// peripheral's own timeout (if still running) is what determines
// whether it resets.
func (w *Watchdog) Disarm() {
	w.timer.Stop()
}

func (w *Watchdog) tick() {
	if w.alive.Swap(false) {
		w.hal.Kick()
		w.timer.Start(heartbeatPeriod, w.tick)
		return
	}
	pkg.LogError(pkg.ComponentWatchdog, "missed heartbeat, withholding kick")
}

// ResetNow records reason (if recorder is non-nil) and immediately
// forces a reset into the bootloader, bypassing the heartbeat
// mechanism entirely. Used by the fatal-error path and DFU_DETACH.
func (w *Watchdog) ResetNow(reason string, recorder BootReasonRecorder) {
	w.Disarm()
	if recorder != nil {
		recorder.SetBootReason(reason)
	}
	pkg.LogError(pkg.ComponentWatchdog, "forcing reset", "reason", reason)
	w.hal.ResetToBootloader()
}
