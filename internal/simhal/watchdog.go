package simhal

import (
	"os"

	"github.com/dropalt/keyboard-core/pkg"
)

// Watchdog stands in for the hardware watchdog timer peripheral: it has
// no free-running counter to kick, so Kick is a no-op observation point
// and ResetToBootloader does what a real bootloader jump would
// accomplish for a daemon: exit so a supervisor can relaunch it.
type Watchdog struct{}

// NewWatchdog returns a watchdog peripheral simulator.
func NewWatchdog() *Watchdog {
	return &Watchdog{}
}

// Kick implements watchdog.HAL.
func (w *Watchdog) Kick() {
	pkg.LogDebug(pkg.ComponentWatchdog, "simhal: watchdog kicked")
}

// ResetToBootloader implements watchdog.HAL.
func (w *Watchdog) ResetToBootloader() {
	pkg.LogWarn(pkg.ComponentWatchdog, "simhal: forcing reset to bootloader, exiting process")
	os.Exit(1)
}
