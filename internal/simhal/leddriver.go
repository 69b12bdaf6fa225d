package simhal

import (
	"sync/atomic"

	"github.com/dropalt/keyboard-core/pkg"
)

// LEDDriver stands in for the IS31-style RGB driver chip rgb.Controller
// writes through. Its shutdown line (SSD_N) is physically the shift
// register's SDB_N output, so SetSSDLock is wired to a delegate rather
// than simulated independently.
type LEDDriver struct {
	gcr        atomic.Uint32
	setSSDLock func(locked bool)
}

// NewLEDDriver returns an LED driver simulator whose shutdown line is
// driven through setSSDLock (normally *shiftreg.Register.SetSSDLock).
func NewLEDDriver(setSSDLock func(locked bool)) *LEDDriver {
	return &LEDDriver{setSSDLock: setSSDLock}
}

// SetGCR implements rgb.Driver.
func (l *LEDDriver) SetGCR(value uint8) {
	l.gcr.Store(uint32(value))
	pkg.LogDebug(pkg.ComponentRGB, "simhal: GCR register", "value", value)
}

// SetSSDLock implements rgb.Driver.
func (l *LEDDriver) SetSSDLock(locked bool) {
	l.setSSDLock(locked)
}

// GCR returns the last value written, for diagnostics.
func (l *LEDDriver) GCR() uint8 {
	return uint8(l.gcr.Load())
}
