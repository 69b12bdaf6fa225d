package simhal

import (
	"sync/atomic"

	"github.com/dropalt/keyboard-core/pkg"
)

// StatusLEDLine stands in for the GPIO pin shiftreg.StatusLED drives.
type StatusLEDLine struct {
	on atomic.Bool
}

// NewStatusLEDLine returns a status LED line simulator, initially low.
func NewStatusLEDLine() *StatusLEDLine {
	return &StatusLEDLine{}
}

// Set implements shiftreg.GPIO.
func (s *StatusLEDLine) Set(on bool) {
	s.on.Store(on)
	pkg.LogDebug(pkg.ComponentHub, "simhal: status LED", "on", on)
}

// On reports the line's current simulated state.
func (s *StatusLEDLine) On() bool {
	return s.on.Load()
}
