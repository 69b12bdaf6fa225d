package simhal

import (
	"sync"

	"github.com/dropalt/keyboard-core/pkg"
)

// ShiftRegister stands in for the SPI-pushed shift-register output
// expander: it has nothing physical to drive, so it just remembers the
// bytes it was asked to transfer for inspection/logging.
type ShiftRegister struct {
	mu      sync.Mutex
	enabled bool
	last    [2]uint8
	nbytes  int
}

// NewShiftRegister returns a shift register simulator with its output
// initially disabled, matching a cold board before shiftreg.Register.Init
// runs.
func NewShiftRegister() *ShiftRegister {
	return &ShiftRegister{}
}

// TransferByte implements shiftreg.HAL.
func (s *ShiftRegister) TransferByte(b uint8) {
	s.mu.Lock()
	s.last[0], s.last[1] = s.last[1], b
	s.nbytes++
	s.mu.Unlock()
	pkg.LogDebug(pkg.ComponentHub, "simhal: shift register byte", "value", b)
}

// SetOutputEnabled implements shiftreg.HAL.
func (s *ShiftRegister) SetOutputEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	pkg.LogDebug(pkg.ComponentHub, "simhal: shift register output enable", "enabled", enabled)
}

// Word returns the last two transferred bytes as a 16-bit word
// (high byte first), for tests or diagnostics that want to inspect
// the simulated register's settled state.
func (s *ShiftRegister) Word() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint16(s.last[0])<<8 | uint16(s.last[1])
}
