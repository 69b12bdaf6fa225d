package shiftreg

import (
	"sync"
	"time"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/hub"
)

// blinkPeriod is how long the status LED stays in each phase while
// blinking.
const blinkPeriod = 500 * time.Millisecond

// GPIO is the single output line the status LED is wired to.
type GPIO interface {
	Set(on bool)
}

// StatusLED implements hub.StatusBlinker by toggling a GPIO line on a
// self-rearming timer while blinking, and holding it off otherwise.
type StatusLED struct {
	mu       sync.Mutex
	gpio     GPIO
	blinking bool
	on       bool
	timer    fwtimer.OneShot
}

// NewStatusLED returns a StatusLED with its line held off.
func NewStatusLED(gpio GPIO) *StatusLED {
	return &StatusLED{gpio: gpio}
}

// SetBlinking implements hub.StatusBlinker. Turning blinking on starts
// the toggle from lit; turning it off stops the timer and drives the
// line low.
func (s *StatusLED) SetBlinking(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blinking = on
	if !on {
		s.timer.Stop()
		s.on = false
		s.gpio.Set(false)
		return
	}
	s.on = true
	s.gpio.Set(true)
	s.timer.Start(blinkPeriod, s.tick)
}

func (s *StatusLED) tick() {
	s.mu.Lock()
	if !s.blinking {
		s.mu.Unlock()
		return
	}
	s.on = !s.on
	on := s.on
	s.timer.Start(blinkPeriod, s.tick)
	s.mu.Unlock()

	s.gpio.Set(on)
}

var _ hub.StatusBlinker = (*StatusLED)(nil)
