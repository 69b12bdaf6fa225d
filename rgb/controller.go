package rgb

import (
	"sync"
	"sync/atomic"

	"github.com/dropalt/keyboard-core/adc"
	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/keymap"
	"github.com/dropalt/keyboard-core/pkg"
)

// MaxGCR is the highest value the desired GCR may be set to.
const MaxGCR uint8 = 255

// Driver is the IS31-style LED driver register interface Controller
// writes through.
type Driver interface {
	SetGCR(value uint8)
	SetSSDLock(locked bool)
}

// Controller tracks a current GCR toward a desired GCR, one step per
// OnV5VLevel call, and drives Driver accordingly.
type Controller struct {
	mu         sync.Mutex
	driver     Driver
	enabled    bool
	currentGCR uint8
	desiredGCR uint8

	// lastActivity is bumped by SignalKeyEvent; exposed for consumers
	// (e.g. an idle-dimming policy) that want to know when the board was
	// last typed on. Stored as a monotonically increasing counter rather
	// than a timestamp since this package never calls time.Now() itself.
	lastActivity atomic.Uint64
}

// NewController returns a disabled Controller with its desired GCR set
// to MaxGCR, mirroring rgb_gcr's static initializer.
func NewController(driver Driver) *Controller {
	return &Controller{driver: driver, desiredGCR: MaxGCR}
}

// Enable turns the ramp on. It does not itself change current or
// desired GCR.
func (c *Controller) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable immediately zeroes GCR and asserts software shutdown,
// bypassing the gradual ramp.
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.enabled = false
	c.currentGCR = 0
	c.driver.SetGCR(0)
	c.driver.SetSSDLock(true)
}

// IsEnabled reports whether the ramp is active.
func (c *Controller) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetDesired sets the target GCR the ramp works toward, capped at
// MaxGCR.
func (c *Controller) SetDesired(desired uint8) {
	if desired > MaxGCR {
		desired = MaxGCR
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desiredGCR = desired
}

// CurrentGCR returns the last GCR value written to the driver.
func (c *Controller) CurrentGCR() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentGCR
}

// OnV5VLevel implements adc.V5VObserver: one ramp step per report.
// Current is decremented (toward zero, asserting shutdown once it gets
// there) whenever the rail reads below Mid or current already exceeds
// desired; otherwise it is incremented toward desired, releasing
// shutdown on the first step off zero.
func (c *Controller) OnV5VLevel(level hub.V5VLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	switch {
	case level < hub.V5VMid || c.currentGCR > c.desiredGCR:
		if c.currentGCR == 0 {
			return
		}
		c.currentGCR--
		c.driver.SetGCR(c.currentGCR)
		if c.currentGCR == 0 {
			c.driver.SetSSDLock(true)
		}

	case c.currentGCR < c.desiredGCR:
		if c.currentGCR == 0 {
			c.driver.SetSSDLock(false)
		}
		c.currentGCR++
		c.driver.SetGCR(c.currentGCR)
	}
}

// HandleUSBSuspend forces the desired GCR to zero immediately, letting
// the next few ramp steps dim the board out while suspended.
func (c *Controller) HandleUSBSuspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desiredGCR = 0
}

// SignalKeyEvent implements keymap.LampNotifier. The GCR ramp itself does
// not react per-key; this only records typing activity for idle-policy
// consumers, logged at debug level rather than driving any per-key
// animation, which is out of scope for the brightness controller.
func (c *Controller) SignalKeyEvent(slot uint8, press bool) {
	c.lastActivity.Add(1)
	pkg.LogDebug(pkg.ComponentRGB, "key activity", "slot", slot, "press", press)
}

// ActivityCount returns the number of key events observed so far.
func (c *Controller) ActivityCount() uint64 {
	return c.lastActivity.Load()
}

var (
	_ keymap.LampNotifier = (*Controller)(nil)
	_ adc.V5VObserver     = (*Controller)(nil)
)
