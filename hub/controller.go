package hub

import (
	"sync"

	"github.com/dropalt/keyboard-core/fwtimer"
	"github.com/dropalt/keyboard-core/keymap"
	"github.com/dropalt/keyboard-core/pkg"
)

// Controller owns the port state machine. It implements
// keymap.SwitchoverRequester.
type Controller struct {
	mu sync.Mutex

	state     State
	hostPort  Port
	extraPort Port

	candidate Port // DetermineHost only: port currently being probed

	panicDisabled   bool
	enabledManually bool

	ports   PortSwitch
	vcon    VConReader
	led     StatusBlinker
	persist PortPersistence

	determineTimer fwtimer.OneShot
	cutTimer       fwtimer.OneShot
}

// NewController creates a Controller and immediately enters DetermineHost.
func NewController(ports PortSwitch, vcon VConReader, led StatusBlinker, persist PortPersistence) *Controller {
	c := &Controller{ports: ports, vcon: vcon, led: led, persist: persist}
	c.mu.Lock()
	c.enterDetermineHost()
	c.mu.Unlock()
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HostPort returns the port currently acting as host uplink. Only
// meaningful once the controller has left DetermineHost.
func (c *Controller) HostPort() Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostPort
}

// --- DetermineHost ---

// enterDetermineHost must be called with c.mu held.
func (c *Controller) enterDetermineHost() {
	c.state = StateDetermineHost
	c.panicDisabled = false
	c.ports.DisableAllPorts()
	c.led.SetBlinking(true)

	if last, ok := c.persist.LoadLastHostPort(); ok {
		c.candidate = last
	} else {
		c.candidate = PortA
	}

	pkg.LogInfo(pkg.ComponentHub, "determining host port", "candidate", c.candidate)
	go c.determineTick(c.candidate)
}

// determineTick issues a blocking measurement of port and reports the
// result back to the controller. It is started as its own goroutine (at
// entry) or from determineTimer's callback goroutine (on retry), never
// while c.mu is held, matching MeasureSync's documented contract.
func (c *Controller) determineTick(port Port) {
	connected := c.vcon.MeasureSync(port)
	c.onDetermineMeasurement(port, connected)
}

func (c *Controller) onDetermineMeasurement(port Port, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDetermineHost || port != c.candidate {
		return // stale result from a superseded attempt
	}

	if connected {
		c.transitionToSuspendedLocked(port)
		return
	}

	c.candidate = c.candidate.Other()
	next := c.candidate
	c.determineTimer.Start(determineHostRetryPeriod, func() {
		c.determineTick(next)
	})
}

// transitionToSuspendedLocked assigns hostPort/extraPort and enters
// Suspended. Caller holds c.mu.
func (c *Controller) transitionToSuspendedLocked(host Port) {
	c.determineTimer.Stop()
	c.hostPort = host
	c.extraPort = host.Other()
	c.ports.EnableHostPort(host)
	c.persist.SaveLastHostPort(host)
	c.vcon.CancelPeriodicMeasurement(c.hostPort)
	c.vcon.StartPeriodicMeasurement(c.extraPort)
	c.led.SetBlinking(true)
	c.state = StateSuspended
	pkg.LogInfo(pkg.ComponentHub, "host port acquired", "port", host)
}

// --- USB lifecycle ---

// HandleUSBSuspend transitions ExtraDisabled/ExtraEnabled into Suspended.
// DetermineHost ignores it: it has no host to lose yet.
func (c *Controller) HandleUSBSuspend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateExtraDisabled, StateExtraEnabled:
		c.cutTimer.Stop()
		c.vcon.CancelPeriodicMeasurement(c.extraPort)
		c.led.SetBlinking(true)
		c.state = StateSuspended
		c.panicDisabled = false
		pkg.LogInfo(pkg.ComponentHub, "usb suspended")
	}
}

// HandleUSBResume transitions Suspended into ExtraDisabled or
// ExtraEnabled depending on whether a device is already on the extra
// port.
func (c *Controller) HandleUSBResume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSuspended {
		return
	}

	c.vcon.StartPeriodicMeasurement(c.extraPort)
	if c.vcon.IsDeviceConnected(c.extraPort) && !c.panicDisabled {
		c.enterExtraEnabledLocked()
	} else {
		c.enterExtraDisabledLocked()
	}
}

// HandleUSBReset checks for cable-break while Suspended: if the host port
// no longer reads as a host, automatic switchover kicks off a fresh
// power-up-style detection.
func (c *Controller) HandleUSBReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSuspended {
		return
	}
	if c.vcon.IsHostConnected(c.hostPort) {
		return
	}
	pkg.LogWarn(pkg.ComponentHub, "cable break detected, redetermining host")
	c.enterDetermineHost()
}

// --- ExtraDisabled / ExtraEnabled ---

func (c *Controller) enterExtraDisabledLocked() {
	c.enabledManually = false
	c.ports.EnableExtraVBUS(c.extraPort, false)
	c.state = StateExtraDisabled
	c.led.SetBlinking(false)
	pkg.LogInfo(pkg.ComponentHub, "extra port disabled")
}

func (c *Controller) enterExtraEnabledLocked() {
	c.ports.EnableExtraVBUS(c.extraPort, true)
	c.state = StateExtraEnabled
	c.led.SetBlinking(false)
	pkg.LogInfo(pkg.ComponentHub, "extra port enabled")
}

// OnVConSample is called by the adc package whenever a fresh periodic
// classification of the extra port is available.
func (c *Controller) OnVConSample(port Port) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if port != c.extraPort {
		return
	}

	switch c.state {
	case StateExtraDisabled:
		connected := c.vcon.IsDeviceConnected(port)
		if !connected && c.panicDisabled {
			c.panicDisabled = false // latch clears once the device is unplugged
			pkg.LogInfo(pkg.ComponentHub, "panic-disable latch cleared")
		}
		if !c.panicDisabled && connected {
			c.enterExtraEnabledLocked()
		}
	case StateExtraEnabled:
		if !c.enabledManually && !c.vcon.IsDeviceConnected(port) {
			c.enterExtraDisabledLocked()
		}
	}
}

// OnV5VLevel is called by the adc package with the classified 5V rail
// level. Only ExtraEnabled watches it: a sustained drop below stable
// trips the brownout watchdog and panic-disables the extra port.
func (c *Controller) OnV5VLevel(level V5VLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateExtraEnabled {
		return
	}

	if level.stable() {
		c.cutTimer.Stop()
		return
	}

	c.cutTimer.Start(graceTimeToCutExtra, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state != StateExtraEnabled {
			return
		}
		pkg.LogWarn(pkg.ComponentHub, "V5V brownout, disabling extra port")
		c.panicDisabled = true
		c.enterExtraDisabledLocked()
	})
}

// EnableExtraManually forces the extra port on even without a detected
// device, and marks it so automatic disconnect detection stops acting on
// it until ExtraBackToAutomatic is called.
func (c *Controller) EnableExtraManually() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateExtraDisabled && c.state != StateExtraEnabled {
		return
	}
	c.panicDisabled = false
	c.enabledManually = true
	if c.state != StateExtraEnabled {
		c.enterExtraEnabledLocked()
	}
}

// ExtraBackToAutomatic releases manual override; the next disconnect (or
// an already-absent device) lets automatic control resume.
func (c *Controller) ExtraBackToAutomatic() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateExtraEnabled {
		return
	}
	c.enabledManually = false
	if !c.vcon.IsDeviceConnected(c.extraPort) {
		c.enterExtraDisabledLocked()
	}
}

// RequestSwitchover implements keymap.SwitchoverRequester. It is rejected
// outright if the current extra port has a device attached, to avoid
// yanking a peripheral the user is actively using; otherwise the host and
// extra designations swap and the controller settles into Suspended on
// the new host port.
func (c *Controller) RequestSwitchover() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDetermineHost {
		return // nothing to swap yet
	}
	if c.vcon.IsDeviceConnected(c.extraPort) {
		pkg.LogWarn(pkg.ComponentHub, "switchover rejected: extra device attached")
		return
	}

	c.vcon.CancelPeriodicMeasurement(c.extraPort)
	newHost := c.extraPort
	c.ports.DisableAllPorts()
	c.transitionToSuspendedLocked(newHost)
}

var _ keymap.SwitchoverRequester = (*Controller)(nil)
