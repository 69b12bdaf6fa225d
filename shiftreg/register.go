package shiftreg

import (
	"sync"

	"github.com/dropalt/keyboard-core/hub"
)

// Bit positions within the 16-bit shadow word, named after the signals
// they drive on the board.
const (
	CtrlHubConnect uint16 = 1 << 0 // VBUS connect signal to the USB hub, active high
	CtrlHubResetN  uint16 = 1 << 1 // hub reset, active low
	CtrlSUp        uint16 = 1 << 2 // upstream mux select: 0=USBC-1, 1=USBC-2
	CtrlEUpN       uint16 = 1 << 3 // upstream mux enable, active low
	CtrlSDn1       uint16 = 1 << 4 // downstream-1 mux select: 0=USBC-1, 1=USBC-2
	CtrlEDn1N      uint16 = 1 << 5 // downstream-1 mux enable, active low
	CtrlEVbus1     uint16 = 1 << 6 // 5V output enable to USBC-1, active high
	CtrlEVbus2     uint16 = 1 << 7 // 5V output enable to USBC-2, active high
	CtrlSrc1       uint16 = 1 << 8 // advertise source on USBC-1 CC lines
	CtrlSrc2       uint16 = 1 << 9 // advertise source on USBC-2 CC lines
	CtrlIRST       uint16 = 1 << 10 // reset the LED driver's I2C block, active high
	CtrlSDBN       uint16 = 1 << 11 // LED driver shutdown, active low
)

// safeDefaults is the bit pattern written before output is enabled:
// both muxes disabled, both source-advertise lines asserted, the LED
// driver held in reset.
const safeDefaults = CtrlEUpN | CtrlSDn1 | CtrlEDn1N | CtrlSrc1 | CtrlSrc2 | CtrlIRST

// HAL is the physical transport a Register pushes its shadow word
// through: a two-byte MSB-first SPI transfer, plus the output-enable
// line gating whether the shift register drives its outputs at all.
type HAL interface {
	TransferByte(b uint8)
	SetOutputEnabled(enabled bool)
}

// Register owns the 16-bit shadow word mirroring the board's shift
// register output expander. Every write modifies the shadow under
// lock and then pushes the whole word out over SPI, high byte first.
type Register struct {
	mu   sync.Mutex
	hal  HAL
	word uint16
}

// New returns a Register with its outputs disabled and the shadow word
// unset. Call Init to bring the register up to its safe power-on state.
func New(hal HAL) *Register {
	return &Register{hal: hal}
}

// Init disables shift-register output, pushes the safe default
// pattern, then enables output.
func (r *Register) Init() {
	r.hal.SetOutputEnabled(false)
	r.Write(safeDefaults, 0)
	r.hal.SetOutputEnabled(true)
}

// Write ORs in setBits, clears clearBits, and pushes the resulting
// word out over SPI high byte first. Callers combine both an enable
// and a select bit in one call so the mux never settles in a
// half-changed state between two separate pushes.
func (r *Register) Write(setBits, clearBits uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.word |= setBits
	r.word &^= clearBits
	r.hal.TransferByte(uint8(r.word >> 8))
	r.hal.TransferByte(uint8(r.word))
}

// Word returns the current shadow word, mainly for tests.
func (r *Register) Word() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.word
}

// DisableAllPorts implements hub.PortSwitch: both muxes disabled and
// both ports' VBUS output killed.
func (r *Register) DisableAllPorts() {
	r.Write(CtrlEUpN|CtrlEDn1N, CtrlEVbus1|CtrlEVbus2)
}

// EnableHostPort implements hub.PortSwitch: routes the upstream mux to
// port and enables it.
func (r *Register) EnableHostPort(port hub.Port) {
	set, clear := uint16(0), CtrlEUpN
	if port == hub.PortB {
		set |= CtrlSUp
	} else {
		clear |= CtrlSUp
	}
	r.Write(set, clear)
}

// EnableExtraVBUS implements hub.PortSwitch: routes the downstream-1
// mux to port and sets its VBUS output enable to enabled.
func (r *Register) EnableExtraVBUS(port hub.Port, enabled bool) {
	set, clear := uint16(0), CtrlEDn1N
	if port == hub.PortB {
		set |= CtrlSDn1
	} else {
		clear |= CtrlSDn1
	}
	vbus := CtrlEVbus1
	if port == hub.PortB {
		vbus = CtrlEVbus2
	}
	if enabled {
		set |= vbus
	} else {
		clear |= vbus
	}
	r.Write(set, clear)
}

// SetHubConnected drives the VBUS-connect signal to the upstream USB
// hub chip.
func (r *Register) SetHubConnected(connected bool) {
	if connected {
		r.Write(CtrlHubConnect, 0)
	} else {
		r.Write(0, CtrlHubConnect)
	}
}

// ResetHub holds the hub chip in reset while run is false.
func (r *Register) ResetHub(run bool) {
	if run {
		r.Write(CtrlHubResetN, 0)
	} else {
		r.Write(0, CtrlHubResetN)
	}
}

// SetSSDLock implements rgb.Driver's shutdown half: asserting locked
// drives the LED driver's shutdown line low.
func (r *Register) SetSSDLock(locked bool) {
	if locked {
		r.Write(0, CtrlSDBN)
	} else {
		r.Write(CtrlSDBN, 0)
	}
}

// ResetLEDDriver holds the LED driver's I2C block in reset while run
// is false.
func (r *Register) ResetLEDDriver(run bool) {
	if run {
		r.Write(0, CtrlIRST)
	} else {
		r.Write(CtrlIRST, 0)
	}
}

var _ hub.PortSwitch = (*Register)(nil)
