package simhal

import (
	"sync/atomic"

	"github.com/dropalt/keyboard-core/adc"
)

// ADC stands in for the shared ADC peripheral. It reports a fixed
// reading per channel that can be changed at runtime (e.g. from a REPL
// or a future fault-injection hook), defaulting to "host present on
// port A, nothing else connected, 5V rail healthy" so a simulated boot
// settles into a usable state without operator input.
type ADC struct {
	readings [3]atomic.Int32
}

// NewADC returns an ADC simulator calibrated to the same nominal/
// threshold constants adc.defaultCalibration uses, with port A reading
// as a connected host and the 5V rail reading fully stable.
func NewADC() *ADC {
	a := &ADC{}
	a.readings[adc.ChannelVCon1].Store(3300) // above hostConnectedMin: host on port A
	a.readings[adc.ChannelVCon2].Store(2048) // nominal: nothing on the extra port
	a.readings[adc.ChannelV5V].Store(3700)   // above v5vMidMax: V5VHigh
	return a
}

// Convert implements adc.HAL.
func (a *ADC) Convert(ch adc.Channel) int32 {
	return a.readings[ch].Load()
}

// SetReading overrides ch's simulated raw reading, for exercising hub
// transitions (device plugged into the extra port, brownout, etc.)
// without real hardware.
func (a *ADC) SetReading(ch adc.Channel, raw int32) {
	a.readings[ch].Store(raw)
}
