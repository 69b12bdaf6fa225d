package adc

import (
	"time"

	"github.com/dropalt/keyboard-core/hub"
)

// extraMeasuringPeriod is how often the extra port's CC-sense line and
// the 5V rail are sampled while any channel is scheduled for periodic
// measurement.
const extraMeasuringPeriod = 5 * time.Millisecond

// Channel identifies one of the three analog inputs sampled through the
// shared ADC peripheral.
type Channel uint8

const (
	ChannelVCon1 Channel = iota
	ChannelVCon2
	ChannelV5V
)

// HAL abstracts the ADC peripheral. Convert blocks for the duration of a
// single conversion; Agent serializes all calls to it since real
// hardware shares one converter across channels.
type HAL interface {
	Convert(ch Channel) int32
}

// VConObserver is notified whenever a fresh periodic CC-sense reading is
// available for the currently-designated extra port.
type VConObserver interface {
	OnVConSample(port hub.Port)
}

// V5VObserver is notified whenever a fresh 5V rail classification is
// available.
type V5VObserver interface {
	OnV5VLevel(level hub.V5VLevel)
}

// calibration holds the design-level constants used to classify a
// CC-sense channel's raw reading, calibrated at assembly: nominal is the
// no-device baseline, changeThreshold is the deviation that indicates a
// sink (device) or source (host) on the line, and hostConnectedMin is
// the minimum reading that counts as a host sourcing VBUS while this
// channel's port is configured in source mode.
type calibration struct {
	nominal          int32
	changeThreshold  int32
	hostConnectedMin int32
}

// Default CC-sense calibration, identical for both ports since they are
// electrically symmetric; kept as a var (not const) so a board variant
// can override it before constructing an Agent.
var defaultCalibration = calibration{
	nominal:          2048,
	changeThreshold:  300,
	hostConnectedMin: 3000,
}

func (c calibration) isDeviceConnected(raw int32) bool {
	return raw < c.nominal-c.changeThreshold
}

func (c calibration) isHostConnected(raw int32) bool {
	return raw >= c.hostConnectedMin
}

// V5V rail classification thresholds, ascending. A raw reading below
// v5vPanicMax is an immediate brownout; at or above v5vMidMax the rail is
// considered fully healthy.
const (
	v5vPanicMax     = 2800
	v5vUnstableMax  = 3100
	v5vLowStableMax = 3300
	v5vMidMax       = 3600
)

func classifyV5V(raw int32) hub.V5VLevel {
	switch {
	case raw < v5vPanicMax:
		return hub.V5VPanic
	case raw < v5vUnstableMax:
		return hub.V5VUnstable
	case raw < v5vLowStableMax:
		return hub.V5VLowStable
	case raw < v5vMidMax:
		return hub.V5VMid
	default:
		return hub.V5VHigh
	}
}

func channelForPort(port hub.Port) Channel {
	if port == hub.PortA {
		return ChannelVCon1
	}
	return ChannelVCon2
}

func portForChannel(ch Channel) hub.Port {
	if ch == ChannelVCon1 {
		return hub.PortA
	}
	return hub.PortB
}
