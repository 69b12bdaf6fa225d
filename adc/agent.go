package adc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/pkg"
)

// Agent serializes conversions through a single HAL and classifies them
// for the hub package, which it satisfies as a hub.VConReader. The host
// port's CC-sense line is measured only on demand (MeasureSync); the
// extra port's CC-sense line and the 5V rail are measured on the
// periodic schedule run by Run, gated per-channel by
// Start/CancelPeriodicMeasurement.
type Agent struct {
	hal HAL

	convMu sync.Mutex // serializes HAL.Convert issuance

	raw      [2]atomic.Int32 // last raw CC-sense reading, indexed by Channel
	v5vRaw   atomic.Int32
	periodic [2]atomic.Bool // per-CC-channel periodic-schedule membership

	calib [2]calibration

	vconObs VConObserver
	v5vObs  V5VObserver
}

// NewAgent returns an Agent sampling through hal. vconObs and v5vObs may
// be nil (e.g. in tests exercising MeasureSync/IsHostConnected directly
// without a running schedule).
func NewAgent(hal HAL, vconObs VConObserver, v5vObs V5VObserver) *Agent {
	return &Agent{
		hal:     hal,
		calib:   [2]calibration{defaultCalibration, defaultCalibration},
		vconObs: vconObs,
		v5vObs:  v5vObs,
	}
}

// Run samples the 5V rail and every periodically-scheduled CC-sense
// channel every extraMeasuringPeriod until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(extraMeasuringPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.sampleV5V()
			if a.periodic[ChannelVCon1].Load() {
				a.sampleVCon(ChannelVCon1)
			}
			if a.periodic[ChannelVCon2].Load() {
				a.sampleVCon(ChannelVCon2)
			}
		}
	}
}

func (a *Agent) convert(ch Channel) int32 {
	a.convMu.Lock()
	defer a.convMu.Unlock()
	return a.hal.Convert(ch)
}

func (a *Agent) sampleVCon(ch Channel) {
	v := a.convert(ch)
	a.raw[ch].Store(v)
	if a.vconObs != nil {
		a.vconObs.OnVConSample(portForChannel(ch))
	}
}

func (a *Agent) sampleV5V() {
	v := a.convert(ChannelV5V)
	a.v5vRaw.Store(v)
	level := classifyV5V(v)
	pkg.LogDebug(pkg.ComponentADC, "v5v sample", "raw", v, "level", level)
	if a.v5vObs != nil {
		a.v5vObs.OnV5VLevel(level)
	}
}

// MeasureSync implements hub.VConReader: a blocking on-demand conversion
// of port's CC-sense line, classified against the host-connected
// threshold.
func (a *Agent) MeasureSync(port hub.Port) bool {
	ch := channelForPort(port)
	v := a.convert(ch)
	a.raw[ch].Store(v)
	return a.calib[ch].isHostConnected(v)
}

// IsHostConnected implements hub.VConReader using the last reading taken
// for port, without issuing a fresh conversion.
func (a *Agent) IsHostConnected(port hub.Port) bool {
	ch := channelForPort(port)
	return a.calib[ch].isHostConnected(a.raw[ch].Load())
}

// IsDeviceConnected implements hub.VConReader using the last reading
// taken for port.
func (a *Agent) IsDeviceConnected(port hub.Port) bool {
	ch := channelForPort(port)
	return a.calib[ch].isDeviceConnected(a.raw[ch].Load())
}

// StartPeriodicMeasurement implements hub.VConReader.
func (a *Agent) StartPeriodicMeasurement(port hub.Port) {
	a.periodic[channelForPort(port)].Store(true)
}

// CancelPeriodicMeasurement implements hub.VConReader.
func (a *Agent) CancelPeriodicMeasurement(port hub.Port) {
	a.periodic[channelForPort(port)].Store(false)
}

// V5VLevel returns the most recently classified 5V rail level, for
// consumers (e.g. the rgb package) that want the current level without
// subscribing as a V5VObserver.
func (a *Agent) V5VLevel() hub.V5VLevel {
	return classifyV5V(a.v5vRaw.Load())
}

var _ hub.VConReader = (*Agent)(nil)
