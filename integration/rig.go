// Package integration wires a full in-process device stack against a real
// USB host stack over the FIFO transport, so the keymap/HID pipeline can be
// exercised end to end the same way cmd/keyboard is, without a subprocess
// or real silicon on either side.
package integration

import (
	"context"
	"fmt"

	"github.com/dropalt/keyboard-core/adc"
	"github.com/dropalt/keyboard-core/device"
	"github.com/dropalt/keyboard-core/device/class/hid"
	devicefifo "github.com/dropalt/keyboard-core/device/hal/fifo"
	"github.com/dropalt/keyboard-core/hidreport"
	"github.com/dropalt/keyboard-core/host"
	hostfifo "github.com/dropalt/keyboard-core/host/hal/fifo"
	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/internal/simhal"
	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/keymap"
	"github.com/dropalt/keyboard-core/pkg"
	"github.com/dropalt/keyboard-core/rgb"
	"github.com/dropalt/keyboard-core/settings"
	"github.com/dropalt/keyboard-core/shiftreg"
)

// nvmSize matches cmd/keyboard's simulated settings region.
const nvmSize = 512

// alwaysIdle stands in for a real matrix.Agent: scenarios push directly
// into the event queue, so the dispatcher's switchover-idle check never
// needs to consult an actual matrix scan.
type alwaysIdle struct{}

func (alwaysIdle) IsAnyPressed() bool { return false }

// rig is one device-side stack, matching cmd/keyboard/main.go's wiring
// minus the matrix scanner and CDC/DFU extras, plus the host-side stack
// that talks to it over a shared FIFO bus directory.
type rig struct {
	queue      *keyevent.Queue
	dispatcher *keymap.Dispatcher
	hidAgent   *hidreport.Agent
	dev        *device.Device
	stack      *device.Stack

	usbHost *host.Host
	hostDev *host.Device
	inEP    uint8
}

// newRig builds both sides of the link against busDir and returns once the
// host has enumerated the device. Callers must defer rig.close.
func newRig(ctx context.Context, busDir string) (*rig, error) {
	srHAL := simhal.NewShiftRegister()
	statusLine := simhal.NewStatusLEDLine()
	adcHAL := simhal.NewADC()

	nvm, err := simhal.NewNVM(nvmSize, "")
	if err != nil {
		return nil, fmt.Errorf("nvm: %w", err)
	}

	shiftRegister := shiftreg.New(srHAL)
	shiftRegister.Init()
	statusLED := shiftreg.NewStatusLED(statusLine)

	settingsStore := settings.New(nvm)
	if err := settingsStore.Load(); err != nil {
		return nil, fmt.Errorf("settings load: %w", err)
	}

	vconFwd := &vconForwarder{}
	v5vFwd := &v5vForwarder{}
	adcAgent := adc.NewAgent(adcHAL, vconFwd, v5vFwd)

	hubController := hub.NewController(shiftRegister, adcAgent, statusLED, settingsStore)
	vconFwd.set(hubController)

	ledDriver := simhal.NewLEDDriver(shiftRegister.SetSSDLock)
	rgbController := rgb.NewController(ledDriver)
	v5vFwd.add(hubController.OnV5VLevel)
	v5vFwd.add(rgbController.OnV5VLevel)
	rgbController.Enable()

	queue := keyevent.New()
	dispatcher := keymap.NewDispatcher(queue, rgbController, hubController, alwaysIdle{})

	hidInstance := hid.New(hid.NkroReportDescriptor)

	builder := device.NewDeviceBuilder().
		WithVendorProduct(0x1234, 0x0001).
		WithStrings("dropalt", "keyboard-core", "000000000001").
		AddConfiguration(1)
	builder.AddInterface(hid.ClassHID, hid.SubclassBoot, hid.ProtocolKeyboard)
	builder.AddEndpoint(0x81|device.EndpointDirectionIn, device.EndpointTypeInterrupt, hid.NKROReportSize)

	dev, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build device: %w", err)
	}
	if err := hidInstance.AttachToInterface(dev, 1, 0); err != nil {
		return nil, fmt.Errorf("attach hid: %w", err)
	}

	transportHAL := devicefifo.New(busDir)
	stack := device.NewStack(dev, transportHAL)
	hidInstance.SetStack(stack)

	wakeup := func() {
		if dev.IsSuspended() && dev.IsRemoteWakeupEnabled() {
			dev.Resume()
		}
	}
	hidAgent := hidreport.NewAgent(hidInstance, wakeup)

	dev.SetOnSuspend(func() {
		hidAgent.HandleSuspend()
		rgbController.HandleUSBSuspend()
		hubController.HandleUSBSuspend()
	})
	dev.SetOnResume(func() {
		hidAgent.HandleResume()
		hubController.HandleUSBResume()
	})

	go adcAgent.Run(ctx)
	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			pkg.LogDebug(pkg.ComponentKeymap, "dispatcher stopped", "error", err)
		}
	}()
	go hidAgent.Run(ctx)

	if err := stack.Start(ctx); err != nil {
		return nil, fmt.Errorf("start device stack: %w", err)
	}

	usbHost := host.New(hostfifo.NewHostHAL(busDir))
	if err := usbHost.Start(ctx); err != nil {
		stack.Stop()
		return nil, fmt.Errorf("start host: %w", err)
	}

	hostDev, err := usbHost.WaitDevice(ctx)
	if err != nil {
		usbHost.Stop()
		stack.Stop()
		return nil, fmt.Errorf("wait device: %w", err)
	}

	var inEP uint8
	for _, ep := range hostDev.Endpoints() {
		if ep.IsInterrupt() && ep.IsIn() {
			inEP = ep.EndpointAddress
			break
		}
	}
	if inEP == 0 {
		usbHost.Stop()
		stack.Stop()
		return nil, fmt.Errorf("no interrupt IN endpoint found")
	}

	return &rig{
		queue:      queue,
		dispatcher: dispatcher,
		hidAgent:   hidAgent,
		dev:        dev,
		stack:      stack,
		usbHost:    usbHost,
		hostDev:    hostDev,
		inEP:       inEP,
	}, nil
}

func (r *rig) close() {
	r.usbHost.Stop()
	r.stack.Stop()
}

// bind attaches node to slot on the device-side keymap.
func (r *rig) bind(slot uint8, node keymap.Node) {
	r.dispatcher.Bind(slot, node)
}

// press pushes a debounced press/release event for slot directly into the
// event queue, standing in for a matrix scan.
func (r *rig) press(slot uint8, down bool) error {
	return r.queue.Push(keyevent.Event{Slot: slot, Press: down}, 0)
}

// readReport blocks for one interrupt transfer from the device and decodes
// it as an NKRO report, returning the raw modifier byte and the set of
// non-modifier keycodes currently marked pressed in the bitmap.
func (r *rig) readReport(ctx context.Context) (modifiers uint8, keys []uint8, err error) {
	buf := make([]byte, hid.NKROReportSize)
	n, err := r.hostDev.InterruptTransfer(ctx, r.inEP, buf)
	if err != nil {
		return 0, nil, err
	}
	if n < hid.NKROReportSize {
		return 0, nil, fmt.Errorf("short report: %d bytes", n)
	}
	modifiers = buf[0]
	for kc := 0; kc < hid.NKROKeyBits*8; kc++ {
		byteIdx := 1 + kc>>3
		if buf[byteIdx]&(1<<(uint(kc)&7)) != 0 {
			keys = append(keys, uint8(kc))
		}
	}
	return modifiers, keys, nil
}

// vconForwarder and v5vForwarder break the construction cycle between
// hub.Controller and adc.Agent, mirroring cmd/keyboard/wiring.go.
type vconForwarder struct {
	target *hub.Controller
}

func (f *vconForwarder) set(c *hub.Controller) {
	f.target = c
}

func (f *vconForwarder) OnVConSample(port hub.Port) {
	if f.target != nil {
		f.target.OnVConSample(port)
	}
}

type v5vForwarder struct {
	targets []func(hub.V5VLevel)
}

func (f *v5vForwarder) add(fn func(hub.V5VLevel)) {
	f.targets = append(f.targets, fn)
}

func (f *v5vForwarder) OnV5VLevel(level hub.V5VLevel) {
	for _, fn := range f.targets {
		fn(level)
	}
}
