// Package dfu implements the device side of the USB DFU 1.1 runtime
// interface: enough for a host-side DFU tool to find the interface and
// issue DFU_DETACH, which hands off to whatever actually reboots into
// the bootloader. No other DFU request is served in application mode;
// a real firmware download happens against the bootloader's own DFU
// interface after the detach/reconnect, not this one.
package dfu

import (
	"github.com/dropalt/keyboard-core/device"
	"github.com/dropalt/keyboard-core/pkg"
)

// Application-specific class codes for the DFU runtime interface
// (USB DFU 1.1 spec, section 4.2).
const (
	ClassApplicationSpecific = 0xFE
	SubclassDFU              = 0x01
	ProtocolRuntime          = 0x01
)

// DFU class request codes (USB DFU 1.1 spec, section 3).
const (
	RequestDetach    = 0x00
	RequestDnload    = 0x01
	RequestUpload    = 0x02
	RequestGetStatus = 0x03
	RequestClrStatus = 0x04
	RequestGetState  = 0x05
	RequestAbort     = 0x06
)

// FunctionalAttrCanDnload and friends are bmAttributes bits for the DFU
// functional descriptor.
const (
	FunctionalAttrCanDnload        = 1 << 0
	FunctionalAttrCanUpload        = 1 << 1
	FunctionalAttrManifestTolerant = 1 << 2
	FunctionalAttrWillDetach       = 1 << 3
)

// Runtime is the runtime-mode DFU class driver. It advertises the DFU
// interface and serves DFU_DETACH; GETSTATUS/GETSTATE/DNLOAD are left
// unanswered since there is nothing to download outside the bootloader.
type Runtime struct {
	iface    *device.Interface
	onDetach func()
}

// New returns a runtime DFU class driver. onDetach is invoked (from the
// control-transfer path) when the host issues DFU_DETACH; it should
// persist why and force the actual reset, e.g. via watchdog.ResetNow.
func New(onDetach func()) *Runtime {
	return &Runtime{onDetach: onDetach}
}

// Init implements device.ClassDriver.
func (r *Runtime) Init(iface *device.Interface) error {
	r.iface = iface
	pkg.LogDebug(pkg.ComponentDevice, "DFU runtime interface configured",
		"interface", iface.Number)
	return nil
}

// HandleSetup implements device.ClassDriver.
func (r *Runtime) HandleSetup(iface *device.Interface, setup *device.SetupPacket, data []byte) (bool, error) {
	if !setup.IsClass() || !setup.IsInterfaceRecipient() {
		return false, nil
	}
	if setup.Request != RequestDetach {
		return false, nil
	}

	pkg.LogInfo(pkg.ComponentDevice, "DFU_DETACH received")
	if r.onDetach != nil {
		r.onDetach()
	}
	return true, nil
}

// SetAlternate implements device.ClassDriver.
func (r *Runtime) SetAlternate(iface *device.Interface, alt uint8) error {
	return nil
}

// Close implements device.ClassDriver.
func (r *Runtime) Close() error {
	r.iface = nil
	return nil
}

// ConfigureDevice adds the DFU runtime interface to a device builder.
// It has no endpoints: DFU_DETACH and friends travel over EP0.
func ConfigureDevice(builder *device.DeviceBuilder) *device.DeviceBuilder {
	builder.AddInterface(ClassApplicationSpecific, SubclassDFU, ProtocolRuntime)
	return builder
}

// AttachToInterface attaches this class driver to the DFU interface.
func (r *Runtime) AttachToInterface(dev *device.Device, configValue, ifaceNum uint8) error {
	config := dev.GetConfiguration(configValue)
	if config == nil {
		return pkg.ErrInvalidRequest
	}
	iface := config.GetInterface(ifaceNum)
	if iface == nil {
		return pkg.ErrInvalidRequest
	}
	return iface.SetClassDriver(r)
}

// Compile-time interface check.
var _ device.ClassDriver = (*Runtime)(nil)
