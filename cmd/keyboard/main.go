// Command keyboard boots the keyboard control plane against a simulated
// USB transport and simulated peripherals, so the matrix/keymap/HID/hub
// pipeline can be exercised end to end without real silicon.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/dropalt/keyboard-core/adc"
	"github.com/dropalt/keyboard-core/device"
	"github.com/dropalt/keyboard-core/device/class/cdc"
	"github.com/dropalt/keyboard-core/device/class/dfu"
	"github.com/dropalt/keyboard-core/device/class/hid"
	"github.com/dropalt/keyboard-core/device/hal/fifo"
	"github.com/dropalt/keyboard-core/hidreport"
	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/internal/console"
	"github.com/dropalt/keyboard-core/internal/simhal"
	"github.com/dropalt/keyboard-core/keyevent"
	"github.com/dropalt/keyboard-core/keymap"
	"github.com/dropalt/keyboard-core/matrix"
	"github.com/dropalt/keyboard-core/pkg"
	"github.com/dropalt/keyboard-core/rgb"
	"github.com/dropalt/keyboard-core/settings"
	"github.com/dropalt/keyboard-core/shiftreg"
	"github.com/dropalt/keyboard-core/watchdog"
)

// component identifies this executable for structured logging.
const component = pkg.ComponentDevice

// nvmSize is the simulated settings region's byte size: comfortably more
// than the handful of well-known keys the core itself writes.
const nvmSize = 512

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("keyboard"),
		kong.Description("Keyboard control-plane firmware, simulated."),
		kong.UsageOnError(),
	)

	if c.Verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if c.JSON {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		pkg.LogInfo(component, "shutting down")
		cancel()
	}()

	// --- peripheral simulation substrate ---

	srHAL := simhal.NewShiftRegister()
	statusLine := simhal.NewStatusLEDLine()
	adcHAL := simhal.NewADC()
	matrixHAL := simhal.NewMatrix()
	watchdogHAL := simhal.NewWatchdog()

	nvm, err := simhal.NewNVM(nvmSize, c.SettingsFile)
	if err != nil {
		pkg.LogError(component, "failed to open settings file", "error", err)
		os.Exit(1)
	}

	// --- ambient control-plane state ---

	shiftRegister := shiftreg.New(srHAL)
	shiftRegister.Init()
	statusLED := shiftreg.NewStatusLED(statusLine)

	settingsStore := settings.New(nvm)
	if err := settingsStore.Load(); err != nil {
		pkg.LogError(component, "failed to load settings", "error", err)
		os.Exit(1)
	}
	if reason, ok := settingsStore.BootReason(); ok {
		pkg.LogInfo(component, "previous boot reason", "reason", reason)
	}

	wd := watchdog.New(watchdogHAL)

	// --- hub / ADC / RGB, wired via forwarders to break the
	// construction cycle between hub.Controller and adc.Agent ---

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

	// --- matrix / keymap ---

	queue := keyevent.New()
	matrixAgent := matrix.NewAgent(matrixHAL, queue)
	dispatcher := keymap.NewDispatcher(queue, rgbController, hubController, matrixAgent)

	// --- USB device ---

	hidInstance := hid.New(hid.NkroReportDescriptor)

	builder := device.NewDeviceBuilder().
		WithVendorProduct(0x1234, 0x0001).
		WithStrings("dropalt", "keyboard-core", "000000000001").
		AddConfiguration(1)

	// Built directly rather than through hid.HID.ConfigureDevice: that
	// helper hardcodes an 8-byte max packet size sized for a boot report,
	// too small for the 32-byte NKRO report this device actually sends
	// once the host selects Report protocol.
	builder.AddInterface(hid.ClassHID, hid.SubclassBoot, hid.ProtocolKeyboard)
	builder.AddEndpoint(0x81|device.EndpointDirectionIn, device.EndpointTypeInterrupt, hid.NKROReportSize)

	// DFU runtime interface: advertised unconditionally, so a host-side
	// DFU tool can always find it and issue DFU_DETACH. Interface number
	// 1 follows HID's interface 0.
	dfuRuntime := dfu.New(func() {
		wd.ResetNow(settings.BootReasonDFUDetach, settingsStore)
	})
	dfu.ConfigureDevice(builder)

	// CDC-ACM debug console, interfaces 2 (control) and 3 (data),
	// only when explicitly requested.
	var acm *cdc.ACM
	if c.Console {
		acm = cdc.NewACM()
		acm.ConfigureDevice(builder, 2, 3, 4)
	}

	dev, err := builder.Build(ctx)
	if err != nil {
		pkg.LogError(component, "failed to build device", "error", err)
		os.Exit(1)
	}
	if err := hidInstance.AttachToInterface(dev, 1, 0); err != nil {
		pkg.LogError(component, "failed to attach HID driver", "error", err)
		os.Exit(1)
	}
	if err := dfuRuntime.AttachToInterface(dev, 1, 1); err != nil {
		pkg.LogError(component, "failed to attach DFU driver", "error", err)
		os.Exit(1)
	}
	if acm != nil {
		if err := acm.AttachToInterfaces(dev, 1, 2, 3); err != nil {
			pkg.LogError(component, "failed to attach CDC-ACM driver", "error", err)
			os.Exit(1)
		}
	}

	transportHAL := fifo.New(c.BusDir)
	stack := device.NewStack(dev, transportHAL)
	hidInstance.SetStack(stack)
	if acm != nil {
		acm.SetStack(stack)
	}

	wakeup := func() {
		if dev.IsSuspended() && dev.IsRemoteWakeupEnabled() {
			dev.Resume()
		}
	}
	hidAgent := hidreport.NewAgent(hidInstance, wakeup)

	lamps := buildKeymap(c.Profile, queue, hidAgent, dispatcher)
	hidAgent.SetLampObserver(lamps)

	var dbgConsole *console.Console
	if acm != nil {
		dbgConsole = console.New(acm)
		registerConsoleCommands(dbgConsole, hubController, rgbController, adcAgent, settingsStore)
	}

	dev.SetOnSuspend(func() {
		hidAgent.HandleSuspend()
		rgbController.HandleUSBSuspend()
		hubController.HandleUSBSuspend()
	})
	dev.SetOnResume(func() {
		hidAgent.HandleResume()
		hubController.HandleUSBResume()
	})
	dev.SetOnReset(func() {
		hubController.HandleUSBReset()
	})

	// --- start everything ---

	go func() {
		if err := adcAgent.Run(ctx); err != nil {
			pkg.LogDebug(component, "adc agent stopped", "error", err)
		}
	}()
	go func() {
		if err := matrixAgent.Run(ctx); err != nil {
			pkg.LogDebug(component, "matrix agent stopped", "error", err)
		}
	}()
	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			pkg.LogDebug(component, "keymap dispatcher stopped", "error", err)
		}
	}()
	go hidAgent.Run(ctx)
	if dbgConsole != nil {
		go func() {
			if err := dbgConsole.Run(ctx); err != nil {
				pkg.LogDebug(component, "debug console stopped", "error", err)
			}
		}()
	}

	wd.Arm()
	defer wd.Disarm()
	go runHeartbeat(ctx, wd)

	pkg.LogInfo(component, "starting device stack", "busDir", c.BusDir)
	if err := stack.Start(ctx); err != nil {
		pkg.LogError(component, "failed to start device stack", "error", err)
		os.Exit(1)
	}
	defer stack.Stop()

	connectCtx, connectCancel := context.WithTimeout(ctx, c.EnumTimeout)
	if err := stack.WaitConnect(connectCtx); err != nil {
		connectCancel()
		pkg.LogError(component, "waiting for host connection failed", "error", err)
		os.Exit(1)
	}
	connectCancel()
	pkg.LogInfo(component, "host connected")

	settingsStore.SetBootReason(settings.BootReasonNormal)

	<-ctx.Done()
	if err := settingsStore.Flush(); err != nil {
		pkg.LogError(component, "failed to flush settings on shutdown", "error", err)
	}
}

// runHeartbeat touches wd once per half its heartbeat period for as long
// as ctx is live, standing in for the real firmware's main super-loop
// proving it is still making progress.
func runHeartbeat(ctx context.Context, wd *watchdog.Watchdog) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wd.Touch()
		}
	}
}
