package main

import (
	"fmt"

	"github.com/dropalt/keyboard-core/adc"
	"github.com/dropalt/keyboard-core/hub"
	"github.com/dropalt/keyboard-core/internal/console"
	"github.com/dropalt/keyboard-core/rgb"
	"github.com/dropalt/keyboard-core/settings"
)

// registerConsoleCommands binds the debug console's status/diagnostic
// commands to the control plane's already-constructed components.
func registerConsoleCommands(c *console.Console, hubController *hub.Controller, rgbController *rgb.Controller, adcAgent *adc.Agent, settingsStore *settings.Store) {
	c.Register("status", func(args []string) string {
		return fmt.Sprintf(
			"hub=%s host=%s v5v=%s gcr=%d",
			hubController.State(),
			hubController.HostPort(),
			adcAgent.V5VLevel(),
			rgbController.CurrentGCR(),
		)
	})

	c.Register("bootreason", func(args []string) string {
		reason, ok := settingsStore.BootReason()
		if !ok {
			return "no recorded boot reason"
		}
		return reason
	})

	c.Register("switchover", func(args []string) string {
		hubController.RequestSwitchover()
		return "switchover requested"
	})
}
