package main

import "time"

// cli is the firmware-image boot configuration, parsed by kong from
// command-line flags.
type cli struct {
	Verbose      bool          `short:"v" help:"Enable verbose (debug) logging."`
	JSON         bool          `name:"json" help:"Use JSON log format."`
	Profile      string        `name:"profile" default:"default" help:"Keymap profile to load (default, swap-caps-escape)."`
	BusDir       string        `name:"bus-dir" required:"" help:"Shared directory for the simulated USB FIFO transport."`
	SettingsFile string        `name:"settings-file" help:"File backing the persistent settings store; in-memory only if omitted."`
	EnumTimeout  time.Duration `name:"enum-timeout" default:"10s" help:"Timeout waiting for host enumeration."`
	Console      bool          `name:"console" help:"Attach a CDC-ACM debug console interface alongside HID."`
}
