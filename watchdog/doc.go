// Package watchdog guards against a hung main agent: a liveness flag
// is touched once per scan iteration by the code being protected, and
// a self-rearming heartbeat timer kicks the hardware watchdog only if
// that flag was touched since the last tick. If the main agent stops
// calling Touch, the next tick withholds its kick and the hardware
// watchdog's own timeout window resets the MCU into the bootloader.
package watchdog
