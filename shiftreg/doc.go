// Package shiftreg drives the board's 16-bit shift-register output
// expander: a single shadow word mirroring every USB mux/power/reset
// line and the IS31 LED driver's shutdown/reset lines, pushed to the
// physical register through SPI on every change. All writes go through
// Register.Write, which updates the shadow under its own lock and then
// pushes the whole word, so a caller never has to reason about
// read-modify-write races on the shared hardware register.
//
// Register implements hub.PortSwitch directly: the mux/power bits it
// owns are exactly the ones the USB-hub port state machine needs to
// drive.
package shiftreg
