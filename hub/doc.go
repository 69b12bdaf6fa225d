// Package hub runs the USB-hub port state machine: it decides which of
// the keyboard's two USB-C ports is the host uplink, enables or disables
// the other ("extra") port's data and power, and reacts to cable-break,
// brownout, and user-requested switchover.
//
// Controller is driven by four kinds of caller: the device stack's
// suspend/resume/reset callbacks, the keymap dispatcher (switchover
// requests, via the SwitchoverRequester it implements), and the adc
// package's periodic CC-sense and V5V measurements. Every entry point
// locks Controller's own mutex rather than posting through a channel,
// since none of the work done under that lock blocks on hardware other
// than the deliberately-synchronous port-detection measurement, which is
// issued from its own goroutine or a retry timer's callback goroutine.
package hub
