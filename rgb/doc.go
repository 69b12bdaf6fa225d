// Package rgb implements the adaptive brightness (GCR) controller: it
// ramps the IS31 driver's global current register toward a desired
// value one step per V5V measurement, protecting the host-supplied 5V
// rail from brownout under load, and locks/releases the driver's
// software shutdown in step with GCR reaching or leaving zero.
//
// Controller implements adc.V5VObserver so it can be registered directly
// with an adc.Agent, and keymap.LampNotifier so the keymap dispatcher has
// a destination for per-key lamp-activity signals independent of its HID
// reporting path.
package rgb
