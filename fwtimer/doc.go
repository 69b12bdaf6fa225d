// Package fwtimer implements the one-shot timer idiom used throughout the
// keyboard control plane: a re-armable timer whose callback runs on the
// runtime's timer goroutine (owners typically have it post an event into
// their own event loop), and that tolerates the inherent race between
// disarming a timer and a callback already in flight.
//
// Arming and disarming are not atomic with respect to a timer that has
// already fired: the callback may be mid-flight when Stop is called. Each
// arm is tagged with a monotonically increasing generation; an expiry only
// delivers if the generation it captured is still the latest one armed.
// This replaces the original firmware's single boolean "expected" latch
// with a counter, per the REDESIGN FLAG in spec.md §9, so that a timer can
// be re-armed (not just disarmed) without a narrow race window between
// clearing and setting the latch.
package fwtimer
