// Package keymap implements the keymap node hierarchy and the keymap
// agent's control loop.
//
// A Node is assigned to each physical key slot and exposes a small,
// capability-based interface: Press, Release, and IsPressed are
// mandatory; nodes that need to act as the active deferrer on the
// key-event queue (tap-hold, tap-dance) additionally implement Deferrer.
// The dispatcher discovers these optional capabilities with a type
// assertion rather than a class hierarchy, matching the "tagged variant /
// capability object" shape this control plane calls for instead of deep
// virtual dispatch.
package keymap
