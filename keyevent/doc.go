// Package keyevent implements the bounded, defer-capable FIFO that
// transports physical key events from the matrix scanner to the keymap
// agent.
//
// The queue has three cursors over a fixed backing array: push, peek, and
// pop, always satisfying pop <= peek <= push. In normal mode NextEvent
// pops (peek trails pop). While a deferrer is active, NextEvent instead
// peeks without removing, handing out each not-yet-peeked event in turn
// while the whole window stays queued, so normal pops replay it once the
// deferrer stops; DiscardLastDeferred
// lets the deferrer eject the most recently peeked entry so it can be
// processed immediately instead of waiting for the window to close.
package keyevent
