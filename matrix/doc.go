// Package matrix implements the key matrix scanner and per-slot
// debouncer. It runs as its own agent goroutine with three operating
// modes — sleeping, first scan, and periodic scan — and commits debounced
// transitions to a keyevent.Queue for the keymap agent to consume.
package matrix
