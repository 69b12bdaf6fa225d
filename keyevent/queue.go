package keyevent

import (
	"sync"
	"time"

	"github.com/dropalt/keyboard-core/pkg"
)

// Capacity is the number of pending key events the queue can hold before
// Push blocks. It is smaller than matrix.NumSlots, so a burst touching
// more slots than this waits on the keymap agent to drain the queue.
const Capacity = 16

// Event is a single debounced transition reported by the matrix scanner.
type Event struct {
	Slot  uint8
	Press bool
}

// Queue is the bounded FIFO between the matrix scanner and the keymap
// agent. It additionally supports a single "deferrer": while one is
// active, NextEvent replays the unconsumed window via peek instead of
// consuming it via pop, so a tap-hold style node can look ahead at
// subsequent events before deciding how the held key resolves.
//
// Queue is safe for concurrent use by one producer (the matrix scanner,
// via Push) and one consumer (the keymap agent, via NextEvent and the
// Defer* methods).
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  [Capacity]Event
	push int
	peek int
	pop  int

	deferrer any

	ready chan struct{}
}

// New returns an empty queue ready for use.
func New() *Queue {
	q := &Queue{ready: make(chan struct{}, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Ready yields a value each time Push has added an event, coalescing
// bursts into a single pending notification (mirroring the original
// firmware's idempotent thread-flag set). The keymap agent selects on this
// alongside its other event sources instead of polling.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) full() bool {
	return q.push-q.pop == Capacity
}

// Push enqueues ev, blocking while the queue is full. A timeout of zero
// blocks indefinitely; a positive timeout bounds the wait and returns
// pkg.ErrQueueFull if no room ever freed up, which the caller should treat
// as the fatal condition described in pkg.ErrDeadlocked.
func (q *Queue) Push(ev Event, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for q.full() {
		if timeout == 0 {
			q.cond.Wait()
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return pkg.ErrQueueFull
		}
		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		q.cond.Wait()
		timer.Stop()
	}

	if q.push == Capacity {
		// Lazy compaction: slide the unconsumed window down to the front
		// of the backing array instead of wrapping indices.
		copy(q.buf[0:], q.buf[q.pop:Capacity])
		q.push -= q.pop
		q.peek -= q.pop
		q.pop = 0
	}

	q.buf[q.push] = ev
	q.push++
	q.wake()
	return nil
}

// pop removes and returns the oldest unconsumed event.
func (q *Queue) popLocked() (Event, bool) {
	if q.pop == q.push {
		return Event{}, false
	}
	ev := q.buf[q.pop]
	q.pop++
	q.peek = q.pop
	q.cond.Broadcast()
	return ev, true
}

// peek returns the oldest un-peeked event without removing it.
func (q *Queue) peekLocked() (Event, bool) {
	if q.peek == q.push {
		return Event{}, false
	}
	ev := q.buf[q.peek]
	q.peek++
	return ev, true
}

// NextEvent returns the next event for the keymap agent to process. In
// normal mode this pops; while a deferrer is active it peeks instead,
// leaving the event in the queue so it can still be discarded or
// eventually popped once defer mode ends.
func (q *Queue) NextEvent() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deferrer != nil {
		return q.peekLocked()
	}
	return q.popLocked()
}

// StartDefer marks owner as the active deferrer. Only one deferrer may be
// active at a time; a second call before StopDefer returns
// pkg.ErrAlreadyDeferring.
func (q *Queue) StartDefer(owner any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deferrer != nil {
		return pkg.ErrAlreadyDeferring
	}
	q.deferrer = owner
	return nil
}

// StopDefer clears owner's deferred status, returning NextEvent to normal
// pop semantics. It returns pkg.ErrNoDeferrer if owner is not the active
// deferrer.
func (q *Queue) StopDefer(owner any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deferrer == nil || q.deferrer != owner {
		return pkg.ErrNoDeferrer
	}
	q.deferrer = nil
	return nil
}

// Deferrer returns the currently active deferrer, or nil if none.
func (q *Queue) Deferrer() any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deferrer
}

// IsDeferring reports whether any deferrer is currently active.
func (q *Queue) IsDeferring() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deferrer != nil
}

// IsDeferred reports whether an event matching slot and press is sitting
// in the deferred window (between pop and peek), i.e. has been handed to
// the deferrer via NextEvent but not yet popped or discarded.
func (q *Queue) IsDeferred(slot uint8, press bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := q.pop; i < q.peek; i++ {
		if q.buf[i].Slot == slot && q.buf[i].Press == press {
			return true
		}
	}
	return false
}

// DiscardLastDeferred removes the most recently peeked event from the
// deferred window in place, preserving the relative order of the events
// that remain. It is a no-op if the window is empty; unlike StartDefer and
// StopDefer it does not require a deferrer to be active, since a
// deferrer's decision to let an event through can itself have just
// stopped deferring.
func (q *Queue) DiscardLastDeferred() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pop >= q.peek {
		return nil
	}
	oldPop := q.pop
	q.pop++
	copy(q.buf[q.pop:q.peek], q.buf[oldPop:q.peek-1])
	q.cond.Broadcast()
	return nil
}

// Len reports the number of events not yet popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.push - q.pop
}
