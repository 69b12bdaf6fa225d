package matrix

import "context"

// HAL abstracts the row/column GPIO matrix hardware so the scanner and
// debouncer can be exercised without real silicon.
type HAL interface {
	// Scan drives one full pass over the matrix, calling report once per
	// slot with its instantaneous, pre-debounce electrical state.
	Scan(report func(slot int, instantaneous bool))

	// EnableInterrupt arms a level-high interrupt on every row pin so that
	// any key going down wakes the agent; DisableInterrupt tears it down
	// before a scan burst begins.
	EnableInterrupt()
	DisableInterrupt()

	// WaitInterrupt blocks until the row interrupt fires (some key is
	// going down) or ctx is cancelled.
	WaitInterrupt(ctx context.Context) error
}
