package simhal

import "context"

// Matrix stands in for the row/column GPIO matrix. Nothing drives it in
// the simulator, so every scan reports all slots released and
// WaitInterrupt simply blocks until shutdown, exactly as a real board
// would behave if no key were ever pressed.
type Matrix struct{}

// NewMatrix returns a matrix simulator.
func NewMatrix() *Matrix {
	return &Matrix{}
}

// Scan implements matrix.HAL.
func (m *Matrix) Scan(report func(slot int, instantaneous bool)) {
	// No physical keys to report; every slot stays released.
}

// EnableInterrupt implements matrix.HAL.
func (m *Matrix) EnableInterrupt() {}

// DisableInterrupt implements matrix.HAL.
func (m *Matrix) DisableInterrupt() {}

// WaitInterrupt implements matrix.HAL: blocks until ctx is cancelled,
// since the simulator has no interrupt source of its own.
func (m *Matrix) WaitInterrupt(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
