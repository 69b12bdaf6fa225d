// Package simhal provides in-process stand-ins for the peripheral HALs
// (shift register, ADC, matrix GPIO, NVM, watchdog timer) that a real
// board would back with silicon. It exists for the same reason
// device/hal/fifo exists for the USB transport: cmd/keyboard has no
// hardware to attach to, so it runs against a simulated substrate that
// satisfies the same interfaces a board-specific HAL package would.
package simhal
