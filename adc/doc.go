// Package adc samples the keyboard's analog inputs: the two CC-sense
// lines (one per USB-C port, used to classify host vs. device presence)
// and the 5V rail. Conversions are issued serially through a single HAL,
// mirroring real hardware where one ADC peripheral is shared across
// channels; the extra port's CC-sense line and the 5V rail are sampled on
// a periodic schedule, while the host port's CC-sense line is sampled
// only on demand (see Agent.MeasureSync), matching how rarely the host
// assignment actually needs rechecking.
package adc
