package core

import (
	"math"
	"time"
)

// Millis is a point or span on the trial time axis, in milliseconds.
// All spike timestamps, bin widths and window geometry use this unit.
type Millis float64

// MillisFromDuration converts a time.Duration to trial-axis milliseconds
func MillisFromDuration(d time.Duration) Millis {
	return Millis(float64(d.Nanoseconds()) / 1e6)
}

// Seconds returns the span in seconds (for rate computations in Hz)
func (m Millis) Seconds() float64 {
	return float64(m) / 1000.0
}

// Duration returns the span as a time.Duration
func (m Millis) Duration() time.Duration {
	return time.Duration(float64(m) * float64(time.Millisecond))
}

// DivisibleBy reports whether m is an integer multiple of step within
// floating-point tolerance. Used for the window/bin alignment invariants.
func (m Millis) DivisibleBy(step Millis) bool {
	if step <= 0 {
		return false
	}
	ratio := float64(m) / float64(step)
	return math.Abs(ratio-math.Round(ratio)) < 1e-9
}

// DivideBy returns the integer ratio m/step. Callers must have checked
// DivisibleBy first.
func (m Millis) DivideBy(step Millis) int {
	return int(math.Round(float64(m) / float64(step)))
}
