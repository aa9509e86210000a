// Package audit assigns risk levels to closings and renders the alert
// messages sent to administrators.
package audit

import "fmt"

// Thresholds are the bounds of the risk ladder on the absolute cash
// discrepancy, in pesos
type Thresholds struct {
	Tolerance int64 // Default: 500 - at or below is OK
	Low       int64 // Default: 5000 - at or below is LOW
	Medium    int64 // Default: 20000 - at or below is MEDIUM, above is HIGH
}

// DefaultThresholds returns the default ladder
func DefaultThresholds() Thresholds {
	return Thresholds{
		Tolerance: 500,
		Low:       5000,
		Medium:    20000,
	}
}

// Validate ensures the bounds are non-negative and strictly increasing
func (t Thresholds) Validate() error {
	if t.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %d", t.Tolerance)
	}
	if t.Low <= t.Tolerance {
		return fmt.Errorf("low threshold must be greater than tolerance (low: %d, tolerance: %d)", t.Low, t.Tolerance)
	}
	if t.Medium <= t.Low {
		return fmt.Errorf("medium threshold must be greater than low threshold (medium: %d, low: %d)", t.Medium, t.Low)
	}
	return nil
}
