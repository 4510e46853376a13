// Package control contains the pure speed-regulation logic: tuning constants,
// the control law and the actuation clamp.
// This package has NO external dependencies (no GPIO, PWM, serial or timers).
// Time is always injectable via time.Duration parameters.
package control

import "time"

// Cycle is the result of one control cycle, handed to telemetry sinks.
type Cycle struct {
	// Seq numbers cycles from 1 since start (or the last reset).
	Seq uint64
	// Elapsed is the time since the regulator started.
	Elapsed time.Duration
	// Count is the number of encoder edges seen during the control period.
	Count uint32
	// Setpoint is the target edge count per control period.
	Setpoint float64
	// Action is the clamped control action written to the PWM output.
	Action int
}

// ScaledAction returns the action divided by ActionScale so it can be
// plotted on the same axis as the setpoint. It is not a physical unit.
func (c Cycle) ScaledAction() float64 {
	return float64(c.Action) / ActionScale
}
