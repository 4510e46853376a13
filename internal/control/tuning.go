package control

import "time"

// Sampling and scheduling rates.
const (
	SampleHz   = 10000 // edge-sampling timer
	ScheduleHz = 100   // decimating scheduler timer
	Divisor    = 5     // scheduler firings per control cycle (20 Hz control rate)
)

// Actuation range. MaxAction sits below PWMNativeMax to cap top speed.
const (
	MinAction    = 0
	MaxAction    = 250
	PWMNativeMax = 255
)

// Setpoint defaults and input ranges.
const (
	InitialSetpoint   = 20.0
	AnalogRawMax      = 1023
	SetpointRangeMax  = 50
	SerialSetpointMin = 0
	SerialSetpointMax = 50
)

// Telemetry.
const (
	TimestampEnabled = false
	ActionScale      = 10.0
)

// Windup bounds for an integrating law. Reserved: BangBang does not integrate.
const (
	IntegratorMin = -100.0
	IntegratorMax = 100.0
)

// SamplePeriod is the edge-sampling timer period.
func SamplePeriod() time.Duration {
	return time.Second / SampleHz
}

// SchedulePeriod is the decimating scheduler timer period.
func SchedulePeriod() time.Duration {
	return time.Second / ScheduleHz
}

// ControlPeriod is the effective period between control cycles.
func ControlPeriod() time.Duration {
	return SchedulePeriod() * Divisor
}
