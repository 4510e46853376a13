package regulator

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sweeney/motor-regulator/internal/control"
	"github.com/sweeney/motor-regulator/internal/pwm"
)

// Actuator clamps control actions to the safe range and writes them to the
// PWM output. It never fails towards the caller.
type Actuator struct {
	out      pwm.Writer
	min, max int
	logger   *zap.SugaredLogger

	last     atomic.Int64
	failures atomic.Uint64
}

// NewActuator creates an Actuator over the compiled actuation range.
func NewActuator(out pwm.Writer, logger *zap.SugaredLogger) *Actuator {
	return NewActuatorRange(out, control.MinAction, control.MaxAction, logger)
}

// NewActuatorRange creates an Actuator with an explicit range.
func NewActuatorRange(out pwm.Writer, min, max int, logger *zap.SugaredLogger) *Actuator {
	return &Actuator{out: out, min: min, max: max, logger: logger}
}

// Apply clamps raw, writes it and returns the clamped value.
// A write failure is logged and counted; the clamped value is still returned.
func (a *Actuator) Apply(raw int) int {
	v := control.Clamp(raw, a.min, a.max)
	a.last.Store(int64(v))
	if err := a.out.Write(v); err != nil {
		if a.failures.Inc() == 1 {
			a.logger.Warnw("actuator: pwm write failed", "level", v, "error", err)
		} else {
			a.logger.Debugw("actuator: pwm write failed", "level", v, "error", err)
		}
	}
	return v
}

// Stop drives the output to the minimum action.
func (a *Actuator) Stop() {
	a.Apply(a.min)
}

// Last returns the most recently applied (clamped) action.
func (a *Actuator) Last() int {
	return int(a.last.Load())
}

// Failures returns the number of failed PWM writes.
func (a *Actuator) Failures() uint64 {
	return a.failures.Load()
}
