// Package regulator runs the time-critical sampling and control pipeline.
//
// Two contexts share a Controller:
//
//   - the sampler fires at a high fixed rate, reads the encoder level and
//     counts transitions (SampleLevel);
//   - the scheduler fires at a lower fixed rate and, on every Divisor-th
//     firing, snapshots and clears the pulse counter, evaluates the control
//     law, actuates and emits telemetry (Tick).
//
// Each context is a single goroutine, so neither re-enters itself. The
// snapshot-and-reset of the pulse counter is the only cross-context
// compound operation; it runs with the sampler masked out.
package regulator

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/sweeney/motor-regulator/internal/control"
	"github.com/sweeney/motor-regulator/internal/telemetry"
)

// Config wires a Controller.
type Config struct {
	Law      control.Law
	Actuator *Actuator
	Sink     telemetry.Sink
	Clock    clock.Clock

	// Divisor is the number of scheduler firings per control cycle.
	Divisor int
	// InitialSetpoint is restored by Reset.
	InitialSetpoint float64
}

// DefaultConfig returns a Config with the compiled tuning and a wall clock.
// Actuator and Sink must still be set.
func DefaultConfig() Config {
	return Config{
		Law:             control.NewBangBang(),
		Clock:           clock.New(),
		Divisor:         control.Divisor,
		InitialSetpoint: control.InitialSetpoint,
	}
}

// Controller is the regulator context shared by the sampler, the scheduler
// and the main loop.
type Controller struct {
	// irq masks the sampler. Held for a whole sample and for the
	// scheduler's snapshot-and-reset.
	irq sync.Mutex

	// pulses: incremented by the sampler only, read-and-reset by the
	// scheduler only (under irq). Atomic so Pending never tears.
	pulses atomic.Uint32
	// lastLevel: sampler only.
	lastLevel bool

	// setpoint: written by the main loop, read by the scheduler.
	setpoint atomic.Float64

	// Scheduler only.
	ticks    int
	seq      uint64
	integral float64 // reserved for an integrating law; BangBang ignores it

	cfg   Config
	start time.Time

	cycles     atomic.Uint64
	readErrors atomic.Uint64
}

// New creates a Controller in its reset state.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Law == nil {
		cfg.Law = control.NewBangBang()
	}
	if cfg.Divisor <= 0 {
		cfg.Divisor = 1
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.Fanout(nil)
	}
	c := &Controller{cfg: cfg}
	c.Reset()
	return c
}

// SampleLevel feeds one encoder sample. A change of level in either
// direction counts as one pulse.
func (c *Controller) SampleLevel(high bool) {
	c.irq.Lock()
	c.sampleLocked(high)
	c.irq.Unlock()
}

func (c *Controller) sampleLocked(high bool) {
	switch {
	case c.lastLevel && !high:
		c.pulses.Inc()
		c.lastLevel = false
	case !c.lastLevel && high:
		c.pulses.Inc()
		c.lastLevel = true
	}
}

// Sample reads the encoder once and feeds the level. A failed read leaves
// the state untouched and is only counted.
func (c *Controller) Sample(pin LevelReader) {
	c.irq.Lock()
	defer c.irq.Unlock()
	high, err := pin.Read()
	if err != nil {
		c.readErrors.Inc()
		return
	}
	c.sampleLocked(high)
}

// LevelReader is the encoder input as seen by the sampler.
type LevelReader interface {
	Read() (bool, error)
}

// Tick is one scheduler firing. It reports whether a control cycle ran.
func (c *Controller) Tick() bool {
	c.ticks++
	if c.ticks < c.cfg.Divisor {
		return false
	}
	c.ticks = 0
	c.cycle()
	return true
}

// snapshot returns the pulses seen since the previous snapshot and clears
// the counter, with the sampler masked.
func (c *Controller) snapshot() uint32 {
	c.irq.Lock()
	n := c.pulses.Swap(0)
	c.irq.Unlock()
	return n
}

func (c *Controller) cycle() {
	count := c.snapshot()
	sp := c.setpoint.Load()

	raw := c.cfg.Law.Compute(count, sp, &c.integral)
	action := c.cfg.Actuator.Apply(raw)

	c.seq++
	c.cycles.Inc()
	c.cfg.Sink.Emit(control.Cycle{
		Seq:      c.seq,
		Elapsed:  c.cfg.Clock.Since(c.start),
		Count:    count,
		Setpoint: sp,
		Action:   action,
	})
}

// SetSetpoint sets the target edge count per control period.
func (c *Controller) SetSetpoint(v float64) {
	c.setpoint.Store(v)
}

// Setpoint returns the current target.
func (c *Controller) Setpoint() float64 {
	return c.setpoint.Load()
}

// Pending returns the pulses counted since the last control cycle without
// consuming them. For display only.
func (c *Controller) Pending() uint32 {
	return c.pulses.Load()
}

// Reset restores the startup state: counters cleared, last level low,
// setpoint back to its initial value and the elapsed-time origin moved to
// now. It must not be called while Run is active.
func (c *Controller) Reset() {
	c.irq.Lock()
	c.pulses.Store(0)
	c.lastLevel = false
	c.irq.Unlock()

	c.setpoint.Store(c.cfg.InitialSetpoint)
	c.ticks = 0
	c.seq = 0
	c.integral = 0
	c.cycles.Store(0)
	c.readErrors.Store(0)
	c.start = c.cfg.Clock.Now()
}

// Stats is a point-in-time view of the controller counters.
type Stats struct {
	Setpoint      float64
	Pending       uint32
	Cycles        uint64
	ReadErrors    uint64
	WriteFailures uint64
}

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	s := Stats{
		Setpoint:   c.setpoint.Load(),
		Pending:    c.pulses.Load(),
		Cycles:     c.cycles.Load(),
		ReadErrors: c.readErrors.Load(),
	}
	if c.cfg.Actuator != nil {
		s.WriteFailures = c.cfg.Actuator.Failures()
	}
	return s
}
