package regulator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/motor-regulator/internal/control"
)

// Timing sets the periods of the two periodic contexts.
type Timing struct {
	Sample   time.Duration
	Schedule time.Duration
}

// DefaultTiming returns the compiled sampling and scheduling periods.
func DefaultTiming() Timing {
	return Timing{
		Sample:   control.SamplePeriod(),
		Schedule: control.SchedulePeriod(),
	}
}

// Run drives the sampler and the scheduler from two tickers until ctx is
// cancelled, then forces the output to the minimum action.
func (c *Controller) Run(ctx context.Context, pin LevelReader, timing Timing, logger *zap.SugaredLogger) error {
	logger.Infow("regulator: running",
		"sample_period", timing.Sample,
		"schedule_period", timing.Schedule,
		"divisor", c.cfg.Divisor,
		"control_period", timing.Schedule*time.Duration(c.cfg.Divisor))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := c.cfg.Clock.Ticker(timing.Sample)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				c.Sample(pin)
			}
		}
	})

	g.Go(func() error {
		t := c.cfg.Clock.Ticker(timing.Schedule)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				c.Tick()
			}
		}
	})

	err := g.Wait()
	if c.cfg.Actuator != nil {
		c.cfg.Actuator.Stop()
	}
	logger.Infow("regulator: stopped", "cycles", c.cycles.Load())
	return err
}
