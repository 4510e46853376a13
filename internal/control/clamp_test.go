package control

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestClampAction(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{-1, MinAction},
		{math.MinInt, MinAction},
		{0, 0},
		{125, 125},
		{250, 250},
		{251, MaxAction},
		{255, MaxAction},
		{math.MaxInt, MaxAction},
	}
	for _, tt := range tests {
		test.That(t, ClampAction(tt.raw), test.ShouldEqual, tt.want)
	}
}

func TestClampNeverLeavesRange(t *testing.T) {
	for v := -1000; v <= 1000; v += 7 {
		got := Clamp(v, 10, 20)
		test.That(t, got, test.ShouldBeGreaterThanOrEqualTo, 10)
		test.That(t, got, test.ShouldBeLessThanOrEqualTo, 20)
	}
}

func TestTuningPeriods(t *testing.T) {
	test.That(t, SamplePeriod(), test.ShouldEqual, 100*time.Microsecond)
	test.That(t, SchedulePeriod(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, ControlPeriod(), test.ShouldEqual, 50*time.Millisecond)
	test.That(t, MaxAction, test.ShouldBeLessThan, PWMNativeMax)
}

func TestCycleScaledAction(t *testing.T) {
	test.That(t, Cycle{Action: 250}.ScaledAction(), test.ShouldEqual, 25.0)
	test.That(t, Cycle{Action: 0}.ScaledAction(), test.ShouldEqual, 0.0)
}
