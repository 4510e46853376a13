package pwm

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// RealWriter drives a hardware PWM pin through periph.io.
type RealWriter struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

// NewRealWriter initialises the host drivers and looks up the pin by name.
// The output starts low.
func NewRealWriter(pinName string, freqHz int) (*RealWriter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("pwm pin %q not found", pinName)
	}
	w := &RealWriter{
		pin:  pin,
		freq: physic.Frequency(freqHz) * physic.Hertz,
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("drive pwm pin %s low: %w", pinName, err)
	}
	return w, nil
}

// Write sets the duty cycle to level/NativeMax.
func (w *RealWriter) Write(level int) error {
	if err := checkLevel(level); err != nil {
		return err
	}
	if err := w.pin.PWM(Duty(level), w.freq); err != nil {
		return fmt.Errorf("set pwm on %s: %w", w.pin.Name(), err)
	}
	return nil
}

// Close stops the PWM and leaves the pin driven low.
func (w *RealWriter) Close() error {
	return multierr.Combine(
		w.pin.Halt(),
		w.pin.Out(gpio.Low),
	)
}

// Duty converts a native level to a periph duty cycle.
func Duty(level int) gpio.Duty {
	return gpio.Duty(int64(level) * int64(gpio.DutyMax) / NativeMax)
}
