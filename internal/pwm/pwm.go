// Package pwm drives the motor PWM output.
package pwm

import "fmt"

// Writer writes a duty level on the native 0..NativeMax scale.
type Writer interface {
	Write(level int) error
	Close() error
}

// NativeMax is the full-scale duty level (8-bit, as an analogWrite).
const NativeMax = 255

// DefaultPin and DefaultFrequency are the Pi hardware PWM0 pin and a carrier
// above the audible range.
const (
	DefaultPin       = "GPIO18"
	DefaultFrequency = 25000
)

func checkLevel(level int) error {
	if level < 0 || level > NativeMax {
		return fmt.Errorf("pwm: level %d outside 0..%d", level, NativeMax)
	}
	return nil
}
