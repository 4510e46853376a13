// Package setpoint turns operator inputs into a target edge count per
// control period. Two sources exist: an analog potentiometer polled from the
// main loop, and newline-terminated integers on a serial line.
package setpoint

import (
	"github.com/sweeney/motor-regulator/internal/adc"
	"github.com/sweeney/motor-regulator/internal/control"
)

// Map re-maps x from [inMin, inMax] to [outMin, outMax] with integer
// arithmetic. Bounds map onto bounds exactly.
func Map(x, inMin, inMax, outMin, outMax int) int {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// FromRaw maps a raw 10-bit conversion onto the setpoint range.
// Raw values outside the converter range are clamped first.
func FromRaw(raw int) float64 {
	raw = control.Clamp(raw, 0, control.AnalogRawMax)
	return float64(Map(raw, 0, control.AnalogRawMax, 0, control.SetpointRangeMax))
}

// Analog polls an ADC and maps the reading onto the setpoint range.
type Analog struct {
	r adc.Reader
}

// NewAnalog creates an Analog source over r.
func NewAnalog(r adc.Reader) *Analog {
	return &Analog{r: r}
}

// Poll reads the ADC once and returns the mapped setpoint.
func (a *Analog) Poll() (float64, error) {
	raw, err := a.r.Read()
	if err != nil {
		return 0, err
	}
	return FromRaw(raw), nil
}
