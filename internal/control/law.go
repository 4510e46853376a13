package control

// Law maps the measured edge count of the last control period and the
// setpoint to a raw control action, before clamping.
// acc is the accumulated error owned by the caller; laws without an
// integral term leave it untouched.
type Law interface {
	Compute(measured uint32, setpoint float64, acc *float64) int
}

// BangBang is a two-level law: Max while the measured count is below the
// setpoint, Min otherwise. No hysteresis.
type BangBang struct {
	Min int
	Max int
}

// NewBangBang returns a BangBang law over the compiled actuation range.
func NewBangBang() BangBang {
	return BangBang{Min: MinAction, Max: MaxAction}
}

// Compute implements Law.
func (b BangBang) Compute(measured uint32, setpoint float64, _ *float64) int {
	if float64(measured) < setpoint {
		return b.Max
	}
	return b.Min
}
