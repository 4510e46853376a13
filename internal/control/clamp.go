package control

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampAction bounds a raw action to the compiled actuation range.
func ClampAction(raw int) int {
	return Clamp(raw, MinAction, MaxAction)
}
