// Package gpio provides the encoder input line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the encoder input level.
type Reader interface {
	// Read returns the current logical level of the encoder line (true = high).
	// It must not block: it is called from the edge-sampling loop.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Line defaults (BCM numbering).
const (
	DefaultChip        = "gpiochip0"
	DefaultEncoderLine = 17 // comparator output of the slotted encoder
)
