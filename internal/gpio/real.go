//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealReader reads the encoder from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealReader requests the encoder line as an input.
// activeLow inverts the logical level for comparators with an open-collector output.
func NewRealReader(chipName string, offset int, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Pull-up keeps the line defined while the comparator output floats.
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request encoder line %d: %w", offset, err)
	}

	return &RealReader{
		chip: chip,
		line: line,
	}, nil
}

// Read returns the logical level of the encoder line.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read encoder line: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// The line is reconfigured to input with pull-down (Pi boot default) before closing.
func (r *RealReader) Close() error {
	var err error
	if r.line != nil {
		if rerr := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure encoder line: %w", rerr))
		}
		if cerr := r.line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close encoder line: %w", cerr))
		}
	}
	if r.chip != nil {
		if cerr := r.chip.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", cerr))
		}
	}
	return err
}
