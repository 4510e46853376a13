// Package adc reads the operator potentiometer through an analog input.
package adc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Reader returns a raw analog conversion.
type Reader interface {
	Read() (int, error)
}

// DefaultIIOPath is the first channel of the first IIO ADC.
const DefaultIIOPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

// IIOReader reads a Linux IIO raw channel file. Each Read reopens the file,
// which triggers a fresh conversion in the kernel driver.
type IIOReader struct {
	path string
}

// NewIIOReader checks the channel file is readable.
func NewIIOReader(path string) (*IIOReader, error) {
	r := &IIOReader{path: path}
	if _, err := r.Read(); err != nil {
		return nil, err
	}
	return r, nil
}

// Read returns the raw conversion value.
func (r *IIOReader) Read() (int, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0, fmt.Errorf("read adc %s: %w", r.path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse adc %s: %w", r.path, err)
	}
	return v, nil
}
