// Package serial opens the UART used for telemetry and setpoint input.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config describes a serial port.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultBaud matches the plotting host's expectation.
const DefaultBaud = 115200

// Port is an open serial port.
type Port interface {
	io.ReadWriteCloser
}

// Open opens the configured serial port.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial: no device configured")
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}
