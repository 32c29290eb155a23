package device

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of go.bug.st/serial.Port the session needs. Tests
// substitute a scripted fake.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// openPort opens the serial device at the requested baud rate.
func openPort(path string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}
