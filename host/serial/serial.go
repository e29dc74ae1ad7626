package serial

import (
	"bufio"
	"io"
)

// Port represents a serial port interface
// Native serial (github.com/tarm/serial) in the tools, an in-memory pipe
// in tests.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the settings the board's report console uses
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0, // the monitor blocks waiting for reports
	}
}

// Lines returns a scanner over the text lines arriving on r. Lines are
// capped at 1KB; the board never sends longer ones.
func Lines(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 256), 1024)
	return sc
}
