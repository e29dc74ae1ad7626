//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// AutoDevice asks Open to pick the first USB CDC device on the host
const AutoDevice = "auto"

var ErrNoPorts = errors.New("no serial ports found")

// tarmPort is a Port on a host serial device
type tarmPort struct {
	*serial.Port
	device string
}

// Open opens cfg.Device, or the most likely board port when the device is
// AutoDevice or empty.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	device := cfg.Device
	if device == "" || device == AutoDevice {
		ports, err := ListPorts()
		if err != nil {
			return nil, fmt.Errorf("finding a board: %w", err)
		}
		if len(ports) == 0 {
			return nil, ErrNoPorts
		}
		device = ports[0]
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return &tarmPort{Port: port, device: device}, nil
}

// Flush discards unread input so the monitor starts on a fresh report
func (p *tarmPort) Flush() error {
	return p.Port.Flush()
}

// Device returns the path that was opened
func (p *tarmPort) Device() string {
	return p.device
}
