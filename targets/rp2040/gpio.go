//go:build rp2040 || rp2350

package main

import (
	"machine"

	"smartdrivers/core"
)

// RPGPIODriver implements core.GPIODriver on machine pins. Pins map
// directly to GPIO numbers.
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output. Select and enable
// lines are configured once at init; SetPin runs in the completion
// interrupt and must find them here.
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureInput configures a floating input. Sense lines are driven by
// the power stage, so no pull is applied.
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInput})
	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin drives a configured pin. Unconfigured pins are ignored so the
// interrupt path never allocates.
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return nil
	}
	machinePin.Set(value)
	return nil
}

func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}

// WatchStepPin counts rising edges on a step line into the tracker
func (d *RPGPIODriver) WatchStepPin(pin core.GPIOPin, axis uint32, tracker *core.StepTracker) error {
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInput})
	d.configuredPins[pin] = machinePin
	return machinePin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		tracker.Step(axis)
	})
}
