package core

// GPIOPin is a board GPIO number
type GPIOPin uint32

// GPIODriver is the pin access the driver chain needs: one select line per
// driver, the shared active-low enable line, and sense inputs read by the
// board. Targets register their implementation with SetGPIODriver.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	ConfigureInput(pin GPIOPin) error

	// SetPin drives an output. It is called from the completion interrupt
	// for the select lines, so it must not block or allocate.
	SetPin(pin GPIOPin, value bool) error

	ReadPin(pin GPIOPin) bool
}

var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// Select lines are active low.
func assertSelect(cs GPIOPin) {
	_ = gpioDriver.SetPin(cs, false)
}

func releaseSelect(cs GPIOPin) {
	_ = gpioDriver.SetPin(cs, true)
}
