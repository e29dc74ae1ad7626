//go:build rp2040 || rp2350

package main

import (
	_ "embed"
	"machine"
	"strconv"
	"time"

	"smartdrivers/config"
	"smartdrivers/core"
)

//go:embed board.json
var boardJSON []byte

var (
	smartDrivers *core.SmartDrivers
	chainBus     *core.SPITransport
	gpioDriver   *RPGPIODriver
	stepTracker  core.StepTracker

	powerPin    core.GPIOPin
	hasPowerPin bool

	reportBuf [256]byte

	// faulted holds the drivers off after a main loop panic until reset
	faulted    bool
	loopPanics uint32
)

func main() {
	// Disable the watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	UpdateSystemTime()

	gpioDriver = NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)
	core.SetDebugWriter(writeLine)

	cfg, err := config.LoadConfig(boardJSON)
	if err != nil {
		writeLine("board.json: " + err.Error() + ", using built-in board")
		cfg = config.DefaultBoardConfig()
	}
	core.SetDebugEnabled(cfg.Debug)

	if err := setupBoard(cfg); err != nil {
		halt("setup failed: " + err.Error())
	}

	core.ScheduleTimer(core.NewPeriodicTimer(core.TimerFromUS(cfg.SpinIntervalMS*1000), spin))
	core.ScheduleTimer(core.NewPeriodicTimer(core.TimerFromUS(cfg.ReportIntervalMS*1000), report))

	for {
		// Recover from panics in the main loop to keep the motors safe
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					faulted = true
					smartDrivers.ForceOff()
					writeLine(faultLine())
					core.DumpEventRing()
				}
			}()

			UpdateSystemTime()

			// The RP2040 SPI block has no transfer-complete interrupt that
			// TinyGo exposes, so completion is polled here.
			chainBus.Poll()

			core.TimerDispatch()

			writeUSB()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// setupBoard brings up the chain bus, applies the driver configuration and
// starts watching step lines. The drivers stay unpowered until the first
// spin sees motor power.
func setupBoard(cfg *config.BoardConfig) error {
	bus, err := configureChainBus(cfg.SPI)
	if err != nil {
		return err
	}
	chainBus = core.NewSPITransport(bus)

	enn, err := config.ParsePin(cfg.EnablePin)
	if err != nil {
		return err
	}
	smartDrivers = core.NewSmartDrivers(chainBus, &stepTracker, enn)
	if err := config.Apply(cfg, smartDrivers); err != nil {
		return err
	}

	if cfg.PowerPin != "" {
		powerPin, err = config.ParsePin(cfg.PowerPin)
		if err != nil {
			return err
		}
		if err := gpioDriver.ConfigureInput(powerPin); err != nil {
			return err
		}
		hasPowerPin = true
	}

	for i, d := range cfg.Drivers {
		if d.StepPin == "" {
			continue
		}
		pin, err := config.ParsePin(d.StepPin)
		if err != nil {
			return err
		}
		axis := uint32(i)
		if d.Axis != nil {
			axis = *d.Axis
		}
		if err := gpioDriver.WatchStepPin(pin, axis, &stepTracker); err != nil {
			return err
		}
	}
	return nil
}

func motorPowered() bool {
	if !hasPowerPin {
		return true
	}
	return gpioDriver.ReadPin(powerPin)
}

func spin() {
	smartDrivers.Spin(motorPowered() && !faulted)
}

func report() {
	if faulted {
		writeLine(faultLine())
	}
	for d := 0; d < smartDrivers.NumDrivers(); d++ {
		console.WriteLine(smartDrivers.AppendReport(reportBuf[:0], d))
	}
}

func faultLine() string {
	return "main loop panics: " + strconv.Itoa(int(loopPanics)) + ", drivers held off until reset"
}

// halt keeps the drivers off and repeats msg until reset
func halt(msg string) {
	if smartDrivers != nil {
		smartDrivers.ForceOff()
	}
	for {
		writeLine(msg)
		writeUSB()
		time.Sleep(2 * time.Second)
	}
}
