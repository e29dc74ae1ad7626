package core

// TMC2660 smart driver state
// One driverState per chip on the shared SPI chain. The control context
// writes register values and sets pending bits; the chain (completion
// interrupt context) claims pending bits and reads register values.

import (
	"errors"
	"sync/atomic"
)

const (
	// MaxSmartDrivers is the size of the driver arena
	MaxSmartDrivers = 12

	MinMotorCurrent     = 100.0  // mA
	MaximumMotorCurrent = 2400.0 // mA

	DefaultMicrostepShift       = 4 // x16
	DefaultInterpolation        = true
	DefaultStallThreshold       = 1 // zero is too sensitive
	DefaultStallFiltered        = false
	DefaultMinimumStepsPerSec   = 200 // 1 rev/s for a 1.8 degree motor
	standstillCurrentPercentMax = 100.0
)

// Register identifies one of the five write registers of a driver.
// Lower numbers are sent first when several are pending.
type Register uint8

const (
	DriveControl     Register = iota // microstepping
	StallGuardConfig                 // motor current and stall threshold
	ChopperControl                   // enable/disable
	DriveConfig                      // read select, sense range
	SmartEnable                      // coolStep

	NumRegisters
)

const updateAllRegisters = 1<<NumRegisters - 1

func (r Register) String() string {
	switch r {
	case DriveControl:
		return "DRVCTRL"
	case StallGuardConfig:
		return "SGCSCONF"
	case ChopperControl:
		return "CHOPCONF"
	case DriveConfig:
		return "DRVCONF"
	case SmartEnable:
		return "SMARTEN"
	default:
		return "UNKNOWN"
	}
}

// RegisterOf returns the register a datagram is addressed to
func RegisterOf(datagram uint32) Register {
	switch datagram &^ TMC2660_DATA_MASK & 0xFFFFF {
	case TMC2660_REG_DRVCTRL:
		return DriveControl
	case TMC2660_REG_CHOPCONF:
		return ChopperControl
	case TMC2660_REG_SMARTEN:
		return SmartEnable
	case TMC2660_REG_SGCSCONF:
		return StallGuardConfig
	case TMC2660_REG_DRVCONF:
		return DriveConfig
	default:
		return NumRegisters
	}
}

// DriverMode is the chopper mode selected by CHM and RNDTF.
type DriverMode uint8

const (
	DriverModeConstantOffTime DriverMode = iota
	DriverModeRandomOffTime
	DriverModeSpreadCycle
	DriverModeUnknown
)

func (m DriverMode) String() string {
	switch m {
	case DriverModeConstantOffTime:
		return "constant_off_time"
	case DriverModeRandomOffTime:
		return "random_off_time"
	case DriverModeSpreadCycle:
		return "spreadcycle"
	default:
		return "unknown"
	}
}

var (
	ErrNoSuchDriver         = errors.New("driver index out of range")
	ErrInvalidChopConf      = errors.New("chopper configuration rejected: bad off time")
	ErrInvalidOffTime       = errors.New("off time out of range")
	ErrInvalidMicrostepping = errors.New("microstepping must be a power of two up to 256")
	ErrInvalidDriverMode    = errors.New("unsupported driver mode")
)

// driverState is the register bank and status record of one chip
type driverState struct {
	registers [NumRegisters]atomic.Uint32 // values the chip should hold
	pending   atomic.Uint32               // bitmap of registers not yet sent

	selectPin          GPIOPin
	configuredChopConf ChopConf // chopper value used while enabled
	enabled            bool

	axis                 atomic.Uint32 // motion axis queried for stall gating
	microstepShift       atomic.Uint32
	maxStallStepInterval atomic.Uint32 // slowest full step interval with a usable stall reading

	liveStatus        atomic.Uint32 // most recent filtered reply
	accumulatedStatus atomic.Uint32 // sticky OR since the last consumer clear
	loadWindow        atomic.Uint32 // packed min/max load since the last report
}

// init installs the defaults with the driver disabled. The chain must not
// be running.
func (d *driverState) init(axis uint32, pin GPIOPin) {
	d.axis.Store(axis)
	d.selectPin = pin
	d.enabled = false
	d.registers[DriveControl].Store(defaultDrvCtrl)
	d.configuredChopConf = defaultChopConf
	d.registers[ChopperControl].Store(uint32(defaultChopConf.WithOffTime(0)))
	d.registers[SmartEnable].Store(defaultSmartEn)
	d.registers[StallGuardConfig].Store(defaultSGCSConf)
	d.registers[DriveConfig].Store(defaultDrvConf)
	d.pending.Store(updateAllRegisters)
	d.liveStatus.Store(0)
	d.accumulatedStatus.Store(0)
	d.resetLoadWindow()
	d.setMicrostepping(DefaultMicrostepShift, DefaultInterpolation)
	d.setStallThreshold(DefaultStallThreshold)
	d.setStallFilter(DefaultStallFiltered)
	d.setStallMinimumStepsPerSecond(DefaultMinimumStepsPerSec)
}

// write stores a register value and marks it for sending
func (d *driverState) write(reg Register, val uint32) {
	d.registers[reg].Store(val)
	d.pending.Or(1 << reg)
}

func (d *driverState) register(reg Register) uint32 {
	return d.registers[reg].Load()
}

// writeAll marks every register for sending after a power loss
func (d *driverState) writeAll() {
	d.pending.Or(updateAllRegisters)
}

func (d *driverState) setChopConf(c ChopConf) error {
	if !c.Valid() {
		return ErrInvalidChopConf
	}
	d.configuredChopConf = ChopConf(uint32(c)&TMC2660_DATA_MASK | TMC2660_REG_CHOPCONF)
	d.updateChopConf()
	return nil
}

func (d *driverState) setOffTime(toff uint32) error {
	if toff > 15 {
		return ErrInvalidOffTime
	}
	return d.setChopConf(d.configuredChopConf.WithOffTime(toff))
}

func (d *driverState) setDriverMode(mode DriverMode) error {
	c := d.configuredChopConf
	switch mode {
	case DriverModeConstantOffTime:
		return d.setChopConf(c&^TMC2660_CHOPCONF_RNDTF | TMC2660_CHOPCONF_CHM)
	case DriverModeRandomOffTime:
		return d.setChopConf(c | TMC2660_CHOPCONF_RNDTF | TMC2660_CHOPCONF_CHM)
	case DriverModeSpreadCycle:
		return d.setChopConf(c &^ (TMC2660_CHOPCONF_RNDTF | TMC2660_CHOPCONF_CHM))
	default:
		return ErrInvalidDriverMode
	}
}

// updateChopConf regenerates the effective chopper value. A disabled
// driver gets TOFF=0, which switches its bridges off.
func (d *driverState) updateChopConf() {
	c := d.configuredChopConf
	if !d.enabled {
		c = c.WithOffTime(0)
	}
	d.write(ChopperControl, uint32(c))
}

func (d *driverState) setMicrostepping(shift uint32, interpolate bool) {
	d.microstepShift.Store(shift)
	ctrl := DrvCtrl(d.register(DriveControl)).WithMicrostepping(shift, interpolate)
	d.write(DriveControl, uint32(ctrl))
}

func (d *driverState) microstepping() (microsteps uint32, interpolate bool) {
	return 1 << d.microstepShift.Load(), DrvCtrl(d.register(DriveControl)).Interpolate()
}

// setCurrent sets the current scale from a current in mA. With the 0.051
// ohm sense resistor and VSENSE=1 one CS step is about 101mA.
func (d *driverState) setCurrent(current float32) {
	if current < MinMotorCurrent {
		current = MinMotorCurrent
	} else if current > MaximumMotorCurrent {
		current = MaximumMotorCurrent
	}
	iCurrent := uint32(current)
	cs := (32*iCurrent - 1600) / 3236
	sg := SGCSConf(d.register(StallGuardConfig)).WithCurrentScale(cs)
	d.write(StallGuardConfig, uint32(sg))
}

func (d *driverState) setStallThreshold(threshold int) {
	sg := SGCSConf(d.register(StallGuardConfig)).WithStallThreshold(threshold)
	d.write(StallGuardConfig, uint32(sg))
}

func (d *driverState) setStallFilter(on bool) {
	sg := SGCSConf(d.register(StallGuardConfig)).WithFilter(on)
	d.write(StallGuardConfig, uint32(sg))
}

func (d *driverState) setStallMinimumStepsPerSecond(stepsPerSecond uint32) {
	if stepsPerSecond < 1 {
		stepsPerSecond = 1
	}
	interval := StepClockRate / stepsPerSecond
	if interval < 1 {
		interval = 1 // rates above the step clock gate at one tick
	}
	d.maxStallStepInterval.Store(interval)
}

// setCoolStep passes the coolStep bits straight through, unchecked.
func (d *driverState) setCoolStep(config uint16) {
	d.write(SmartEnable, TMC2660_REG_SMARTEN|uint32(config))
}

// enable switches the bridges on or off by way of the chopper off time
func (d *driverState) enable(on bool) {
	if d.enabled == on {
		return
	}
	if on {
		// A stall read while disabled means nothing; it may not be
		// superseded until the next full step position.
		d.clearStall()
	}
	d.enabled = on
	d.updateChopConf()
}
