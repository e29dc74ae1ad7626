package core

// SmartDrivers is the public face of the TMC2660 chain: per-driver
// configuration, status reads, and the power transitions that start and
// stop the chain.
//
// All per-driver operations take a driver index. An index outside
// [0, NumDrivers()) is a silent no-op: setters do nothing, fallible
// setters return ErrNoSuchDriver, and getters return their zero default.

import (
	"math/bits"
	"time"
)

// powerUpSettle is how long the drivers get after ENN goes low before the
// first datagram.
var powerUpSettle = 10 * time.Microsecond

// SmartDrivers owns the driver arena and the transfer chain.
type SmartDrivers struct {
	drivers   [MaxSmartDrivers]driverState
	chain     chain
	enablePin GPIOPin // ENN, shared by all drivers, active low
}

// NewSmartDrivers wires the chain to its transport and motion system.
// Init must be called before Spin.
func NewSmartDrivers(transport ChainTransport, motion StepIntervalSource, enablePin GPIOPin) *SmartDrivers {
	s := &SmartDrivers{enablePin: enablePin}
	s.chain.transport = transport
	s.chain.motion = motion
	s.chain.drivers = &s.drivers
	s.chain.current.Store(chainIdle)
	transport.SetCompletionHandler(s.chain.advance)
	return s
}

// Init configures the select lines and installs default register values
// with every driver disabled. The drivers are assumed unpowered; Spin(true)
// must follow before any motor can move.
func (s *SmartDrivers) Init(selectPins []GPIOPin, count int) error {
	if count > MaxSmartDrivers {
		count = MaxSmartDrivers
	}
	if count > len(selectPins) {
		count = len(selectPins)
	}
	if count < 0 {
		count = 0
	}

	gpio := MustGPIO()
	if err := gpio.ConfigureOutput(s.enablePin); err != nil {
		return err
	}
	if err := gpio.SetPin(s.enablePin, true); err != nil {
		return err
	}

	s.chain.powered.Store(false)
	for i := 0; i < count; i++ {
		if err := gpio.ConfigureOutput(selectPins[i]); err != nil {
			return err
		}
		if err := gpio.SetPin(selectPins[i], true); err != nil {
			return err
		}
		s.drivers[i].init(uint32(i), selectPins[i]) // axes map straight through to drivers initially
	}
	s.chain.count = count
	return nil
}

// NumDrivers returns the number of drivers set up by Init
func (s *SmartDrivers) NumDrivers() int {
	return s.chain.count
}

func (s *SmartDrivers) driver(index int) *driverState {
	if index < 0 || index >= s.chain.count {
		return nil
	}
	return &s.drivers[index]
}

// Spin is called from the control loop with the current state of motor
// power. A rising edge enables the drivers and queues a full resync of
// every register; while powered an idle chain is restarted at driver 0.
func (s *SmartDrivers) Spin(powered bool) {
	wasPowered := s.chain.powered.Swap(powered)
	if powered {
		if !wasPowered {
			_ = MustGPIO().SetPin(s.enablePin, false)
			time.Sleep(powerUpSettle)
			for i := 0; i < s.chain.count; i++ {
				s.drivers[i].writeAll()
			}
			RecordEvent(EvtPowerUp, 0, uint32(s.chain.count), 0)
			DebugPrintln("[TMC] drivers powered, resyncing " + itoa(s.chain.count))
		}
		if s.chain.kick() {
			RecordEvent(EvtChainStart, 0, 0, 0)
		}
	} else if wasPowered {
		_ = MustGPIO().SetPin(s.enablePin, true)
		RecordEvent(EvtPowerDown, 0, 0, 0)
		DebugPrintln("[TMC] drivers unpowered")
	}
}

// ForceOff disables the drivers immediately. It may be called from an
// interrupt of higher priority than the completion interrupt; a transfer
// in flight finishes and the chain stops at its completion.
func (s *SmartDrivers) ForceOff() {
	_ = MustGPIO().SetPin(s.enablePin, true)
	s.chain.powered.Store(false)
	RecordEvent(EvtForceOff, 0, 0, 0)
}

// Powered reports the power state last set by Spin or ForceOff
func (s *SmartDrivers) Powered() bool {
	return s.chain.powered.Load()
}

// Running reports whether a transfer chain is in progress
func (s *SmartDrivers) Running() bool {
	return s.chain.running()
}

// CurrentDriver returns the driver that owns the bus, or -1
func (s *SmartDrivers) CurrentDriver() int {
	return int(s.chain.current.Load())
}

// SetAxisNumber selects the motion axis consulted for stall gating
func (s *SmartDrivers) SetAxisNumber(driver int, axis uint32) {
	if d := s.driver(driver); d != nil {
		d.axis.Store(axis)
	}
}

// SetCurrent sets the motor current in mA, clamped to 100..2400
func (s *SmartDrivers) SetCurrent(driver int, current float32) {
	if d := s.driver(driver); d != nil {
		d.setCurrent(current)
	}
}

// EnableDrive switches a driver's bridges on or off
func (s *SmartDrivers) EnableDrive(driver int, on bool) {
	if d := s.driver(driver); d != nil {
		d.enable(on)
	}
}

// IsEnabled reports whether the driver is enabled
func (s *SmartDrivers) IsEnabled(driver int) bool {
	d := s.driver(driver)
	return d != nil && d.enabled
}

// GetLiveStatus returns the flags of the most recent reply
func (s *SmartDrivers) GetLiveStatus(driver int) Status {
	if d := s.driver(driver); d != nil {
		return d.readLiveStatus()
	}
	return 0
}

// GetAccumulatedStatus returns the flags seen since the last call and
// clears all but bitsToKeep.
func (s *SmartDrivers) GetAccumulatedStatus(driver int, bitsToKeep Status) Status {
	if d := s.driver(driver); d != nil {
		return d.readAccumulatedStatus(bitsToKeep)
	}
	return 0
}

// ReadAccumulatedStatus returns the flags seen since the last call and
// clears exactly the bits in clear.
func (s *SmartDrivers) ReadAccumulatedStatus(driver int, clear Status) Status {
	return s.GetAccumulatedStatus(driver, ^clear)
}

// SetMicrostepping sets the resolution to microsteps, which must be a
// power of two from 1 to 256.
func (s *SmartDrivers) SetMicrostepping(driver int, microsteps uint32, interpolate bool) error {
	d := s.driver(driver)
	if d == nil {
		return ErrNoSuchDriver
	}
	if bits.OnesCount32(microsteps) != 1 || bits.TrailingZeros32(microsteps) > 8 {
		return ErrInvalidMicrostepping
	}
	d.setMicrostepping(uint32(bits.TrailingZeros32(microsteps)), interpolate)
	return nil
}

// GetMicrostepping returns the resolution and interpolation, or 1 and
// false for a bad index.
func (s *SmartDrivers) GetMicrostepping(driver int) (uint32, bool) {
	if d := s.driver(driver); d != nil {
		return d.microstepping()
	}
	return 1, false
}

// SetChopperControlRegister validates and stores a new configured CHOPCONF.
// On failure the previous value stays in force.
func (s *SmartDrivers) SetChopperControlRegister(driver int, ccr uint32) error {
	d := s.driver(driver)
	if d == nil {
		return ErrNoSuchDriver
	}
	return d.setChopConf(ChopConf(ccr))
}

// GetChopperControlRegister returns the configured CHOPCONF payload, which
// is independent of the enable state.
func (s *SmartDrivers) GetChopperControlRegister(driver int) uint32 {
	if d := s.driver(driver); d != nil {
		return uint32(d.configuredChopConf) & TMC2660_DATA_MASK
	}
	return 0
}

// SetOffTime replaces the TOFF field of the configured CHOPCONF
func (s *SmartDrivers) SetOffTime(driver int, offTime uint32) error {
	d := s.driver(driver)
	if d == nil {
		return ErrNoSuchDriver
	}
	return d.setOffTime(offTime)
}

// GetOffTime returns the configured TOFF field
func (s *SmartDrivers) GetOffTime(driver int) uint32 {
	if d := s.driver(driver); d != nil {
		return d.configuredChopConf.OffTime()
	}
	return 0
}

// SetDriverMode selects spreadCycle or constant off time chopping
func (s *SmartDrivers) SetDriverMode(driver int, mode DriverMode) error {
	d := s.driver(driver)
	if d == nil {
		return ErrNoSuchDriver
	}
	return d.setDriverMode(mode)
}

// GetDriverMode returns the configured chopper mode
func (s *SmartDrivers) GetDriverMode(driver int) DriverMode {
	if d := s.driver(driver); d != nil {
		return d.configuredChopConf.Mode()
	}
	return DriverModeUnknown
}

// SetStallThreshold sets the stallGuard2 threshold, clamped to -64..63
func (s *SmartDrivers) SetStallThreshold(driver int, threshold int) {
	if d := s.driver(driver); d != nil {
		d.setStallThreshold(threshold)
	}
}

// SetStallFilter turns the stallGuard2 filter on or off
func (s *SmartDrivers) SetStallFilter(driver int, on bool) {
	if d := s.driver(driver); d != nil {
		d.setStallFilter(on)
	}
}

// SetStallMinimumStepsPerSecond sets the full step rate below which stall
// readings are ignored.
func (s *SmartDrivers) SetStallMinimumStepsPerSecond(driver int, stepsPerSecond uint32) {
	if d := s.driver(driver); d != nil {
		d.setStallMinimumStepsPerSecond(stepsPerSecond)
	}
}

// SetCoolStep writes the coolStep configuration bits unchecked
func (s *SmartDrivers) SetCoolStep(driver int, config uint16) {
	if d := s.driver(driver); d != nil {
		d.setCoolStep(config)
	}
}

// GetStandstillCurrentPercent always returns 100: the chip does not
// reduce current at standstill.
func (s *SmartDrivers) GetStandstillCurrentPercent(driver int) float32 {
	return standstillCurrentPercentMax
}

// SetStandstillCurrentPercent is accepted and ignored
func (s *SmartDrivers) SetStandstillCurrentPercent(driver int, percent float32) {}

// GetRegister returns the value a register holds or will hold once sent,
// which for CHOPCONF is the effective value.
func (s *SmartDrivers) GetRegister(driver int, reg Register) uint32 {
	if d := s.driver(driver); d != nil && reg < NumRegisters {
		return d.register(reg)
	}
	return 0
}

// PendingRegisters returns the bitmap of registers not yet sent
func (s *SmartDrivers) PendingRegisters(driver int) uint32 {
	if d := s.driver(driver); d != nil {
		return d.pending.Load()
	}
	return 0
}

// AppendStallConfig appends the stall detection settings to b
func (s *SmartDrivers) AppendStallConfig(b []byte, driver int) []byte {
	if d := s.driver(driver); d != nil {
		return d.appendStallConfig(b)
	}
	return b
}

// AppendStatusReport appends the fault summary and the stallGuard2 load
// range to b, and starts a new load range.
func (s *SmartDrivers) AppendStatusReport(b []byte, driver int) []byte {
	if d := s.driver(driver); d != nil {
		return d.appendStatus(b)
	}
	return b
}

// AppendReport appends one "Driver N:" report line, newline included
func (s *SmartDrivers) AppendReport(b []byte, driver int) []byte {
	d := s.driver(driver)
	if d == nil {
		return b
	}
	b = append(b, "Driver "...)
	b = appendUint(b, uint32(driver))
	b = append(b, ':')
	b = d.appendStatus(b)
	b = append(b, ", "...)
	b = d.appendStallConfig(b)
	return append(b, '\n')
}
